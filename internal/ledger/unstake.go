package ledger

import (
	"fmt"

	"rebateLedger/internal/model"
)

// Unstake withdraws amount from a stake position. Before lock_until the
// participant receives amount minus amount/PenaltyDivisor; the penalty is
// burned or credited to the pool depending on the policy. The position's
// amount is reduced by the full withdrawn amount.
func (e *Engine) Unstake(position *model.StakePosition, participant *model.ParticipantState, pool *model.PoolState, amount uint64) (model.UnstakingEvent, error) {
	if err := checkMembership(pool, participant); err != nil {
		return model.UnstakingEvent{}, err
	}
	if position == nil {
		return model.UnstakingEvent{}, fmt.Errorf("%w: missing stake position", ErrRecordMismatch)
	}
	if position.PoolID != pool.ID || position.ParticipantID != participant.ID {
		return model.UnstakingEvent{}, fmt.Errorf("%w: position %s is not owned by %s", ErrRecordMismatch, position.ID, participant.ID.Hex())
	}
	if position.Amount < amount {
		return model.UnstakingEvent{}, insufficient(position.Amount, amount)
	}

	now := e.now()
	early := now < position.LockUntil

	var penalty uint64
	if early {
		penalty = amount / e.policy.PenaltyDivisor
	}
	payout, err := checkedSub(amount, penalty)
	if err != nil {
		return model.UnstakingEvent{}, err
	}
	balanceA, err := checkedAdd(participant.BalanceA, payout)
	if err != nil {
		return model.UnstakingEvent{}, err
	}
	staked, err := checkedSub(pool.StakedLiquidity, amount)
	if err != nil {
		return model.UnstakingEvent{}, err
	}
	liquidity := pool.Liquidity
	if penalty > 0 && e.policy.PenaltySink == PenaltyToPool {
		liquidity, err = checkedAdd(liquidity, penalty)
		if err != nil {
			return model.UnstakingEvent{}, err
		}
	}
	remaining, err := checkedSub(position.Amount, amount)
	if err != nil {
		return model.UnstakingEvent{}, err
	}

	// Pending rewards release pro rata with the withdrawn amount; an early
	// withdrawal forfeits its share.
	pending := position.PendingReward
	rebates := participant.RebatesEarned
	var paid uint64
	if pending > 0 && amount > 0 {
		share, err := mulDiv(pending, amount, position.Amount)
		if err != nil {
			return model.UnstakingEvent{}, err
		}
		pending -= share
		if !early {
			paid = share
			rebates, err = checkedAdd(rebates, share)
			if err != nil {
				return model.UnstakingEvent{}, err
			}
		}
	}

	participant.BalanceA = balanceA
	participant.RebatesEarned = rebates
	pool.StakedLiquidity = staked
	pool.Liquidity = liquidity
	position.Amount = remaining
	position.PendingReward = pending

	return model.UnstakingEvent{
		Participant:     participant.ID,
		PositionID:      position.ID,
		Amount:          amount,
		Penalty:         penalty,
		Reward:          paid,
		StakedLiquidity: pool.StakedLiquidity,
		Time:            now,
	}, nil
}
