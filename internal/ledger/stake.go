package ledger

import (
	"fmt"

	"rebateLedger/internal/model"
)

// StakeWithLock locks amount into the supplied empty position until
// now+lockSeconds. The reward is amount*lockSeconds/30 days and is credited
// according to the policy's reward timing.
func (e *Engine) StakeWithLock(pool *model.PoolState, participant *model.ParticipantState, position *model.StakePosition, amount uint64, lockSeconds int64) (model.StakingEvent, error) {
	if err := checkMembership(pool, participant); err != nil {
		return model.StakingEvent{}, err
	}
	if position == nil {
		return model.StakingEvent{}, fmt.Errorf("%w: missing stake position", ErrRecordMismatch)
	}
	if lockSeconds < 0 {
		return model.StakingEvent{}, fmt.Errorf("%w: %ds", ErrInvalidLockDuration, lockSeconds)
	}
	if participant.BalanceA < amount {
		return model.StakingEvent{}, insufficient(participant.BalanceA, amount)
	}

	now := e.now()
	balanceA, err := checkedSub(participant.BalanceA, amount)
	if err != nil {
		return model.StakingEvent{}, err
	}
	staked, err := checkedAdd(pool.StakedLiquidity, amount)
	if err != nil {
		return model.StakingEvent{}, err
	}
	lockUntil, err := addSeconds(now, lockSeconds)
	if err != nil {
		return model.StakingEvent{}, err
	}
	reward, err := mulDiv(amount, uint64(lockSeconds), SecondsPer30Days)
	if err != nil {
		return model.StakingEvent{}, err
	}

	rebates := participant.RebatesEarned
	var pending uint64
	if e.policy.RewardTiming == RewardAtMaturity {
		pending = reward
	} else {
		rebates, err = checkedAdd(rebates, reward)
		if err != nil {
			return model.StakingEvent{}, err
		}
	}

	participant.BalanceA = balanceA
	participant.RebatesEarned = rebates
	pool.StakedLiquidity = staked
	*position = model.StakePosition{
		ID:            position.ID,
		PoolID:        pool.ID,
		ParticipantID: participant.ID,
		Amount:        amount,
		LockUntil:     lockUntil,
		PendingReward: pending,
		CreatedAt:     now,
	}

	return model.StakingEvent{
		Participant:     participant.ID,
		PositionID:      position.ID,
		Amount:          amount,
		LockUntil:       lockUntil,
		Reward:          reward,
		StakedLiquidity: pool.StakedLiquidity,
		Time:            now,
	}, nil
}
