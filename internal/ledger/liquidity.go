package ledger

import "rebateLedger/internal/model"

// ProvideLiquidity moves amount of asset A from the participant into the pool.
func (e *Engine) ProvideLiquidity(pool *model.PoolState, participant *model.ParticipantState, amount uint64) (model.LiquidityEvent, error) {
	if err := checkMembership(pool, participant); err != nil {
		return model.LiquidityEvent{}, err
	}
	if participant.BalanceA < amount {
		return model.LiquidityEvent{}, insufficient(participant.BalanceA, amount)
	}

	balanceA, err := checkedSub(participant.BalanceA, amount)
	if err != nil {
		return model.LiquidityEvent{}, err
	}
	liquidity, err := checkedAdd(pool.Liquidity, amount)
	if err != nil {
		return model.LiquidityEvent{}, err
	}

	participant.BalanceA = balanceA
	pool.Liquidity = liquidity

	return model.LiquidityEvent{
		Participant: participant.ID,
		Amount:      amount,
		Liquidity:   pool.Liquidity,
		Time:        e.now(),
	}, nil
}
