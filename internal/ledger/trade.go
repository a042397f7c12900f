package ledger

import (
	"fmt"

	"rebateLedger/internal/model"
)

// TradeQuote is the priced outcome of a trade against the current pool depth.
type TradeQuote struct {
	SlippageBps uint64 `json:"slippage_bps"`
	Effective   uint64 `json:"effective"`
	Fee         uint64 `json:"fee"`
	Rebate      uint64 `json:"rebate"`
}

// Quote prices a trade without touching any record. The effective amount is
// tradeAmount*(1 - tradeAmount/liquidity), truncated toward zero.
func (e *Engine) Quote(pool model.PoolState, tradeAmount uint64) (TradeQuote, error) {
	if pool.Liquidity == 0 {
		return TradeQuote{}, ErrPoolEmpty
	}
	if productGreater(tradeAmount, BasisPoints, e.policy.MaxSlippageBps, pool.Liquidity) {
		return TradeQuote{}, fmt.Errorf("%w: %d of %d liquidity exceeds %d bps",
			ErrSlippageExceeded, tradeAmount, pool.Liquidity, e.policy.MaxSlippageBps)
	}

	impact, err := mulDivUp(tradeAmount, tradeAmount, pool.Liquidity)
	if err != nil {
		return TradeQuote{}, err
	}
	effective, err := checkedSub(tradeAmount, impact)
	if err != nil {
		return TradeQuote{}, err
	}
	fee, err := mulDiv(effective, pool.FeeRate, BasisPoints)
	if err != nil {
		return TradeQuote{}, err
	}

	return TradeQuote{
		SlippageBps: ratioBps(tradeAmount, pool.Liquidity),
		Effective:   effective,
		Fee:         fee,
		Rebate:      fee / e.policy.RebateDivisor,
	}, nil
}

// TradeWithSlippage swaps tradeAmount of asset A for asset B and fills the
// supplied empty trade record. Only the fee is credited to the pool; the rest
// of the asset A leaving the participant is not attributed to any record.
func (e *Engine) TradeWithSlippage(pool *model.PoolState, participant *model.ParticipantState, record *model.TradeRecord, tradeAmount uint64) (model.TradeEvent, error) {
	if err := checkMembership(pool, participant); err != nil {
		return model.TradeEvent{}, err
	}
	if record == nil {
		return model.TradeEvent{}, fmt.Errorf("%w: missing trade record", ErrRecordMismatch)
	}

	now := e.now()
	readyAt, err := addSeconds(participant.LastTradeTime, e.policy.cooldownSeconds())
	if err != nil {
		return model.TradeEvent{}, err
	}
	if now < readyAt {
		return model.TradeEvent{}, fmt.Errorf("%w: next trade at %d", ErrCooldownNotElapsed, readyAt)
	}

	quote, err := e.Quote(*pool, tradeAmount)
	if err != nil {
		return model.TradeEvent{}, err
	}

	if participant.BalanceA < tradeAmount {
		return model.TradeEvent{}, insufficient(participant.BalanceA, tradeAmount)
	}

	balanceA, err := checkedSub(participant.BalanceA, tradeAmount)
	if err != nil {
		return model.TradeEvent{}, err
	}
	proceeds, err := checkedSub(quote.Effective, quote.Fee)
	if err != nil {
		return model.TradeEvent{}, err
	}
	balanceB, err := checkedAdd(participant.BalanceB, proceeds)
	if err != nil {
		return model.TradeEvent{}, err
	}
	liquidity, err := checkedAdd(pool.Liquidity, quote.Fee)
	if err != nil {
		return model.TradeEvent{}, err
	}
	rebates, err := checkedAdd(participant.RebatesEarned, quote.Rebate)
	if err != nil {
		return model.TradeEvent{}, err
	}
	volume, err := checkedAdd(participant.TradeVolume, tradeAmount)
	if err != nil {
		return model.TradeEvent{}, err
	}

	var bonus uint64
	if volume >= e.policy.VolumeBonusThreshold {
		bonus = volume / e.policy.VolumeBonusDivisor
		rebates, err = checkedAdd(rebates, bonus)
		if err != nil {
			return model.TradeEvent{}, err
		}
		volume = 0
	}

	participant.BalanceA = balanceA
	participant.BalanceB = balanceB
	participant.RebatesEarned = rebates
	participant.TradeVolume = volume
	participant.LastTradeTime = now
	pool.Liquidity = liquidity

	*record = model.TradeRecord{
		ID:            record.ID,
		PoolID:        pool.ID,
		ParticipantID: participant.ID,
		Time:          now,
		TradeAmount:   tradeAmount,
		Fee:           quote.Fee,
		Rebate:        quote.Rebate,
	}

	return model.TradeEvent{
		Participant: participant.ID,
		TradeAmount: tradeAmount,
		Fee:         quote.Fee,
		Rebate:      quote.Rebate,
		VolumeBonus: bonus,
		BalanceA:    participant.BalanceA,
		BalanceB:    participant.BalanceB,
		Time:        now,
	}, nil
}
