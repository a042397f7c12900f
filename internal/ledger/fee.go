package ledger

import "rebateLedger/internal/model"

// AdjustFeeRate sets the pool fee from utilization (staked / liquidity):
// HighFeeRate when utilization is strictly above HighUtilizationBps, else
// BaseFeeRate. An empty pool is left unchanged and reports false.
func (e *Engine) AdjustFeeRate(pool *model.PoolState) (model.FeeRateEvent, bool) {
	if pool == nil || pool.Liquidity == 0 {
		return model.FeeRateEvent{}, false
	}

	rate := e.policy.BaseFeeRate
	if productGreater(pool.StakedLiquidity, BasisPoints, pool.Liquidity, e.policy.HighUtilizationBps) {
		rate = e.policy.HighFeeRate
	}

	event := model.FeeRateEvent{
		OldFeeRate:     pool.FeeRate,
		NewFeeRate:     rate,
		UtilizationBps: ratioBps(pool.StakedLiquidity, pool.Liquidity),
		Time:           e.now(),
	}
	pool.FeeRate = rate
	return event, true
}
