package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdjustFeeRate(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultPolicy())

	pool, _ := newTestRecords(t, 75, 100, 0)
	pool.StakedLiquidity = 81
	event, changed := engine.AdjustFeeRate(&pool)
	require.True(t, changed)
	require.Equal(t, uint64(50), pool.FeeRate)
	require.Equal(t, uint64(75), event.OldFeeRate)
	require.Equal(t, uint64(8100), event.UtilizationBps)

	pool.StakedLiquidity = 79
	_, changed = engine.AdjustFeeRate(&pool)
	require.True(t, changed)
	require.Equal(t, uint64(100), pool.FeeRate)

	pool.StakedLiquidity = 80
	engine.AdjustFeeRate(&pool)
	require.Equal(t, uint64(100), pool.FeeRate)

	again := pool
	engine.AdjustFeeRate(&again)
	require.Equal(t, pool, again)
}

func TestAdjustFeeRateEmptyPoolUnchanged(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultPolicy())
	pool, _ := newTestRecords(t, 75, 0, 0)
	pool.StakedLiquidity = 10
	before := pool

	_, changed := engine.AdjustFeeRate(&pool)
	require.False(t, changed)
	require.Equal(t, before, pool)
}
