package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"rebateLedger/internal/model"
)

func TestQuoteSlippage(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultPolicy())
	pool, _ := newTestRecords(t, 100, 102_010, 0)

	// 1010 * (1 - 1010/102010) = 1000 exactly.
	quote, err := engine.Quote(pool, 1010)
	require.NoError(t, err)
	require.Equal(t, TradeQuote{SlippageBps: 99, Effective: 1000, Fee: 10, Rebate: 5}, quote)

	// 1000 * (1 - 1000/1000000) = 999.0; 1001 * (1 - 1001/1000000) = 999.997999 -> 999
	pool.Liquidity = 1_000_000
	quote, err = engine.Quote(pool, 1001)
	require.NoError(t, err)
	require.Equal(t, uint64(999), quote.Effective)
}

func TestQuoteWholePoolLeavesNothing(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultPolicy())
	pool, _ := newTestRecords(t, 100, 500, 0)

	quote, err := engine.Quote(pool, 500)
	require.NoError(t, err)
	require.Zero(t, quote.Effective)
	require.Zero(t, quote.Fee)
	require.Equal(t, BasisPoints, quote.SlippageBps)
}

func TestTradeFeeRebateSplit(t *testing.T) {
	engine, clock := newTestEngine(t, DefaultPolicy())
	pool, user := newTestRecords(t, 100, 102_010, 5000)
	record := model.TradeRecord{ID: "trade-1"}

	event, err := engine.TradeWithSlippage(&pool, &user, &record, 1010)
	require.NoError(t, err)

	require.Equal(t, uint64(3990), user.BalanceA)
	require.Equal(t, uint64(990), user.BalanceB)
	require.Equal(t, uint64(5), user.RebatesEarned)
	require.Equal(t, uint64(1010), user.TradeVolume)
	require.Equal(t, clock.now.Unix(), user.LastTradeTime)
	require.Equal(t, uint64(102_020), pool.Liquidity)

	require.Equal(t, model.TradeRecord{
		ID:            "trade-1",
		PoolID:        testPool,
		ParticipantID: testUser,
		Time:          clock.now.Unix(),
		TradeAmount:   1010,
		Fee:           10,
		Rebate:        5,
	}, record)
	require.Equal(t, model.TradeEvent{
		Participant: testUser,
		TradeAmount: 1010,
		Fee:         10,
		Rebate:      5,
		BalanceA:    3990,
		BalanceB:    990,
		Time:        clock.now.Unix(),
	}, event)
}

func TestTradeCooldown(t *testing.T) {
	engine, clock := newTestEngine(t, DefaultPolicy())
	pool, user := newTestRecords(t, 100, 1_000_000, 10_000)
	clock.Set(1_000)

	var first model.TradeRecord
	_, err := engine.TradeWithSlippage(&pool, &user, &first, 100)
	require.NoError(t, err)

	clock.Set(1_059)
	poolBefore, userBefore := pool, user
	var second model.TradeRecord
	_, err = engine.TradeWithSlippage(&pool, &user, &second, 100)
	require.ErrorIs(t, err, ErrCooldownNotElapsed)
	require.Equal(t, poolBefore, pool)
	require.Equal(t, userBefore, user)
	require.Equal(t, model.TradeRecord{}, second)

	clock.Set(1_060)
	_, err = engine.TradeWithSlippage(&pool, &user, &second, 100)
	require.NoError(t, err)
	require.Equal(t, int64(1_060), user.LastTradeTime)
}

func TestTradeEmptyPool(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultPolicy())
	pool, user := newTestRecords(t, 100, 0, 10_000)
	userBefore := user
	var record model.TradeRecord

	_, err := engine.TradeWithSlippage(&pool, &user, &record, 100)
	require.ErrorIs(t, err, ErrPoolEmpty)
	require.Equal(t, userBefore, user)
}

func TestTradeLargerThanPoolIsRejected(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultPolicy())
	pool, user := newTestRecords(t, 100, 1000, 10_000)
	poolBefore, userBefore := pool, user
	var record model.TradeRecord

	_, err := engine.TradeWithSlippage(&pool, &user, &record, 1001)
	require.ErrorIs(t, err, ErrSlippageExceeded)
	require.Equal(t, poolBefore, pool)
	require.Equal(t, userBefore, user)
}

func TestTradeMaxSlippageBound(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxSlippageBps = 500
	engine, _ := newTestEngine(t, policy)
	pool, user := newTestRecords(t, 100, 10_000, 10_000)
	var record model.TradeRecord

	_, err := engine.TradeWithSlippage(&pool, &user, &record, 501)
	require.ErrorIs(t, err, ErrSlippageExceeded)

	_, err = engine.TradeWithSlippage(&pool, &user, &record, 500)
	require.NoError(t, err)
}

func TestTradeInsufficientFunds(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultPolicy())
	pool, user := newTestRecords(t, 100, 1_000_000, 99)
	poolBefore, userBefore := pool, user
	var record model.TradeRecord

	_, err := engine.TradeWithSlippage(&pool, &user, &record, 100)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, poolBefore, pool)
	require.Equal(t, userBefore, user)
}

func TestTradeBalanceOverflowLeavesRecords(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultPolicy())
	pool, user := newTestRecords(t, 100, 1_000_000, 10_000)
	user.BalanceB = math.MaxUint64 - 10
	poolBefore, userBefore := pool, user
	var record model.TradeRecord

	_, err := engine.TradeWithSlippage(&pool, &user, &record, 1000)
	require.ErrorIs(t, err, ErrArithmeticOverflow)
	require.Equal(t, poolBefore, pool)
	require.Equal(t, userBefore, user)
	require.Equal(t, model.TradeRecord{}, record)
}

func TestTradeVolumeBonusBoundary(t *testing.T) {
	engine, _ := newTestEngine(t, DefaultPolicy())

	// 1000 against 1e9 liquidity: effective 999, fee 9, rebate 4.
	pool, user := newTestRecords(t, 100, 1_000_000_000, 10_000)
	user.TradeVolume = 9_000
	var record model.TradeRecord
	event, err := engine.TradeWithSlippage(&pool, &user, &record, 1000)
	require.NoError(t, err)
	require.Equal(t, uint64(100), event.VolumeBonus)
	require.Equal(t, uint64(104), user.RebatesEarned)
	require.Zero(t, user.TradeVolume)

	pool, user = newTestRecords(t, 100, 1_000_000_000, 10_000)
	user.TradeVolume = 8_999
	event, err = engine.TradeWithSlippage(&pool, &user, &record, 1000)
	require.NoError(t, err)
	require.Zero(t, event.VolumeBonus)
	require.Equal(t, uint64(4), user.RebatesEarned)
	require.Equal(t, uint64(9_999), user.TradeVolume)
}
