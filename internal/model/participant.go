package model

// ParticipantState holds one user's balances and trading history within a pool.
type ParticipantState struct {
	ID            ID     `json:"id"`
	PoolID        ID     `json:"pool_id"`
	BalanceA      uint64 `json:"balance_a"`
	BalanceB      uint64 `json:"balance_b"`
	RebatesEarned uint64 `json:"rebates_earned"`
	LastTradeTime int64  `json:"last_trade_time"`
	TradeVolume   uint64 `json:"trade_volume"`
}
