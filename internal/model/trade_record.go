package model

// TradeRecord is the immutable receipt of one trade.
type TradeRecord struct {
	ID            string `json:"id"`
	PoolID        ID     `json:"pool_id"`
	ParticipantID ID     `json:"participant_id"`
	Time          int64  `json:"time"`
	TradeAmount   uint64 `json:"trade_amount"`
	Fee           uint64 `json:"fee"`
	Rebate        uint64 `json:"rebate"`
}
