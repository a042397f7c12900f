package model

// StakePosition is a single time-locked stake. A participant may hold many.
type StakePosition struct {
	ID            string `json:"id"`
	PoolID        ID     `json:"pool_id"`
	ParticipantID ID     `json:"participant_id"`
	Amount        uint64 `json:"amount"`
	LockUntil     int64  `json:"lock_until"`
	// PendingReward is only used when rewards are paid at maturity.
	PendingReward uint64 `json:"pending_reward"`
	CreatedAt     int64  `json:"created_at"`
}

// Closed reports whether the whole stake has been withdrawn.
func (p StakePosition) Closed() bool {
	return p.Amount == 0
}
