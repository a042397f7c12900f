package model

import "time"

// PoolWindowMetrics stores aggregated trade metrics for a pool window.
type PoolWindowMetrics struct {
	PoolID         ID        `json:"pool_id"`
	WindowSizeSecs int64     `json:"window_size_seconds"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	TradeCount     uint64    `json:"trade_count"`
	Participants   uint64    `json:"participants"`
	Volume         string    `json:"volume"`
	Fees           string    `json:"fees"`
	Rebates        string    `json:"rebates"`
	FeeRate        *string   `json:"fee_rate,omitempty"`
	RebateShare    *string   `json:"rebate_share,omitempty"`
}
