package model

import "encoding/json"

// Event names carried in Envelope.Name.
const (
	EventLiquidity = "liquidity"
	EventStaking   = "staking"
	EventTrade     = "trade"
	EventUnstaking = "unstaking"
	EventFeeRate   = "fee_rate"
)

// Event is a notification payload produced by a ledger operation.
type Event interface {
	EventName() string
	// EventTime is the clock reading the operation ran under.
	EventTime() int64
}

// LiquidityEvent is emitted after liquidity is provided.
type LiquidityEvent struct {
	Participant ID     `json:"participant"`
	Amount      uint64 `json:"amount"`
	Liquidity   uint64 `json:"liquidity"`
	Time        int64  `json:"time"`
}

// StakingEvent is emitted after a stake position is created.
type StakingEvent struct {
	Participant     ID     `json:"participant"`
	PositionID      string `json:"position_id"`
	Amount          uint64 `json:"amount"`
	LockUntil       int64  `json:"lock_until"`
	Reward          uint64 `json:"reward"`
	StakedLiquidity uint64 `json:"staked_liquidity"`
	Time            int64  `json:"time"`
}

// TradeEvent is emitted after a trade with the post-trade balances.
type TradeEvent struct {
	Participant ID     `json:"participant"`
	TradeAmount uint64 `json:"trade_amount"`
	Fee         uint64 `json:"fee"`
	Rebate      uint64 `json:"rebate"`
	VolumeBonus uint64 `json:"volume_bonus"`
	BalanceA    uint64 `json:"balance_a"`
	BalanceB    uint64 `json:"balance_b"`
	Time        int64  `json:"time"`
}

// UnstakingEvent is emitted after a withdrawal from a stake position.
type UnstakingEvent struct {
	Participant     ID     `json:"participant"`
	PositionID      string `json:"position_id"`
	Amount          uint64 `json:"amount"`
	Penalty         uint64 `json:"penalty"`
	Reward          uint64 `json:"reward"`
	StakedLiquidity uint64 `json:"staked_liquidity"`
	Time            int64  `json:"time"`
}

// FeeRateEvent is emitted by the fee-rate controller.
type FeeRateEvent struct {
	OldFeeRate     uint64 `json:"old_fee_rate"`
	NewFeeRate     uint64 `json:"new_fee_rate"`
	UtilizationBps uint64 `json:"utilization_bps"`
	Time           int64  `json:"time"`
}

func (LiquidityEvent) EventName() string { return EventLiquidity }
func (StakingEvent) EventName() string   { return EventStaking }
func (TradeEvent) EventName() string     { return EventTrade }
func (UnstakingEvent) EventName() string { return EventUnstaking }
func (FeeRateEvent) EventName() string   { return EventFeeRate }

func (e LiquidityEvent) EventTime() int64 { return e.Time }
func (e StakingEvent) EventTime() int64   { return e.Time }
func (e TradeEvent) EventTime() int64     { return e.Time }
func (e UnstakingEvent) EventTime() int64 { return e.Time }
func (e FeeRateEvent) EventTime() int64   { return e.Time }

// Envelope wraps an event for transport to a sink.
type Envelope struct {
	Name    string          `json:"name"`
	PoolID  ID              `json:"pool_id"`
	Time    int64           `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope encodes an event for a pool.
func NewEnvelope(poolID ID, ts int64, event Event) (Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Name:    event.EventName(),
		PoolID:  poolID,
		Time:    ts,
		Payload: payload,
	}, nil
}
