// Package ledger implements the accounting rules for pools, participants,
// stake positions and trade receipts. Every operation validates and computes
// into locals first and writes to the records only once all checks passed, so
// a returned error always leaves the records untouched.
package ledger

import (
	"fmt"
	"time"

	"rebateLedger/internal/model"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return ClockFunc(time.Now)
}

// Engine applies ledger operations under a policy.
type Engine struct {
	policy Policy
	clock  Clock
}

// NewEngine builds an Engine. A nil clock means the wall clock.
func NewEngine(policy Policy, clock Clock) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{policy: policy, clock: clock}, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

func (e *Engine) now() int64 {
	return e.clock.Now().Unix()
}

// NewPool builds a pool record with zero liquidity.
func NewPool(id model.ID, feeRate uint64, assetA, assetB model.ID) (model.PoolState, error) {
	if feeRate > BasisPoints {
		return model.PoolState{}, fmt.Errorf("%w: %d bps", ErrInvalidFeeRate, feeRate)
	}
	if assetA == assetB {
		return model.PoolState{}, fmt.Errorf("%w: asset a equals asset b", ErrInvalidAsset)
	}
	return model.PoolState{
		ID:      id,
		FeeRate: feeRate,
		AssetA:  assetA,
		AssetB:  assetB,
	}, nil
}

// NewParticipant builds a participant record holding only a starting balance of asset A.
func NewParticipant(poolID, id model.ID, initialBalance uint64) model.ParticipantState {
	return model.ParticipantState{
		ID:       id,
		PoolID:   poolID,
		BalanceA: initialBalance,
	}
}

func checkMembership(pool *model.PoolState, participant *model.ParticipantState) error {
	if pool == nil || participant == nil {
		return fmt.Errorf("%w: missing record", ErrRecordMismatch)
	}
	if participant.PoolID != pool.ID {
		return fmt.Errorf("%w: participant %s is not in pool %s", ErrRecordMismatch, participant.ID.Hex(), pool.ID.Hex())
	}
	return nil
}

func insufficient(have, want uint64) error {
	return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, have, want)
}
