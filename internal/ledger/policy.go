package ledger

import (
	"fmt"
	"time"
)

const (
	// BasisPoints is the denominator for fee rates and ratios.
	BasisPoints uint64 = 10_000
	// SecondsPer30Days is the lock duration that earns a reward equal to the stake.
	SecondsPer30Days uint64 = 30 * 24 * 60 * 60
)

// RewardTiming selects when staking rewards reach rebates_earned.
type RewardTiming string

const (
	RewardAtStake    RewardTiming = "stake"
	RewardAtMaturity RewardTiming = "maturity"
)

// PenaltySink selects where early-unstake penalties go.
type PenaltySink string

const (
	PenaltyBurn   PenaltySink = "burn"
	PenaltyToPool PenaltySink = "pool"
)

// Policy holds the tunable parameters of the engine.
type Policy struct {
	Cooldown             time.Duration
	RebateDivisor        uint64
	VolumeBonusThreshold uint64
	VolumeBonusDivisor   uint64
	PenaltyDivisor       uint64
	MaxSlippageBps       uint64
	RewardTiming         RewardTiming
	PenaltySink          PenaltySink
	HighUtilizationBps   uint64
	HighFeeRate          uint64
	BaseFeeRate          uint64
}

// DefaultPolicy returns the reference parameters.
func DefaultPolicy() Policy {
	return Policy{
		Cooldown:             60 * time.Second,
		RebateDivisor:        2,
		VolumeBonusThreshold: 10_000,
		VolumeBonusDivisor:   100,
		PenaltyDivisor:       10,
		MaxSlippageBps:       BasisPoints,
		RewardTiming:         RewardAtStake,
		PenaltySink:          PenaltyBurn,
		HighUtilizationBps:   8_000,
		HighFeeRate:          50,
		BaseFeeRate:          100,
	}
}

// Validate checks the policy for values the operations cannot work with.
func (p Policy) Validate() error {
	if p.Cooldown < 0 {
		return fmt.Errorf("%w: negative cooldown", ErrInvalidPolicy)
	}
	if p.RebateDivisor == 0 || p.VolumeBonusDivisor == 0 || p.PenaltyDivisor == 0 {
		return fmt.Errorf("%w: divisors must be positive", ErrInvalidPolicy)
	}
	if p.MaxSlippageBps > BasisPoints {
		return fmt.Errorf("%w: max slippage above %d bps", ErrInvalidPolicy, BasisPoints)
	}
	if p.HighFeeRate > BasisPoints || p.BaseFeeRate > BasisPoints {
		return fmt.Errorf("%w: fee rate above %d bps", ErrInvalidPolicy, BasisPoints)
	}
	switch p.RewardTiming {
	case RewardAtStake, RewardAtMaturity:
	default:
		return fmt.Errorf("%w: unknown reward timing %q", ErrInvalidPolicy, p.RewardTiming)
	}
	switch p.PenaltySink {
	case PenaltyBurn, PenaltyToPool:
	default:
		return fmt.Errorf("%w: unknown penalty sink %q", ErrInvalidPolicy, p.PenaltySink)
	}
	return nil
}

func (p Policy) cooldownSeconds() int64 {
	return int64(p.Cooldown / time.Second)
}
