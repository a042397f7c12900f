package aggregate

import (
	"math/big"

	"rebateLedger/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolID       model.ID
	WindowStart  int64
	WindowEnd    int64
	TradeCount   uint64
	Volume       *big.Int
	Fees         *big.Int
	Rebates      *big.Int
	LastTS       int64
	participants map[model.ID]struct{}
}

func NewAccumulator(poolID model.ID, windowStart, windowEnd int64) *Accumulator {
	return &Accumulator{
		PoolID:       poolID,
		WindowStart:  windowStart,
		WindowEnd:    windowEnd,
		Volume:       big.NewInt(0),
		Fees:         big.NewInt(0),
		Rebates:      big.NewInt(0),
		participants: make(map[model.ID]struct{}),
	}
}

func (a *Accumulator) AddTrade(record model.TradeRecord) {
	if record.Time >= a.LastTS {
		a.LastTS = record.Time
	}
	addUint(a.Volume, record.TradeAmount)
	addUint(a.Fees, record.Fee)
	addUint(a.Rebates, record.Rebate)
	a.participants[record.ParticipantID] = struct{}{}
	a.TradeCount++
}

// Participants is the number of distinct traders seen in the window.
func (a *Accumulator) Participants() uint64 {
	return uint64(len(a.participants))
}

func addUint(target *big.Int, value uint64) {
	if target == nil || value == 0 {
		return
	}
	target.Add(target, new(big.Int).SetUint64(value))
}
