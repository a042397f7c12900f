// Package storage defines the transaction boundary the ledger runs inside and
// a snapshot-file implementation of it.
package storage

import (
	"context"
	"errors"

	"rebateLedger/internal/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Tx gives exclusive access to ledger records for the duration of one
// Store.Atomic call. Writes become visible only if the call commits.
type Tx interface {
	Pool(ctx context.Context, id model.ID) (model.PoolState, error)
	CreatePool(ctx context.Context, pool model.PoolState) error
	PutPool(ctx context.Context, pool model.PoolState) error

	Participant(ctx context.Context, poolID, id model.ID) (model.ParticipantState, error)
	CreateParticipant(ctx context.Context, participant model.ParticipantState) error
	PutParticipant(ctx context.Context, participant model.ParticipantState) error

	StakePosition(ctx context.Context, id string) (model.StakePosition, error)
	StakePositions(ctx context.Context, poolID, participantID model.ID) ([]model.StakePosition, error)
	PutStakePosition(ctx context.Context, position model.StakePosition) error

	AppendTradeRecord(ctx context.Context, record model.TradeRecord) error
}

// Store runs transactions and serves trade receipts.
type Store interface {
	// Atomic runs fn in a transaction. If fn returns an error nothing it
	// wrote is kept.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	// TradeRecords lists a pool's receipts with time < before (0 = all), oldest first.
	TradeRecords(ctx context.Context, poolID model.ID, before int64) ([]model.TradeRecord, error)
	// PruneTradeRecords deletes a pool's receipts with time < before.
	PruneTradeRecords(ctx context.Context, poolID model.ID, before int64) (int64, error)
	Close()
}
