// Package events delivers ledger notifications to their destinations.
package events

import (
	"context"
	"errors"

	"rebateLedger/internal/model"
)

// Sink accepts notification envelopes.
type Sink interface {
	Emit(ctx context.Context, env model.Envelope) error
}

// Multi fans an envelope out to every sink, returning the joined errors.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, env model.Envelope) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every envelope.
type Nop struct{}

func (Nop) Emit(context.Context, model.Envelope) error { return nil }
