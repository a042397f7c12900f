package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rebateLedger/internal/model"
)

// Retrying retries a sink with exponential backoff.
type Retrying struct {
	sink       Sink
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

func NewRetrying(sink Sink, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *Retrying {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{sink: sink, maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

func (r *Retrying) Emit(ctx context.Context, env model.Envelope) error {
	attempt := 0
	return withRetry(ctx, r.maxRetries, r.baseDelay, func(ctx context.Context) error {
		attempt++
		err := r.sink.Emit(ctx, env)
		if err != nil && attempt <= r.maxRetries {
			r.logger.Debug("emit failed, retrying", zap.String("name", env.Name), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
}

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
