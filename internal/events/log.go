package events

import (
	"context"

	"go.uber.org/zap"

	"rebateLedger/internal/model"
)

// LogSink writes each envelope as an info line.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, env model.Envelope) error {
	s.logger.Info("ledger event",
		zap.String("name", env.Name),
		zap.String("pool", env.PoolID.Hex()),
		zap.Int64("time", env.Time),
		zap.ByteString("payload", env.Payload),
	)
	return nil
}
