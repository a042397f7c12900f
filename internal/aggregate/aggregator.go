// Package aggregate rolls trade receipts up into fixed-size window metrics.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rebateLedger/internal/model"
)

// TradeSource lists a pool's trade receipts, oldest first.
type TradeSource interface {
	TradeRecords(ctx context.Context, poolID model.ID, before int64) ([]model.TradeRecord, error)
}

// MetricsWriter persists window metrics.
type MetricsWriter interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds int64
	Decimals      uint8
	BatchSize     int
	RecomputeFrom int64
	StateStore    StateStore
}

// Aggregator aggregates trade receipts into pool window metrics.
type Aggregator struct {
	cfg    Config
	source TradeSource
	writer MetricsWriter
	logger *zap.Logger
}

// NewAggregator builds an Aggregator. A nil writer only returns the metrics.
func NewAggregator(cfg Config, source TradeSource, writer MetricsWriter, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:    cfg,
		source: source,
		writer: writer,
		logger: logger,
	}
}

// Run aggregates every listed pool and returns the computed windows.
func (a *Aggregator) Run(ctx context.Context, pools []model.ID) ([]model.PoolWindowMetrics, error) {
	if a.source == nil {
		return nil, fmt.Errorf("trade source is nil")
	}
	if a.cfg.WindowSeconds <= 0 {
		return nil, fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.PoolWindowMetrics, 0)
	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	var total, skipped int
	var openWindow int64

	for _, poolID := range pools {
		records, err := a.source.TradeRecords(ctx, poolID, 0)
		if err != nil {
			return nil, fmt.Errorf("load trades for %s: %w", poolID.Hex(), err)
		}

		var acc *Accumulator
		for _, record := range records {
			total++
			if record.Time <= startTs {
				skipped++
				continue
			}

			start := windowStart(record.Time, a.cfg.WindowSeconds)
			if acc != nil && acc.WindowStart != start {
				batch = append(batch, a.flushAccumulator(acc))
				acc = nil
			}
			if acc == nil {
				acc = NewAccumulator(poolID, start, start+a.cfg.WindowSeconds)
			}
			acc.AddTrade(record)

			if len(batch) >= a.cfg.BatchSize {
				if err := a.flushBatch(ctx, batch); err != nil {
					return nil, err
				}
				out = append(out, batch...)
				batch = batch[:0]
			}
		}
		if acc != nil {
			batch = append(batch, a.flushAccumulator(acc))
			if openWindow == 0 || acc.WindowStart < openWindow {
				openWindow = acc.WindowStart
			}
		}
	}

	if len(batch) > 0 {
		if err := a.flushBatch(ctx, batch); err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}

	if err := a.saveState(ctx, startTs, openWindow); err != nil {
		return nil, err
	}

	a.logger.Info("aggregate complete",
		zap.Int("pools", len(pools)),
		zap.Int("total", total),
		zap.Int("skipped", skipped),
		zap.Int("windows", len(out)),
	)
	return out, nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (int64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records the timestamp just before the earliest window that was
// still open, so the next run recomputes that window in full.
func (a *Aggregator) saveState(ctx context.Context, startTs, openWindow int64) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	safeTs := startTs
	if openWindow > 0 {
		safeTs = openWindow - 1
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flushBatch(ctx context.Context, batch []model.PoolWindowMetrics) error {
	if a.writer == nil || len(batch) == 0 {
		return nil
	}
	if err := a.writer.UpsertWindowMetrics(ctx, batch); err != nil {
		return fmt.Errorf("upsert window metrics: %w", err)
	}
	return nil
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) model.PoolWindowMetrics {
	return model.PoolWindowMetrics{
		PoolID:         acc.PoolID,
		WindowSizeSecs: a.cfg.WindowSeconds,
		WindowStart:    time.Unix(acc.WindowStart, 0).UTC(),
		WindowEnd:      time.Unix(acc.WindowEnd, 0).UTC(),
		TradeCount:     acc.TradeCount,
		Participants:   acc.Participants(),
		Volume:         formatTokenAmount(acc.Volume, a.cfg.Decimals),
		Fees:           formatTokenAmount(acc.Fees, a.cfg.Decimals),
		Rebates:        formatTokenAmount(acc.Rebates, a.cfg.Decimals),
		FeeRate:        computeRate(acc.Fees, acc.Volume),
		RebateShare:    computeRate(acc.Rebates, acc.Fees),
	}
}
