package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rebateLedger/internal/config"
	"rebateLedger/internal/events"
	"rebateLedger/internal/ledger"
	"rebateLedger/internal/service"
	"rebateLedger/internal/storage"
	"rebateLedger/internal/storage/postgres"
)

// app holds everything a ledger command needs. close releases it in reverse
// order of construction.
type app struct {
	logger  *zap.Logger
	ledger  *service.Ledger
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{logger: logger}

	store, _, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	sink, closeSink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, closeSink)

	engine, err := ledger.NewEngine(policy, ledger.SystemClock())
	if err != nil {
		a.close()
		return nil, err
	}
	a.ledger = service.New(store, engine, sink, logger)
	return a, nil
}

// openStore returns the Postgres store when a DSN is configured and the
// snapshot file store otherwise. The second value is non-nil only for
// Postgres.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (storage.Store, *postgres.Store, error) {
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				pg.Close()
				return nil, nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		logger.Debug("store opened", zap.String("kind", "postgres"))
		return pg, pg, nil
	}

	fileStore, err := storage.OpenFile(cfg.StateFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open state file: %w", err)
	}
	logger.Debug("store opened", zap.String("kind", "file"), zap.String("path", cfg.StateFile))
	return fileStore, nil, nil
}

func buildSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (events.Sink, func(), error) {
	sinks := events.Multi{events.NewLogSink(logger)}
	closeAll := func() {}

	if cfg.EventsOut != "" {
		sinks = append(sinks, events.NewJSONLSink(cfg.EventsOut))
	}
	if cfg.Redis.Addr != "" {
		redisSink, err := events.NewRedisSink(ctx, events.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Stream:   cfg.Redis.Stream,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		sinks = append(sinks, events.NewRetrying(redisSink, cfg.EmitRetries, cfg.EmitBackoff, logger))
		closeAll = func() { _ = redisSink.Close() }
	}
	return sinks, closeAll, nil
}
