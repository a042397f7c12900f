package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rebateLedger/internal/aggregate"
	"rebateLedger/internal/config"
	"rebateLedger/internal/model"
)

func runReport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pools, err := model.ParseIDs(cfg.Pools)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return fmt.Errorf("pool list is required")
	}

	if cfg.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	windowSeconds := int64(cfg.Window.Seconds())
	if windowSeconds == 0 {
		return fmt.Errorf("window must be at least 1s")
	}

	recomputeFrom, err := config.ParseTimestamp(cfg.RecomputeFrom)
	if err != nil {
		return fmt.Errorf("parse recompute-from: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, pg, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var stateStore aggregate.StateStore
	name := fmt.Sprintf("%s:%d", cfg.ReportName, windowSeconds)
	if cfg.ReportState != "" {
		stateStore = &aggregate.FileStateStore{Path: cfg.ReportState, Name: name}
	} else if pg != nil {
		stateStore = &aggregate.DBStateStore{Store: pg, Name: name}
	}

	var writer aggregate.MetricsWriter
	if pg != nil {
		writer = pg
	}

	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		Decimals:      cfg.Decimals,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: recomputeFrom,
		StateStore:    stateStore,
	}, store, writer, logger)

	logger.Info("report start",
		zap.Int("pools", len(pools)),
		zap.Int64("window_seconds", windowSeconds),
		zap.Int64("recompute_from", recomputeFrom),
		zap.Bool("persist", writer != nil),
	)

	metrics, err := agg.Run(ctx, pools)
	if err != nil {
		return err
	}
	for _, m := range metrics {
		if err := printJSON(cmd, m); err != nil {
			return err
		}
	}
	return nil
}
