package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rebateLedger/internal/archive"
	s3blob "rebateLedger/internal/blob/s3"
	"rebateLedger/internal/config"
	"rebateLedger/internal/model"
)

func runArchive(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadArchive(cfgFile, cmd.Flags())
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
	before, err := config.ParseTimestamp(cfg.Before)
	if err != nil {
		return fmt.Errorf("parse before: %w", err)
	}
	if before == 0 {
		return fmt.Errorf("before is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := s3blob.New(ctx, s3blob.ClientConfig{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		UseSSL:         cfg.S3.UseSSL,
		ForcePathStyle: cfg.S3.PathStyle,
	})
	if err != nil {
		return err
	}
	if err := client.Health(ctx); err != nil {
		return err
	}

	store, _, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	archiver := archive.NewArchiver(s3blob.NewWriter(client), store, logger)

	logger.Info("archive start",
		zap.Int("pools", len(pools)),
		zap.Int64("before", before),
		zap.Bool("prune", cfg.Prune),
		zap.String("bucket", client.Bucket()),
	)

	for _, poolID := range pools {
		result, err := archiver.ArchivePool(ctx, poolID, before, cfg.Prune)
		if err != nil {
			return fmt.Errorf("archive pool %s: %w", poolID.Hex(), err)
		}
		if err := printJSON(cmd, result); err != nil {
			return err
		}
	}
	return nil
}
