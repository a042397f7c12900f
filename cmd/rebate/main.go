package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rebateLedger/internal/ledger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "rebate",
		Short:        "Liquidity pool ledger with trading rebates and staking rewards",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("state-file", "./data/ledger.json", "ledger snapshot file (ignored when pg-dsn is set)")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	root.PersistentFlags().Bool("migrate", true, "apply Postgres migrations on start")

	poolCmd := &cobra.Command{Use: "pool", Short: "Manage pools"}
	poolInit := &cobra.Command{
		Use:   "init",
		Short: "Create a pool with zero liquidity",
		RunE:  runPoolInit,
	}
	poolInit.Flags().String("pool", "", "pool id")
	poolInit.Flags().Uint64("fee-rate", 100, "fee rate in basis points")
	poolInit.Flags().String("asset-a", "", "asset A id")
	poolInit.Flags().String("asset-b", "", "asset B id")
	addLedgerFlags(poolInit.Flags())
	poolCmd.AddCommand(poolInit)
	root.AddCommand(poolCmd)

	participantCmd := &cobra.Command{Use: "participant", Short: "Manage participants"}
	participantInit := &cobra.Command{
		Use:   "init",
		Short: "Register a participant in a pool with a starting balance of asset A",
		RunE:  runParticipantInit,
	}
	participantInit.Flags().String("pool", "", "pool id")
	participantInit.Flags().String("participant", "", "participant id")
	participantInit.Flags().Uint64("balance", 0, "initial asset A balance")
	addLedgerFlags(participantInit.Flags())
	participantCmd.AddCommand(participantInit)
	root.AddCommand(participantCmd)

	provideCmd := &cobra.Command{
		Use:   "provide",
		Short: "Move asset A from a participant into pool liquidity",
		RunE:  runProvide,
	}
	addActorFlags(provideCmd.Flags())
	provideCmd.Flags().Uint64("amount", 0, "amount of asset A")
	addLedgerFlags(provideCmd.Flags())
	root.AddCommand(provideCmd)

	stakeCmd := &cobra.Command{
		Use:   "stake",
		Short: "Lock asset A into a new stake position",
		RunE:  runStake,
	}
	addActorFlags(stakeCmd.Flags())
	stakeCmd.Flags().Uint64("amount", 0, "amount of asset A")
	stakeCmd.Flags().Int64("lock-seconds", 0, "lock duration in seconds")
	addLedgerFlags(stakeCmd.Flags())
	root.AddCommand(stakeCmd)

	tradeCmd := &cobra.Command{
		Use:   "trade",
		Short: "Trade asset A for asset B against the pool",
		RunE:  runTrade,
	}
	addActorFlags(tradeCmd.Flags())
	tradeCmd.Flags().Uint64("amount", 0, "amount of asset A to trade")
	addLedgerFlags(tradeCmd.Flags())
	root.AddCommand(tradeCmd)

	unstakeCmd := &cobra.Command{
		Use:   "unstake",
		Short: "Withdraw from a stake position",
		RunE:  runUnstake,
	}
	addActorFlags(unstakeCmd.Flags())
	unstakeCmd.Flags().String("position", "", "stake position id")
	unstakeCmd.Flags().Uint64("amount", 0, "amount to withdraw")
	addLedgerFlags(unstakeCmd.Flags())
	root.AddCommand(unstakeCmd)

	adjustCmd := &cobra.Command{
		Use:   "adjust-fee",
		Short: "Run the utilization-based fee controller for a pool",
		RunE:  runAdjustFee,
	}
	adjustCmd.Flags().String("pool", "", "pool id")
	addLedgerFlags(adjustCmd.Flags())
	root.AddCommand(adjustCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a trade without executing it",
		RunE:  runQuote,
	}
	quoteCmd.Flags().String("pool", "", "pool id")
	quoteCmd.Flags().Uint64("amount", 0, "amount of asset A to trade")
	addLedgerFlags(quoteCmd.Flags())
	root.AddCommand(quoteCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print a pool and optionally a participant with its stake positions",
		RunE:  runShow,
	}
	showCmd.Flags().String("pool", "", "pool id")
	showCmd.Flags().String("participant", "", "participant id (optional)")
	addLedgerFlags(showCmd.Flags())
	root.AddCommand(showCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate trade receipts into window metrics",
		RunE:  runReport,
	}
	reportCmd.Flags().StringSlice("pool", nil, "pool ids (comma-separated)")
	reportCmd.Flags().String("window", "1h", "aggregation window (e.g. 5m, 1h)")
	reportCmd.Flags().Uint("decimals", 0, "asset decimals used to format amounts")
	reportCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	reportCmd.Flags().String("report-state", "", "optional local state file for progress tracking")
	reportCmd.Flags().String("report-name", "trade_windows", "progress tracking name")
	reportCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	root.AddCommand(reportCmd)

	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Export old trade receipts to S3 and optionally prune them",
		RunE:  runArchive,
	}
	archiveCmd.Flags().StringSlice("pool", nil, "pool ids (comma-separated)")
	archiveCmd.Flags().String("before", "", "cutoff timestamp (unix seconds or RFC3339)")
	archiveCmd.Flags().Bool("prune", false, "delete archived receipts from the store")
	archiveCmd.Flags().String("s3-endpoint", "", "S3-compatible endpoint (empty for AWS)")
	archiveCmd.Flags().String("s3-region", "us-east-1", "S3 region")
	archiveCmd.Flags().String("s3-bucket", "", "S3 bucket")
	archiveCmd.Flags().String("s3-access-key", "", "S3 access key (empty uses the default credential chain)")
	archiveCmd.Flags().String("s3-secret-key", "", "S3 secret key")
	archiveCmd.Flags().Bool("s3-ssl", true, "use https when the endpoint has no scheme")
	archiveCmd.Flags().Bool("s3-path-style", false, "force path-style addressing")
	root.AddCommand(archiveCmd)

	return root
}

func addActorFlags(flags *pflag.FlagSet) {
	flags.String("pool", "", "pool id")
	flags.String("participant", "", "participant id")
}

// addLedgerFlags registers event sink and policy flags shared by every
// command that runs the engine.
func addLedgerFlags(flags *pflag.FlagSet) {
	defaults := ledger.DefaultPolicy()

	flags.String("events-out", "", "append events to this JSONL file")
	flags.String("redis-addr", "", "Redis address for the event stream")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.String("redis-stream", "rebate:events", "Redis stream for events (empty disables)")
	flags.String("redis-channel", "", "Redis pub/sub channel for events (empty disables)")
	flags.Int("emit-retries", 3, "event delivery retries")
	flags.Duration("emit-backoff", 200*time.Millisecond, "initial event delivery backoff")

	flags.Duration("cooldown", defaults.Cooldown, "minimum time between trades")
	flags.Uint64("rebate-divisor", defaults.RebateDivisor, "rebate = fee / divisor")
	flags.Uint64("volume-bonus-threshold", defaults.VolumeBonusThreshold, "trade volume that triggers the bonus")
	flags.Uint64("volume-bonus-divisor", defaults.VolumeBonusDivisor, "bonus = volume / divisor")
	flags.Uint64("penalty-divisor", defaults.PenaltyDivisor, "early unstake penalty = amount / divisor")
	flags.Uint64("max-slippage-bps", defaults.MaxSlippageBps, "largest trade size relative to liquidity, in bps")
	flags.String("reward-timing", string(defaults.RewardTiming), "when staking rewards are credited (stake, maturity)")
	flags.String("penalty-sink", string(defaults.PenaltySink), "where early unstake penalties go (burn, pool)")
	flags.Uint64("high-utilization-bps", defaults.HighUtilizationBps, "utilization above which the high fee rate applies")
	flags.Uint64("high-fee-rate", defaults.HighFeeRate, "fee rate under high utilization, in bps")
	flags.Uint64("base-fee-rate", defaults.BaseFeeRate, "fee rate otherwise, in bps")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(v)
}
