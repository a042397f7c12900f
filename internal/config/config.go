package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"rebateLedger/internal/ledger"
)

const envPrefix = "REBATE"

// StoreConfig selects the ledger store. A non-empty PGDSN wins over StateFile.
type StoreConfig struct {
	StateFile string
	PGDSN     string
	Migrate   bool
}

// RedisConfig configures the optional Redis event sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Channel  string
}

// Config holds configuration for the ledger commands.
type Config struct {
	Store        StoreConfig
	LogLevel     string
	EventsOut    string
	Redis        RedisConfig
	EmitRetries  int
	EmitBackoff  time.Duration
	Cooldown     time.Duration
	RebateDiv    uint64
	BonusAt      uint64
	BonusDiv     uint64
	PenaltyDiv   uint64
	MaxSlippage  uint64
	RewardTiming string
	PenaltySink  string
	HighUtilBps  uint64
	HighFeeRate  uint64
	BaseFeeRate  uint64
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()
	setStoreDefaults(v)
	defaults := ledger.DefaultPolicy()
	v.SetDefault("events-out", "")
	v.SetDefault("redis-db", 0)
	v.SetDefault("redis-stream", "rebate:events")
	v.SetDefault("emit-retries", 3)
	v.SetDefault("emit-backoff", 200*time.Millisecond)
	v.SetDefault("cooldown", defaults.Cooldown)
	v.SetDefault("rebate-divisor", defaults.RebateDivisor)
	v.SetDefault("volume-bonus-threshold", defaults.VolumeBonusThreshold)
	v.SetDefault("volume-bonus-divisor", defaults.VolumeBonusDivisor)
	v.SetDefault("penalty-divisor", defaults.PenaltyDivisor)
	v.SetDefault("max-slippage-bps", defaults.MaxSlippageBps)
	v.SetDefault("reward-timing", string(defaults.RewardTiming))
	v.SetDefault("penalty-sink", string(defaults.PenaltySink))
	v.SetDefault("high-utilization-bps", defaults.HighUtilizationBps)
	v.SetDefault("high-fee-rate", defaults.HighFeeRate)
	v.SetDefault("base-fee-rate", defaults.BaseFeeRate)

	if err := readConfig(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Store:     storeConfig(v),
		LogLevel:  v.GetString("log-level"),
		EventsOut: v.GetString("events-out"),
		Redis: RedisConfig{
			Addr:     v.GetString("redis-addr"),
			Password: v.GetString("redis-password"),
			DB:       v.GetInt("redis-db"),
			Stream:   v.GetString("redis-stream"),
			Channel:  v.GetString("redis-channel"),
		},
		EmitRetries:  v.GetInt("emit-retries"),
		EmitBackoff:  v.GetDuration("emit-backoff"),
		Cooldown:     v.GetDuration("cooldown"),
		RebateDiv:    v.GetUint64("rebate-divisor"),
		BonusAt:      v.GetUint64("volume-bonus-threshold"),
		BonusDiv:     v.GetUint64("volume-bonus-divisor"),
		PenaltyDiv:   v.GetUint64("penalty-divisor"),
		MaxSlippage:  v.GetUint64("max-slippage-bps"),
		RewardTiming: strings.ToLower(v.GetString("reward-timing")),
		PenaltySink:  strings.ToLower(v.GetString("penalty-sink")),
		HighUtilBps:  v.GetUint64("high-utilization-bps"),
		HighFeeRate:  v.GetUint64("high-fee-rate"),
		BaseFeeRate:  v.GetUint64("base-fee-rate"),
	}

	return cfg, nil
}

// Policy builds and validates the engine policy.
func (c Config) Policy() (ledger.Policy, error) {
	policy := ledger.Policy{
		Cooldown:             c.Cooldown,
		RebateDivisor:        c.RebateDiv,
		VolumeBonusThreshold: c.BonusAt,
		VolumeBonusDivisor:   c.BonusDiv,
		PenaltyDivisor:       c.PenaltyDiv,
		MaxSlippageBps:       c.MaxSlippage,
		RewardTiming:         ledger.RewardTiming(c.RewardTiming),
		PenaltySink:          ledger.PenaltySink(c.PenaltySink),
		HighUtilizationBps:   c.HighUtilBps,
		HighFeeRate:          c.HighFeeRate,
		BaseFeeRate:          c.BaseFeeRate,
	}
	if err := policy.Validate(); err != nil {
		return ledger.Policy{}, err
	}
	return policy, nil
}

func newViper() *viper.Viper {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("log-level", "info")
	return v
}

func setStoreDefaults(v *viper.Viper) {
	v.SetDefault("state-file", "./data/ledger.json")
	v.SetDefault("pg-dsn", "")
	v.SetDefault("migrate", true)
}

func storeConfig(v *viper.Viper) StoreConfig {
	return StoreConfig{
		StateFile: v.GetString("state-file"),
		PGDSN:     v.GetString("pg-dsn"),
		Migrate:   v.GetBool("migrate"),
	}
}

func readConfig(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
