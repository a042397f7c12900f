package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// ReportConfig holds configuration for the trade metrics report.
type ReportConfig struct {
	Store         StoreConfig
	Pools         []string
	Window        time.Duration
	Decimals      uint8
	BatchSize     int
	ReportState   string
	ReportName    string
	RecomputeFrom string
	LogLevel      string
}

// LoadReport merges config file, environment variables, and flags into ReportConfig.
func LoadReport(cfgFile string, flags *pflag.FlagSet) (ReportConfig, error) {
	v := newViper()
	setStoreDefaults(v)
	v.SetDefault("window", "1h")
	v.SetDefault("decimals", 0)
	v.SetDefault("batch-size", 1000)
	v.SetDefault("report-name", "trade_windows")

	if err := readConfig(v, cfgFile, flags); err != nil {
		return ReportConfig{}, err
	}

	decimals := v.GetUint("decimals")
	if decimals > 77 {
		return ReportConfig{}, fmt.Errorf("decimals must be <= 77, got %d", decimals)
	}

	cfg := ReportConfig{
		Store:         storeConfig(v),
		Pools:         getStringSlice(v, "pool"),
		Window:        v.GetDuration("window"),
		Decimals:      uint8(decimals),
		BatchSize:     v.GetInt("batch-size"),
		ReportState:   v.GetString("report-state"),
		ReportName:    v.GetString("report-name"),
		RecomputeFrom: v.GetString("recompute-from"),
		LogLevel:      v.GetString("log-level"),
	}
	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (int64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		return strconv.ParseInt(input, 10, 64)
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return tm.Unix(), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
