package config

import (
	"github.com/spf13/pflag"
)

// S3Config configures the archive bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	PathStyle bool
}

// ArchiveConfig holds configuration for the receipt archive.
type ArchiveConfig struct {
	Store    StoreConfig
	Pools    []string
	Before   string
	Prune    bool
	S3       S3Config
	LogLevel string
}

// LoadArchive merges config file, environment variables, and flags into ArchiveConfig.
func LoadArchive(cfgFile string, flags *pflag.FlagSet) (ArchiveConfig, error) {
	v := newViper()
	setStoreDefaults(v)
	v.SetDefault("prune", false)
	v.SetDefault("s3-region", "us-east-1")
	v.SetDefault("s3-ssl", true)
	v.SetDefault("s3-path-style", false)

	if err := readConfig(v, cfgFile, flags); err != nil {
		return ArchiveConfig{}, err
	}

	cfg := ArchiveConfig{
		Store:  storeConfig(v),
		Pools:  getStringSlice(v, "pool"),
		Before: v.GetString("before"),
		Prune:  v.GetBool("prune"),
		S3: S3Config{
			Endpoint:  v.GetString("s3-endpoint"),
			Region:    v.GetString("s3-region"),
			Bucket:    v.GetString("s3-bucket"),
			AccessKey: v.GetString("s3-access-key"),
			SecretKey: v.GetString("s3-secret-key"),
			UseSSL:    v.GetBool("s3-ssl"),
			PathStyle: v.GetBool("s3-path-style"),
		},
		LogLevel: v.GetString("log-level"),
	}
	return cfg, nil
}
