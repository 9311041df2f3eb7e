package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// Database paths
	StorePath string `mapstructure:"store-path"`
	FSMDBPath string `mapstructure:"fsm-db-path"`

	// S3 configuration
	S3Bucket string `mapstructure:"s3-bucket"`
	S3Region string `mapstructure:"s3-region"`

	// Remote message dispatch
	NatsURL     string `mapstructure:"nats-url"`
	NatsTimeout int    `mapstructure:"nats-timeout-ms"`

	// Scheduler tuning
	PollIntervalMs int `mapstructure:"poll-interval-ms"`
	MaxPollMs      int `mapstructure:"max-poll-interval-ms"`
	BatchSize      int `mapstructure:"batch-size"`

	// Security limits
	MaxDestinationKeyLength int `mapstructure:"max-destination-key-length"`

	// Provisioning
	FSMMaxRetries int `mapstructure:"fsm-max-retries"`

	// Observability
	LogLevel string `mapstructure:"log-level"`
}

// Load reads configuration from environment, config file, and defaults.
func Load() (*Config, error) {
	viper.SetDefault("store-path", ".artifacts/transferproc.db")
	viper.SetDefault("fsm-db-path", ".artifacts/provisioning-fsm.db")
	viper.SetDefault("s3-bucket", "transferproc-data")
	viper.SetDefault("s3-region", "us-east-1")
	viper.SetDefault("nats-url", "nats://127.0.0.1:4222")
	viper.SetDefault("nats-timeout-ms", 5000)
	viper.SetDefault("poll-interval-ms", 1000)
	viper.SetDefault("max-poll-interval-ms", 30000)
	viper.SetDefault("batch-size", 5)
	viper.SetDefault("max-destination-key-length", 1024)
	viper.SetDefault("fsm-max-retries", 5)
	viper.SetDefault("log-level", "info")

	// Environment variables (TRANSFERPROC_STORE_PATH, etc.)
	viper.SetEnvPrefix("TRANSFERPROC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.transferproc")

	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.StorePath == "" {
		return fmt.Errorf("store-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.S3Bucket == "" {
		return fmt.Errorf("s3-bucket cannot be empty")
	}
	if c.NatsURL == "" {
		return fmt.Errorf("nats-url cannot be empty")
	}
	if c.PollIntervalMs <= 0 {
		return fmt.Errorf("poll-interval-ms must be positive")
	}
	if c.MaxPollMs < c.PollIntervalMs {
		return fmt.Errorf("max-poll-interval-ms must be >= poll-interval-ms")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be positive")
	}
	if c.MaxDestinationKeyLength <= 0 {
		return fmt.Errorf("max-destination-key-length must be positive")
	}
	if c.FSMMaxRetries < 0 {
		return fmt.Errorf("fsm-max-retries must be non-negative")
	}
	return nil
}
