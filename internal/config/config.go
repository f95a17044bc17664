// Package config loads orderdesk configuration from a file, environment
// variables prefixed with ORDERDESK_ and built-in defaults, in that order of
// precedence from lowest to highest: defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const EnvPrefix = "ORDERDESK"

type Config struct {
	Database      DatabaseConfig  `mapstructure:"database"`
	Sweeps        SweepsConfig    `mapstructure:"sweeps"`
	Messaging     MessagingConfig `mapstructure:"messaging"`
	Archive       ArchiveConfig   `mapstructure:"archive"`
	Log           LogConfig       `mapstructure:"log"`
	NotifyOnPrint bool            `mapstructure:"notify_on_print"`
}

type DatabaseConfig struct {
	// Driver is one of memory, sqlite or postgres.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type SweepsConfig struct {
	RecoveryInterval time.Duration `mapstructure:"recovery_interval"`
	NotifyInterval   time.Duration `mapstructure:"notify_interval"`
	PurgeInterval    time.Duration `mapstructure:"purge_interval"`
	StuckThreshold   time.Duration `mapstructure:"stuck_threshold"`
	RetentionDays    int           `mapstructure:"retention_days"`
	NotifyLookback   time.Duration `mapstructure:"notify_lookback"`
	NotifyPageSize   int           `mapstructure:"notify_page_size"`
	NotifyLeaseTTL   time.Duration `mapstructure:"notify_lease_ttl"`
}

// Retention converts RetentionDays to a duration.
func (s SweepsConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

type MessagingConfig struct {
	// Driver is one of log, http or kafka.
	Driver             string        `mapstructure:"driver"`
	HTTPBaseURL        string        `mapstructure:"http_base_url"`
	HTTPToken          string        `mapstructure:"http_token"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	KafkaBrokers       string        `mapstructure:"kafka_brokers"`
	KafkaTopic         string        `mapstructure:"kafka_topic"`
	DefaultCountryCode string        `mapstructure:"default_country_code"`
}

type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// setDefaults registers every key, including empty ones, so AutomaticEnv
// overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:orderdesk.db?_pragma=busy_timeout(5000)")

	v.SetDefault("sweeps.recovery_interval", time.Minute)
	v.SetDefault("sweeps.notify_interval", 30*time.Second)
	v.SetDefault("sweeps.purge_interval", 24*time.Hour)
	v.SetDefault("sweeps.stuck_threshold", 10*time.Minute)
	v.SetDefault("sweeps.retention_days", 90)
	v.SetDefault("sweeps.notify_lookback", 24*time.Hour)
	v.SetDefault("sweeps.notify_page_size", 200)
	v.SetDefault("sweeps.notify_lease_ttl", 2*time.Minute)

	v.SetDefault("messaging.driver", "log")
	v.SetDefault("messaging.http_base_url", "")
	v.SetDefault("messaging.http_token", "")
	v.SetDefault("messaging.kafka_brokers", "")
	v.SetDefault("messaging.http_timeout", 10*time.Second)
	v.SetDefault("messaging.kafka_topic", "orderdesk.notifications")
	v.SetDefault("messaging.default_country_code", "55")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "orderdesk/purged")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("notify_on_print", false)
}

// Load reads configuration. An empty cfgFile means defaults and environment
// only.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	decoderConfigOption := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			dc.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
		)
	})
	if err := v.Unmarshal(&cfg, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings and the sweep windows.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "memory", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver))
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn: required"))
	}

	switch c.Messaging.Driver {
	case "log":
	case "http":
		if c.Messaging.HTTPBaseURL == "" {
			errs = append(errs, errors.New("messaging.http_base_url: required for the http driver"))
		}
	case "kafka":
		if c.Messaging.KafkaBrokers == "" {
			errs = append(errs, errors.New("messaging.kafka_brokers: required for the kafka driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("messaging.driver: unknown driver %q", c.Messaging.Driver))
	}

	if c.Sweeps.StuckThreshold <= 0 {
		errs = append(errs, errors.New("sweeps.stuck_threshold: must be positive"))
	}
	if c.Sweeps.RetentionDays <= 0 {
		errs = append(errs, errors.New("sweeps.retention_days: must be positive"))
	}
	// The confirmation and the PIX instructions are both sent under one
	// notify lease, so it has to outlast two gateway timeouts.
	if c.Sweeps.NotifyLeaseTTL <= 0 {
		errs = append(errs, errors.New("sweeps.notify_lease_ttl: must be positive"))
	} else if c.Messaging.Driver == "http" && c.Sweeps.NotifyLeaseTTL <= 2*c.Messaging.HTTPTimeout {
		errs = append(errs, fmt.Errorf("sweeps.notify_lease_ttl: %s must exceed twice messaging.http_timeout (%s)",
			c.Sweeps.NotifyLeaseTTL, c.Messaging.HTTPTimeout))
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		errs = append(errs, errors.New("archive.bucket: required when archive is enabled"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NewLogger builds the root logger described by the log section.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := parseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
