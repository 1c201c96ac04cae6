// Package config loads service settings from an optional YAML file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/example/synccircle/internal/layout"
)

// Environment variable names.
const (
	EnvHTTPPort         = "SYNCCIRCLE_HTTP_PORT"
	EnvSQLiteDSN        = "SYNCCIRCLE_SQLITE_DSN"
	EnvViewerTimezone   = "SYNCCIRCLE_VIEWER_TIMEZONE"
	EnvDSTReference     = "SYNCCIRCLE_DST_REFERENCE"
	EnvViewCacheTTL     = "SYNCCIRCLE_VIEW_CACHE_TTL"
	EnvHousekeepingCron = "SYNCCIRCLE_HOUSEKEEPING_CRON"
	EnvEventRetention   = "SYNCCIRCLE_EVENT_RETENTION"
	EnvLogLevel         = "SYNCCIRCLE_LOG_LEVEL"
	EnvConfigFile       = "SYNCCIRCLE_CONFIG_FILE"
)

// HousekeepingOff disables the purge job when used as the cron spec.
const HousekeepingOff = "off"

// Config captures the settings of the SyncCircle service.
type Config struct {
	HTTPPort         int           `yaml:"http_port"`
	SQLiteDSN        string        `yaml:"sqlite_dsn"`
	ViewerTimezone   string        `yaml:"viewer_timezone"`
	DSTReference     string        `yaml:"dst_reference"`
	ViewCacheTTL     time.Duration `yaml:"view_cache_ttl"`
	HousekeepingCron string        `yaml:"housekeeping_cron"`
	EventRetention   time.Duration `yaml:"event_retention"`
	LogLevel         string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPPort:         8080,
		SQLiteDSN:        "file:synccircle.db?_pragma=foreign_keys(1)",
		ViewerTimezone:   "Local",
		DSTReference:     string(layout.DSTReferenceNow),
		ViewCacheTTL:     30 * time.Second,
		HousekeepingCron: "0 3 * * *",
		EventRetention:   90 * 24 * time.Hour,
		LogLevel:         "info",
	}
}

// Normalize fills zero values with defaults so a partial file still yields a
// complete configuration.
func (c *Config) Normalize() {
	def := Default()
	if c.HTTPPort == 0 {
		c.HTTPPort = def.HTTPPort
	}
	if strings.TrimSpace(c.SQLiteDSN) == "" {
		c.SQLiteDSN = def.SQLiteDSN
	}
	if strings.TrimSpace(c.ViewerTimezone) == "" {
		c.ViewerTimezone = def.ViewerTimezone
	}
	if strings.TrimSpace(c.DSTReference) == "" {
		c.DSTReference = def.DSTReference
	}
	if c.ViewCacheTTL == 0 {
		c.ViewCacheTTL = def.ViewCacheTTL
	}
	if strings.TrimSpace(c.HousekeepingCron) == "" {
		c.HousekeepingCron = def.HousekeepingCron
	}
	if c.EventRetention == 0 {
		c.EventRetention = def.EventRetention
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = def.LogLevel
	}
}

// HousekeepingEnabled reports whether the purge job should be scheduled.
func (c Config) HousekeepingEnabled() bool {
	return !strings.EqualFold(strings.TrimSpace(c.HousekeepingCron), HousekeepingOff)
}

// Reference returns the parsed DST reference mode.
func (c Config) Reference() layout.DSTReference {
	reference, ok := layout.ParseDSTReference(c.DSTReference)
	if !ok {
		return layout.DSTReferenceNow
	}
	return reference
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Validate reports every invalid setting by its environment variable name.
func (c Config) Validate() error {
	invalid := make([]string, 0, 4)

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, EnvHTTPPort)
	}
	if _, err := time.LoadLocation(c.ViewerTimezone); err != nil {
		invalid = append(invalid, EnvViewerTimezone)
	}
	if _, ok := layout.ParseDSTReference(c.DSTReference); !ok {
		invalid = append(invalid, EnvDSTReference)
	}
	if c.ViewCacheTTL < 0 {
		invalid = append(invalid, EnvViewCacheTTL)
	}
	if c.HousekeepingEnabled() {
		if _, err := cron.ParseStandard(c.HousekeepingCron); err != nil {
			invalid = append(invalid, EnvHousekeepingCron)
		}
	}
	if c.EventRetention < 0 {
		invalid = append(invalid, EnvEventRetention)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		invalid = append(invalid, EnvLogLevel)
	}

	if len(invalid) > 0 {
		return fmt.Errorf("設定値が不正です: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// LoadFile reads a YAML configuration file. Keys that are absent keep their
// defaults.
func LoadFile(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return Config{}, errors.New("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("設定ファイルを読み込めません: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("設定ファイルの形式が不正です: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Load builds the configuration from defaults, then the file named by
// SYNCCIRCLE_CONFIG_FILE when set, then individual environment variables.
// Environment values win over the file.
func Load() (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		fromFile, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = fromFile
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv(EnvHTTPPort)); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, EnvHTTPPort)
		} else {
			cfg.HTTPPort = port
		}
	}
	if dsn := strings.TrimSpace(os.Getenv(EnvSQLiteDSN)); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	if timezone := strings.TrimSpace(os.Getenv(EnvViewerTimezone)); timezone != "" {
		cfg.ViewerTimezone = timezone
	}
	if reference := strings.TrimSpace(os.Getenv(EnvDSTReference)); reference != "" {
		cfg.DSTReference = strings.ToLower(reference)
	}
	if ttlValue := strings.TrimSpace(os.Getenv(EnvViewCacheTTL)); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, EnvViewCacheTTL)
		} else {
			cfg.ViewCacheTTL = ttl
		}
	}
	if spec := strings.TrimSpace(os.Getenv(EnvHousekeepingCron)); spec != "" {
		cfg.HousekeepingCron = spec
	}
	if retentionValue := strings.TrimSpace(os.Getenv(EnvEventRetention)); retentionValue != "" {
		retention, err := time.ParseDuration(retentionValue)
		if err != nil || retention <= 0 {
			invalid = append(invalid, EnvEventRetention)
		} else {
			cfg.EventRetention = retention
		}
	}
	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		cfg.LogLevel = level
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
