package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	User     UserConfig     `mapstructure:"user"`
	Device   DeviceConfig   `mapstructure:"device"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Source   SourceConfig   `mapstructure:"source"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Publish  PublishConfig  `mapstructure:"publish"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// UserConfig identifies whose usage is being reported
type UserConfig struct {
	ID string `mapstructure:"id"`
}

// DeviceConfig describes the device the usage log comes from
type DeviceConfig struct {
	Timezone string `mapstructure:"timezone"` // IANA name; empty follows TZ
}

// TrackingConfig defines the pass interval and reconciliation thresholds
type TrackingConfig struct {
	Interval           string `mapstructure:"interval"`
	MinSession         string `mapstructure:"min_session"`
	MaxSession         string `mapstructure:"max_session"`
	RapidSwitchMax     string `mapstructure:"rapid_switch_max"`
	CarryoverMax       string `mapstructure:"carryover_max"`
	FallbackSessionCap string `mapstructure:"fallback_session_cap"`
	RetentionDays      int    `mapstructure:"retention_days"`
}

// SourceConfig defines where usage events are read from
type SourceConfig struct {
	Type            string `mapstructure:"type"`
	EventsPath      string `mapstructure:"events_path"`
	AggregatePath   string `mapstructure:"aggregate_path"`
	EventsSupported bool   `mapstructure:"events_supported"`
	PermissionPath  string `mapstructure:"permission_path"` // granted iff the file exists; empty always grants
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"`
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// PublishConfig defines MQTT report publication
type PublishConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	Timeout  string `mapstructure:"timeout"`
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables. An empty
// configPath uses defaults and environment variables only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SCREENTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// Missing file: defaults and environment only
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("user.id", "default")
	v.SetDefault("device.timezone", "")

	// Tracking defaults
	v.SetDefault("tracking.interval", "5m")
	v.SetDefault("tracking.min_session", "10s")
	v.SetDefault("tracking.max_session", "60m")
	v.SetDefault("tracking.rapid_switch_max", "2m")
	v.SetDefault("tracking.carryover_max", "5m")
	v.SetDefault("tracking.fallback_session_cap", "60m")
	v.SetDefault("tracking.retention_days", 30)

	// Source defaults
	v.SetDefault("source.type", "replay")
	v.SetDefault("source.events_path", "/var/lib/screentime/events.jsonl")
	v.SetDefault("source.aggregate_path", "/var/lib/screentime/aggregate.json")
	v.SetDefault("source.events_supported", true)
	v.SetDefault("source.permission_path", "")

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "/var/lib/screentime/screentime.bolt")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Publish defaults
	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.broker", "tcp://localhost:1883")
	v.SetDefault("publish.client_id", "screentime")
	v.SetDefault("publish.topic", "screentime")
	v.SetDefault("publish.timeout", "5s")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.address", ":9090")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.User.ID) == "" {
		return fmt.Errorf("user id is required")
	}

	if cfg.Device.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Device.Timezone); err != nil {
			return fmt.Errorf("invalid device timezone %q: %w", cfg.Device.Timezone, err)
		}
	}

	durations := map[string]string{
		"tracking.interval":             cfg.Tracking.Interval,
		"tracking.min_session":          cfg.Tracking.MinSession,
		"tracking.max_session":          cfg.Tracking.MaxSession,
		"tracking.rapid_switch_max":     cfg.Tracking.RapidSwitchMax,
		"tracking.carryover_max":        cfg.Tracking.CarryoverMax,
		"tracking.fallback_session_cap": cfg.Tracking.FallbackSessionCap,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, value)
		}
	}

	if cfg.Tracking.RetentionDays < 1 {
		return fmt.Errorf("tracking.retention_days must be at least 1, got %d", cfg.Tracking.RetentionDays)
	}

	switch cfg.Source.Type {
	case "replay":
		if cfg.Source.EventsPath == "" && cfg.Source.EventsSupported {
			return fmt.Errorf("source.events_path is required when events are supported")
		}
		if cfg.Source.AggregatePath == "" {
			return fmt.Errorf("source.aggregate_path is required")
		}
	default:
		return fmt.Errorf("unknown source type: %s", cfg.Source.Type)
	}

	switch cfg.Storage.Type {
	case "", "bolt", "sqlite":
		if cfg.Storage.Type == "" {
			cfg.Storage.Type = "bolt"
		}
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("storage.redis.host is required")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}

	if cfg.Publish.Enabled {
		if cfg.Publish.Broker == "" {
			return fmt.Errorf("publish.broker is required when publishing is enabled")
		}
		if cfg.Publish.Topic == "" {
			return fmt.Errorf("publish.topic is required when publishing is enabled")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}

	return nil
}

// Default returns the configuration built from defaults alone, without
// validation.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// KnownKeys returns the set of configuration keys this version understands.
func KnownKeys() map[string]bool {
	v := viper.New()
	setDefaults(v)

	keys := make(map[string]bool)
	for _, key := range v.AllKeys() {
		keys[key] = true
	}
	// Optional keys without a default
	keys["storage.redis.password"] = true
	return keys
}

// UnknownKeys reads the config file at path and returns the keys it sets that
// this version does not understand.
func UnknownKeys(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	known := KnownKeys()
	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}
