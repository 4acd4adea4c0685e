package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goodtune/screentime/internal/config"
	"github.com/goodtune/screentime/internal/source"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/goodtune/screentime/internal/storage/bolt"
	"github.com/goodtune/screentime/internal/storage/redis"
	"github.com/goodtune/screentime/internal/storage/sqlite"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/rs/zerolog"
)

func main() {
	Execute()
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// thresholds builds the reconciliation thresholds from configuration
func thresholds(cfg config.TrackingConfig) usage.Thresholds {
	return usage.Thresholds{
		MinSession:         parseDuration(cfg.MinSession, usage.DefaultMinSessionDuration),
		MaxSession:         parseDuration(cfg.MaxSession, usage.DefaultMaxSessionDuration),
		RapidSwitchMax:     parseDuration(cfg.RapidSwitchMax, usage.DefaultRapidSwitchMax),
		CarryoverMax:       parseDuration(cfg.CarryoverMax, usage.DefaultCarryoverMax),
		FallbackSessionCap: parseDuration(cfg.FallbackSessionCap, usage.DefaultFallbackSessionCap),
	}
}

// openStore opens the configured storage backend
func openStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "", "bolt":
		store, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt storage: %w", err)
		}
		return store, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return store, nil
	case "redis":
		store, err := redis.Open(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// newAssembler wires the usage source and zone resolution into an assembler
func newAssembler(cfg *config.Config, logger zerolog.Logger) (*usage.Assembler, error) {
	zones, err := usage.NewZoneResolver(usage.DefaultZoneCacheSize)
	if err != nil {
		return nil, err
	}

	src := source.NewReplay(source.ReplayConfig{
		EventsPath:      cfg.Source.EventsPath,
		AggregatePath:   cfg.Source.AggregatePath,
		EventsSupported: cfg.Source.EventsSupported,
		PermissionPath:  cfg.Source.PermissionPath,
	}, logger)

	return usage.NewAssembler(src, usage.AssemblerConfig{
		Thresholds: thresholds(cfg.Tracking),
		Tracer:     usage.LogTracer(logger),
		Zone:       zones.Provider(cfg.Device.Timezone, logger),
	}, logger), nil
}
