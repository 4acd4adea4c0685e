package main

import (
	"testing"
	"time"

	"github.com/goodtune/screentime/internal/config"
	"github.com/goodtune/screentime/internal/usage"
	"github.com/rs/zerolog"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in       string
		fallback time.Duration
		want     time.Duration
	}{
		{"90s", time.Minute, 90 * time.Second},
		{"", time.Minute, time.Minute},
		{"soon", 5 * time.Second, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := parseDuration(tt.in, tt.fallback); got != tt.want {
			t.Errorf("parseDuration(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestThresholds(t *testing.T) {
	got := thresholds(config.TrackingConfig{
		MinSession:     "30s",
		MaxSession:     "bogus",
		RapidSwitchMax: "90s",
	})

	want := usage.DefaultThresholds()
	want.MinSession = 30 * time.Second
	want.RapidSwitchMax = 90 * time.Second

	if got != want {
		t.Errorf("thresholds: got %+v, want %+v", got, want)
	}
}

func TestOpenStoreUnknownType(t *testing.T) {
	if _, err := openStore(config.StorageConfig{Type: "postgres"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
}

func TestOpenStoreBolt(t *testing.T) {
	store, err := openStore(config.StorageConfig{Type: "bolt", Path: t.TempDir() + "/screentime.bolt"})
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer store.Close()

	if store.Reports() == nil {
		t.Error("expected a report store")
	}
}

func TestSetupLoggerLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	setupLogger(config.LoggingConfig{Level: "warn", Format: "text"})
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %s", zerolog.GlobalLevel())
	}
}

func TestDeviceLocation(t *testing.T) {
	cfg := config.Default()
	cfg.Device.Timezone = "UTC"
	if loc := deviceLocation(cfg); loc != time.UTC {
		t.Errorf("expected UTC, got %s", loc)
	}

	cfg.Device.Timezone = "Not/AZone"
	if loc := deviceLocation(cfg); loc != time.Local {
		t.Errorf("expected local fallback, got %s", loc)
	}
}

func TestOpenStoreSQLite(t *testing.T) {
	store, err := openStore(config.StorageConfig{Type: "sqlite", Path: t.TempDir() + "/screentime.db"})
	if err != nil {
		t.Fatalf("openStore failed: %v", err)
	}
	defer store.Close()

	if store.Reports() == nil {
		t.Error("expected a report store")
	}
}
