package usage

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZoneResolver(t *testing.T) {
	z, err := NewZoneResolver(2)
	if err != nil {
		t.Fatalf("NewZoneResolver failed: %v", err)
	}

	if loc, err := z.Resolve(""); err != nil || loc != time.Local {
		t.Errorf("Expected local zone for empty name, got %v, %v", loc, err)
	}
	if loc, err := z.Resolve("UTC"); err != nil || loc != time.UTC {
		t.Errorf("Expected UTC, got %v, %v", loc, err)
	}

	first, err := z.Resolve("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	second, err := z.Resolve("Europe/Paris")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first != second {
		t.Error("Expected cached location to be reused")
	}

	if _, err := z.Resolve("Nowhere/Special"); err == nil {
		t.Error("Expected error for unknown zone")
	}
}

func TestZoneProviderFollowsTZ(t *testing.T) {
	z, err := NewZoneResolver(0)
	if err != nil {
		t.Fatalf("NewZoneResolver failed: %v", err)
	}
	provider := z.Provider("", zerolog.Nop())

	t.Setenv("TZ", "UTC")
	if loc := provider(); loc != time.UTC {
		t.Errorf("Expected UTC, got %v", loc)
	}

	t.Setenv("TZ", "Asia/Tokyo")
	if _, err := time.LoadLocation("Asia/Tokyo"); err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if loc := provider(); loc.String() != "Asia/Tokyo" {
		t.Errorf("Expected provider to pick up new TZ, got %v", loc)
	}

	t.Setenv("TZ", "Nowhere/Special")
	if loc := provider(); loc != time.Local {
		t.Errorf("Expected fallback to local zone, got %v", loc)
	}
}

func TestZoneProviderConfiguredWins(t *testing.T) {
	z, err := NewZoneResolver(0)
	if err != nil {
		t.Fatalf("NewZoneResolver failed: %v", err)
	}
	t.Setenv("TZ", "Asia/Tokyo")

	if loc := z.Provider("UTC", zerolog.Nop())(); loc != time.UTC {
		t.Errorf("Expected configured zone, got %v", loc)
	}
}
