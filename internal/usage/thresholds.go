package usage

import "time"

const (
	// DefaultMinSessionDuration is the shortest session that counts. Anything
	// shorter is treated as an accidental open.
	DefaultMinSessionDuration = 10 * time.Second

	// DefaultMaxSessionDuration caps a single session. Some apps fail to emit
	// a timely pause, which otherwise produces hours-long sessions.
	DefaultMaxSessionDuration = 60 * time.Minute

	// DefaultRapidSwitchMax is the largest gap between two resumes without a
	// pause that is still counted as foreground time.
	DefaultRapidSwitchMax = 2 * time.Minute

	// DefaultCarryoverMax is the longest still-open session that is counted
	// at the end of the window.
	DefaultCarryoverMax = 5 * time.Minute

	// DefaultFallbackSessionCap is the per-session unit used to bound totals
	// taken from the coarse aggregate.
	DefaultFallbackSessionCap = 60 * time.Minute
)

// Thresholds holds the tunables of the reconciliation heuristics. Zero fields
// take the package defaults.
type Thresholds struct {
	MinSession         time.Duration
	MaxSession         time.Duration
	RapidSwitchMax     time.Duration
	CarryoverMax       time.Duration
	FallbackSessionCap time.Duration
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSession:         DefaultMinSessionDuration,
		MaxSession:         DefaultMaxSessionDuration,
		RapidSwitchMax:     DefaultRapidSwitchMax,
		CarryoverMax:       DefaultCarryoverMax,
		FallbackSessionCap: DefaultFallbackSessionCap,
	}
}

func (t Thresholds) withDefaults() Thresholds {
	if t.MinSession <= 0 {
		t.MinSession = DefaultMinSessionDuration
	}
	if t.MaxSession <= 0 {
		t.MaxSession = DefaultMaxSessionDuration
	}
	if t.RapidSwitchMax <= 0 {
		t.RapidSwitchMax = DefaultRapidSwitchMax
	}
	if t.CarryoverMax <= 0 {
		t.CarryoverMax = DefaultCarryoverMax
	}
	if t.FallbackSessionCap < time.Minute {
		t.FallbackSessionCap = DefaultFallbackSessionCap
	}
	return t
}
