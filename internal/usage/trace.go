package usage

import (
	"time"

	"github.com/rs/zerolog"
)

// Decision names the heuristic applied to a piece of usage data.
type Decision string

const (
	DecisionSessionCounted      Decision = "session_counted"
	DecisionSessionCapped       Decision = "session_capped"
	DecisionSessionTooShort     Decision = "session_too_short"
	DecisionRapidSwitchCounted  Decision = "rapid_switch_counted"
	DecisionRapidSwitchNoise    Decision = "rapid_switch_noise"
	DecisionRapidSwitchStale    Decision = "rapid_switch_background"
	DecisionResumeBeforeWindow  Decision = "resume_before_window"
	DecisionPauseUnmatched      Decision = "pause_unmatched"
	DecisionEventIgnored        Decision = "event_ignored"
	DecisionCarryoverCounted    Decision = "carryover_counted"
	DecisionCarryoverStale      Decision = "carryover_stale"
	DecisionAggregateZeroed     Decision = "aggregate_zeroed"
	DecisionAggregateCapped     Decision = "aggregate_capped"
	DecisionAggregateAccepted   Decision = "aggregate_accepted"
	DecisionAggregateMissingApp Decision = "aggregate_missing"
)

// Anomaly reports whether the decision discarded or reduced data.
func (d Decision) Anomaly() bool {
	switch d {
	case DecisionSessionCounted, DecisionRapidSwitchCounted, DecisionCarryoverCounted,
		DecisionAggregateAccepted, DecisionAggregateMissingApp, DecisionEventIgnored:
		return false
	}
	return true
}

// Trace describes one reconciliation decision.
type Trace struct {
	App      AppID
	Decision Decision
	// At is the timestamp of the event that triggered the decision.
	At time.Time
	// Observed is the raw span or total the decision was made on.
	Observed time.Duration
	// Counted is what was added to the app's total.
	Counted time.Duration
}

// Tracer receives reconciliation decisions. It is a diagnostics side channel
// and must not influence the result.
type Tracer interface {
	Trace(Trace)
}

// TracerFunc adapts a function to a Tracer.
type TracerFunc func(Trace)

// Trace calls f.
func (f TracerFunc) Trace(t Trace) { f(t) }

// MultiTracer fans out to every non-nil tracer.
func MultiTracer(tracers ...Tracer) Tracer {
	active := make([]Tracer, 0, len(tracers))
	for _, t := range tracers {
		if t != nil {
			active = append(active, t)
		}
	}
	return TracerFunc(func(t Trace) {
		for _, tr := range active {
			tr.Trace(t)
		}
	})
}

// LogTracer writes each decision to logger at debug level.
func LogTracer(logger zerolog.Logger) Tracer {
	logger = logger.With().Str("component", "reconciler").Logger()
	return TracerFunc(func(t Trace) {
		ev := logger.Debug().
			Str("app", string(t.App)).
			Str("decision", string(t.Decision)).
			Dur("observed", t.Observed).
			Dur("counted", t.Counted).
			Bool("anomaly", t.Decision.Anomaly())
		if !t.At.IsZero() {
			ev = ev.Time("at", t.At)
		}
		ev.Msg("Usage decision")
	})
}

func emit(tr Tracer, t Trace) {
	if tr != nil {
		tr.Trace(t)
	}
}
