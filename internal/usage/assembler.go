package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/goodtune/screentime/internal/metrics"
	"github.com/rs/zerolog"
)

// AssemblerConfig holds the optional collaborators of an Assembler.
type AssemblerConfig struct {
	Thresholds Thresholds
	// Tracer receives every reconciliation decision. May be nil.
	Tracer Tracer
	// Zone is consulted on every pass. Nil means the process local zone.
	Zone func() *time.Location
	// Clock defaults to the real clock.
	Clock quartz.Clock
}

// Assembler turns the device usage log into daily reports. It holds no
// state between passes.
type Assembler struct {
	source     Source
	thresholds Thresholds
	tracer     Tracer
	zone       func() *time.Location
	clock      quartz.Clock
	logger     zerolog.Logger
}

// NewAssembler creates an assembler reading from source.
func NewAssembler(source Source, cfg AssemblerConfig, logger zerolog.Logger) *Assembler {
	a := &Assembler{
		source:     source,
		thresholds: cfg.Thresholds.withDefaults(),
		tracer:     MultiTracer(cfg.Tracer, metricsTracer()),
		zone:       cfg.Zone,
		clock:      cfg.Clock,
		logger:     logger.With().Str("component", "assembler").Logger(),
	}
	if a.zone == nil {
		a.zone = func() *time.Location { return time.Local }
	}
	if a.clock == nil {
		a.clock = quartz.NewReal()
	}
	return a
}

// Location returns the device zone as of now.
func (a *Assembler) Location() *time.Location {
	return a.zone()
}

// Today reports usage from local midnight until now.
func (a *Assembler) Today(ctx context.Context) (*Report, error) {
	loc := a.zone()
	return a.ForWindow(ctx, DailyWindow(a.clock.Now(), loc), loc)
}

// ForWindow reports usage over an explicit window. The report is dated by
// the local date of window.Start.
func (a *Assembler) ForWindow(ctx context.Context, window Window, loc *time.Location) (*Report, error) {
	if loc == nil {
		loc = time.Local
	}
	date := DateString(window.Start, loc)
	logger := a.logger.With().Str("date", date).Logger()

	if !a.source.HasPermission(ctx) {
		metrics.ReportFailuresTotal.WithLabelValues("permission").Inc()
		return nil, ErrPermissionDenied
	}

	raw, err := a.source.QueryEvents(ctx, window.Start, window.End)
	switch {
	case err == nil:
		events := FilterTracked(raw)
		res := Reconcile(events, window, a.thresholds, a.tracer)
		logger.Debug().
			Int("raw_events", len(raw)).
			Int("tracked_events", len(events)).
			Int("ignored", res.Ignored).
			Int("unmatched", res.Unmatched).
			Int("open", len(res.Open)).
			Msg("Reconciled usage events")
		if res.Observed {
			return a.report(date, window, MethodEvents, res.Minutes()), nil
		}
		logger.Info().Msg("No tracked usage in event log, falling back to aggregate")
	case errors.Is(err, ErrPermissionDenied):
		metrics.ReportFailuresTotal.WithLabelValues("permission").Inc()
		return nil, err
	case errors.Is(err, ErrEventsUnsupported):
		logger.Debug().Msg("Event log unsupported, using aggregate")
	default:
		logger.Warn().Err(err).Msg("Event query failed, falling back to aggregate")
	}

	aggregate, err := a.source.QueryAggregate(ctx, window.Start, window.End)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			metrics.ReportFailuresTotal.WithLabelValues("permission").Inc()
			return nil, err
		}
		metrics.ReportFailuresTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: query aggregate: %w", ErrSourceUnavailable, err)
	}

	return a.report(date, window, MethodAggregate, FallbackMinutes(aggregate, window, a.thresholds, a.tracer)), nil
}

func (a *Assembler) report(date string, window Window, method Method, minutes map[AppID]uint32) *Report {
	metrics.ReportsTotal.WithLabelValues(string(method)).Inc()
	r := NewReport(date, window, method, minutes)
	a.logger.Info().
		Str("date", date).
		Str("method", string(method)).
		Uint32("total_minutes", r.Total()).
		Msg("Usage report built")
	return r
}

func metricsTracer() Tracer {
	return TracerFunc(func(t Trace) {
		metrics.DecisionsTotal.WithLabelValues(string(t.Decision)).Inc()
	})
}
