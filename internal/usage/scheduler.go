package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/goodtune/screentime/internal/metrics"
	"github.com/goodtune/screentime/internal/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultInterval is the period between scheduled passes.
	DefaultInterval = 5 * time.Minute

	// DefaultRetentionDays is how long daily reports are kept.
	DefaultRetentionDays = 30
)

// Publisher delivers reports to consumers such as a UI.
type Publisher interface {
	Publish(ctx context.Context, userID string, report *Report) error
}

// SchedulerConfig holds scheduler settings.
type SchedulerConfig struct {
	UserID        string
	Interval      time.Duration
	RetentionDays int
	// Publisher is optional.
	Publisher Publisher
	Clock     quartz.Clock
}

// Scheduler runs a tracking pass periodically and on demand, persists each
// report with replace semantics and finalises the previous day when the
// local date changes.
type Scheduler struct {
	assembler *Assembler
	reports   storage.ReportStore
	publisher Publisher
	clock     quartz.Clock
	userID    string
	interval  time.Duration
	retention int
	trigger   chan struct{}
	logger    zerolog.Logger

	mu       sync.Mutex
	lastDate string
}

// NewScheduler creates a scheduler. Run starts it.
func NewScheduler(assembler *Assembler, reports storage.ReportStore, cfg SchedulerConfig, logger zerolog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}

	return &Scheduler{
		assembler: assembler,
		reports:   reports,
		publisher: cfg.Publisher,
		clock:     cfg.Clock,
		userID:    cfg.UserID,
		interval:  cfg.Interval,
		retention: cfg.RetentionDays,
		trigger:   make(chan struct{}, 1),
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Trigger requests a pass as soon as possible, e.g. when the app comes to
// the foreground. Requests made while one is pending are coalesced.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run performs a pass immediately and then on every tick or trigger until
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval, "scheduler")
	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", s.interval).
		Int("retention_days", s.retention).
		Msg("Usage scheduler started")

	s.pass(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Usage scheduler stopped")
			return nil
		case <-ticker.C:
			s.pass(ctx)
		case <-s.trigger:
			s.pass(ctx)
		}
	}
}

func (s *Scheduler) pass(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("Tracking pass failed")
	}
}

// RunOnce builds today's report, persists and publishes it. When the local
// date has changed since the previous pass, the previous day is finalised
// first. Passes are serialised.
func (s *Scheduler) RunOnce(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.clock.Now()
	defer func() {
		metrics.PassDuration.Observe(s.clock.Since(started).Seconds())
	}()

	loc := s.assembler.Location()
	today := DateString(started, loc)

	if previous := s.previousDate(ctx, today, started, loc); previous != "" {
		s.rollover(ctx, previous, started, loc)
	}
	s.lastDate = today

	report, err := s.assembler.ForWindow(ctx, DailyWindow(started, loc), loc)
	if err != nil {
		metrics.PassesTotal.WithLabelValues("no_report").Inc()
		return nil, err
	}

	if err := s.persist(ctx, report, false, started); err != nil {
		metrics.PassesTotal.WithLabelValues("store_error").Inc()
		return report, err
	}

	for app, minutes := range report.PerApp() {
		metrics.AppMinutes.WithLabelValues(string(app)).Set(float64(minutes))
	}
	metrics.PassesTotal.WithLabelValues("ok").Inc()
	metrics.LastPassTimestamp.Set(float64(started.Unix()))

	s.publish(ctx, report)
	return report, nil
}

// previousDate returns the date that needs finalising before today's pass,
// or "" if none. After a restart the previous pass is unknown, so yesterday
// is finalised if its stored report is still provisional.
func (s *Scheduler) previousDate(ctx context.Context, today string, now time.Time, loc *time.Location) string {
	if s.lastDate != "" {
		if s.lastDate != today {
			return s.lastDate
		}
		return ""
	}

	yesterday := DateString(PreviousDayWindow(now, loc).Start, loc)
	stored, err := s.reports.GetDaily(ctx, s.userID, yesterday)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ""
	case err != nil:
		s.logger.Warn().Err(err).Str("date", yesterday).Msg("Failed to look up previous report")
		return ""
	case stored.Final:
		return ""
	}
	return yesterday
}

// rollover finalises date, applies retention and refreshes the rollups
// containing date. Failures are logged; today's pass continues regardless.
func (s *Scheduler) rollover(ctx context.Context, date string, now time.Time, loc *time.Location) {
	logger := s.logger.With().Str("date", date).Logger()
	logger.Info().Msg("Local date changed, finalising previous day")

	window, err := DayWindow(date, now, loc)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to compute previous day window")
		return
	}

	report, err := s.assembler.ForWindow(ctx, window, loc)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to build final report, keeping last provisional report")
	} else if err := s.persist(ctx, report, true, now); err != nil {
		logger.Error().Err(err).Msg("Failed to store final report")
	} else {
		s.publish(ctx, report)
	}

	s.applyRetention(ctx, now, loc)

	for _, kind := range []storage.RollupKind{storage.RollupWeek, storage.RollupMonth} {
		id, err := PeriodID(kind, date)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to compute rollup period")
			continue
		}
		if _, err := RefreshRollup(ctx, s.reports, s.userID, kind, id, now); err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("rollup").Inc()
			logger.Error().Err(err).Str("kind", string(kind)).Str("id", id).Msg("Failed to refresh rollup")
		}
	}
}

func (s *Scheduler) applyRetention(ctx context.Context, now time.Time, loc *time.Location) {
	local := now.In(loc)
	cutoff := time.Date(local.Year(), local.Month(), local.Day()-s.retention, 12, 0, 0, 0, loc).Format(DateLayout)

	deleted, err := s.reports.DeleteDailyBefore(ctx, s.userID, cutoff)
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("retention").Inc()
		s.logger.Error().Err(err).Str("cutoff_date", cutoff).Msg("Failed to delete old daily reports")
		return
	}
	s.logger.Info().
		Int("deleted", deleted).
		Str("cutoff_date", cutoff).
		Msg("Old daily reports cleaned up")
}

func (s *Scheduler) persist(ctx context.Context, report *Report, final bool, now time.Time) error {
	if err := s.reports.ReplaceDaily(ctx, report.Daily(s.userID, final, now)); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("replace_daily").Inc()
		return fmt.Errorf("store report for %s: %w", report.Date(), err)
	}
	return nil
}

func (s *Scheduler) publish(ctx context.Context, report *Report) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.userID, report); err != nil {
		metrics.PublishErrorsTotal.Inc()
		s.logger.Warn().Err(err).Str("date", report.Date()).Msg("Failed to publish report")
	}
}

// RefreshRollup rebuilds one rollup from the stored daily reports and
// stores it.
func RefreshRollup(ctx context.Context, reports storage.ReportStore, userID string, kind storage.RollupKind, id string, now time.Time) (storage.Rollup, error) {
	start, end, err := PeriodRange(kind, id)
	if err != nil {
		return storage.Rollup{}, err
	}
	days, err := reports.ListDaily(ctx, userID, start, end)
	if err != nil {
		return storage.Rollup{}, fmt.Errorf("list daily reports: %w", err)
	}
	rollup, err := BuildRollup(userID, kind, id, days, now)
	if err != nil {
		return storage.Rollup{}, err
	}
	if err := reports.PutRollup(ctx, rollup); err != nil {
		return storage.Rollup{}, fmt.Errorf("store rollup: %w", err)
	}
	return rollup, nil
}
