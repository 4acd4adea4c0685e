// Package source provides usage.Source implementations.
package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goodtune/screentime/internal/usage"
	"github.com/rs/zerolog"
)

// maxLineSize bounds a single exported event line.
const maxLineSize = 64 * 1024

// ReplayConfig locates an exported device usage log.
type ReplayConfig struct {
	// EventsPath is a JSON-lines file of usage.RawEvent.
	EventsPath string
	// AggregatePath is a JSON Aggregate snapshot.
	AggregatePath string
	// EventsSupported is false for devices without an event-level log.
	EventsSupported bool
	// PermissionPath, when set, must exist for the log to be readable.
	PermissionPath string
}

// Aggregate is the coarse per-package foreground snapshot as exported from
// the device.
type Aggregate struct {
	// End is when the snapshot was taken. Zero means unknown.
	End          time.Time        `json:"end"`
	ForegroundMS map[string]int64 `json:"foreground_ms"`
}

// Replay serves usage data from files exported from a device. Files are
// re-read on every query, so a fresh export is picked up by the next pass.
type Replay struct {
	cfg    ReplayConfig
	logger zerolog.Logger
}

// NewReplay creates a replay source.
func NewReplay(cfg ReplayConfig, logger zerolog.Logger) *Replay {
	return &Replay{
		cfg:    cfg,
		logger: logger.With().Str("component", "replay-source").Logger(),
	}
}

// HasPermission reports whether the permission marker exists.
func (r *Replay) HasPermission(ctx context.Context) bool {
	if r.cfg.PermissionPath == "" {
		return true
	}
	_, err := os.Stat(r.cfg.PermissionPath)
	return err == nil
}

// QueryEvents returns the exported events stamped within [start, end], in
// file order. Malformed lines are skipped.
func (r *Replay) QueryEvents(ctx context.Context, start, end time.Time) ([]usage.RawEvent, error) {
	if !r.cfg.EventsSupported {
		return nil, usage.ErrEventsUnsupported
	}
	if !r.HasPermission(ctx) {
		return nil, usage.ErrPermissionDenied
	}

	f, err := os.Open(r.cfg.EventsPath)
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	var (
		events  []usage.RawEvent
		line    int
		skipped int
	)
	for scanner.Scan() {
		line++
		if line%1024 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var ev usage.RawEvent
		if err := json.Unmarshal(text, &ev); err != nil {
			skipped++
			r.logger.Debug().Err(err).Int("line", line).Msg("Skipping malformed event")
			continue
		}
		if ev.Timestamp.Before(start) || ev.Timestamp.After(end) {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	if skipped > 0 {
		r.logger.Warn().Int("skipped", skipped).Str("path", r.cfg.EventsPath).Msg("Skipped malformed events")
	}
	return events, nil
}

// QueryAggregate returns the snapshot totals. A snapshot taken before start
// belongs to an earlier day and yields no usage.
func (r *Replay) QueryAggregate(ctx context.Context, start, end time.Time) (map[string]time.Duration, error) {
	if !r.HasPermission(ctx) {
		return nil, usage.ErrPermissionDenied
	}

	data, err := os.ReadFile(r.cfg.AggregatePath)
	if err != nil {
		return nil, fmt.Errorf("read aggregate: %w", err)
	}

	var snapshot Aggregate
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode aggregate: %w", err)
	}

	out := make(map[string]time.Duration, len(snapshot.ForegroundMS))
	if !snapshot.End.IsZero() && snapshot.End.Before(start) {
		r.logger.Debug().Time("snapshot_end", snapshot.End).Msg("Aggregate snapshot predates window")
		return out, nil
	}
	for pkg, ms := range snapshot.ForegroundMS {
		out[pkg] = time.Duration(ms) * time.Millisecond
	}
	return out, nil
}

// IsMissing reports whether err means an exported file does not exist yet.
func IsMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
