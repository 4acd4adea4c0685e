package usage

import (
	"context"
	"time"
)

// Source is the device usage log.
type Source interface {
	// HasPermission reports whether the usage log may be read.
	HasPermission(ctx context.Context) bool
	// QueryEvents returns the raw events in [start, end] in log order.
	// Sources without an event-level log return ErrEventsUnsupported.
	QueryEvents(ctx context.Context, start, end time.Time) ([]RawEvent, error)
	// QueryAggregate returns total foreground time per package name. The
	// platform may attribute time from before start to the first bucket.
	QueryAggregate(ctx context.Context, start, end time.Time) (map[string]time.Duration, error)
}
