package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Reports() ReportStore
}

// ReportStore persists daily reports and their weekly and monthly rollups.
// Dates are local calendar dates in YYYY-MM-DD form, which sort
// lexicographically in calendar order.
type ReportStore interface {
	// ReplaceDaily stores report, replacing any previous report for the same
	// user and date in full. Apps absent from report.Minutes do not survive.
	ReplaceDaily(ctx context.Context, report DailyReport) error
	GetDaily(ctx context.Context, userID, date string) (*DailyReport, error)
	// ListDaily returns reports with from <= date <= to, oldest first.
	ListDaily(ctx context.Context, userID, from, to string) ([]DailyReport, error)
	// DeleteDailyBefore removes reports dated strictly before cutoff and
	// returns how many were removed.
	DeleteDailyBefore(ctx context.Context, userID, cutoff string) (int, error)

	PutRollup(ctx context.Context, rollup Rollup) error
	GetRollup(ctx context.Context, userID string, kind RollupKind, id string) (*Rollup, error)
}
