package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/screentime/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "screentime.bolt"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func report(userID, date string, minutes map[string]uint32) storage.DailyReport {
	return storage.DailyReport{
		UserID:    userID,
		Date:      date,
		Method:    "events",
		Minutes:   minutes,
		UpdatedAt: time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
	}
}

func TestReportStoreReplaceDaily(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	reports := store.Reports()

	if err := reports.ReplaceDaily(ctx, report("u1", "2026-10-16", map[string]uint32{"tiktok": 10, "instagram": 3})); err != nil {
		t.Fatalf("replace daily: %v", err)
	}
	if err := reports.ReplaceDaily(ctx, report("u1", "2026-10-16", map[string]uint32{"tiktok": 14})); err != nil {
		t.Fatalf("replace daily: %v", err)
	}

	got, err := reports.GetDaily(ctx, "u1", "2026-10-16")
	if err != nil {
		t.Fatalf("get daily: %v", err)
	}
	if got.Minutes["tiktok"] != 14 {
		t.Fatalf("expected tiktok 14, got %d", got.Minutes["tiktok"])
	}
	if _, ok := got.Minutes["instagram"]; ok {
		t.Fatalf("expected instagram to be replaced away, got %v", got.Minutes)
	}
	if got.TotalMinutes() != 14 {
		t.Fatalf("expected total 14, got %d", got.TotalMinutes())
	}
}

func TestReportStoreGetDailyNotFound(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	_, err := store.Reports().GetDaily(context.Background(), "u1", "2026-10-16")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReportStoreListDaily(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	reports := store.Reports()

	for _, r := range []storage.DailyReport{
		report("u1", "2026-10-03", map[string]uint32{"youtube": 3}),
		report("u1", "2026-10-01", map[string]uint32{"youtube": 1}),
		report("u1", "2026-10-02", map[string]uint32{"youtube": 2}),
		report("u1", "2026-10-05", map[string]uint32{"youtube": 5}),
		report("u10", "2026-10-02", map[string]uint32{"youtube": 99}),
	} {
		if err := reports.ReplaceDaily(ctx, r); err != nil {
			t.Fatalf("replace daily: %v", err)
		}
	}

	listed, err := reports.ListDaily(ctx, "u1", "2026-10-01", "2026-10-03")
	if err != nil {
		t.Fatalf("list daily: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(listed))
	}
	for i, want := range []string{"2026-10-01", "2026-10-02", "2026-10-03"} {
		if listed[i].Date != want || listed[i].UserID != "u1" {
			t.Fatalf("report %d: expected u1 %s, got %s %s", i, want, listed[i].UserID, listed[i].Date)
		}
	}

	if _, err := reports.ListDaily(ctx, "u1", "yesterday", "2026-10-03"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestReportStoreDeleteDailyBefore(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	reports := store.Reports()

	for _, date := range []string{"2026-09-01", "2026-09-15", "2026-10-01"} {
		if err := reports.ReplaceDaily(ctx, report("u1", date, nil)); err != nil {
			t.Fatalf("replace daily: %v", err)
		}
	}
	if err := reports.ReplaceDaily(ctx, report("u2", "2026-09-01", nil)); err != nil {
		t.Fatalf("replace daily: %v", err)
	}

	deleted, err := reports.DeleteDailyBefore(ctx, "u1", "2026-09-16")
	if err != nil {
		t.Fatalf("delete daily before: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	if _, err := reports.GetDaily(ctx, "u1", "2026-10-01"); err != nil {
		t.Fatalf("expected 2026-10-01 to survive: %v", err)
	}
	if _, err := reports.GetDaily(ctx, "u2", "2026-09-01"); err != nil {
		t.Fatalf("expected other user's report to survive: %v", err)
	}

	if _, err := reports.DeleteDailyBefore(ctx, "u1", "not-a-date"); err == nil {
		t.Fatal("expected error for malformed cutoff")
	}
}

func TestReportStoreRollup(t *testing.T) {
	store := openTestStore(t)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	reports := store.Reports()

	rollup := storage.Rollup{
		UserID:       "u1",
		Kind:         storage.RollupMonth,
		ID:           "2026-10",
		Start:        "2026-10-01",
		End:          "2026-10-31",
		Minutes:      map[string]uint32{"snapchat": 40},
		TotalMinutes: 40,
		Days:         2,
	}
	if err := reports.PutRollup(ctx, rollup); err != nil {
		t.Fatalf("put rollup: %v", err)
	}

	got, err := reports.GetRollup(ctx, "u1", storage.RollupMonth, "2026-10")
	if err != nil {
		t.Fatalf("get rollup: %v", err)
	}
	if got.Kind != storage.RollupMonth || got.TotalMinutes != 40 || got.Days != 2 {
		t.Fatalf("unexpected rollup: %+v", got)
	}

	if _, err := reports.GetRollup(ctx, "u1", storage.RollupWeek, "2026-10"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other kind, got %v", err)
	}
}
