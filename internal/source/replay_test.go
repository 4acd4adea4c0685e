package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goodtune/screentime/internal/usage"
	"github.com/rs/zerolog"
)

var day = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReplayQueryEvents(t *testing.T) {
	dir := t.TempDir()
	events := strings.Join([]string{
		`{"package":"com.zhiliaoapp.musically","type":"ACTIVITY_RESUMED","timestamp":"2026-10-15T23:50:00Z"}`,
		`{"package":"com.zhiliaoapp.musically","type":"ACTIVITY_RESUMED","timestamp":"2026-10-16T08:00:00Z"}`,
		``,
		`not json`,
		`{"package":"com.zhiliaoapp.musically","type":"ACTIVITY_PAUSED","timestamp":"2026-10-16T08:20:00Z"}`,
		`{"package":"com.android.chrome","type":"USER_INTERACTION","timestamp":"2026-10-16T09:00:00Z"}`,
		`{"package":"com.zhiliaoapp.musically","type":"ACTIVITY_RESUMED","timestamp":"2026-10-16T13:00:00Z"}`,
	}, "\n")

	r := NewReplay(ReplayConfig{
		EventsPath:      writeFile(t, dir, "events.jsonl", events),
		EventsSupported: true,
	}, zerolog.Nop())

	got, err := r.QueryEvents(context.Background(), day, day.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("QueryEvents failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 events in window, got %d: %+v", len(got), got)
	}
	if got[0].Type != usage.EventResumed || got[1].Type != usage.EventPaused {
		t.Errorf("Unexpected event types: %v, %v", got[0].Type, got[1].Type)
	}
	if got[2].Type != usage.EventUserInteraction {
		t.Errorf("Expected untracked event to be passed through, got %+v", got[2])
	}
}

func TestReplayEventsUnsupported(t *testing.T) {
	r := NewReplay(ReplayConfig{EventsSupported: false}, zerolog.Nop())
	if _, err := r.QueryEvents(context.Background(), day, day.Add(time.Hour)); !errors.Is(err, usage.ErrEventsUnsupported) {
		t.Errorf("Expected ErrEventsUnsupported, got %v", err)
	}
}

func TestReplayMissingEvents(t *testing.T) {
	r := NewReplay(ReplayConfig{
		EventsPath:      filepath.Join(t.TempDir(), "missing.jsonl"),
		EventsSupported: true,
	}, zerolog.Nop())

	_, err := r.QueryEvents(context.Background(), day, day.Add(time.Hour))
	if !IsMissing(err) {
		t.Errorf("Expected missing file error, got %v", err)
	}
}

func TestReplayPermission(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "granted")

	r := NewReplay(ReplayConfig{
		EventsPath:      writeFile(t, dir, "events.jsonl", ""),
		AggregatePath:   writeFile(t, dir, "aggregate.json", `{"foreground_ms":{}}`),
		EventsSupported: true,
		PermissionPath:  marker,
	}, zerolog.Nop())
	ctx := context.Background()

	if r.HasPermission(ctx) {
		t.Fatal("Expected no permission without marker")
	}
	if _, err := r.QueryEvents(ctx, day, day.Add(time.Hour)); !errors.Is(err, usage.ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied from events, got %v", err)
	}
	if _, err := r.QueryAggregate(ctx, day, day.Add(time.Hour)); !errors.Is(err, usage.ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied from aggregate, got %v", err)
	}

	writeFile(t, dir, "granted", "")
	if !r.HasPermission(ctx) {
		t.Fatal("Expected permission once marker exists")
	}
}

func TestReplayQueryAggregate(t *testing.T) {
	dir := t.TempDir()
	r := NewReplay(ReplayConfig{
		AggregatePath: writeFile(t, dir, "aggregate.json", `{
  "end": "2026-10-16T10:00:00Z",
  "foreground_ms": {
    "com.google.android.youtube": 2700000,
    "com.instagram.android": 90500
  }
}`),
	}, zerolog.Nop())

	got, err := r.QueryAggregate(context.Background(), day, day.Add(10*time.Hour))
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	if got["com.google.android.youtube"] != 45*time.Minute {
		t.Errorf("Expected 45m youtube, got %v", got["com.google.android.youtube"])
	}
	if got["com.instagram.android"] != 90500*time.Millisecond {
		t.Errorf("Expected 90.5s instagram, got %v", got["com.instagram.android"])
	}

	// The same snapshot read on the next day is stale.
	stale, err := r.QueryAggregate(context.Background(), day.Add(24*time.Hour), day.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("QueryAggregate failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("Expected no usage from a stale snapshot, got %v", stale)
	}
}

func TestReplayAggregateMalformed(t *testing.T) {
	r := NewReplay(ReplayConfig{
		AggregatePath: writeFile(t, t.TempDir(), "aggregate.json", `{"foreground_ms": [1, 2]}`),
	}, zerolog.Nop())

	if _, err := r.QueryAggregate(context.Background(), day, day.Add(time.Hour)); err == nil {
		t.Error("Expected decode error")
	}
}

func TestReplayAsSource(t *testing.T) {
	dir := t.TempDir()
	events := strings.Join([]string{
		`{"package":"com.facebook.katana","type":"ACTIVITY_RESUMED","timestamp":"2026-10-16T07:00:00Z"}`,
		`{"package":"com.facebook.katana","type":"ACTIVITY_PAUSED","timestamp":"2026-10-16T07:42:10Z"}`,
	}, "\n")
	r := NewReplay(ReplayConfig{
		EventsPath:      writeFile(t, dir, "events.jsonl", events),
		AggregatePath:   writeFile(t, dir, "aggregate.json", `{"foreground_ms":{}}`),
		EventsSupported: true,
	}, zerolog.Nop())

	a := usage.NewAssembler(r, usage.AssemblerConfig{}, zerolog.Nop())
	report, err := a.ForWindow(context.Background(), usage.Window{Start: day, End: day.Add(12 * time.Hour)}, time.UTC)
	if err != nil {
		t.Fatalf("ForWindow failed: %v", err)
	}
	if report.Method() != usage.MethodEvents || report.Minutes(usage.AppFacebook) != 42 {
		t.Errorf("Unexpected report: %s %v", report.Method(), report.PerApp())
	}
}
