package usage

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

var (
	testMidnight = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	testWindow   = Window{Start: testMidnight, End: testMidnight.Add(12 * time.Hour)}
)

// at returns the instant h:m:s after the test midnight.
func at(h, m, s int) time.Time {
	return testMidnight.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second)
}

func resumed(app AppID, ts time.Time) Event {
	return Event{App: app, Type: EventResumed, Timestamp: ts}
}

func paused(app AppID, ts time.Time) Event {
	return Event{App: app, Type: EventPaused, Timestamp: ts}
}

type traceRecorder struct {
	traces []Trace
}

func (r *traceRecorder) Trace(t Trace) { r.traces = append(r.traces, t) }

func (r *traceRecorder) count(d Decision) int {
	n := 0
	for _, t := range r.traces {
		if t.Decision == d {
			n++
		}
	}
	return n
}

func TestReconcileSessions(t *testing.T) {
	tests := []struct {
		name   string
		events []Event
		want   map[AppID]time.Duration
	}{
		{
			name: "matched pairs sum",
			events: []Event{
				resumed(AppTikTok, at(8, 0, 0)), paused(AppTikTok, at(8, 20, 0)),
				resumed(AppTikTok, at(9, 0, 0)), paused(AppTikTok, at(9, 15, 0)),
			},
			want: map[AppID]time.Duration{AppTikTok: 35 * time.Minute},
		},
		{
			name:   "session under minimum dropped",
			events: []Event{resumed(AppYouTube, at(8, 0, 0)), paused(AppYouTube, at(8, 0, 5))},
			want:   map[AppID]time.Duration{AppYouTube: 0},
		},
		{
			name:   "session over minimum counted",
			events: []Event{resumed(AppYouTube, at(8, 0, 0)), paused(AppYouTube, at(8, 0, 15))},
			want:   map[AppID]time.Duration{AppYouTube: 15 * time.Second},
		},
		{
			name:   "session at exactly the minimum counted",
			events: []Event{resumed(AppYouTube, at(8, 0, 0)), paused(AppYouTube, at(8, 0, 10))},
			want:   map[AppID]time.Duration{AppYouTube: 10 * time.Second},
		},
		{
			name:   "long session capped",
			events: []Event{resumed(AppInstagram, at(8, 0, 0)), paused(AppInstagram, at(9, 30, 0))},
			want:   map[AppID]time.Duration{AppInstagram: 60 * time.Minute},
		},
		{
			name: "rapid re-resume counted as continuous",
			events: []Event{
				resumed(AppFacebook, at(8, 0, 0)),
				resumed(AppFacebook, at(8, 0, 30)),
				paused(AppFacebook, at(8, 5, 0)),
			},
			want: map[AppID]time.Duration{AppFacebook: 5 * time.Minute},
		},
		{
			name: "slow re-resume drops first interval",
			events: []Event{
				resumed(AppFacebook, at(8, 0, 0)),
				resumed(AppFacebook, at(8, 5, 0)),
				paused(AppFacebook, at(8, 10, 0)),
			},
			want: map[AppID]time.Duration{AppFacebook: 5 * time.Minute},
		},
		{
			name: "re-resume within noise drops first interval",
			events: []Event{
				resumed(AppSnapchat, at(8, 0, 0)),
				resumed(AppSnapchat, at(8, 0, 5)),
				paused(AppSnapchat, at(8, 5, 0)),
			},
			want: map[AppID]time.Duration{AppSnapchat: 4*time.Minute + 55*time.Second},
		},
		{
			name: "re-resume at exactly the rapid switch bound counted",
			events: []Event{
				resumed(AppSnapchat, at(8, 0, 0)),
				resumed(AppSnapchat, at(8, 2, 0)),
				paused(AppSnapchat, at(8, 4, 0)),
			},
			want: map[AppID]time.Duration{AppSnapchat: 4 * time.Minute},
		},
		{
			name:   "pause after window end clamped",
			events: []Event{resumed(AppTikTok, at(11, 50, 0)), paused(AppTikTok, at(12, 30, 0))},
			want:   map[AppID]time.Duration{AppTikTok: 10 * time.Minute},
		},
		{
			name: "apps are independent",
			events: []Event{
				resumed(AppTikTok, at(8, 0, 0)),
				resumed(AppYouTube, at(8, 1, 0)),
				paused(AppTikTok, at(8, 10, 0)),
				paused(AppYouTube, at(8, 21, 0)),
			},
			want: map[AppID]time.Duration{AppTikTok: 10 * time.Minute, AppYouTube: 20 * time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Reconcile(tt.events, testWindow, DefaultThresholds(), nil)
			for _, app := range TrackedApps {
				if got := res.Totals[app]; got != tt.want[app] {
					t.Errorf("%s: expected %v, got %v", app, tt.want[app], got)
				}
			}
			if len(res.Open) != 0 {
				t.Errorf("Expected no open sessions, got %v", res.Open)
			}
		})
	}
}

func TestReconcileUnmatchedPause(t *testing.T) {
	rec := &traceRecorder{}
	res := Reconcile([]Event{paused(AppTikTok, at(8, 0, 0))}, testWindow, DefaultThresholds(), rec)

	if res.Unmatched != 1 {
		t.Errorf("Expected 1 unmatched pause, got %d", res.Unmatched)
	}
	if res.Totals[AppTikTok] != 0 {
		t.Errorf("Expected no time, got %v", res.Totals[AppTikTok])
	}
	if res.Observed {
		t.Error("Expected Observed to be false")
	}
	if rec.count(DecisionPauseUnmatched) != 1 {
		t.Errorf("Expected a pause_unmatched trace, got %+v", rec.traces)
	}
}

func TestReconcilePauseBeforeResume(t *testing.T) {
	events := []Event{
		resumed(AppTikTok, at(11, 58, 0)),
		paused(AppTikTok, at(11, 57, 0)),
	}
	res := Reconcile(events, testWindow, DefaultThresholds(), nil)

	if res.Unmatched != 1 {
		t.Errorf("Expected skewed pause to be unmatched, got %d", res.Unmatched)
	}
	if _, ok := res.Open[AppTikTok]; !ok {
		t.Fatal("Expected session to stay open")
	}
	// Still open at window end, 2 minutes old: counted as carryover.
	if res.Totals[AppTikTok] != 2*time.Minute {
		t.Errorf("Expected 2m carryover, got %v", res.Totals[AppTikTok])
	}
}

func TestReconcileResumeBeforeWindow(t *testing.T) {
	rec := &traceRecorder{}
	events := []Event{
		resumed(AppYouTube, testWindow.Start.Add(-time.Minute)),
		paused(AppYouTube, at(0, 10, 0)),
	}
	res := Reconcile(events, testWindow, DefaultThresholds(), rec)

	if res.Totals[AppYouTube] != 0 {
		t.Errorf("Expected resume before window to be ignored, got %v", res.Totals[AppYouTube])
	}
	if res.Unmatched != 1 {
		t.Errorf("Expected following pause to be unmatched, got %d", res.Unmatched)
	}
	if rec.count(DecisionResumeBeforeWindow) != 1 {
		t.Errorf("Expected resume_before_window trace, got %+v", rec.traces)
	}
}

func TestReconcileIgnoresOtherEventTypes(t *testing.T) {
	events := []Event{
		resumed(AppTikTok, at(8, 0, 0)),
		{App: AppTikTok, Type: EventUserInteraction, Timestamp: at(8, 1, 0)},
		{App: AppTikTok, Type: EventMovedToBackground, Timestamp: at(8, 2, 0)},
		{App: AppTikTok, Type: EventConfigurationChange, Timestamp: at(8, 3, 0)},
		paused(AppTikTok, at(8, 10, 0)),
	}
	res := Reconcile(events, testWindow, DefaultThresholds(), nil)

	if res.Ignored != 3 {
		t.Errorf("Expected 3 ignored events, got %d", res.Ignored)
	}
	if res.Totals[AppTikTok] != 10*time.Minute {
		t.Errorf("Expected 10m, got %v", res.Totals[AppTikTok])
	}
}

func TestReconcileCarryover(t *testing.T) {
	tests := []struct {
		name     string
		resumed  time.Time
		want     time.Duration
		decision Decision
	}{
		{"recent session counted", at(11, 57, 0), 3 * time.Minute, DecisionCarryoverCounted},
		{"session at bound counted", at(11, 55, 0), 5 * time.Minute, DecisionCarryoverCounted},
		{"stale session dropped", at(11, 50, 0), 0, DecisionCarryoverStale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &traceRecorder{}
			res := Reconcile([]Event{resumed(AppInstagram, tt.resumed)}, testWindow, DefaultThresholds(), rec)
			if res.Totals[AppInstagram] != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, res.Totals[AppInstagram])
			}
			if rec.count(tt.decision) != 1 {
				t.Errorf("Expected %s trace, got %+v", tt.decision, rec.traces)
			}
		})
	}
}

func TestResolveCarryoverFutureResume(t *testing.T) {
	open := map[AppID]Session{AppTikTok: {App: AppTikTok, ResumedAt: testWindow.End.Add(time.Minute)}}
	counted := ResolveCarryover(open, testWindow, DefaultThresholds(), nil)
	if counted[AppTikTok] != 0 {
		t.Errorf("Expected resume after window end to count nothing, got %v", counted[AppTikTok])
	}
}

func TestReconcileObserved(t *testing.T) {
	short := []Event{resumed(AppTikTok, at(8, 0, 0)), paused(AppTikTok, at(8, 0, 3))}
	if Reconcile(short, testWindow, DefaultThresholds(), nil).Observed {
		t.Error("Expected only noise to leave Observed false")
	}

	if Reconcile(nil, testWindow, DefaultThresholds(), nil).Observed {
		t.Error("Expected empty stream to leave Observed false")
	}

	// Time under a minute still counts as observed data.
	brief := []Event{resumed(AppTikTok, at(8, 0, 0)), paused(AppTikTok, at(8, 0, 30))}
	res := Reconcile(brief, testWindow, DefaultThresholds(), nil)
	if !res.Observed {
		t.Error("Expected Observed to be true")
	}
	if res.Minutes()[AppTikTok] != 0 {
		t.Errorf("Expected 30s to floor to 0 minutes, got %d", res.Minutes()[AppTikTok])
	}
}

func TestReconcileCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.MaxSession = 30 * time.Minute

	events := []Event{resumed(AppTikTok, at(8, 0, 0)), paused(AppTikTok, at(8, 45, 0))}
	res := Reconcile(events, testWindow, th, nil)
	if res.Totals[AppTikTok] != 30*time.Minute {
		t.Errorf("Expected cap at 30m, got %v", res.Totals[AppTikTok])
	}
}

func TestFilterTracked(t *testing.T) {
	raw := []RawEvent{
		{Package: AppYouTube.Package(), Type: EventPaused, Timestamp: at(8, 10, 0)},
		{Package: "com.android.launcher3", Type: EventResumed, Timestamp: at(8, 0, 0)},
		{Package: AppYouTube.Package(), Type: EventResumed, Timestamp: at(8, 0, 0)},
		{Package: AppTikTok.Package(), Type: EventResumed, Timestamp: at(8, 0, 0)},
	}

	events := FilterTracked(raw)
	if len(events) != 3 {
		t.Fatalf("Expected 3 tracked events, got %d", len(events))
	}
	// Equal timestamps keep log order.
	if events[0].App != AppYouTube || events[1].App != AppTikTok || events[2].Type != EventPaused {
		t.Errorf("Unexpected order: %+v", events)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	events := []Event{
		resumed(AppTikTok, at(8, 0, 0)), paused(AppTikTok, at(8, 20, 0)),
		resumed(AppYouTube, at(9, 0, 0)), resumed(AppYouTube, at(9, 1, 0)), paused(AppYouTube, at(9, 30, 0)),
		resumed(AppSnapchat, at(11, 58, 0)),
	}

	first := Reconcile(events, testWindow, DefaultThresholds(), nil)
	second := Reconcile(events, testWindow, DefaultThresholds(), nil)

	a, err := json.Marshal(NewReport("2026-10-16", testWindow, MethodEvents, first.Minutes()))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	b, err := json.Marshal(NewReport("2026-10-16", testWindow, MethodEvents, second.Minutes()))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Errorf("Expected identical reports:\n%s\n%s", a, b)
	}
}

func TestTracerDoesNotAffectResult(t *testing.T) {
	events := []Event{
		resumed(AppTikTok, at(8, 0, 0)), paused(AppTikTok, at(8, 0, 2)),
		resumed(AppTikTok, at(9, 0, 0)), paused(AppTikTok, at(10, 30, 0)),
	}
	rec := &traceRecorder{}

	with := Reconcile(events, testWindow, DefaultThresholds(), rec)
	without := Reconcile(events, testWindow, DefaultThresholds(), nil)

	if with.Totals[AppTikTok] != without.Totals[AppTikTok] {
		t.Errorf("Tracer changed the result: %v vs %v", with.Totals[AppTikTok], without.Totals[AppTikTok])
	}
	if rec.count(DecisionSessionTooShort) != 1 || rec.count(DecisionSessionCapped) != 1 {
		t.Errorf("Unexpected traces: %+v", rec.traces)
	}
}
