package usage

import (
	"sort"
	"time"
)

// Result is the outcome of one reconciliation pass.
type Result struct {
	// Totals holds foreground time for every tracked app, zero included.
	Totals map[AppID]time.Duration
	// Open holds the sessions still open when the event stream ended.
	Open map[AppID]Session
	// Ignored counts events of types other than resume and pause.
	Ignored int
	// Unmatched counts pauses without an open session.
	Unmatched int
	// Observed is set when at least one app accumulated foreground time.
	Observed bool
}

// Minutes converts the totals to whole minutes, truncating partial minutes.
func (r Result) Minutes() map[AppID]uint32 {
	out := make(map[AppID]uint32, len(TrackedApps))
	for _, app := range TrackedApps {
		out[app] = floorMinutes(r.Totals[app])
	}
	return out
}

// FilterTracked drops events for untracked packages and orders the rest by
// timestamp. Events with equal timestamps keep their log order.
func FilterTracked(raw []RawEvent) []Event {
	events := make([]Event, 0, len(raw))
	for _, ev := range raw {
		app, ok := AppForPackage(ev.Package)
		if !ok {
			continue
		}
		events = append(events, Event{App: app, Type: ev.Type, Timestamp: ev.Timestamp})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

// Reconcile pairs resume and pause events into sessions and accumulates
// per-app foreground time within window. Events must be ordered by
// timestamp (see FilterTracked). Sessions still open at the end are settled
// by ResolveCarryover. The function is pure: the same input always yields
// the same Result, and tr only observes.
func Reconcile(events []Event, window Window, th Thresholds, tr Tracer) Result {
	th = th.withDefaults()

	res := Result{
		Totals: make(map[AppID]time.Duration, len(TrackedApps)),
		Open:   make(map[AppID]Session),
	}
	for _, app := range TrackedApps {
		res.Totals[app] = 0
	}

	for _, ev := range events {
		if _, tracked := res.Totals[ev.App]; !tracked {
			continue
		}

		switch ev.Type {
		case EventResumed:
			if ev.Timestamp.Before(window.Start) {
				emit(tr, Trace{App: ev.App, Decision: DecisionResumeBeforeWindow, At: ev.Timestamp})
				continue
			}
			if open, ok := res.Open[ev.App]; ok {
				res.Totals[ev.App] += settleRapidSwitch(open, ev.Timestamp, th, tr)
			}
			res.Open[ev.App] = Session{App: ev.App, ResumedAt: ev.Timestamp}

		case EventPaused:
			open, ok := res.Open[ev.App]
			if !ok || ev.Timestamp.Before(open.ResumedAt) {
				res.Unmatched++
				emit(tr, Trace{App: ev.App, Decision: DecisionPauseUnmatched, At: ev.Timestamp})
				continue
			}
			open.PausedAt = ev.Timestamp
			res.Totals[ev.App] += closeSession(open, window, th, tr)
			delete(res.Open, ev.App)

		default:
			res.Ignored++
			emit(tr, Trace{App: ev.App, Decision: DecisionEventIgnored, At: ev.Timestamp})
		}
	}

	for app, counted := range ResolveCarryover(res.Open, window, th, tr) {
		res.Totals[app] += counted
	}

	for _, total := range res.Totals {
		if total > 0 {
			res.Observed = true
			break
		}
	}
	return res
}

// settleRapidSwitch decides how much of a session superseded by another
// resume (no pause in between) counts. Short gaps are the OS dropping the
// pause during a quick app switch; long gaps are background time.
func settleRapidSwitch(open Session, resumedAgain time.Time, th Thresholds, tr Tracer) time.Duration {
	gap := resumedAgain.Sub(open.ResumedAt)
	t := Trace{App: open.App, At: resumedAgain, Observed: gap}

	switch {
	case gap < th.MinSession:
		t.Decision = DecisionRapidSwitchNoise
	case gap <= th.RapidSwitchMax:
		t.Decision = DecisionRapidSwitchCounted
		t.Counted = gap
	default:
		t.Decision = DecisionRapidSwitchStale
	}
	emit(tr, t)
	return t.Counted
}

// closeSession returns the countable duration of a session closed by a pause.
func closeSession(s Session, window Window, th Thresholds, tr Tracer) time.Duration {
	end := s.PausedAt
	if end.After(window.End) {
		end = window.End
	}
	duration := end.Sub(s.ResumedAt)
	t := Trace{App: s.App, At: s.PausedAt, Observed: duration}

	switch {
	case duration < th.MinSession:
		t.Decision = DecisionSessionTooShort
	case duration > th.MaxSession:
		t.Decision = DecisionSessionCapped
		t.Counted = th.MaxSession
	default:
		t.Decision = DecisionSessionCounted
		t.Counted = duration
	}
	emit(tr, t)
	return t.Counted
}

func floorMinutes(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d / time.Minute)
}
