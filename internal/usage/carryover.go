package usage

import "time"

// ResolveCarryover settles sessions still open at the end of the window.
// A session open for at most th.CarryoverMax is taken to be genuinely in the
// foreground; anything older most likely lost its pause event and is not
// counted.
func ResolveCarryover(open map[AppID]Session, window Window, th Thresholds, tr Tracer) map[AppID]time.Duration {
	th = th.withDefaults()

	counted := make(map[AppID]time.Duration, len(open))
	for _, app := range TrackedApps {
		s, ok := open[app]
		if !ok {
			continue
		}
		elapsed := window.End.Sub(s.ResumedAt)
		t := Trace{App: app, At: s.ResumedAt, Observed: elapsed}
		if elapsed >= 0 && elapsed <= th.CarryoverMax {
			t.Decision = DecisionCarryoverCounted
			t.Counted = elapsed
			counted[app] = elapsed
		} else {
			t.Decision = DecisionCarryoverStale
		}
		emit(tr, t)
	}
	return counted
}
