package usage

import "time"

// FallbackMinutes derives per-app minutes from the coarse aggregate, keyed
// by package name. The aggregate includes background service time and on
// some OS versions spans time before window.Start, so it is bounded twice:
// a total longer than the window itself is impossible and is zeroed, and a
// total above a whole number of capped sessions is capped.
func FallbackMinutes(aggregate map[string]time.Duration, window Window, th Thresholds, tr Tracer) map[AppID]uint32 {
	th = th.withDefaults()

	elapsed := uint64(window.Elapsed() / time.Minute)
	sessionCap := uint64(th.FallbackSessionCap / time.Minute)
	sessions := elapsed / sessionCap
	if sessions < 1 {
		sessions = 1
	}
	absoluteMax := sessionCap * sessions

	byApp := make(map[AppID]time.Duration, len(TrackedApps))
	for pkg, d := range aggregate {
		if app, ok := AppForPackage(pkg); ok {
			byApp[app] += d
		}
	}

	out := make(map[AppID]uint32, len(TrackedApps))
	for _, app := range TrackedApps {
		raw, ok := byApp[app]
		if !ok {
			out[app] = 0
			emit(tr, Trace{App: app, Decision: DecisionAggregateMissingApp})
			continue
		}

		minutes := uint64(0)
		if raw > 0 {
			minutes = uint64(raw / time.Minute)
		}
		t := Trace{App: app, Observed: raw}
		switch {
		case minutes > elapsed:
			t.Decision = DecisionAggregateZeroed
			out[app] = 0
		case minutes > absoluteMax:
			t.Decision = DecisionAggregateCapped
			out[app] = uint32(absoluteMax)
		default:
			t.Decision = DecisionAggregateAccepted
			out[app] = uint32(minutes)
		}
		t.Counted = time.Duration(out[app]) * time.Minute
		emit(tr, t)
	}
	return out
}
