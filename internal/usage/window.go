package usage

import "time"

// DateLayout is the calendar date format used for report keys.
const DateLayout = "2006-01-02"

// Window is the half-open interval [Start, End) a report covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// Elapsed returns the window length, never negative.
func (w Window) Elapsed() time.Duration {
	if w.End.Before(w.Start) {
		return 0
	}
	return w.End.Sub(w.Start)
}

// Empty reports whether no time has elapsed in the window.
func (w Window) Empty() bool {
	return w.Elapsed() == 0
}

// DailyWindow returns the window from the most recent local midnight in loc
// up to now. The location must be resolved by the caller on every call so
// that offset changes take effect immediately.
func DailyWindow(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	// A clock before the epoch is not a usable reading.
	if now.Before(time.Unix(0, 0)) {
		return Window{Start: now, End: now}
	}

	start := startOfDay(now, loc)
	if start.After(now) {
		start = now
	}
	return Window{Start: start, End: now}
}

// PreviousDayWindow returns the full local calendar day before now.
func PreviousDayWindow(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	today := startOfDay(now.In(loc), loc)
	y, m, d := today.Date()
	yesterday := startOfDay(time.Date(y, m, d-1, 12, 0, 0, 0, loc), loc)
	return Window{Start: yesterday, End: today}
}

// DayWindow returns the full local calendar day named by date (YYYY-MM-DD),
// truncated at now if the day has not finished yet.
func DayWindow(date string, now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return Window{}, err
	}
	start := startOfDay(time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, loc), loc)
	end := startOfDay(time.Date(day.Year(), day.Month(), day.Day()+1, 12, 0, 0, 0, loc), loc)
	if now = now.In(loc); now.Before(end) {
		end = now
	}
	if end.Before(start) {
		end = start
	}
	return Window{Start: start, End: end}, nil
}

// DateString formats the local calendar date of t.
func DateString(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// IsNewDay reports whether now falls on a different local date than last.
func IsNewDay(last string, now time.Time, loc *time.Location) bool {
	return DateString(now, loc) != last
}

// startOfDay returns the first instant of t's local date. Where a DST jump
// skips midnight, time.Date may resolve to the previous evening; step forward
// until the date matches.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	for i := 0; i < 8; i++ {
		sy, sm, sd := start.Date()
		if sy == y && sm == m && sd == d {
			break
		}
		start = start.Add(15 * time.Minute)
	}
	return start
}
