package usage

import (
	"encoding/json"
	"time"

	"github.com/goodtune/screentime/internal/storage"
)

// Report is the per-app minute total for one local calendar day. It is
// immutable: every accessor returns a copy.
type Report struct {
	date    string
	window  Window
	method  Method
	minutes map[AppID]uint32
}

// NewReport builds a report covering every tracked app. Apps missing from
// minutes are reported as zero; untracked keys are dropped.
func NewReport(date string, window Window, method Method, minutes map[AppID]uint32) *Report {
	r := &Report{
		date:    date,
		window:  window,
		method:  method,
		minutes: make(map[AppID]uint32, len(TrackedApps)),
	}
	for _, app := range TrackedApps {
		r.minutes[app] = minutes[app]
	}
	return r
}

// Date returns the local calendar date (YYYY-MM-DD) the report covers.
func (r *Report) Date() string { return r.date }

// Window returns the interval that was reconciled.
func (r *Report) Window() Window { return r.window }

// Method returns the data source the figures came from.
func (r *Report) Method() Method { return r.method }

// Minutes returns the whole minutes spent in app.
func (r *Report) Minutes(app AppID) uint32 { return r.minutes[app] }

// PerApp returns a copy of the per-app minutes.
func (r *Report) PerApp() map[AppID]uint32 {
	out := make(map[AppID]uint32, len(r.minutes))
	for app, m := range r.minutes {
		out[app] = m
	}
	return out
}

// Total returns the minutes summed over all tracked apps.
func (r *Report) Total() uint32 {
	var total uint32
	for _, m := range r.minutes {
		total += m
	}
	return total
}

type reportJSON struct {
	Date         string            `json:"date"`
	Method       Method            `json:"method"`
	WindowStart  string            `json:"window_start"`
	WindowEnd    string            `json:"window_end"`
	Minutes      map[string]uint32 `json:"minutes"`
	TotalMinutes uint32            `json:"total_minutes"`
}

// MarshalJSON encodes the report with sorted app keys, so equal reports
// always encode to identical bytes.
func (r *Report) MarshalJSON() ([]byte, error) {
	minutes := make(map[string]uint32, len(r.minutes))
	for app, m := range r.minutes {
		minutes[string(app)] = m
	}
	return json.Marshal(reportJSON{
		Date:         r.date,
		Method:       r.method,
		WindowStart:  r.window.Start.Format(time.RFC3339Nano),
		WindowEnd:    r.window.End.Format(time.RFC3339Nano),
		Minutes:      minutes,
		TotalMinutes: r.Total(),
	})
}

// Daily converts the report to its stored form. Final marks a day that has
// ended and will not be recomputed.
func (r *Report) Daily(userID string, final bool, updatedAt time.Time) storage.DailyReport {
	minutes := make(map[string]uint32, len(r.minutes))
	for app, m := range r.minutes {
		minutes[string(app)] = m
	}
	return storage.DailyReport{
		UserID:    userID,
		Date:      r.date,
		Method:    string(r.method),
		Minutes:   minutes,
		Final:     final,
		UpdatedAt: updatedAt,
	}
}
