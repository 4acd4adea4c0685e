package usage

import (
	"fmt"
	"time"

	"github.com/goodtune/screentime/internal/storage"
)

// WeekID returns the ISO 8601 week of t, e.g. "2026-W42".
func WeekID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthID returns the calendar month of t, e.g. "2026-10".
func MonthID(t time.Time) string {
	return t.Format("2006-01")
}

// PeriodID returns the rollup ID of kind containing the date.
func PeriodID(kind storage.RollupKind, date string) (string, error) {
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	switch kind {
	case storage.RollupWeek:
		return WeekID(day), nil
	case storage.RollupMonth:
		return MonthID(day), nil
	default:
		return "", fmt.Errorf("unknown rollup kind: %s", kind)
	}
}

// PeriodRange returns the first and last dates (inclusive) of a rollup ID.
func PeriodRange(kind storage.RollupKind, id string) (string, string, error) {
	switch kind {
	case storage.RollupWeek:
		return weekRange(id)
	case storage.RollupMonth:
		return monthRange(id)
	default:
		return "", "", fmt.Errorf("unknown rollup kind: %s", kind)
	}
}

func weekRange(id string) (string, string, error) {
	var year, week int
	if _, err := fmt.Sscanf(id, "%4d-W%2d", &year, &week); err != nil {
		return "", "", fmt.Errorf("invalid week %q: %w", id, err)
	}

	// Week 1 is the week containing 4 January.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := jan4.AddDate(0, 0, -((int(jan4.Weekday())+6)%7)+(week-1)*7)
	if week < 1 || WeekID(monday) != id {
		return "", "", fmt.Errorf("invalid week %q: no such ISO week", id)
	}
	return monday.Format(DateLayout), monday.AddDate(0, 0, 6).Format(DateLayout), nil
}

func monthRange(id string) (string, string, error) {
	first, err := time.Parse("2006-01", id)
	if err != nil {
		return "", "", fmt.Errorf("invalid month %q: %w", id, err)
	}
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout), nil
}

// BuildRollup sums the daily reports falling inside the period. Reports
// outside it are skipped.
func BuildRollup(userID string, kind storage.RollupKind, id string, days []storage.DailyReport, updatedAt time.Time) (storage.Rollup, error) {
	start, end, err := PeriodRange(kind, id)
	if err != nil {
		return storage.Rollup{}, err
	}

	rollup := storage.Rollup{
		UserID:    userID,
		Kind:      kind,
		ID:        id,
		Start:     start,
		End:       end,
		Minutes:   make(map[string]uint32, len(TrackedApps)),
		UpdatedAt: updatedAt,
	}
	for _, app := range TrackedApps {
		rollup.Minutes[string(app)] = 0
	}

	for _, day := range days {
		if day.Date < start || day.Date > end {
			continue
		}
		rollup.Days++
		for app, minutes := range day.Minutes {
			rollup.Minutes[app] += minutes
			rollup.TotalMinutes += minutes
		}
	}
	return rollup, nil
}
