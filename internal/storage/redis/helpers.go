package redis

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/screentime/internal/storage"
)

const (
	keyPrefix = "screentime"
	appPrefix = "app:"
)

func dailyKey(userID, date string) string {
	return fmt.Sprintf("%s:daily:%s:%s", keyPrefix, userID, date)
}

func dailyKeyPrefix(userID string) string {
	return fmt.Sprintf("%s:daily:%s:", keyPrefix, userID)
}

func dailyIndexKey(userID string) string {
	return fmt.Sprintf("%s:daily:index:%s", keyPrefix, userID)
}

func rollupKey(userID string, kind storage.RollupKind, id string) string {
	return fmt.Sprintf("%s:rollup:%s:%s:%s", keyPrefix, userID, kind, id)
}

// dateScore maps YYYY-MM-DD to YYYYMMDD, which orders like the calendar.
func dateScore(date string) (int64, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return int64(t.Year()*10000 + int(t.Month())*100 + t.Day()), nil
}

// dailyFields flattens a report into hash field/value pairs.
func dailyFields(r storage.DailyReport) []interface{} {
	fields := []interface{}{
		"user_id", r.UserID,
		"date", r.Date,
		"method", r.Method,
		"final", strconv.FormatBool(r.Final),
		"updated_at", r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for app, minutes := range r.Minutes {
		fields = append(fields, appPrefix+app, minutes)
	}
	return fields
}

// parseDailyReport converts a Redis hash to DailyReport
func parseDailyReport(data map[string]string) (*storage.DailyReport, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	final, err := strconv.ParseBool(data["final"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse final: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	minutes, err := parseMinutes(data)
	if err != nil {
		return nil, err
	}

	return &storage.DailyReport{
		UserID:    data["user_id"],
		Date:      data["date"],
		Method:    data["method"],
		Minutes:   minutes,
		Final:     final,
		UpdatedAt: updatedAt,
	}, nil
}

// rollupFields flattens a rollup into hash field/value pairs.
func rollupFields(r storage.Rollup) []interface{} {
	fields := []interface{}{
		"user_id", r.UserID,
		"kind", string(r.Kind),
		"id", r.ID,
		"start", r.Start,
		"end", r.End,
		"total_minutes", r.TotalMinutes,
		"days", r.Days,
		"updated_at", r.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for app, minutes := range r.Minutes {
		fields = append(fields, appPrefix+app, minutes)
	}
	return fields
}

// parseRollup converts a Redis hash to Rollup
func parseRollup(data map[string]string) (*storage.Rollup, error) {
	if len(data) == 0 {
		return nil, storage.ErrNotFound
	}

	kind, err := storage.ParseRollupKind(data["kind"])
	if err != nil {
		return nil, err
	}

	total, err := strconv.ParseUint(data["total_minutes"], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to parse total_minutes: %w", err)
	}

	days, err := strconv.Atoi(data["days"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse days: %w", err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, data["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	minutes, err := parseMinutes(data)
	if err != nil {
		return nil, err
	}

	return &storage.Rollup{
		UserID:       data["user_id"],
		Kind:         kind,
		ID:           data["id"],
		Start:        data["start"],
		End:          data["end"],
		Minutes:      minutes,
		TotalMinutes: uint32(total),
		Days:         days,
		UpdatedAt:    updatedAt,
	}, nil
}

func parseMinutes(data map[string]string) (map[string]uint32, error) {
	minutes := make(map[string]uint32)
	for field, value := range data {
		app, ok := strings.CutPrefix(field, appPrefix)
		if !ok {
			continue
		}
		m, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("failed to parse minutes for %s: %w", app, err)
		}
		minutes[app] = uint32(m)
	}
	return minutes, nil
}
