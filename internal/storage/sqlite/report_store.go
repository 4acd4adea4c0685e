package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/screentime/internal/storage"
)

type reportStore struct {
	db *sql.DB
}

func (s *reportStore) ReplaceDaily(ctx context.Context, report storage.DailyReport) error {
	if err := validDate(report.Date); err != nil {
		return err
	}
	minutes, err := json.Marshal(report.Minutes)
	if err != nil {
		return fmt.Errorf("marshal minutes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_reports (user_id, date, method, minutes, final, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET
			method = excluded.method,
			minutes = excluded.minutes,
			final = excluded.final,
			updated_at = excluded.updated_at
	`, report.UserID, report.Date, report.Method, string(minutes), report.Final, formatTime(report.UpdatedAt))
	if err != nil {
		return fmt.Errorf("replace daily report: %w", err)
	}
	return nil
}

func (s *reportStore) GetDaily(ctx context.Context, userID, date string) (*storage.DailyReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, date, method, minutes, final, updated_at
		FROM daily_reports
		WHERE user_id = ? AND date = ?
	`, userID, date)

	report, err := scanDaily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *reportStore) ListDaily(ctx context.Context, userID, from, to string) ([]storage.DailyReport, error) {
	if err := validDate(from); err != nil {
		return nil, err
	}
	if err := validDate(to); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, date, method, minutes, final, updated_at
		FROM daily_reports
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily reports: %w", err)
	}
	defer rows.Close()

	var reports []storage.DailyReport
	for rows.Next() {
		report, err := scanDaily(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *reportStore) DeleteDailyBefore(ctx context.Context, userID, cutoff string) (int, error) {
	if err := validDate(cutoff); err != nil {
		return 0, fmt.Errorf("invalid cutoff date: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM daily_reports WHERE user_id = ? AND date < ?`, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete daily reports: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted reports: %w", err)
	}
	return int(deleted), nil
}

func (s *reportStore) PutRollup(ctx context.Context, rollup storage.Rollup) error {
	minutes, err := json.Marshal(rollup.Minutes)
	if err != nil {
		return fmt.Errorf("marshal minutes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rollups (user_id, kind, id, start_date, end_date, minutes, total_minutes, days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, kind, id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			minutes = excluded.minutes,
			total_minutes = excluded.total_minutes,
			days = excluded.days,
			updated_at = excluded.updated_at
	`, rollup.UserID, string(rollup.Kind), rollup.ID, rollup.Start, rollup.End, string(minutes),
		rollup.TotalMinutes, rollup.Days, formatTime(rollup.UpdatedAt))
	if err != nil {
		return fmt.Errorf("store rollup: %w", err)
	}
	return nil
}

func (s *reportStore) GetRollup(ctx context.Context, userID string, kind storage.RollupKind, id string) (*storage.Rollup, error) {
	var (
		rollup    storage.Rollup
		kindName  string
		minutes   string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, kind, id, start_date, end_date, minutes, total_minutes, days, updated_at
		FROM rollups
		WHERE user_id = ? AND kind = ? AND id = ?
	`, userID, string(kind), id).Scan(&rollup.UserID, &kindName, &rollup.ID, &rollup.Start, &rollup.End,
		&minutes, &rollup.TotalMinutes, &rollup.Days, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query rollup: %w", err)
	}

	rollup.Kind = storage.RollupKind(kindName)
	if err := json.Unmarshal([]byte(minutes), &rollup.Minutes); err != nil {
		return nil, fmt.Errorf("decode rollup minutes: %w", err)
	}
	if rollup.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rollup, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDaily(row scanner) (storage.DailyReport, error) {
	var (
		report    storage.DailyReport
		minutes   string
		updatedAt string
	)
	if err := row.Scan(&report.UserID, &report.Date, &report.Method, &minutes, &report.Final, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return report, err
		}
		return report, fmt.Errorf("scan daily report: %w", err)
	}
	if err := json.Unmarshal([]byte(minutes), &report.Minutes); err != nil {
		return report, fmt.Errorf("decode daily minutes: %w", err)
	}
	var err error
	if report.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return report, err
	}
	return report, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func validDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	return nil
}
