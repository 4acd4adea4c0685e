package bolt

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/screentime/internal/storage"
	"go.etcd.io/bbolt"
)

type reportStore struct {
	db *bbolt.DB
}

func (s *reportStore) ReplaceDaily(ctx context.Context, report storage.DailyReport) error {
	if err := validDate(report.Date); err != nil {
		return err
	}
	return putBucketValue(ctx, s.db, bucketDaily, dailyKey(report.UserID, report.Date), report)
}

func (s *reportStore) GetDaily(ctx context.Context, userID, date string) (*storage.DailyReport, error) {
	return getBucketValue[storage.DailyReport](ctx, s.db, bucketDaily, dailyKey(userID, date))
}

func (s *reportStore) ListDaily(ctx context.Context, userID, from, to string) ([]storage.DailyReport, error) {
	if err := validDate(from); err != nil {
		return nil, err
	}
	if err := validDate(to); err != nil {
		return nil, err
	}
	return rangeBucket[storage.DailyReport](ctx, s.db, bucketDaily, dailyKey(userID, from), dailyKey(userID, to))
}

func (s *reportStore) DeleteDailyBefore(ctx context.Context, userID, cutoff string) (int, error) {
	if err := validDate(cutoff); err != nil {
		return 0, fmt.Errorf("invalid cutoff date: %w", err)
	}
	prefix := userID + "/"
	end := dailyKey(userID, cutoff)

	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketDaily))
		if b == nil {
			return nil
		}
		// Collect first: deleting under a live cursor skips keys.
		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.Seek([]byte(prefix)); k != nil && string(k) < end; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *reportStore) PutRollup(ctx context.Context, rollup storage.Rollup) error {
	return putBucketValue(ctx, s.db, bucketRollups, rollupKey(rollup.UserID, rollup.Kind, rollup.ID), rollup)
}

func (s *reportStore) GetRollup(ctx context.Context, userID string, kind storage.RollupKind, id string) (*storage.Rollup, error) {
	return getBucketValue[storage.Rollup](ctx, s.db, bucketRollups, rollupKey(userID, kind, id))
}

// dailyKey orders a user's reports by date under a shared prefix.
func dailyKey(userID, date string) string {
	return userID + "/" + date
}

func rollupKey(userID string, kind storage.RollupKind, id string) string {
	return fmt.Sprintf("%s/%s/%s", userID, kind, id)
}

func validDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	return nil
}
