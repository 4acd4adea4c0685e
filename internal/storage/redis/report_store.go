package redis

import (
	"context"
	"strconv"

	"github.com/goodtune/screentime/internal/storage"
	"github.com/redis/go-redis/v9"
)

type reportStore struct {
	client       *redis.Client
	replaceDaily *redis.Script
	deleteBefore *redis.Script
}

func newReportStore(client *redis.Client) *reportStore {
	return &reportStore{
		client:       client,
		replaceDaily: redis.NewScript(replaceDailyScript),
		deleteBefore: redis.NewScript(deleteDailyBeforeScript),
	}
}

// ReplaceDaily atomically replaces the report for (UserID, Date)
func (s *reportStore) ReplaceDaily(ctx context.Context, report storage.DailyReport) error {
	score, err := dateScore(report.Date)
	if err != nil {
		return err
	}

	keys := []string{dailyKey(report.UserID, report.Date), dailyIndexKey(report.UserID)}
	args := append([]interface{}{report.Date, score}, dailyFields(report)...)

	return s.replaceDaily.Run(ctx, s.client, keys, args...).Err()
}

// GetDaily retrieves the report for a user and date
func (s *reportStore) GetDaily(ctx context.Context, userID, date string) (*storage.DailyReport, error) {
	data, err := s.client.HGetAll(ctx, dailyKey(userID, date)).Result()
	if err != nil {
		return nil, err
	}
	return parseDailyReport(data)
}

// ListDaily returns the reports dated from..to inclusive, oldest first
func (s *reportStore) ListDaily(ctx context.Context, userID, from, to string) ([]storage.DailyReport, error) {
	lo, err := dateScore(from)
	if err != nil {
		return nil, err
	}
	hi, err := dateScore(to)
	if err != nil {
		return nil, err
	}

	dates, err := s.client.ZRangeByScore(ctx, dailyIndexKey(userID), &redis.ZRangeBy{
		Min: strconv.FormatInt(lo, 10),
		Max: strconv.FormatInt(hi, 10),
	}).Result()
	if err != nil {
		return nil, err
	}

	if len(dates) == 0 {
		return []storage.DailyReport{}, nil
	}

	// Use pipeline for batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(dates))
	for i, date := range dates {
		cmds[i] = pipe.HGetAll(ctx, dailyKey(userID, date))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	reports := make([]storage.DailyReport, 0, len(dates))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		report, err := parseDailyReport(data)
		if err == nil {
			reports = append(reports, *report)
		}
	}

	return reports, nil
}

// DeleteDailyBefore removes reports dated before cutoff
func (s *reportStore) DeleteDailyBefore(ctx context.Context, userID, cutoff string) (int, error) {
	score, err := dateScore(cutoff)
	if err != nil {
		return 0, err
	}

	keys := []string{dailyIndexKey(userID)}
	n, err := s.deleteBefore.Run(ctx, s.client, keys, dailyKeyPrefix(userID), score).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// PutRollup replaces the stored rollup for (UserID, Kind, ID)
func (s *reportStore) PutRollup(ctx context.Context, rollup storage.Rollup) error {
	key := rollupKey(rollup.UserID, rollup.Kind, rollup.ID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, rollupFields(rollup)...)
		return nil
	})
	return err
}

// GetRollup retrieves a stored rollup
func (s *reportStore) GetRollup(ctx context.Context, userID string, kind storage.RollupKind, id string) (*storage.Rollup, error) {
	data, err := s.client.HGetAll(ctx, rollupKey(userID, kind, id)).Result()
	if err != nil {
		return nil, err
	}
	return parseRollup(data)
}
