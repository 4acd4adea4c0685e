package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DailyReport is the stored form of one user's usage for one local date.
type DailyReport struct {
	UserID    string            `json:"user_id"`
	Date      string            `json:"date"`
	Method    string            `json:"method"`
	Minutes   map[string]uint32 `json:"minutes"`
	Final     bool              `json:"final"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// TotalMinutes sums the per-app minutes.
func (r DailyReport) TotalMinutes() uint32 {
	var total uint32
	for _, m := range r.Minutes {
		total += m
	}
	return total
}

// RollupKind is the period a rollup covers.
type RollupKind string

const (
	RollupWeek  RollupKind = "week"
	RollupMonth RollupKind = "month"
)

// ParseRollupKind accepts a kind name in any case.
func ParseRollupKind(s string) (RollupKind, error) {
	switch k := RollupKind(strings.ToLower(strings.TrimSpace(s))); k {
	case RollupWeek, RollupMonth:
		return k, nil
	default:
		return "", fmt.Errorf("invalid rollup kind: %s (must be week or month)", s)
	}
}

// UnmarshalJSON normalises the kind to lower case.
func (k *RollupKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRollupKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Rollup sums daily reports over an ISO week (ID "2026-W07") or a calendar
// month (ID "2026-02").
type Rollup struct {
	UserID       string            `json:"user_id"`
	Kind         RollupKind        `json:"kind"`
	ID           string            `json:"id"`
	Start        string            `json:"start"`
	End          string            `json:"end"`
	Minutes      map[string]uint32 `json:"minutes"`
	TotalMinutes uint32            `json:"total_minutes"`
	Days         int               `json:"days"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
