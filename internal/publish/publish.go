// Package publish delivers daily usage reports over MQTT.
package publish

import (
	"encoding/json"
	"strings"

	"github.com/goodtune/screentime/internal/usage"
)

// DefaultTopic is the topic prefix used when none is configured.
const DefaultTopic = "screentime"

// Topic returns the topic a user's daily report is published on. Reports
// are retained, so a consumer connecting later still sees the latest one.
func Topic(base, userID string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		base = DefaultTopic
	}
	return base + "/" + userID + "/daily"
}

// Payload is the MQTT message body.
type Payload struct {
	UserID string        `json:"user_id"`
	Report *usage.Report `json:"report"`
}

// FormatPayload creates the JSON payload for a report.
func FormatPayload(userID string, report *usage.Report) ([]byte, error) {
	return json.Marshal(Payload{UserID: userID, Report: report})
}
