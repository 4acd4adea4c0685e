package usage

import (
	"fmt"
	"strings"
	"time"
)

// AppID identifies one of the tracked social applications.
type AppID string

const (
	AppTikTok    AppID = "tiktok"
	AppInstagram AppID = "instagram"
	AppYouTube   AppID = "youtube"
	AppFacebook  AppID = "facebook"
	AppSnapchat  AppID = "snapchat"
)

// TrackedApps lists every tracked application in report order.
var TrackedApps = []AppID{
	AppTikTok,
	AppInstagram,
	AppYouTube,
	AppFacebook,
	AppSnapchat,
}

var appPackages = map[AppID]string{
	AppTikTok:    "com.zhiliaoapp.musically",
	AppInstagram: "com.instagram.android",
	AppYouTube:   "com.google.android.youtube",
	AppFacebook:  "com.facebook.katana",
	AppSnapchat:  "com.snapchat.android",
}

var packageApps = func() map[string]AppID {
	m := make(map[string]AppID, len(appPackages))
	for app, pkg := range appPackages {
		m[pkg] = app
	}
	return m
}()

// Package returns the Android package name of the app.
func (a AppID) Package() string {
	return appPackages[a]
}

// AppForPackage maps a package name to a tracked app.
func AppForPackage(pkg string) (AppID, bool) {
	app, ok := packageApps[pkg]
	return app, ok
}

// ParseApp accepts either an app name ("youtube") or its package name.
func ParseApp(s string) (AppID, bool) {
	s = strings.TrimSpace(s)
	if app, ok := packageApps[s]; ok {
		return app, true
	}
	app := AppID(strings.ToLower(s))
	if _, ok := appPackages[app]; ok {
		return app, true
	}
	return "", false
}

// EventType is the kind of transition recorded by the OS usage log.
type EventType int

const (
	EventUnknown EventType = iota
	EventResumed
	EventPaused
	EventMovedToForeground
	EventMovedToBackground
	EventForegroundServiceStart
	EventForegroundServiceStop
	EventConfigurationChange
	EventShortcutInvocation
	EventUserInteraction
)

var eventTypeNames = map[EventType]string{
	EventUnknown:                "UNKNOWN",
	EventResumed:                "ACTIVITY_RESUMED",
	EventPaused:                 "ACTIVITY_PAUSED",
	EventMovedToForeground:      "MOVE_TO_FOREGROUND",
	EventMovedToBackground:      "MOVE_TO_BACKGROUND",
	EventForegroundServiceStart: "FOREGROUND_SERVICE_START",
	EventForegroundServiceStop:  "FOREGROUND_SERVICE_STOP",
	EventConfigurationChange:    "CONFIGURATION_CHANGE",
	EventShortcutInvocation:     "SHORTCUT_INVOCATION",
	EventUserInteraction:        "USER_INTERACTION",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(t))
}

// ParseEventType parses the OS name of an event type. Unrecognised names map
// to EventUnknown rather than failing, since the reconciler ignores them anyway.
func ParseEventType(s string) EventType {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for t, name := range eventTypeNames {
		if name == upper {
			return t
		}
	}
	switch upper {
	case "RESUMED":
		return EventResumed
	case "PAUSED":
		return EventPaused
	}
	return EventUnknown
}

// MarshalText implements encoding.TextMarshaler.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EventType) UnmarshalText(data []byte) error {
	*t = ParseEventType(string(data))
	return nil
}

// RawEvent is an event exactly as the OS usage log reports it.
type RawEvent struct {
	Package   string    `json:"package"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Event is a usage event for a tracked app.
type Event struct {
	App       AppID
	Type      EventType
	Timestamp time.Time
}

// Session is a foreground interval for one app. A zero PausedAt means the
// session is still open.
type Session struct {
	App       AppID
	ResumedAt time.Time
	PausedAt  time.Time
}

// Open reports whether no pause has closed the session yet.
func (s Session) Open() bool {
	return s.PausedAt.IsZero()
}

// Method records which data source produced a report.
type Method string

const (
	MethodEvents    Method = "events"
	MethodAggregate Method = "aggregate"
)
