package usage

import (
	"fmt"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// DefaultZoneCacheSize bounds the number of loaded locations kept around.
const DefaultZoneCacheSize = 16

// ZoneResolver loads time zones by IANA name and keeps the parsed
// locations. Offsets are still computed per instant by the time package, so
// caching a location never pins a stale offset.
type ZoneResolver struct {
	cache *lru.Cache[string, *time.Location]
}

// NewZoneResolver creates a resolver holding up to size locations.
func NewZoneResolver(size int) (*ZoneResolver, error) {
	if size <= 0 {
		size = DefaultZoneCacheSize
	}
	cache, err := lru.New[string, *time.Location](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create zone cache: %w", err)
	}
	return &ZoneResolver{cache: cache}, nil
}

// Resolve returns the location for name. An empty name or "Local" is the
// process local zone.
func (z *ZoneResolver) Resolve(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	switch name {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}

	if loc, ok := z.cache.Get(name); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", name, err)
	}
	z.cache.Add(name, loc)
	return loc, nil
}

// Provider returns a function that resolves the device zone on every call.
// A configured name wins; otherwise the TZ environment variable is read
// each time so that a zone change on the device takes effect on the next
// pass. Resolution failures fall back to the process local zone.
func (z *ZoneResolver) Provider(configured string, logger zerolog.Logger) func() *time.Location {
	logger = logger.With().Str("component", "zone").Logger()
	return func() *time.Location {
		name := configured
		if name == "" {
			name = os.Getenv("TZ")
		}
		loc, err := z.Resolve(name)
		if err != nil {
			logger.Warn().Err(err).Str("zone", name).Msg("Falling back to local time zone")
			return time.Local
		}
		return loc
	}
}
