package usage

import "errors"

var (
	// ErrPermissionDenied is returned when the usage log may not be read.
	ErrPermissionDenied = errors.New("usage: permission denied")

	// ErrSourceUnavailable is returned when neither the event log nor the
	// aggregate could be queried.
	ErrSourceUnavailable = errors.New("usage: source unavailable")

	// ErrEventsUnsupported is returned by sources on OS versions without an
	// event-level usage log. The assembler falls back to the aggregate.
	ErrEventsUnsupported = errors.New("usage: event log unsupported")
)

// IsUnavailable reports whether err means no report could be produced, as
// opposed to a report of zero usage.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrSourceUnavailable)
}
