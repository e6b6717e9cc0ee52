// Package clock centralizes timestamp normalization and ID generation so
// the rest of the agent never touches time.Now or uuid.New directly.
package clock

import (
	"time"

	"github.com/google/uuid"
)

// msThreshold is the cutover the wire protocol uses to tell millisecond
// timestamps from second timestamps: nothing sane expresses "seconds since
// epoch" above 1e10 (that's the year 2286), and nothing sane expresses
// "milliseconds since epoch" below it (that's 1970).
const msThreshold = 1e10

// Clock is a small seam so tests can supply a fixed point in time instead
// of the wall clock.
type Clock interface {
	Now() time.Time
}

// System is the real, wall-clock Clock used in production.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// NormalizeTimestamp converts a wire timestamp to seconds-since-epoch. The
// wire may deliver either unit; anything above msThreshold is assumed to be
// milliseconds and divided down. The conversion is idempotent: normalizing
// an already-normalized value is a no-op.
func NormalizeTimestamp(t float64) float64 {
	if t > msThreshold {
		return t / 1000
	}
	return t
}

// NowMillis returns the current time as milliseconds since epoch, the unit
// the wire protocol and WebSocket envelopes use.
func NowMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}

// FormatClock renders a normalized (seconds) timestamp as a local HH:MM:SS
// string, matching the display format callers expect for feeds.
func FormatClock(timestampSeconds float64) string {
	return time.Unix(int64(timestampSeconds), 0).Local().Format("15:04:05")
}

// NewID returns a new random v4 UUID string, used for listener handles,
// WebSocket client IDs, and mode-transition trace IDs.
func NewID() string {
	return uuid.NewString()
}
