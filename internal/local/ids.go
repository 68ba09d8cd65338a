package local

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces local record identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so identifiers
// of objects created later sort later. The store lists objects in
// identifier order, which makes listings roughly creation-ordered.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock supplies modification timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time truncated to milliseconds, the resolution
// timestamps are stored at.
func (SystemClock) Now() time.Time {
	return time.Now().Truncate(time.Millisecond)
}
