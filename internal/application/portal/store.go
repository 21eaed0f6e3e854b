// Package portal is the application layer of the Mektep Portal data layer.
// It owns the session state machine, the schedule cache, and the timeline
// sync engine, and ties them together in an explicit Portal context object
// that is constructed once at startup and passed around by reference.
package portal

import (
	"context"
)

// Store is the persistent string-keyed document store the portal caches
// into. Implementations live under internal/infrastructure/persistence
// (redis, postgres, memory).
type Store interface {
	// Get returns the document stored under key. Implementations return a
	// package-specific not-found error for missing keys.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a document under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Contains reports whether a document exists under key.
	Contains(ctx context.Context, key string) (bool, error)
}

// Fixed cache document keys.
const (
	// KeyUser holds the session JSON, including the plaintext credentials
	// needed for silent re-login.
	KeyUser = "user"

	// KeyTimetable holds the date→schedule map plus the shared period table.
	KeyTimetable = "timetable"

	// KeyTimeline holds the accumulated homework and item maps.
	KeyTimeline = "timeline"

	// KeyDemo holds "true" when the synthetic demo schedule is enabled.
	KeyDemo = "demo"
)
