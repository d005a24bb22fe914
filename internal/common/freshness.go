package common

import "time"

// FreshnessStoredOptions bounds the age of a persisted options chain that
// may be served when the upstream fetch fails.
const FreshnessStoredOptions = 7 * 24 * time.Hour

// IsFresh returns true if updated is within ttl of now
func IsFresh(updated, now time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return now.Sub(updated) < ttl
}
