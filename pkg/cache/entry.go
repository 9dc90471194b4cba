package cache

import (
	"time"
)

// Entry is a cached value together with its absolute expiry deadline.
type Entry[V any] struct {
	// Value is the stored value
	Value V `json:"value"`

	// Expires is the instant from which the entry is no longer served
	Expires time.Time `json:"expires"`
}

// ExpiredAt reports whether the entry is expired at now.
// An entry is expired exactly at its deadline, not only after it.
func (e *Entry[V]) ExpiredAt(now time.Time) bool {
	return !now.Before(e.Expires)
}

// TTL returns the time left until expiry as seen from now.
// Returns 0 if already expired.
func (e *Entry[V]) TTL(now time.Time) time.Duration {
	ttl := e.Expires.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
