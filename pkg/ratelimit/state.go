// Package ratelimit implements client-side request pacing for the upstream
// dataset provider. It combines a token bucket with the quota the upstream
// reports in its X-RateLimit-Remaining and X-RateLimit-Reset headers.
package ratelimit

import (
	"time"
)

// Upstream quota headers.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

// Thresholds for pacing decisions.
const (
	// RemainingCritical blocks requests until the quota window resets when the
	// reported remaining quota falls below this value.
	RemainingCritical = 1

	// RemainingWarning delays each request when the reported remaining quota
	// falls below this value.
	RemainingWarning = 5

	// RemainingHealthy indicates normal operation.
	RemainingHealthy = 20
)

// State is the last quota reported by the upstream.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the quota window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the headers were last seen.
	LastUpdate time.Time `json:"last_update"`

	// Known is false until the upstream has reported a quota at least once.
	Known bool `json:"known"`
}

// IsStale returns true if the state is older than maxAge as seen from now.
func (s State) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastUpdate) > maxAge
}

// IsHealthy reports whether the remaining quota is comfortably high.
// An unknown quota is considered healthy.
func (s State) IsHealthy() bool {
	return !s.Known || s.Remaining >= RemainingHealthy
}

// NeedsCriticalBlock returns true if requests must wait for the window reset.
func (s State) NeedsCriticalBlock() bool {
	return s.Known && s.Remaining < RemainingCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s State) NeedsThrottling() bool {
	return s.Known && s.Remaining < RemainingWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the quota window resets.
// Returns 0 if the reset time has already passed.
func (s State) TimeUntilReset(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
