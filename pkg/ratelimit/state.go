// Package ratelimit implements client-side request admission for the JustCall API.
//
// Two concerns live here. The Admitter implementations (Window, TokenBucket and
// RedisWindow) gate outgoing requests so that a client never exceeds its
// configured budget. The Tracker follows the X-Rate-Limit-* headers JustCall
// returns and holds requests back while the remote side reports an exhausted
// budget.
package ratelimit

import (
	"time"
)

// Response headers carrying the remote rate limit state.
const (
	HeaderLimit          = "X-Rate-Limit-Limit"
	HeaderRemaining      = "X-Rate-Limit-Remaining"
	HeaderReset          = "X-Rate-Limit-Reset"
	HeaderBurstLimit     = "X-Rate-Limit-Burst-Limit"
	HeaderBurstRemaining = "X-Rate-Limit-Burst-Remaining"
	HeaderBurstReset     = "X-Rate-Limit-Burst-Reset"
)

// LowBudgetRatio marks a window as low once remaining/limit drops below it.
const LowBudgetRatio = 0.1

// WindowState is the remote view of one limit window (sustained or burst).
type WindowState struct {
	// Limit is the total budget of the window. Zero when the server did not report it.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// Known is false until a response carried this window's headers.
	Known bool `json:"known"`
}

// Exhausted returns true if the window reports no remaining requests and has not reset yet.
func (w WindowState) Exhausted() bool {
	return w.Known && w.Remaining <= 0 && time.Now().Before(w.ResetAt)
}

// IsLow returns true if less than LowBudgetRatio of the window budget is left.
func (w WindowState) IsLow() bool {
	if !w.Known || w.Limit <= 0 {
		return false
	}
	return float64(w.Remaining) < float64(w.Limit)*LowBudgetRatio
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (w WindowState) TimeUntilReset() time.Duration {
	d := time.Until(w.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}

// RateLimitState is the last rate limit state reported by JustCall.
type RateLimitState struct {
	Sustained WindowState `json:"sustained"`
	Burst     WindowState `json:"burst"`

	// LastUpdate is when the state was last refreshed from response headers.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// Exhausted returns true if either window is exhausted.
func (s *RateLimitState) Exhausted() bool {
	return s.Sustained.Exhausted() || s.Burst.Exhausted()
}

// WaitDuration returns how long a caller must wait before the exhausted
// windows reset. Returns 0 when nothing is exhausted.
func (s *RateLimitState) WaitDuration() time.Duration {
	var wait time.Duration
	for _, w := range []WindowState{s.Sustained, s.Burst} {
		if w.Exhausted() {
			if d := w.TimeUntilReset(); d > wait {
				wait = d
			}
		}
	}
	return wait
}
