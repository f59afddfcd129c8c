package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for remote rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "justcall_rate_limit_remaining",
		Help: "Requests remaining in the JustCall rate limit window as reported by the API",
	}, []string{"window"})

	rateLimitHoldsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "justcall_rate_limit_holds_total",
		Help: "Total number of requests held back because the API reported an exhausted budget",
	})
)

// MaxTrackerWait caps how long Wait holds a request for a single reset.
const MaxTrackerWait = 60 * time.Second

// epochThreshold separates "seconds until reset" from "unix timestamp" reset values.
const epochThreshold = 1_000_000_000

// Tracker follows the rate limit headers JustCall returns and holds requests
// back while the API reports that the budget is used up.
type Tracker struct {
	mu     sync.RWMutex
	state  RateLimitState
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// State returns a copy of the last known state.
func (t *Tracker) State() RateLimitState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// UpdateFromHeaders parses the X-Rate-Limit-* headers of a response.
// Responses without the headers leave the state untouched.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	now := time.Now()

	sustained, err := parseWindow(headers, HeaderLimit, HeaderRemaining, HeaderReset, now)
	if err != nil {
		return err
	}
	burst, err := parseWindow(headers, HeaderBurstLimit, HeaderBurstRemaining, HeaderBurstReset, now)
	if err != nil {
		return err
	}
	if !sustained.Known && !burst.Known {
		return nil
	}

	t.mu.Lock()
	if sustained.Known {
		t.state.Sustained = sustained
		rateLimitRemaining.WithLabelValues("sustained").Set(float64(sustained.Remaining))
	}
	if burst.Known {
		t.state.Burst = burst
		rateLimitRemaining.WithLabelValues("burst").Set(float64(burst.Remaining))
	}
	t.state.LastUpdate = now
	state := t.state
	t.mu.Unlock()

	switch {
	case state.Exhausted():
		t.logger.Warn().
			Int("remaining", state.Sustained.Remaining).
			Int("burst_remaining", state.Burst.Remaining).
			Dur("wait", state.WaitDuration()).
			Msg("JustCall rate limit exhausted - requests will be held")
	case state.Sustained.IsLow() || state.Burst.IsLow():
		t.logger.Warn().
			Int("remaining", state.Sustained.Remaining).
			Int("burst_remaining", state.Burst.Remaining).
			Msg("JustCall rate limit budget low")
	default:
		t.logger.Debug().
			Int("remaining", state.Sustained.Remaining).
			Int("burst_remaining", state.Burst.Remaining).
			Msg("JustCall rate limit state updated")
	}

	return nil
}

// Wait suspends the caller while the API reports an exhausted budget.
// The wait for a single reset is capped at MaxTrackerWait.
func (t *Tracker) Wait(ctx context.Context) error {
	t.mu.RLock()
	wait := t.state.WaitDuration()
	t.mu.RUnlock()

	if wait <= 0 {
		return nil
	}
	if wait > MaxTrackerWait {
		wait = MaxTrackerWait
	}

	rateLimitHoldsTotal.Inc()
	t.logger.Warn().Dur("wait", wait).Msg("Holding request until JustCall rate limit resets")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseWindow(headers http.Header, limitKey, remainingKey, resetKey string, now time.Time) (WindowState, error) {
	remainingStr := headers.Get(remainingKey)
	if remainingStr == "" {
		return WindowState{}, nil
	}

	remaining, err := strconv.Atoi(remainingStr)
	if err != nil {
		return WindowState{}, fmt.Errorf("parse %s header: %w", remainingKey, err)
	}

	w := WindowState{Remaining: remaining, Known: true}

	if limitStr := headers.Get(limitKey); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return WindowState{}, fmt.Errorf("parse %s header: %w", limitKey, err)
		}
		w.Limit = limit
	}

	if resetStr := headers.Get(resetKey); resetStr != "" {
		reset, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return WindowState{}, fmt.Errorf("parse %s header: %w", resetKey, err)
		}
		if reset > epochThreshold {
			w.ResetAt = time.Unix(reset, 0)
		} else {
			w.ResetAt = now.Add(time.Duration(reset) * time.Second)
		}
	}

	return w, nil
}
