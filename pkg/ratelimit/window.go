package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Defaults mirror the published JustCall API budget.
const (
	DefaultLimit    = 60
	DefaultInterval = time.Minute
)

// ErrInvalidConfig is returned when a gate is constructed with a non-positive budget.
var ErrInvalidConfig = errors.New("invalid rate limit configuration")

var (
	gateWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "justcall_rate_gate_wait_seconds",
		Help:    "Time callers spent waiting for rate gate admission",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
	}, []string{"gate"})

	gateAdmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "justcall_rate_gate_admissions_total",
		Help: "Total number of requests admitted by the rate gate",
	}, []string{"gate"})
)

// Admitter gates outgoing requests. Admit blocks until one more request fits
// the budget. It never rejects; the only errors are context cancellation and
// backend failures.
type Admitter interface {
	Admit(ctx context.Context) error
}

// Window is an in-memory sliding-window gate admitting at most limit requests
// in any trailing interval. It is safe for concurrent use; waiting callers are
// not served in FIFO order.
type Window struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	mu         sync.Mutex
	timestamps []time.Time
}

// NewWindow creates a sliding-window gate.
func NewWindow(limit int, interval time.Duration) (*Window, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be > 0 (got %d)", ErrInvalidConfig, limit)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be > 0 (got %s)", ErrInvalidConfig, interval)
	}
	return &Window{
		limit:      limit,
		interval:   interval,
		now:        time.Now,
		timestamps: make([]time.Time, 0, limit),
	}, nil
}

// Limit returns the number of requests admitted per interval.
func (w *Window) Limit() int { return w.limit }

// Interval returns the length of the sliding window.
func (w *Window) Interval() time.Duration { return w.interval }

// Admit blocks until the request fits the window, then records it.
func (w *Window) Admit(ctx context.Context) error {
	start := time.Now()
	defer func() {
		gateWaitSeconds.WithLabelValues("window").Observe(time.Since(start).Seconds())
	}()

	for {
		wait, ok := w.tryAdmit()
		if ok {
			gateAdmissionsTotal.WithLabelValues("window").Inc()
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAdmit prunes expired timestamps and records an admission if the window
// has room. Otherwise it returns how long until the oldest entry expires.
func (w *Window) tryAdmit() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.prune(now)

	if len(w.timestamps) < w.limit {
		w.timestamps = append(w.timestamps, now)
		return 0, true
	}

	wait := w.timestamps[0].Add(w.interval).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, false
}

// prune drops timestamps at or before now-interval. Caller holds mu.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.interval)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}
}

// InFlight returns the number of admissions inside the current window.
func (w *Window) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())
	return len(w.timestamps)
}
