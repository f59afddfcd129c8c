// Package batch fetches many JustCall records by key with a bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var batchFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "justcall_batch_fetch_duration_seconds",
	Help:    "Duration of batch fetches",
	Buckets: prometheus.DefBuckets,
}, []string{"name"})

// Config holds batch fetcher configuration
type Config struct {
	// Name labels metrics and log lines.
	Name string

	// MaxConcurrency is the maximum number of parallel requests.
	// Every request still passes the client's rate gate, so raising this
	// beyond a handful only adds goroutines waiting on the gate.
	MaxConcurrency int

	// Timeout per key fetch. Zero means no per-key timeout.
	Timeout time.Duration
}

// DefaultConfig returns the default batch configuration
func DefaultConfig() Config {
	return Config{
		Name:           "batch",
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// FetchFunc retrieves the value for a single key.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Fetcher runs a FetchFunc over many keys in parallel
type Fetcher[K comparable, V any] struct {
	fetch  FetchFunc[K, V]
	config Config
}

// New creates a new batch fetcher
func New[K comparable, V any](fetch FetchFunc[K, V], config Config) *Fetcher[K, V] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Name == "" {
		config.Name = "batch"
	}
	return &Fetcher[K, V]{fetch: fetch, config: config}
}

type result[K comparable, V any] struct {
	key   K
	value V
	err   error
}

// FetchAll fetches every key using the worker pool.
// Dispatching stops at the first error; the values fetched so far are
// returned together with that error. Duplicate keys are fetched once.
// All workers have exited when FetchAll returns.
func (f *Fetcher[K, V]) FetchAll(ctx context.Context, keys []K) (map[K]V, error) {
	start := time.Now()
	defer func() {
		batchFetchDuration.WithLabelValues(f.config.Name).Observe(time.Since(start).Seconds())
	}()

	unique := dedupe(keys)
	results := make(map[K]V, len(unique))
	if len(unique) == 0 {
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan K)
	out := make(chan result[K, V])

	// Fill key queue, stop early once cancelled
	go func() {
		defer close(queue)
		for _, k := range unique {
			select {
			case queue <- k:
			case <-ctx.Done():
				return
			}
		}
	}()

	workers := min(f.config.MaxConcurrency, len(unique))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go f.worker(ctx, queue, out, &wg, i)
	}

	// Close results channel when all workers done
	go func() {
		wg.Wait()
		close(out)
	}()

	var firstErr error
	for r := range out {
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: fetch %v: %w", f.config.Name, r.key, r.err)
				cancel()
			}
			continue
		}
		results[r.key] = r.value
	}

	if firstErr == nil && ctx.Err() != nil && len(results) < len(unique) {
		// Parent context cancelled before every key was dispatched.
		firstErr = context.Cause(ctx)
	}

	if firstErr != nil {
		log.Warn().
			Err(firstErr).
			Str("batch", f.config.Name).
			Int("fetched", len(results)).
			Int("requested", len(unique)).
			Msg("Batch fetch stopped - returning partial results")
		return results, firstErr
	}

	log.Debug().
		Str("batch", f.config.Name).
		Int("fetched", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}

// worker processes keys from the queue
func (f *Fetcher[K, V]) worker(ctx context.Context, queue <-chan K, out chan<- result[K, V], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for key := range queue {
		if ctx.Err() != nil {
			log.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		keyCtx, keyCancel := ctx, context.CancelFunc(func() {})
		if f.config.Timeout > 0 {
			keyCtx, keyCancel = context.WithTimeout(ctx, f.config.Timeout)
		}
		value, err := f.fetch(keyCtx, key)
		keyCancel()

		// out is drained until every worker exits.
		out <- result[K, V]{key: key, value: value, err: err}
		processed++
	}
}

func dedupe[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	out := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
