package client

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// RetryConfig holds the backoff configuration for retried requests.
type RetryConfig struct {
	// InitialBackoff is the backoff before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps both the exponential backoff and any Retry-After value.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// IsZero reports whether no field is set.
func (c RetryConfig) IsZero() bool {
	return c == RetryConfig{}
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass returns the appropriate retry configuration for an error class.
func RetryConfigForErrorClass(errorClass ErrorClass) RetryConfig {
	switch errorClass {
	case ErrorClassServer:
		// 5xx server errors - shorter backoff
		return RetryConfig{
			InitialBackoff:    1 * time.Second,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
		}
	case ErrorClassRateLimit:
		// 429 - slower growth, long cap
		return RetryConfig{
			InitialBackoff:    2 * time.Second,
			MaxBackoff:        60 * time.Second,
			BackoffMultiplier: 1.5,
		}
	case ErrorClassNetwork:
		return RetryConfig{
			InitialBackoff:    2 * time.Second,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
		}
	default:
		return DefaultRetryConfig()
	}
}

// retryConfigFor returns the configured override, or the per-class defaults.
func (c *Client) retryConfigFor(class ErrorClass) RetryConfig {
	if !c.config.Retry.IsZero() {
		return c.config.Retry
	}
	return RetryConfigForErrorClass(class)
}

// checkRetry is the retryablehttp.CheckRetry policy: retry 429, 500, 502, 503,
// 504 and transport errors. A done context and requests with side effects are
// never retried.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if sentOnce(ctx) {
		return false, nil
	}
	if err != nil {
		// Defer to retryablehttp for transport errors: it refuses to retry
		// TLS, redirect and malformed-URL failures.
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return retryableStatus(resp.StatusCode), nil
}

// prepareRetry is the retryablehttp.PrepareRetry hook. Every retry attempt is
// a new request on the wire, so it passes the gate and the remote limit hold
// like the first one.
func (c *Client) prepareRetry(req *http.Request) error {
	ctx := req.Context()
	if err := c.gate.Admit(ctx); err != nil {
		return fmt.Errorf("rate gate: %w", err)
	}
	if err := c.tracker.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit hold: %w", err)
	}
	return nil
}

// backoff is the retryablehttp.Backoff policy: honour Retry-After when present,
// otherwise jittered exponential backoff for the failure's error class.
func (c *Client) backoff(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
	class := ErrorClassNetwork
	if resp != nil {
		class = classifyStatus(resp.StatusCode)
	}
	cfg := c.retryConfigFor(class)

	wait, fromHeader := retryAfter(resp)
	if !fromHeader {
		wait = exponentialBackoff(cfg, attemptNum)
	}
	if cfg.MaxBackoff > 0 && wait > cfg.MaxBackoff {
		wait = cfg.MaxBackoff
	}

	retriesTotal.WithLabelValues(string(class)).Inc()
	retryBackoffSeconds.WithLabelValues(string(class)).Observe(wait.Seconds())

	c.logger.Debug().
		Str("error_class", string(class)).
		Int("attempt", attemptNum+1).
		Dur("backoff", wait).
		Bool("retry_after", fromHeader).
		Msg("Retrying request after backoff")

	return wait
}

// exponentialBackoff returns InitialBackoff * Multiplier^attempt with ±20% jitter.
func exponentialBackoff(cfg RetryConfig, attempt int) time.Duration {
	mult := cfg.BackoffMultiplier
	if mult < 1 {
		mult = 1
	}
	base := float64(cfg.InitialBackoff) * math.Pow(mult, float64(attempt))
	if cfg.MaxBackoff > 0 && base > float64(cfg.MaxBackoff) {
		base = float64(cfg.MaxBackoff)
	}
	return time.Duration(base * (0.8 + rand.Float64()*0.4))
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
	default:
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
