package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBurst is the bucket size used when none is configured.
const DefaultBurst = 5

// TokenBucket is an Admitter that refills perSecond tokens per second up to burst.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket creates a token bucket gate.
func NewTokenBucket(perSecond float64, burst int) (*TokenBucket, error) {
	if perSecond <= 0 {
		return nil, fmt.Errorf("%w: rate must be > 0 (got %v)", ErrInvalidConfig, perSecond)
	}
	if burst <= 0 {
		return nil, fmt.Errorf("%w: burst must be > 0 (got %d)", ErrInvalidConfig, burst)
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}, nil
}

// Rate returns the refill rate in tokens per second.
func (b *TokenBucket) Rate() float64 { return float64(b.limiter.Limit()) }

// Burst returns the bucket size.
func (b *TokenBucket) Burst() int { return b.limiter.Burst() }

// Admit blocks until a token is available.
func (b *TokenBucket) Admit(ctx context.Context) error {
	start := time.Now()
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	gateWaitSeconds.WithLabelValues("token_bucket").Observe(time.Since(start).Seconds())
	gateAdmissionsTotal.WithLabelValues("token_bucket").Inc()
	return nil
}
