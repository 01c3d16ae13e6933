package source

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles Cloud Logging API calls so a long paging run does
// not trip the per-minute read quota.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a token-bucket limiter allowing rps requests per
// second with a burst of twice that.
func NewRateLimiter(rps int) *RateLimiter {
	if rps <= 0 {
		rps = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), rps*2),
	}
}

// Wait blocks until the limiter allows another call.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
