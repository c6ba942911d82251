package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// AdaptiveRateLimiter throttles calls to a backend and lowers the rate when
// the backend's recent p90/p95 latency crosses a threshold
type AdaptiveRateLimiter struct {
	maxRate float64
	limiter *rate.Limiter
	state   *latencyState
	now     func() time.Time
}

// New returns a limiter allowing maxRate calls per second with the given
// burst. name tags the log lines.
func New(maxRate float64, burst int, threshold time.Duration, name string) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		maxRate: maxRate,
		limiter: rate.NewLimiter(rate.Limit(maxRate), burst),
		state:   newLatencyState(threshold, name),
		now:     time.Now,
	}
}

// RecordLatency feeds one observed latency and adapts the rate
func (l *AdaptiveRateLimiter) RecordLatency(latency time.Duration) {
	fraction := l.state.add(latency, l.now())
	l.limiter.SetLimit(rate.Limit(fraction * l.maxRate))
}

// Wait blocks until a call is allowed or ctx is done
func (l *AdaptiveRateLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Limit returns the current rate in calls per second
func (l *AdaptiveRateLimiter) Limit() float64 {
	return float64(l.limiter.Limit())
}
