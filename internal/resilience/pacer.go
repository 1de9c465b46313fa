// Package resilience provides pacing and error classification for
// outbound network calls. The pipeline is deliberately retry-free: failed
// items stay failed for the run, so the only policy here is how fast we
// are allowed to go, not how often we try again.
package resilience

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a fixed minimum interval between outbound calls. It wraps
// a rate.Limiter so the policy can later be swapped for a burstier or
// backoff-style gate without touching the crawler or geocoder.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer that admits one call per interval. A
// non-positive interval yields a no-op pacer, which tests rely on.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next call is admitted or the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Interval returns the configured gap between calls, or zero for a no-op
// pacer.
func (p *Pacer) Interval() time.Duration {
	if p == nil || p.limiter == nil {
		return 0
	}
	limit := p.limiter.Limit()
	if limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}
