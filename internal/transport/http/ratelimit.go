package http

import (
	"time"

	"golang.org/x/time/rate"
)

// violationWindow is how long a client must stay under the limit before
// its violation count is forgiven.
const violationWindow = time.Minute

// rateLimiter throttles inbound frames of one connection and counts how
// often the client went over the limit. Only sustained abuse accumulates:
// the count resets after violationWindow without a violation.
type rateLimiter struct {
	limiter       *rate.Limiter
	violations    int
	maxViolations int
	lastViolation time.Time
	now           func() time.Time
}

func newRateLimiter(perSecond float64, burst, maxViolations int) *rateLimiter {
	if perSecond <= 0 {
		return &rateLimiter{now: time.Now}
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limiter:       rate.NewLimiter(rate.Limit(perSecond), burst),
		maxViolations: maxViolations,
		now:           time.Now,
	}
}

// allow reports whether the next frame may be processed.
func (r *rateLimiter) allow() bool {
	if r == nil || r.limiter == nil {
		return true
	}
	now := r.now()
	if r.limiter.AllowN(now, 1) {
		if r.violations > 0 && now.Sub(r.lastViolation) >= violationWindow {
			r.violations = 0
		}
		return true
	}
	r.violations++
	r.lastViolation = now
	return false
}

// exhausted reports whether the client should be disconnected.
func (r *rateLimiter) exhausted() bool {
	return r != nil && r.maxViolations > 0 && r.violations > r.maxViolations
}

// shouldWarn limits how often the client is told it is being throttled.
func (r *rateLimiter) shouldWarn() bool {
	return r.violations%100 == 1
}
