package utils

import (
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter admits at most one request per cooldown window across the whole process.
// The check and the update of the last accepted time happen as a single step.
type RateLimiter struct {
	cooldown time.Duration
	limiter  *rate.Limiter
}

// NewRateLimiter creates a limiter whose window is cooldown. A zero cooldown admits everything.
func NewRateLimiter(cooldown time.Duration) *RateLimiter {
	limit := rate.Inf
	if cooldown > 0 {
		limit = rate.Every(cooldown)
	}
	return &RateLimiter{
		cooldown: cooldown,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Admit reports whether a request arriving at now may proceed.
// Rejected requests leave the state untouched.
func (r *RateLimiter) Admit(now time.Time) bool {
	return r.limiter.AllowN(now, 1)
}

// Cooldown returns the configured window.
func (r *RateLimiter) Cooldown() time.Duration {
	return r.cooldown
}
