// Package ratelimit enforces the per-upstream-category hourly rate budgets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fairyhunter13/stock-locator-service/internal/model"
)

// Category names an upstream rate budget.
type Category string

const (
	CategoryGeocode Category = "geocode"
	CategoryStore   Category = "store"
	CategoryStock   Category = "stock"
)

// Limiter holds one token bucket per category. Buckets refill at the
// configured hourly quota and burst up to the full quota, so a quiet hour
// can be spent all at once.
type Limiter struct {
	mu      sync.Mutex
	buckets map[Category]*rate.Limiter
}

// New creates a Limiter with the given hourly quotas. A quota <= 0
// disables limiting for that category.
func New(quotas map[Category]int) *Limiter {
	l := &Limiter{buckets: make(map[Category]*rate.Limiter)}
	for cat, q := range quotas {
		if q <= 0 {
			continue
		}
		l.buckets[cat] = rate.NewLimiter(rate.Limit(float64(q)/3600.0), q)
	}
	return l
}

// Allow consumes one token from the category's bucket. It returns a
// RATE_LIMITED error when the budget is exhausted; the caller must not
// issue the upstream call in that case.
func (l *Limiter) Allow(cat Category) error {
	return l.AllowN(cat, 1)
}

// AllowN reserves n tokens at once, for stages that fan out into n
// upstream calls. All-or-nothing: a batch over budget is rejected before
// any of its calls start.
func (l *Limiter) AllowN(cat Category, n int) error {
	l.mu.Lock()
	b := l.buckets[cat]
	l.mu.Unlock()
	if b == nil {
		return nil
	}
	if b.AllowN(time.Now(), n) {
		return nil
	}
	return model.NewError(model.CodeRateLimited, "hourly rate budget exhausted", string(cat), nil)
}
