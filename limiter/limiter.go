// Package limiter implements the per-identity fixed-window submission limiter.
package limiter

import (
	"context"
	"time"

	"github.com/oakhaven/storefront/store"
)

// Decision is the outcome of one Check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetTime time.Time
}

// Policy bounds how many attempts an identity gets per window.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts attempts in a RateLimitStore. A denied attempt is still counted.
type Limiter struct {
	store store.RateLimitStore
	now   func() time.Time
}

func New(s store.RateLimitStore) *Limiter {
	return &Limiter{store: s, now: time.Now}
}

// WithClock returns a copy of l reading time from now.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	return &Limiter{store: l.store, now: now}
}

// Check records an attempt for key and decides whether it is within policy.
// Denial is reported through Decision, not as an error.
func (l *Limiter) Check(ctx context.Context, key string, p Policy) (Decision, error) {
	rec, err := l.store.Hit(ctx, key, l.now(), p.Window)
	if err != nil {
		return Decision{}, err
	}
	if rec.Count > int64(p.MaxAttempts) {
		return Decision{Allowed: false, Remaining: 0, ResetTime: rec.WindowResetTime}, nil
	}
	return Decision{
		Allowed:   true,
		Remaining: p.MaxAttempts - int(rec.Count),
		ResetTime: rec.WindowResetTime,
	}, nil
}

// Reset forgets key's current window.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
