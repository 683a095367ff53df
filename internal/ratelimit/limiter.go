package ratelimit

import (
	"context"
	"time"

	"github.com/mchen/wallet-backend/internal/config"
	"github.com/sirupsen/logrus"
)

// Decision is the admission verdict for one request
type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// Limiter is a fixed-window admission controller. Each key gets a counter
// per window of length Window; once the counter passes MaxRequests the
// rest of the window is rejected. Windows reset at fixed boundaries, so a
// client can burst up to 2x the threshold across a boundary - accepted
// cost of the simpler scheme.
type Limiter struct {
	store        Store
	window       time.Duration
	limit        int64
	failOpen     bool
	storeTimeout time.Duration
	logger       *logrus.Logger
	now          func() time.Time
}

// NewLimiter creates a limiter over the given counter store
func NewLimiter(store Store, cfg config.RateLimitConfig, logger *logrus.Logger) *Limiter {
	return &Limiter{
		store:        store,
		window:       cfg.Window,
		limit:        cfg.MaxRequests,
		failOpen:     cfg.FailOpen,
		storeTimeout: cfg.StoreTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock overrides the time source, used by tests to pin window boundaries
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow admits or rejects one request for the given client key.
// A store error or timeout applies the configured failure policy: fail-open
// admits the request (availability over strict enforcement), fail-closed
// rejects it. Either way the outcome is logged, never silent.
func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	now := l.now()
	windowStart := now.Truncate(l.window)
	retryAfter := windowStart.Add(l.window).Sub(now)

	ctx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	count, err := l.store.Incr(ctx, key, windowStart)
	if err != nil {
		l.logger.WithFields(logrus.Fields{
			"key":      key,
			"failOpen": l.failOpen,
		}).WithError(err).Warn("rate limit counter store unavailable")

		if l.failOpen {
			return Decision{Allowed: true, Limit: l.limit, Remaining: 0}
		}
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, RetryAfter: retryAfter}
	}

	if count > l.limit {
		return Decision{Allowed: false, Limit: l.limit, Remaining: 0, RetryAfter: retryAfter}
	}

	return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - count}
}

// RetryAfterSeconds converts the retry hint to whole seconds for the
// Retry-After header, rounding up so clients never retry early
func (d Decision) RetryAfterSeconds() int {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
