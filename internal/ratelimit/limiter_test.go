package ratelimit_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mchen/wallet-backend/internal/config"
	"github.com/mchen/wallet-backend/internal/ratelimit"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

var windowStartTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeStore counts in memory with the same atomicity guarantee as the real
// store: one locked increment-and-return per call
type fakeStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{counts: make(map[string]int64)}
}

func (s *fakeStore) Incr(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, s.err
	}

	k := fmt.Sprintf("%s|%d", key, windowStart.Unix())
	s.counts[k]++
	return s.counts[k], nil
}

// blockingStore never answers; Incr returns only once the context expires,
// simulating an unresponsive counter store
type blockingStore struct{}

func (s *blockingStore) Incr(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestLimiter(store ratelimit.Store, maxRequests int64, failOpen bool) *ratelimit.Limiter {
	cfg := config.RateLimitConfig{
		Window:       time.Minute,
		MaxRequests:  maxRequests,
		FailOpen:     failOpen,
		StoreTimeout: time.Second,
	}
	// Ten seconds into a window, so retry hints are non-trivial
	return ratelimit.NewLimiter(store, cfg, testLogger()).
		WithClock(func() time.Time { return windowStartTime.Add(10 * time.Second) })
}

func TestAllowsUpToThresholdThenRejects(t *testing.T) {
	limiter := newTestLimiter(newFakeStore(), 5, true)

	for i := 0; i < 5; i++ {
		decision := limiter.Allow(context.Background(), "client-a")
		assert.True(t, decision.Allowed, "request %d within threshold should be admitted", i+1)
		assert.Equal(t, int64(5), decision.Limit)
		assert.Equal(t, int64(5-(i+1)), decision.Remaining)
	}

	decision := limiter.Allow(context.Background(), "client-a")
	assert.False(t, decision.Allowed, "request past threshold should be rejected")
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
	// 50 seconds remain in the window
	assert.Equal(t, 50, decision.RetryAfterSeconds())
}

func TestConcurrentRequestsNoLostUpdates(t *testing.T) {
	limiter := newTestLimiter(newFakeStore(), 5, true)

	const total = 50
	var wg sync.WaitGroup
	decisions := make(chan ratelimit.Decision, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decisions <- limiter.Allow(context.Background(), "shared-key")
		}()
	}

	wg.Wait()
	close(decisions)

	allowed, rejected := 0, 0
	for decision := range decisions {
		if decision.Allowed {
			allowed++
		} else {
			rejected++
			assert.Greater(t, decision.RetryAfter, time.Duration(0))
		}
	}

	assert.Equal(t, 5, allowed, "exactly the threshold count should be admitted")
	assert.Equal(t, 45, rejected)
}

func TestKeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(newFakeStore(), 2, true)

	for i := 0; i < 2; i++ {
		assert.True(t, limiter.Allow(context.Background(), "client-a").Allowed)
	}
	assert.False(t, limiter.Allow(context.Background(), "client-a").Allowed)

	// A different key still has its full budget
	assert.True(t, limiter.Allow(context.Background(), "client-b").Allowed)
}

func TestWindowResetsAtBoundary(t *testing.T) {
	store := newFakeStore()
	cfg := config.RateLimitConfig{
		Window:       time.Minute,
		MaxRequests:  2,
		FailOpen:     true,
		StoreTimeout: time.Second,
	}

	now := windowStartTime
	limiter := ratelimit.NewLimiter(store, cfg, testLogger()).
		WithClock(func() time.Time { return now })

	assert.True(t, limiter.Allow(context.Background(), "client-a").Allowed)
	assert.True(t, limiter.Allow(context.Background(), "client-a").Allowed)
	assert.False(t, limiter.Allow(context.Background(), "client-a").Allowed)

	// Crossing the boundary starts a fresh counter
	now = windowStartTime.Add(time.Minute)
	assert.True(t, limiter.Allow(context.Background(), "client-a").Allowed)
	assert.True(t, limiter.Allow(context.Background(), "client-a").Allowed)
	assert.False(t, limiter.Allow(context.Background(), "client-a").Allowed)
}

func TestFailOpenAdmitsOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")

	limiter := newTestLimiter(store, 5, true)

	decision := limiter.Allow(context.Background(), "client-a")
	assert.True(t, decision.Allowed, "fail-open policy should admit when the store is down")
}

func TestFailClosedRejectsOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")

	limiter := newTestLimiter(store, 5, false)

	decision := limiter.Allow(context.Background(), "client-a")
	assert.False(t, decision.Allowed, "fail-closed policy should reject when the store is down")
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestStoreTimeoutFailOpen(t *testing.T) {
	cfg := config.RateLimitConfig{
		Window:       time.Minute,
		MaxRequests:  5,
		FailOpen:     true,
		StoreTimeout: 50 * time.Millisecond,
	}
	limiter := ratelimit.NewLimiter(&blockingStore{}, cfg, testLogger())

	start := time.Now()
	decision := limiter.Allow(context.Background(), "client-a")
	elapsed := time.Since(start)

	assert.True(t, decision.Allowed, "a store timeout under fail-open admits the request")
	assert.Less(t, elapsed, 5*time.Second, "the store timeout must bound the wait")
}

func TestStoreTimeoutFailClosed(t *testing.T) {
	cfg := config.RateLimitConfig{
		Window:       time.Minute,
		MaxRequests:  5,
		FailOpen:     false,
		StoreTimeout: 50 * time.Millisecond,
	}
	limiter := ratelimit.NewLimiter(&blockingStore{}, cfg, testLogger())

	decision := limiter.Allow(context.Background(), "client-a")
	assert.False(t, decision.Allowed, "a store timeout under fail-closed rejects the request")
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	decision := ratelimit.Decision{RetryAfter: 1500 * time.Millisecond}
	assert.Equal(t, 2, decision.RetryAfterSeconds())

	decision = ratelimit.Decision{RetryAfter: 10 * time.Millisecond}
	assert.Equal(t, 1, decision.RetryAfterSeconds(), "retry hint never drops below one second")
}
