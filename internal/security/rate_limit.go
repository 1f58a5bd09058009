package security

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/BradenHooton/giftgate/internal/clock"
)

// Window is the state of one rate-limit key
type Window struct {
	Count   int
	ResetAt time.Time
}

// WindowStore records hits against fixed windows keyed by an opaque string.
// Hit opens a window [now, now+window) on first use or after expiry, then
// increments its count.
type WindowStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (Window, error)
}

// RateLimitResult is the outcome of a rate-limit check
type RateLimitResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds
func (r RateLimitResult) RetryAfterSeconds() int {
	if r.Allowed || r.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(r.RetryAfter.Seconds()))
}

// RateLimiter is a soft client-side deterrent, not a security boundary
type RateLimiter struct {
	store  WindowStore
	clock  clock.Clock
	logger *slog.Logger
}

// NewRateLimiter creates a RateLimiter over store
func NewRateLimiter(store WindowStore, c clock.Clock, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		store:  store,
		clock:  c,
		logger: logger,
	}
}

// Check counts one request for key and reports whether it fits within
// maxRequests per window
func (l *RateLimiter) Check(ctx context.Context, key string, maxRequests int, window time.Duration) RateLimitResult {
	w, err := l.store.Hit(ctx, key, window)
	if err != nil {
		// Fail open: a broken store should not lock every visitor out
		l.logger.Error("rate limit store unavailable", slog.String("key", key), slog.Any("error", err))
		return RateLimitResult{Allowed: true}
	}

	if w.Count <= maxRequests {
		return RateLimitResult{Allowed: true}
	}

	retryAfter := w.ResetAt.Sub(l.clock.Now())
	if retryAfter < 0 {
		retryAfter = 0
	}
	l.logger.Warn("rate limit exceeded",
		slog.String("key", key),
		slog.Int("count", w.Count),
		slog.Duration("retry_after", retryAfter))

	return RateLimitResult{Allowed: false, RetryAfter: retryAfter}
}

// MemoryWindowStore is a process-wide in-memory WindowStore. It starts empty
// and is discarded with the process.
type MemoryWindowStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	windows map[string]*Window
}

// NewMemoryWindowStore creates an empty in-memory store
func NewMemoryWindowStore(c clock.Clock) *MemoryWindowStore {
	return &MemoryWindowStore{
		clock:   c,
		windows: make(map[string]*Window),
	}
}

func (s *MemoryWindowStore) Hit(_ context.Context, key string, window time.Duration) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.ResetAt) {
		w = &Window{ResetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.Count++

	return *w, nil
}

// Prune drops expired windows and returns how many were removed
func (s *MemoryWindowStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.ResetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (s *MemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}
