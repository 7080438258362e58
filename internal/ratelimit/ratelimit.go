// Package ratelimit implements the authentication attempt throttle: a
// sliding-window counter keyed by client, injected into the HTTP layer as a
// Store so single-process (memory) and multi-instance (Redis) deployments
// share one contract.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Defaults match the production policy: five attempts per trailing quarter
// hour per client.
const (
	DefaultWindow = 15 * time.Minute
	DefaultLimit  = 5
)

// Decision is the outcome of a throttle check. RetryAfter is set only on
// denial and is always positive: the time until the oldest in-window attempt
// ages out.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Store checks and records an authentication attempt for a client key in one
// call. A denied attempt is not recorded, so a locked-out client's window
// drains even if it keeps retrying.
type Store interface {
	Check(ctx context.Context, key string) (Decision, error)
}

// MemoryStore is the process-local Store. Entries for a key are pruned on
// that key's next check; the ledger grows with the number of distinct
// clients, which is the accepted cost of a single-process deployment.
type MemoryStore struct {
	mu       sync.Mutex
	window   time.Duration
	limit    int
	attempts map[string][]time.Time
	now      func() time.Time
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithWindow overrides the sliding window length.
func WithWindow(window time.Duration) Option {
	return func(s *MemoryStore) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithLimit overrides the in-window attempt limit.
func WithLimit(limit int) Option {
	return func(s *MemoryStore) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *MemoryStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		window:   DefaultWindow,
		limit:    DefaultLimit,
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check prunes attempts that have aged out, then either records this attempt
// (allow) or reports how long until the oldest surviving attempt leaves the
// window (deny). An attempt exactly window-old is already out: the window
// comparison is strictly-less-than to avoid off-by-one lockouts.
func (s *MemoryStore) Check(_ context.Context, key string) (Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	recent := s.attempts[key][:0]
	for _, t := range s.attempts[key] {
		if now.Sub(t) < s.window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= s.limit {
		s.attempts[key] = recent
		return Decision{
			Allowed:    false,
			RetryAfter: s.window - now.Sub(recent[0]),
		}, nil
	}

	recent = append(recent, now)
	s.attempts[key] = recent
	return Decision{Allowed: true, Remaining: s.limit - len(recent)}, nil
}
