package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "authrl:"

// RedisStore is the shared Store for multi-instance deployments: the attempt
// ledger lives in a Redis sorted set per client key, scored by attempt time,
// so every instance sees the same window.
type RedisStore struct {
	client *redis.Client
	window time.Duration
	limit  int
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisWindow overrides the sliding window length.
func WithRedisWindow(window time.Duration) RedisOption {
	return func(s *RedisStore) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithRedisLimit overrides the in-window attempt limit.
func WithRedisLimit(limit int) RedisOption {
	return func(s *RedisStore) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithRedisClock overrides the time source (useful for tests).
func WithRedisClock(fn func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		window: DefaultWindow,
		limit:  DefaultLimit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check applies the same strictly-less-than window semantics as MemoryStore.
// Redis unavailability surfaces as an error; the caller decides whether that
// fails open or closed.
func (s *RedisStore) Check(ctx context.Context, key string) (Decision, error) {
	rkey := redisKeyPrefix + key
	now := s.now()
	cutoff := now.Add(-s.window)

	// Drop attempts at or beyond window age, then count the survivors.
	if err := s.client.ZRemRangeByScore(ctx, rkey,
		"-inf", strconv.FormatInt(cutoff.UnixNano(), 10)).Err(); err != nil {
		return Decision{}, fmt.Errorf("throttle prune: %w", err)
	}
	count, err := s.client.ZCard(ctx, rkey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("throttle count: %w", err)
	}

	if count >= int64(s.limit) {
		oldest, err := s.client.ZRangeWithScores(ctx, rkey, 0, 0).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("throttle oldest: %w", err)
		}
		retry := s.window
		if len(oldest) > 0 {
			at := time.Unix(0, int64(oldest[0].Score))
			retry = s.window - now.Sub(at)
		}
		return Decision{Allowed: false, RetryAfter: retry}, nil
	}

	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + strconv.FormatInt(count, 10)
	if err := s.client.ZAdd(ctx, rkey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: member,
	}).Err(); err != nil {
		return Decision{}, fmt.Errorf("throttle record: %w", err)
	}
	if err := s.client.Expire(ctx, rkey, s.window).Err(); err != nil {
		return Decision{}, fmt.Errorf("throttle expire: %w", err)
	}
	return Decision{Allowed: true, Remaining: s.limit - int(count) - 1}, nil
}
