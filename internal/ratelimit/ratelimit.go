// Package ratelimit implements a distributed fixed-window rate limiter on
// Redis counters. Each key gets its own window, started lazily at its first
// hit; the atomic INCR is the serialization point, so concurrent requests
// never under-count.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis transport failures. Admit still returns an
// allowing decision in that case; losing limiter precision during an outage
// is acceptable, blocking all traffic is not.
var ErrRedisUnavailable = errors.New("rate limit backend unavailable")

// Config tunes one limiter instance.
type Config struct {
	// Window is the fixed window duration, measured from a key's first hit.
	Window time.Duration
	// Max is the number of hits admitted per window.
	Max int
	// Prefix namespaces this limiter's keys, e.g. "rl:login".
	Prefix string
	// Message is the client-facing rejection text.
	Message string
}

// Decision is the outcome of one Admit call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces a per-key hit quota per window. Safe for concurrent use.
type Limiter struct {
	rdb    redis.UniversalClient
	config Config
}

// New returns a Limiter backed by the given Redis client.
func New(rdb redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Message == "" {
		cfg.Message = "Too many requests, please try again later"
	}
	return &Limiter{rdb: rdb, config: cfg}
}

// Max reports the configured per-window quota.
func (l *Limiter) Max() int { return l.config.Max }

// Message reports the configured rejection message.
func (l *Limiter) Message() string { return l.config.Message }

// Admit records one hit for key and reports whether it is within quota.
// The first hit in a window creates the counter and stamps the window
// expiry; a rejected hit still counts (the increment is never rolled back).
// On backend failure the request is allowed and the error returned so the
// caller can log it.
func (l *Limiter) Admit(ctx context.Context, key string) (Decision, error) {
	counterKey := l.key(key)

	count, err := l.rdb.Incr(ctx, counterKey).Result()
	if err != nil {
		return failOpen(l.config), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// First hit starts this key's window.
	if count == 1 {
		if err := l.rdb.Expire(ctx, counterKey, l.config.Window).Err(); err != nil {
			return failOpen(l.config), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	resetAt := time.Now().Add(l.config.Window)
	if ttl, err := l.rdb.TTL(ctx, counterKey).Result(); err == nil && ttl > 0 {
		resetAt = time.Now().Add(ttl)
	}

	remaining := l.config.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count <= int64(l.config.Max),
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// Reset clears the counter for key, forgiving all hits in the current
// window. Used by the reset-on-success login policy.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(key string) string {
	return l.config.Prefix + ":" + key
}

func failOpen(cfg Config) Decision {
	return Decision{Allowed: true, Remaining: cfg.Max, ResetAt: time.Now().Add(cfg.Window)}
}
