// Package session tracks the server-side liveness record that makes an
// otherwise stateless bearer token revocable. One record exists per user at
// most; deleting it invalidates every outstanding token for that user.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any Redis transport failure. Callers deciding
// authentication must treat it as "not live" (fail closed).
var ErrRedisUnavailable = errors.New("session backend unavailable")

const defaultTTL = 24 * time.Hour

// Record is the stored session payload. It exists for operator inspection;
// liveness decisions only check key existence.
type Record struct {
	UserID  string    `json:"userId"`
	Email   string    `json:"email"`
	LoginAt time.Time `json:"loginAt"`
}

// Registry manages session records in Redis. Safe for concurrent use.
type Registry struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRegistry returns a Registry writing records with the given ttl.
// A non-positive ttl falls back to 24h.
func NewRegistry(rdb redis.UniversalClient, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Registry{rdb: rdb, ttl: ttl}
}

// TTL reports the configured record lifetime.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Open writes the session record for userID, unconditionally replacing any
// prior record. A user has a single active session family.
func (r *Registry) Open(ctx context.Context, userID, email string) error {
	payload, err := json.Marshal(Record{UserID: userID, Email: email, LoginAt: time.Now()})
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, sessionKey(userID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsLive reports whether a session record exists for userID. On backend
// failure it returns false together with [ErrRedisUnavailable]: a token must
// never authenticate when the liveness check cannot be performed.
func (r *Registry) IsLive(ctx context.Context, userID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, sessionKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Close deletes the session record for userID. Idempotent; closing an
// absent session is not an error.
func (r *Registry) Close(ctx context.Context, userID string) error {
	if err := r.rdb.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func sessionKey(userID string) string {
	return "session:" + userID
}
