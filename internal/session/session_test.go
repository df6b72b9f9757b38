package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRegistryTest(t *testing.T, ttl time.Duration) (*Registry, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRegistry(rdb, ttl), mr
}

func TestOpenIsLiveClose(t *testing.T) {
	reg, _ := newRegistryTest(t, time.Hour)
	ctx := context.Background()

	live, err := reg.IsLive(ctx, "u-1")
	if err != nil {
		t.Fatalf("islive before open: %v", err)
	}
	if live {
		t.Fatal("expected no session before open")
	}

	if err := reg.Open(ctx, "u-1", "a@x.com"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if live, _ = reg.IsLive(ctx, "u-1"); !live {
		t.Fatal("expected live session after open")
	}

	if err := reg.Close(ctx, "u-1"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if live, _ = reg.IsLive(ctx, "u-1"); live {
		t.Fatal("expected dead session after close")
	}
}

func TestOpenOverwrites(t *testing.T) {
	reg, mr := newRegistryTest(t, time.Hour)
	ctx := context.Background()

	if err := reg.Open(ctx, "u-1", "a@x.com"); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := reg.Open(ctx, "u-1", "a@x.com"); err != nil {
		t.Fatalf("second open: %v", err)
	}

	// One session family per user, never two records.
	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "session:u-1" {
		t.Fatalf("expected exactly one session key, got %v", keys)
	}
}

func TestCloseIdempotent(t *testing.T) {
	reg, _ := newRegistryTest(t, time.Hour)
	ctx := context.Background()

	if err := reg.Close(ctx, "never-opened"); err != nil {
		t.Fatalf("close of absent session: %v", err)
	}
}

func TestSessionExpires(t *testing.T) {
	reg, mr := newRegistryTest(t, time.Minute)
	ctx := context.Background()

	if err := reg.Open(ctx, "u-1", "a@x.com"); err != nil {
		t.Fatalf("open: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	live, err := reg.IsLive(ctx, "u-1")
	if err != nil {
		t.Fatalf("islive: %v", err)
	}
	if live {
		t.Fatal("expected session to expire with its TTL")
	}
}

func TestIsLiveFailsClosed(t *testing.T) {
	reg, mr := newRegistryTest(t, time.Hour)
	ctx := context.Background()

	if err := reg.Open(ctx, "u-1", "a@x.com"); err != nil {
		t.Fatalf("open: %v", err)
	}

	mr.Close()

	live, err := reg.IsLive(ctx, "u-1")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if live {
		t.Fatal("liveness must read false when the backend is unreachable")
	}
}

func TestDefaultTTL(t *testing.T) {
	reg, _ := newRegistryTest(t, 0)
	if reg.TTL() != 24*time.Hour {
		t.Fatalf("expected 24h default TTL, got %v", reg.TTL())
	}
}
