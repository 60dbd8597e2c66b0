package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*Redis, *miniredis.Miniredis) {
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
	return NewRedis(rdb, "gs"), mr
}

func TestRedisContract(t *testing.T) {
	s, _ := newRedisStoreTest(t)
	runStoreContract(t, s)
}

func TestRedisUsesPrefixAndNeverExpires(t *testing.T) {
	s, mr := newRedisStoreTest(t)
	ctx := context.Background()

	mr.Set("gs:user", "stale")
	mr.SetTTL("gs:user", time.Minute)

	if err := s.Apply(ctx, Set("access", "a"), Set("user", "u")); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got, err := mr.Get("gs:user"); err != nil || got != "u" {
		t.Fatalf("raw key = %q err=%v", got, err)
	}
	for _, k := range []string{"gs:access", "gs:user"} {
		if ttl := mr.TTL(k); ttl != 0 {
			t.Fatalf("%s: expected no expiry, got %v", k, ttl)
		}
	}

	mr.FastForward(365 * 24 * time.Hour)
	for _, k := range []string{"access", "user"} {
		if _, ok, err := s.Get(ctx, k); err != nil || !ok {
			t.Fatalf("%s: expected key to survive, ok=%v err=%v", k, ok, err)
		}
	}
}

func TestRedisErrorsAreUnavailable(t *testing.T) {
	s, mr := newRedisStoreTest(t)
	mr.SetError("server down")
	defer mr.SetError("")

	if _, _, err := s.Get(context.Background(), "user"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("get: expected ErrUnavailable, got %v", err)
	}
	if err := s.Apply(context.Background(), Set("user", "u")); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("apply: expected ErrUnavailable, got %v", err)
	}

	mr.SetError("")
	if _, ok, _ := s.Get(context.Background(), "user"); ok {
		t.Fatal("failed transaction must not write")
	}
}

func TestRedisPing(t *testing.T) {
	s, mr := newRedisStoreTest(t)
	if _, err := s.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	mr.Close()
	if _, err := s.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after close, got %v", err)
	}
}
