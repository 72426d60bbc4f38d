package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestOpenRedis_Success(t *testing.T) {
	s := miniredis.RunT(t)

	// non-zero DB to verify it's set
	c, err := OpenRedis(context.Background(), RedisConfig{Addr: s.Addr(), DB: 2, PoolSize: 4})
	if err != nil {
		t.Fatalf("OpenRedis returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if got := c.Options().DB; got != 2 {
		t.Fatalf("client DB = %d, want 2", got)
	}
	if got := c.Options().PoolSize; got != 4 {
		t.Fatalf("client PoolSize = %d, want 4", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Set(ctx, "k", "v", 0).Err(); err != nil {
		t.Fatalf("SET err: %v", err)
	}
	if v, err := c.Get(ctx, "k").Result(); err != nil || v != "v" {
		t.Fatalf("GET = %q, %v", v, err)
	}
}

func TestOpenRedis_Failure(t *testing.T) {
	// unresolvable host fails fast
	_, err := OpenRedis(context.Background(), RedisConfig{Addr: "not-a-real-host:6379", DialTimeout: time.Second})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestOpenRedis_ServerDown(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()
	if _, err := OpenRedis(context.Background(), RedisConfig{Addr: addr, DialTimeout: time.Second}); err == nil {
		t.Fatal("expected error for closed server")
	}
}
