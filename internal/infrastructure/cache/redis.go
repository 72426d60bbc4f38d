package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	DB       int
	PoolSize int // 0 keeps the go-redis default
	// DialTimeout also bounds the startup ping.
	DialTimeout time.Duration
}

// OpenRedis connects and pings. The client backs idempotency, the effect retry
// queue and, when selected, application numbering.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	r := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
	})
	pctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := r.Ping(pctx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	slog.Info("redis connected", "addr", cfg.Addr, "db", cfg.DB)
	return r, nil
}
