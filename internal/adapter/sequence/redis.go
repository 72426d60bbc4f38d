package sequence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "kyc:appseq:"

// RedisSequencer numbers applications with INCR on a per-year key. Values burned
// by a rolled-back creation leave gaps; the order stays strictly increasing.
type RedisSequencer struct {
	rdb *redis.Client
}

func NewRedisSequencer(rdb *redis.Client) *RedisSequencer { return &RedisSequencer{rdb: rdb} }

func (s *RedisSequencer) NextSequence(ctx context.Context, year int) (int64, error) {
	n, err := s.rdb.Incr(ctx, fmt.Sprintf("%s%d", keyPrefix, year)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis sequence %d: %w", year, err)
	}
	return n, nil
}
