package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"kyc-backend/internal/usecase/dispatch"

	"github.com/redis/go-redis/v9"
)

const DefaultKey = "kyc:effects:retry"

// RedisQueue is a retry queue on a sorted set scored by due time (unix ms).
// ZREM decides ownership, so several processes may poll the same key.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Push(ctx context.Context, job dispatch.Job, due time.Time) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	return q.rdb.ZAdd(ctx, q.key, redis.Z{Score: float64(due.UnixMilli()), Member: string(b)}).Err()
}

func (q *RedisQueue) PopDue(ctx context.Context, now time.Time, max int) ([]dispatch.Job, error) {
	members, err := q.rdb.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(max),
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]dispatch.Job, 0, len(members))
	for _, m := range members {
		n, err := q.rdb.ZRem(ctx, q.key, m).Result()
		if err != nil {
			return out, err
		}
		if n == 0 {
			continue // claimed by another poller
		}
		var job dispatch.Job
		if err := json.Unmarshal([]byte(m), &job); err != nil {
			// a corrupt member can never succeed; it is already removed
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, q.key).Result()
}
