package queue

import (
	"context"
	"testing"
	"time"

	"kyc-backend/internal/usecase/dispatch"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisQueue(rdb, ""), mr
}

func TestRedisQueue_PopsOnlyDueJobsInOrder(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, q.Push(ctx, dispatch.Job{ID: "late", Kind: dispatch.KindNotify}, now.Add(time.Minute)))
	require.NoError(t, q.Push(ctx, dispatch.Job{ID: "second", Kind: dispatch.KindResync, OwnerID: "o"}, now.Add(-time.Second)))
	require.NoError(t, q.Push(ctx, dispatch.Job{ID: "first", Kind: dispatch.KindRelease, StorageRef: "a/b"}, now.Add(-time.Minute)))

	jobs, err := q.PopDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "first", jobs[0].ID)
	assert.Equal(t, "a/b", jobs[0].StorageRef)
	assert.Equal(t, "second", jobs[1].ID)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "future job stays queued")

	again, err := q.PopDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, again, "popped jobs are claimed exactly once")
}

func TestRedisQueue_RespectsMax(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	past := time.Now().Add(-time.Second)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Push(ctx, dispatch.Job{ID: id}, past))
	}
	jobs, err := q.PopDue(ctx, time.Now(), 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestRedisQueue_RedisDown(t *testing.T) {
	q, mr := newQueue(t)
	mr.Close()
	assert.Error(t, q.Push(context.Background(), dispatch.Job{ID: "x"}, time.Now()))
	_, err := q.PopDue(context.Background(), time.Now(), 1)
	assert.Error(t, err)
}
