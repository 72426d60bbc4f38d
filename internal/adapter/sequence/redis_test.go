package sequence

import (
	"context"
	"sync"
	"testing"

	appDomain "kyc-backend/internal/domain/application"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ appDomain.Sequencer = (*RedisSequencer)(nil)

func newSequencer(t *testing.T) *RedisSequencer {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSequencer(rdb)
}

func TestRedisSequencer_PerYear(t *testing.T) {
	s := newSequencer(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextSequence(ctx, 2024)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := s.NextSequence(ctx, 2025)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got, "a new year starts at 1")
}

func TestRedisSequencer_ConcurrentCallersGetDistinctNumbers(t *testing.T) {
	s := newSequencer(t)
	ctx := context.Background()

	const n = 50
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[string]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := s.NextSequence(ctx, 2024)
			if err != nil {
				t.Error(err)
				return
			}
			num, err := appDomain.FormatNumber(2024, seq)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			seen[num] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for num := range seen {
		assert.True(t, appDomain.ValidNumber(num), num)
	}
}
