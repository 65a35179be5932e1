package inflight

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGuard(t *testing.T) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	g := NewRedisGuardWithClient(client, time.Minute)
	t.Cleanup(func() { _ = g.Close() })
	return g, mr
}

// guards runs each behavioural test against both implementations.
func guards(t *testing.T) map[string]Guard {
	rg, _ := newRedisGuard(t)
	return map[string]Guard{
		"memory": NewMemoryGuard(),
		"redis":  rg,
	}
}

func TestGuardDuplicate(t *testing.T) {
	for name, g := range guards(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tok, err := g.Acquire(ctx, "s1", "go generics")
			require.NoError(t, err)

			_, err = g.Acquire(ctx, "s1", "go generics")
			assert.ErrorIs(t, err, ErrDuplicate)

			current, err := g.IsCurrent(ctx, tok)
			require.NoError(t, err)
			assert.True(t, current, "duplicate must not disturb the running query")
		})
	}
}

func TestGuardSupersede(t *testing.T) {
	for name, g := range guards(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first, err := g.Acquire(ctx, "s1", "first")
			require.NoError(t, err)
			second, err := g.Acquire(ctx, "s1", "second")
			require.NoError(t, err)

			ok, err := g.IsCurrent(ctx, first)
			require.NoError(t, err)
			assert.False(t, ok)
			ok, err = g.IsCurrent(ctx, second)
			require.NoError(t, err)
			assert.True(t, ok)

			// A superseded run finishing late must not clear the newer marker.
			require.NoError(t, g.Release(ctx, first))
			ok, err = g.IsCurrent(ctx, second)
			require.NoError(t, err)
			assert.True(t, ok)

			// The original query may now run again.
			_, err = g.Acquire(ctx, "s1", "first")
			assert.NoError(t, err)
		})
	}
}

func TestGuardReleaseAllowsRetry(t *testing.T) {
	for name, g := range guards(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tok, err := g.Acquire(ctx, "s1", "q")
			require.NoError(t, err)
			require.NoError(t, g.Release(ctx, tok))

			ok, err := g.IsCurrent(ctx, tok)
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = g.Acquire(ctx, "s1", "q")
			assert.NoError(t, err)
		})
	}
}

func TestGuardSessionsAreIndependent(t *testing.T) {
	for name, g := range guards(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := g.Acquire(ctx, "alice", "q")
			require.NoError(t, err)
			_, err = g.Acquire(ctx, "bob", "q")
			assert.NoError(t, err)
		})
	}
}

func TestMemoryGuardConcurrentAcquire(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		dupes int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Acquire(ctx, "s1", "same")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else {
				dupes++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 19, dupes)
}

func TestRedisGuardTTL(t *testing.T) {
	g, mr := newRedisGuard(t)
	ctx := context.Background()

	tok, err := g.Acquire(ctx, "s1", "q")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"s1"))

	mr.FastForward(2 * time.Minute)

	ok, err := g.IsCurrent(ctx, tok)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = g.Acquire(ctx, "s1", "q")
	assert.NoError(t, err)
}

func TestRedisGuardUnavailable(t *testing.T) {
	g, mr := newRedisGuard(t)
	mr.Close()

	_, err := g.Acquire(context.Background(), "s1", "q")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
}
