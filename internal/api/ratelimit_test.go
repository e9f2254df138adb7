package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_CountsPerKey(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, err := l.Incr(ctx, "a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	count, err := l.Incr(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "keys must not share counters")
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	count, err := l.Incr(ctx, "a", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	time.Sleep(80 * time.Millisecond)

	count, err = l.Incr(ctx, "a", 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "expired window must reset the count")
}

func TestMemoryLimiter_ConcurrentIncrements(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	const workers = 100
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := l.Incr(ctx, "burst", time.Minute)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := l.Incr(ctx, "burst", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(workers+1), count, "concurrent increments must not be lost")
}
