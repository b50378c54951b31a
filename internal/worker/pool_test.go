package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errpkg "github.com/veranemoloko/media-downloader/internal/errors"
)

func TestPool_RunsJobs(t *testing.T) {
	pool := NewPool(3, 10, newTestLogger())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit("job", func(context.Context) {
			ran.Add(1)
		}))
	}

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Equal(t, int32(10), ran.Load())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := NewPool(2, 10, newTestLogger())

	var active, peak atomic.Int32
	for i := 0; i < 8; i++ {
		require.NoError(t, pool.Submit("job", func(context.Context) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
		}))
	}

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(1, 1, newTestLogger())
	require.NoError(t, pool.Shutdown(context.Background()))

	err := pool.Submit("late", func(context.Context) {})
	assert.True(t, errors.Is(err, errpkg.ErrPoolClosed))

	// a second shutdown is a no-op
	assert.NoError(t, pool.Shutdown(context.Background()))
}

func TestPool_RecoversFromPanic(t *testing.T) {
	pool := NewPool(1, 2, newTestLogger())

	var ran atomic.Bool
	require.NoError(t, pool.Submit("bad", func(context.Context) { panic("bad job") }))
	require.NoError(t, pool.Submit("good", func(context.Context) { ran.Store(true) }))

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestPool_ShutdownTimeoutCancelsJobs(t *testing.T) {
	pool := NewPool(1, 1, newTestLogger())

	started := make(chan struct{})
	var cancelled atomic.Bool
	require.NoError(t, pool.Submit("slow", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Shutdown(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, cancelled.Load())
}
