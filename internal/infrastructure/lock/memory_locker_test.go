package lock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestMemoryLocker_SerializesSameKey(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	var inside, maxInside int32
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			release, err := locker.Lock(ctx, "p:w")
			if err != nil {
				return err
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, locker.size())
}

func TestMemoryLocker_DifferentKeysDoNotBlock(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	releaseA, err := locker.Lock(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	releaseB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestMemoryLocker_ContextTimeout(t *testing.T) {
	locker := NewMemoryLocker()

	release, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "busy")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	assert.True(t, shared.IsRetryable(err))

	release()
	release() // second call is a no-op
	assert.Zero(t, locker.size())

	again, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)
	again()
}

func TestMemoryLocker_WaitBound(t *testing.T) {
	locker := NewMemoryLocker(WithMemoryWait(20 * time.Millisecond))

	release, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)
	defer release()

	start := time.Now()
	_, err = locker.Lock(context.Background(), "busy")
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewFromConfig_MemoryBackendUsesLockWait(t *testing.T) {
	locker, closeFn, err := NewFromConfig(
		config.LedgerConfig{LockBackend: config.LockBackendMemory, LockWait: 15 * time.Millisecond},
		config.RedisConfig{})
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	mem, ok := locker.(*MemoryLocker)
	require.True(t, ok)
	assert.Equal(t, 15*time.Millisecond, mem.wait)

	release, err := mem.Lock(context.Background(), "busy")
	require.NoError(t, err)
	defer release()
	_, err = mem.Lock(context.Background(), "busy")
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}
