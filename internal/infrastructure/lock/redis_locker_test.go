package lock

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, WithTTL(time.Minute))
	ctx := context.Background()

	release, err := locker.Lock(ctx, "p:w")
	require.NoError(t, err)
	assert.True(t, mr.Exists("stockledger:lock:p:w"))
	assert.Equal(t, time.Minute, mr.TTL("stockledger:lock:p:w"))

	release()
	assert.False(t, mr.Exists("stockledger:lock:p:w"))
}

func TestRedisLocker_BusyKeyTimesOut(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, WithWait(50*time.Millisecond), WithRetryDelay(5*time.Millisecond))
	ctx := context.Background()

	release, err := locker.Lock(ctx, "p:w")
	require.NoError(t, err)
	defer release()

	_, err = locker.Lock(ctx, "p:w")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
}

func TestRedisLocker_ReleaseKeepsForeignLease(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, WithTTL(time.Second))
	ctx := context.Background()

	release, err := locker.Lock(ctx, "p:w")
	require.NoError(t, err)

	// The lease expires and another holder takes the key
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("stockledger:lock:p:w", "someone-else"))

	release()
	got, err := mr.Get("stockledger:lock:p:w")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedisLocker_SerializesWriters(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, WithWait(5*time.Second), WithRetryDelay(time.Millisecond))

	var inside, overlaps int32
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			release, err := locker.Lock(ctx, "hot")
			if err != nil {
				return err
			}
			defer release()
			if atomic.AddInt32(&inside, 1) > 1 {
				atomic.AddInt32(&overlaps, 1)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Zero(t, overlaps)
}

func TestNewFromConfig(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		locker, closeFn, err := NewFromConfig(config.LedgerConfig{LockBackend: config.LockBackendMemory}, config.RedisConfig{})
		require.NoError(t, err)
		assert.IsType(t, &MemoryLocker{}, locker)
		assert.NoError(t, closeFn())
	})

	t.Run("redis backend", func(t *testing.T) {
		mr := miniredis.RunT(t)
		redisCfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: portOf(t, mr)}
		locker, closeFn, err := NewFromConfig(config.LedgerConfig{
			LockBackend: config.LockBackendRedis,
			LockTTL:     time.Second,
			LockWait:    time.Second,
		}, redisCfg)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &RedisLocker{}, locker)
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		mr := miniredis.RunT(t)
		redisCfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: portOf(t, mr)}
		mr.Close()

		_, _, err := NewFromConfig(config.LedgerConfig{LockBackend: config.LockBackendRedis}, redisCfg)
		assert.Error(t, err)
	})

	t.Run("unreachable redis with fallback", func(t *testing.T) {
		mr := miniredis.RunT(t)
		redisCfg := config.RedisConfig{Enabled: true, Host: mr.Host(), Port: portOf(t, mr)}
		mr.Close()

		locker, _, err := NewFromConfig(config.LedgerConfig{LockBackend: config.LockBackendRedis}, redisCfg, WithInMemoryFallback(true))
		require.NoError(t, err)
		assert.IsType(t, &MemoryLocker{}, locker)
	})
}

func portOf(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	var port int
	_, err := fmt.Sscanf(mr.Port(), "%d", &port)
	require.NoError(t, err)
	return port
}
