package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/application/uow"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lease never releases another holder's lock
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes callers across processes with SET NX PX leases
type RedisLocker struct {
	client     redis.UniversalClient
	keyPrefix  string
	ttl        time.Duration
	wait       time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

// RedisLockerOption configures a RedisLocker
type RedisLockerOption func(*RedisLocker)

// WithTTL sets the lease duration of an acquired lock
func WithTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		l.ttl = ttl
	}
}

// WithWait bounds how long Lock waits for a busy key
func WithWait(wait time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		l.wait = wait
	}
}

// WithRetryDelay sets the pause between acquisition attempts
func WithRetryDelay(d time.Duration) RedisLockerOption {
	return func(l *RedisLocker) {
		l.retryDelay = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisLocker) {
		l.logger = logger
	}
}

// NewRedisLocker creates a locker with an existing Redis client
func NewRedisLocker(client redis.UniversalClient, opts ...RedisLockerOption) *RedisLocker {
	l := &RedisLocker{
		client:     client,
		keyPrefix:  "stockledger:lock:",
		ttl:        10 * time.Second,
		wait:       5 * time.Second,
		retryDelay: 20 * time.Millisecond,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock retries SET NX until it wins, the wait budget runs out or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.retryDelay)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return l.releaser(redisKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			return nil, shared.ErrConcurrencyConflict.WithMessage("timed out waiting for lock %s", key)
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(redisKey, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock", zap.String("key", redisKey), zap.Error(err))
		}
	}
}

var _ uow.KeyLocker = (*RedisLocker)(nil)
