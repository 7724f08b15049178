package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/application/uow"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FactoryOption configures NewFromConfig
type FactoryOption func(*factory)

type factory struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithFactoryLogger sets the logger used by the factory and the locker it builds
func WithFactoryLogger(logger *zap.Logger) FactoryOption {
	return func(f *factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-process locker. Default is false.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFromConfig builds the key locker selected by ledger.lock_backend. The
// returned close function releases the Redis client, if any.
func NewFromConfig(ledgerCfg config.LedgerConfig, redisCfg config.RedisConfig, opts ...FactoryOption) (uow.KeyLocker, func() error, error) {
	f := &factory{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	noClose := func() error { return nil }

	if ledgerCfg.LockBackend != config.LockBackendRedis {
		f.logger.Info("using in-memory ledger key locks")
		return NewMemoryLocker(WithMemoryWait(ledgerCfg.LockWait)), noClose, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if !f.allowInMemoryFallback {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory ledger key locks. "+
			"Writers in other processes are then serialized by database row locks only.",
			zap.Error(err))
		return NewMemoryLocker(WithMemoryWait(ledgerCfg.LockWait)), noClose, nil
	}

	f.logger.Info("using Redis ledger key locks", zap.String("addr", redisCfg.Addr()))
	locker := NewRedisLocker(client,
		WithTTL(ledgerCfg.LockTTL),
		WithWait(ledgerCfg.LockWait),
		WithLogger(f.logger))
	return locker, client.Close, nil
}
