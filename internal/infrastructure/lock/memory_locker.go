// Package lock provides key lockers that serialize ledger writes per
// (product, warehouse) ahead of the database row lock.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/application/uow"
	"github.com/erp/stockledger/internal/domain/shared"
)

// keyLock is a one-slot semaphore shared by every waiter on a key
type keyLock struct {
	slot    chan struct{}
	waiters int
}

// MemoryLocker serializes callers within one process. Idle keys are dropped
// so the map does not grow with the number of keys ever locked.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

// MemoryLockerOption configures a MemoryLocker
type MemoryLockerOption func(*MemoryLocker)

// WithMemoryWait bounds how long Lock waits for a busy key. Zero leaves the
// wait to the caller's context.
func WithMemoryWait(wait time.Duration) MemoryLockerOption {
	return func(l *MemoryLocker) {
		l.wait = wait
	}
}

// NewMemoryLocker creates an in-process key locker
func NewMemoryLocker(opts ...MemoryLockerOption) *MemoryLocker {
	l := &MemoryLocker{locks: make(map[string]*keyLock)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock blocks until key is free, the configured wait elapses or ctx is done
func (l *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{slot: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.waiters++
	l.mu.Unlock()

	select {
	case kl.slot <- struct{}{}:
	case <-ctx.Done():
		l.leave(key, kl)
		return nil, shared.ErrConcurrencyConflict.WithMessage("timed out waiting for lock %s: %v", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.slot
			l.leave(key, kl)
		})
	}, nil
}

func (l *MemoryLocker) leave(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl.waiters--
	if kl.waiters == 0 {
		delete(l.locks, key)
	}
}

// size reports the number of tracked keys
func (l *MemoryLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var _ uow.KeyLocker = (*MemoryLocker)(nil)
