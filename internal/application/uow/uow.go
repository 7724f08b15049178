// Package uow defines the unit-of-work contracts application services use to
// run several repository operations atomically.
package uow

import (
	"context"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/purchasing"
	"github.com/erp/stockledger/internal/domain/taxation"
	"github.com/erp/stockledger/internal/domain/warehouse"
)

// Repositories gives access to every aggregate repository. Inside Execute
// all of them share one database transaction.
type Repositories interface {
	Warehouses() warehouse.Repository
	Ledger() ledger.Repository
	PurchaseOrders() purchasing.Repository
	TaxAssignments() taxation.Repository
}

// TransactionScope runs fn in a transaction. If fn returns an error the
// transaction is rolled back, otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Store is both the non-transactional read side and the transaction scope
type Store interface {
	Repositories
	TransactionScope
}

// KeyLocker serializes work on a named key across goroutines or processes.
// The returned release function must be called exactly once.
type KeyLocker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// NoOpLocker relies on database row locks alone
type NoOpLocker struct{}

// Lock implements KeyLocker
func (NoOpLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}
