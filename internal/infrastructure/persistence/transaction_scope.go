package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/application/uow"
	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/purchasing"
	"github.com/erp/stockledger/internal/domain/taxation"
	"github.com/erp/stockledger/internal/domain/warehouse"
	"gorm.io/gorm"
)

// GormStore implements uow.Store using GORM. Repositories obtained directly
// from the store run outside any transaction; Execute hands fn repositories
// bound to a single database transaction.
type GormStore struct {
	gormRepositories
}

// NewGormStore creates a new GormStore
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{gormRepositories{db: db}}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormStore) Execute(ctx context.Context, fn func(repos uow.Repositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{db: tx})
	})
	return translateError(err)
}

// gormRepositories provides access to all repositories on one *gorm.DB,
// which is either the base connection or an open transaction.
type gormRepositories struct {
	db *gorm.DB
}

// Warehouses returns the warehouse repository
func (r *gormRepositories) Warehouses() warehouse.Repository {
	return NewGormWarehouseRepository(r.db)
}

// Ledger returns the stock ledger repository
func (r *gormRepositories) Ledger() ledger.Repository {
	return NewGormLedgerRepository(r.db)
}

// PurchaseOrders returns the purchase order repository
func (r *gormRepositories) PurchaseOrders() purchasing.Repository {
	return NewGormPurchaseOrderRepository(r.db)
}

// TaxAssignments returns the product tax profile repository
func (r *gormRepositories) TaxAssignments() taxation.Repository {
	return NewGormProductTaxProfileRepository(r.db)
}

// Ensure GormStore implements uow.Store
var _ uow.Store = (*GormStore)(nil)
