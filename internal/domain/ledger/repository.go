package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the append-only store for ledger entries and their balance heads.
// It defines no update or delete for entries.
type Repository interface {
	// LockBalance returns the head for key, creating it when absent, and holds
	// a row lock on it until the surrounding transaction ends
	LockBalance(ctx context.Context, key Key, now time.Time) (*StockBalance, error)
	// SaveBalance writes the head with a version compare-and-set
	SaveBalance(ctx context.Context, b *StockBalance) error
	// Append inserts a ledger entry
	Append(ctx context.Context, tx *StockTransaction) error

	// FindBalance returns shared.ErrNotFound when the key has no entries
	FindBalance(ctx context.Context, key Key) (*StockBalance, error)
	// SumBalances adds up the heads of every warehouse holding productID
	SumBalances(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
	// FindByKey returns one key's entries in ledger order
	FindByKey(ctx context.Context, key Key) ([]StockTransaction, error)
	// FindByProduct returns a product's entries across warehouses in ledger order
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]StockTransaction, error)
	// FindByReference returns entries carrying the given reference
	FindByReference(ctx context.Context, reference string) ([]StockTransaction, error)
	// SumQuantityByType sums the unsigned quantity of one type
	SumQuantityByType(ctx context.Context, productID uuid.UUID, txType TransactionType) (decimal.Decimal, error)
	// FindAmountLines projects entries of one type, optionally restricted to [start, end)
	FindAmountLines(ctx context.Context, productID uuid.UUID, txType TransactionType, start, end *time.Time) ([]AmountLine, error)
	ExistsForWarehouse(ctx context.Context, warehouseID uuid.UUID) (bool, error)
	// ListKeys returns every key with a balance head or a ledger entry
	ListKeys(ctx context.Context) ([]Key, error)
}
