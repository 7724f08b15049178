package ledger

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockBalance is the head of one key's ledger: the running quantity after
// the latest entry. Appends lock this row, so it serializes writers per key.
type StockBalance struct {
	ProductID           uuid.UUID
	WarehouseID         uuid.UUID
	Quantity            decimal.Decimal
	LastSequence        int64
	LastTransactionDate *time.Time
	Version             int
	UpdatedAt           time.Time
}

// NewStockBalance creates an empty head for key
func NewStockBalance(key Key, now time.Time) *StockBalance {
	return &StockBalance{
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
		Quantity:    decimal.Zero,
		Version:     1,
		UpdatedAt:   now,
	}
}

// Key returns the balance key
func (b *StockBalance) Key() Key {
	return Key{ProductID: b.ProductID, WarehouseID: b.WarehouseID}
}

// AppendOptions carries recording policy
type AppendOptions struct {
	AllowNegative bool
}

// Append validates entry against the head, builds the ledger record and
// advances the head. The head is left untouched on error.
func (b *StockBalance) Append(entry Entry, now time.Time, opts AppendOptions) (*StockTransaction, error) {
	if entry.ProductID != b.ProductID || entry.WarehouseID != b.WarehouseID {
		return nil, shared.ErrInvalidInput.WithMessage("entry does not belong to balance %s", b.Key())
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if b.LastTransactionDate != nil && entry.TransactionDate.Before(*b.LastTransactionDate) {
		return nil, shared.ErrBackdatedTransaction.WithMessage(
			"transaction date %s precedes latest entry at %s",
			entry.TransactionDate.Format(time.RFC3339), b.LastTransactionDate.Format(time.RFC3339))
	}

	delta, _ := SignedDelta(entry.Type, entry.Quantity, entry.Direction)
	after := b.Quantity.Add(delta)
	if after.IsNegative() && !opts.AllowNegative {
		return nil, shared.ErrInsufficientStock.WithMessage(
			"insufficient stock: on hand %s, requested %s", b.Quantity, entry.Quantity)
	}

	tx := &StockTransaction{
		ID:              uuid.New(),
		ProductID:       entry.ProductID,
		WarehouseID:     entry.WarehouseID,
		TransactionDate: entry.TransactionDate,
		Type:            entry.Type,
		Quantity:        entry.Quantity,
		SignedQuantity:  delta,
		UnitPrice:       entry.UnitPrice,
		StockLevelAfter: after,
		Reference:       entry.Reference,
		CreatedBy:       entry.Actor,
		CreatedAt:       now,
		Sequence:        b.LastSequence + 1,
	}

	date := entry.TransactionDate
	b.Quantity = after
	b.LastSequence = tx.Sequence
	b.LastTransactionDate = &date
	b.UpdatedAt = now
	return tx, nil
}
