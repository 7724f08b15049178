package ledger

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a stock movement
type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "PURCHASE"
	TransactionTypeSale       TransactionType = "SALE"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeReturn     TransactionType = "RETURN"
	TransactionTypeWriteOff   TransactionType = "WRITE_OFF"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is known
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypePurchase,
		TransactionTypeSale,
		TransactionTypeAdjustment,
		TransactionTypeTransfer,
		TransactionTypeReturn,
		TransactionTypeWriteOff:
		return true
	}
	return false
}

// HasFixedSign is false for types whose direction comes from the caller
func (t TransactionType) HasFixedSign() bool {
	return t != TransactionTypeAdjustment && t != TransactionTypeTransfer
}

// ParseTransactionType accepts the canonical names case-insensitively
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.ErrInvalidTransactionType.WithMessage("unknown stock transaction type %q", s)
	}
	return t, nil
}

// Direction is the caller-supplied sign for Adjustment and Transfer entries
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// SignedDelta returns the balance change for a positive quantity of type t.
// Purchase and Return add, Sale and WriteOff subtract; Adjustment and
// Transfer follow dir, defaulting to an increase.
func SignedDelta(t TransactionType, quantity decimal.Decimal, dir Direction) (decimal.Decimal, error) {
	if !t.IsValid() {
		return decimal.Zero, shared.ErrInvalidTransactionType.WithMessage("unknown stock transaction type %q", t)
	}
	if !quantity.IsPositive() {
		return decimal.Zero, shared.ErrInvalidQuantity.WithMessage("quantity must be greater than zero, got %s", quantity)
	}
	switch t {
	case TransactionTypePurchase, TransactionTypeReturn:
		return quantity, nil
	case TransactionTypeSale, TransactionTypeWriteOff:
		return quantity.Neg(), nil
	}
	switch dir {
	case DirectionIn, "":
		return quantity, nil
	case DirectionOut:
		return quantity.Neg(), nil
	}
	return decimal.Zero, shared.ErrInvalidInput.WithMessage("unknown direction %q", dir)
}

// StockTransaction is one immutable ledger entry. Entries are ordered per
// key by (TransactionDate, Sequence).
type StockTransaction struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	WarehouseID     uuid.UUID
	TransactionDate time.Time
	Type            TransactionType
	Quantity        decimal.Decimal
	SignedQuantity  decimal.Decimal
	UnitPrice       decimal.Decimal
	StockLevelAfter decimal.Decimal
	Reference       string
	CreatedBy       string
	CreatedAt       time.Time
	Sequence        int64
}

// Key returns the (product, warehouse) pair the entry belongs to
func (t *StockTransaction) Key() Key {
	return Key{ProductID: t.ProductID, WarehouseID: t.WarehouseID}
}

// LineAmount is quantity times unit price
func (t *StockTransaction) LineAmount() decimal.Decimal {
	return t.Quantity.Mul(t.UnitPrice)
}

// Entry is a request to append a movement to the ledger
type Entry struct {
	ProductID       uuid.UUID
	WarehouseID     uuid.UUID
	Type            TransactionType
	Direction       Direction
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	TransactionDate time.Time
	Reference       string
	Actor           string
}

// Validate checks the entry in isolation
func (e Entry) Validate() error {
	if e.ProductID == uuid.Nil {
		return shared.ErrInvalidInput.WithMessage("product is required")
	}
	if e.WarehouseID == uuid.Nil {
		return shared.ErrInvalidInput.WithMessage("warehouse is required")
	}
	if e.UnitPrice.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("unit price cannot be negative")
	}
	if e.TransactionDate.IsZero() {
		return shared.ErrInvalidInput.WithMessage("transaction date is required")
	}
	_, err := SignedDelta(e.Type, e.Quantity, e.Direction)
	return err
}

// Key identifies one running balance
type Key struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
}

// String is used for lock names and log fields
func (k Key) String() string {
	return k.ProductID.String() + ":" + k.WarehouseID.String()
}
