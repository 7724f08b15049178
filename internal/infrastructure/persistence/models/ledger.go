package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockBalanceModel is the running balance snapshot of one product in one warehouse
type StockBalanceModel struct {
	ProductID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WarehouseID         uuid.UUID       `gorm:"type:uuid;primaryKey;index"`
	Quantity            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastSequence        int64           `gorm:"not null;default:0"`
	LastTransactionDate *time.Time
	Version             int       `gorm:"not null;default:1"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockBalanceModel) TableName() string {
	return "stock_balances"
}

// ToDomain converts the persistence model to a domain StockBalance
func (m *StockBalanceModel) ToDomain() *ledger.StockBalance {
	return &ledger.StockBalance{
		ProductID:           m.ProductID,
		WarehouseID:         m.WarehouseID,
		Quantity:            m.Quantity,
		LastSequence:        m.LastSequence,
		LastTransactionDate: m.LastTransactionDate,
		Version:             m.Version,
		UpdatedAt:           m.UpdatedAt,
	}
}

// StockBalanceModelFromDomain creates a persistence model from a domain StockBalance
func StockBalanceModelFromDomain(b *ledger.StockBalance) *StockBalanceModel {
	return &StockBalanceModel{
		ProductID:           b.ProductID,
		WarehouseID:         b.WarehouseID,
		Quantity:            b.Quantity,
		LastSequence:        b.LastSequence,
		LastTransactionDate: b.LastTransactionDate,
		Version:             b.Version,
		UpdatedAt:           b.UpdatedAt,
	}
}

// StockTransactionModel is one immutable ledger row.
// (product_id, warehouse_id, sequence) is unique per balance.
type StockTransactionModel struct {
	ID              uuid.UUID              `gorm:"type:uuid;primary_key"`
	ProductID       uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_stock_tx_key_sequence,priority:1;index:idx_stock_tx_product_date,priority:1"`
	WarehouseID     uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_stock_tx_key_sequence,priority:2;index"`
	Sequence        int64                  `gorm:"not null;uniqueIndex:idx_stock_tx_key_sequence,priority:3"`
	TransactionDate time.Time              `gorm:"not null;index:idx_stock_tx_product_date,priority:2"`
	Type            ledger.TransactionType `gorm:"type:varchar(20);not null;index"`
	Quantity        decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	SignedQuantity  decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	UnitPrice       decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	StockLevelAfter decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Reference       string                 `gorm:"type:varchar(100);index"`
	CreatedBy       string                 `gorm:"type:varchar(100)"`
	CreatedAt       time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockTransactionModel) TableName() string {
	return "stock_transactions"
}

// ToDomain converts the persistence model to a domain StockTransaction
func (m *StockTransactionModel) ToDomain() ledger.StockTransaction {
	return ledger.StockTransaction{
		ID:              m.ID,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		TransactionDate: m.TransactionDate,
		Type:            m.Type,
		Quantity:        m.Quantity,
		SignedQuantity:  m.SignedQuantity,
		UnitPrice:       m.UnitPrice,
		StockLevelAfter: m.StockLevelAfter,
		Reference:       m.Reference,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
		Sequence:        m.Sequence,
	}
}

// StockTransactionModelFromDomain creates a persistence model from a domain StockTransaction
func StockTransactionModelFromDomain(t *ledger.StockTransaction) *StockTransactionModel {
	return &StockTransactionModel{
		ID:              t.ID,
		ProductID:       t.ProductID,
		WarehouseID:     t.WarehouseID,
		Sequence:        t.Sequence,
		TransactionDate: t.TransactionDate,
		Type:            t.Type,
		Quantity:        t.Quantity,
		SignedQuantity:  t.SignedQuantity,
		UnitPrice:       t.UnitPrice,
		StockLevelAfter: t.StockLevelAfter,
		Reference:       t.Reference,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
	}
}

// StockTransactionsToDomain converts a slice of models, keeping order
func StockTransactionsToDomain(ms []StockTransactionModel) []ledger.StockTransaction {
	out := make([]ledger.StockTransaction, len(ms))
	for i := range ms {
		out[i] = ms[i].ToDomain()
	}
	return out
}
