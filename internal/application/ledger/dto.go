package ledger

import (
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordTransactionRequest is the input for Record. Quantity is always a
// positive magnitude; Direction signs Adjustment and Transfer entries.
type RecordTransactionRequest struct {
	ProductID       uuid.UUID       `json:"product_id" validate:"required"`
	WarehouseID     uuid.UUID       `json:"warehouse_id" validate:"required"`
	Type            string          `json:"type" validate:"required"`
	Direction       string          `json:"direction" validate:"omitempty,oneof=IN OUT"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price" validate:"gte=0"`
	TransactionDate time.Time       `json:"transaction_date" validate:"required"`
	Reference       string          `json:"reference" validate:"max=100"`
	Actor           string          `json:"actor" validate:"max=100"`
}

// TransactionResponse is the read model of a ledger entry
type TransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	TransactionDate time.Time       `json:"transaction_date"`
	Type            string          `json:"type"`
	Quantity        decimal.Decimal `json:"quantity"`
	SignedQuantity  decimal.Decimal `json:"signed_quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	StockLevelAfter decimal.Decimal `json:"stock_level_after"`
	Reference       string          `json:"reference,omitempty"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Sequence        int64           `json:"sequence"`
}

// VerifyResult reports the replay of one key
type VerifyResult struct {
	ProductID     uuid.UUID            `json:"product_id"`
	WarehouseID   uuid.UUID            `json:"warehouse_id"`
	Entries       int                  `json:"entries"`
	Replayed      decimal.Decimal      `json:"replayed"`
	HeadQuantity  decimal.Decimal      `json:"head_quantity"`
	Mismatch      *TransactionResponse `json:"mismatch,omitempty"`
	ExpectedLevel decimal.Decimal      `json:"expected_level"`
}

// Consistent is true when every snapshot and the head agree with the replay
func (r VerifyResult) Consistent() bool {
	return r.Mismatch == nil && r.Replayed.Equal(r.HeadQuantity)
}

// ToTransactionResponse converts a ledger entry
func ToTransactionResponse(tx *ledger.StockTransaction) TransactionResponse {
	return TransactionResponse{
		ID:              tx.ID,
		ProductID:       tx.ProductID,
		WarehouseID:     tx.WarehouseID,
		TransactionDate: tx.TransactionDate,
		Type:            tx.Type.String(),
		Quantity:        tx.Quantity,
		SignedQuantity:  tx.SignedQuantity,
		UnitPrice:       tx.UnitPrice,
		StockLevelAfter: tx.StockLevelAfter,
		Reference:       tx.Reference,
		CreatedBy:       tx.CreatedBy,
		CreatedAt:       tx.CreatedAt,
		Sequence:        tx.Sequence,
	}
}

// ToTransactionResponses converts a slice of ledger entries
func ToTransactionResponses(txs []ledger.StockTransaction) []TransactionResponse {
	out := make([]TransactionResponse, len(txs))
	for i := range txs {
		out[i] = ToTransactionResponse(&txs[i])
	}
	return out
}
