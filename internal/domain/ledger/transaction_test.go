package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSignedDelta(t *testing.T) {
	tests := []struct {
		name    string
		txType  TransactionType
		dir     Direction
		want    string
		wantErr error
	}{
		{"purchase adds", TransactionTypePurchase, "", "5", nil},
		{"return adds", TransactionTypeReturn, DirectionOut, "5", nil},
		{"sale subtracts", TransactionTypeSale, DirectionIn, "-5", nil},
		{"write off subtracts", TransactionTypeWriteOff, "", "-5", nil},
		{"adjustment defaults to increase", TransactionTypeAdjustment, "", "5", nil},
		{"adjustment out", TransactionTypeAdjustment, DirectionOut, "-5", nil},
		{"transfer in", TransactionTypeTransfer, DirectionIn, "5", nil},
		{"transfer out", TransactionTypeTransfer, DirectionOut, "-5", nil},
		{"unknown direction", TransactionTypeTransfer, Direction("SIDEWAYS"), "", shared.ErrInvalidInput},
		{"unknown type", TransactionType("GIFT"), "", "", shared.ErrInvalidTransactionType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SignedDelta(tt.txType, dec("5"), tt.dir)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestSignedDelta_RejectsNonPositiveQuantity(t *testing.T) {
	for _, q := range []string{"0", "-1"} {
		_, err := SignedDelta(TransactionTypePurchase, dec(q), "")
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity), "quantity %s", q)
	}
}

func TestParseTransactionType(t *testing.T) {
	got, err := ParseTransactionType(" write_off ")
	require.NoError(t, err)
	assert.Equal(t, TransactionTypeWriteOff, got)

	_, err = ParseTransactionType("loan")
	assert.True(t, errors.Is(err, shared.ErrInvalidTransactionType))
}

func newEntry(key Key, txType TransactionType, qty, price string, at time.Time) Entry {
	return Entry{
		ProductID:       key.ProductID,
		WarehouseID:     key.WarehouseID,
		Type:            txType,
		Quantity:        dec(qty),
		UnitPrice:       dec(price),
		TransactionDate: at,
		Actor:           "tester",
	}
}

func TestStockBalance_Append(t *testing.T) {
	key := Key{ProductID: uuid.New(), WarehouseID: uuid.New()}

	t.Run("running balance and sequence", func(t *testing.T) {
		b := NewStockBalance(key, t0)

		tx1, err := b.Append(newEntry(key, TransactionTypePurchase, "100", "10.00", t0), t0, AppendOptions{AllowNegative: true})
		require.NoError(t, err)
		assert.True(t, dec("100").Equal(tx1.StockLevelAfter))
		assert.Equal(t, int64(1), tx1.Sequence)

		tx2, err := b.Append(newEntry(key, TransactionTypeSale, "30", "15.00", t0), t0, AppendOptions{AllowNegative: true})
		require.NoError(t, err)
		assert.True(t, dec("70").Equal(tx2.StockLevelAfter))
		assert.True(t, dec("-30").Equal(tx2.SignedQuantity))
		assert.Equal(t, int64(2), tx2.Sequence)

		assert.True(t, dec("70").Equal(b.Quantity))
		assert.Equal(t, int64(2), b.LastSequence)
		require.NotNil(t, b.LastTransactionDate)
		assert.Equal(t, t0, *b.LastTransactionDate)
	})

	t.Run("backdated entry is rejected and head untouched", func(t *testing.T) {
		b := NewStockBalance(key, t0)
		_, err := b.Append(newEntry(key, TransactionTypePurchase, "10", "1", t0), t0, AppendOptions{AllowNegative: true})
		require.NoError(t, err)

		_, err = b.Append(newEntry(key, TransactionTypePurchase, "10", "1", t0.Add(-time.Minute)), t0, AppendOptions{AllowNegative: true})
		assert.True(t, errors.Is(err, shared.ErrBackdatedTransaction))
		assert.True(t, dec("10").Equal(b.Quantity))
		assert.Equal(t, int64(1), b.LastSequence)
	})

	t.Run("negative stock blocked by policy", func(t *testing.T) {
		b := NewStockBalance(key, t0)
		_, err := b.Append(newEntry(key, TransactionTypeSale, "1", "1", t0), t0, AppendOptions{AllowNegative: false})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.True(t, b.Quantity.IsZero())
	})

	t.Run("negative stock allowed by default policy", func(t *testing.T) {
		b := NewStockBalance(key, t0)
		tx, err := b.Append(newEntry(key, TransactionTypeSale, "1", "1", t0), t0, AppendOptions{AllowNegative: true})
		require.NoError(t, err)
		assert.True(t, dec("-1").Equal(tx.StockLevelAfter))
	})

	t.Run("entry for another key is rejected", func(t *testing.T) {
		b := NewStockBalance(key, t0)
		other := Key{ProductID: uuid.New(), WarehouseID: key.WarehouseID}
		_, err := b.Append(newEntry(other, TransactionTypePurchase, "1", "1", t0), t0, AppendOptions{})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("zero quantity is invalid", func(t *testing.T) {
		b := NewStockBalance(key, t0)
		_, err := b.Append(newEntry(key, TransactionTypePurchase, "0", "1", t0), t0, AppendOptions{})
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})
}
