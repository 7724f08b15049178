package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, repo *GormLedgerRepository, key ledger.Key, txType ledger.TransactionType, qty, price string, at time.Time, ref string) *ledger.StockTransaction {
	t.Helper()
	ctx := context.Background()
	b, err := repo.LockBalance(ctx, key, at)
	require.NoError(t, err)
	tx, err := b.Append(ledger.Entry{
		ProductID:       key.ProductID,
		WarehouseID:     key.WarehouseID,
		Type:            txType,
		Quantity:        dec(qty),
		UnitPrice:       dec(price),
		TransactionDate: at,
		Reference:       ref,
	}, at, ledger.AppendOptions{AllowNegative: true})
	require.NoError(t, err)
	require.NoError(t, repo.SaveBalance(ctx, b))
	require.NoError(t, repo.Append(ctx, tx))
	return tx
}

func TestGormLedgerRepository_LockBalance(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormLedgerRepository(db.DB)
	ctx := context.Background()
	key := ledger.Key{ProductID: uuid.New(), WarehouseID: uuid.New()}

	_, err := repo.FindBalance(ctx, key)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	b, err := repo.LockBalance(ctx, key, t0)
	require.NoError(t, err)
	assert.True(t, b.Quantity.IsZero())
	assert.Equal(t, 1, b.Version)
	assert.Nil(t, b.LastTransactionDate)
	assert.True(t, t0.Equal(b.UpdatedAt), "new row is stamped with the caller's time")

	again, err := repo.LockBalance(ctx, key, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, b.Version, again.Version, "existing row is reused")
	assert.True(t, t0.Equal(again.UpdatedAt), "existing row keeps its timestamp")
}

func TestGormLedgerRepository_SaveBalanceCompareAndSet(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormLedgerRepository(db.DB)
	ctx := context.Background()
	key := ledger.Key{ProductID: uuid.New(), WarehouseID: uuid.New()}

	post(t, repo, key, ledger.TransactionTypePurchase, "10", "2", t0, "")

	stale, err := repo.FindBalance(ctx, key)
	require.NoError(t, err)
	post(t, repo, key, ledger.TransactionTypeSale, "3", "5", t0.Add(time.Hour), "")

	stale.Quantity = dec("99")
	err = repo.SaveBalance(ctx, stale)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

	head, err := repo.FindBalance(ctx, key)
	require.NoError(t, err)
	assert.True(t, dec("7").Equal(head.Quantity))
	assert.Equal(t, int64(2), head.LastSequence)
	assert.Equal(t, 3, head.Version)
}

func TestGormLedgerRepository_DuplicateSequence(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormLedgerRepository(db.DB)
	key := ledger.Key{ProductID: uuid.New(), WarehouseID: uuid.New()}

	tx := post(t, repo, key, ledger.TransactionTypePurchase, "1", "1", t0, "")
	clash := *tx
	clash.ID = uuid.New()

	err := repo.Append(context.Background(), &clash)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict), "got %v", err)
}

func TestGormLedgerRepository_Queries(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormLedgerRepository(db.DB)
	ctx := context.Background()

	product := uuid.New()
	w1, w2 := uuid.New(), uuid.New()
	k1 := ledger.Key{ProductID: product, WarehouseID: w1}
	k2 := ledger.Key{ProductID: product, WarehouseID: w2}

	post(t, repo, k1, ledger.TransactionTypePurchase, "100", "10", t0, "PO-2024-00001")
	post(t, repo, k2, ledger.TransactionTypePurchase, "50", "12", t0.Add(time.Hour), "PO-2024-00001")
	post(t, repo, k1, ledger.TransactionTypeSale, "30", "15", t0.AddDate(0, 0, 1), "SO-1")
	post(t, repo, k1, ledger.TransactionTypeSale, "2.5", "4", t0.AddDate(0, 0, 3), "SO-2")

	total, err := repo.SumBalances(ctx, product)
	require.NoError(t, err)
	assert.True(t, dec("117.5").Equal(total), "got %s", total)

	sold, err := repo.SumQuantityByType(ctx, product, ledger.TransactionTypeSale)
	require.NoError(t, err)
	assert.True(t, dec("32.5").Equal(sold), "got %s", sold)

	none, err := repo.SumQuantityByType(ctx, uuid.New(), ledger.TransactionTypeSale)
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	purchases, err := repo.FindAmountLines(ctx, product, ledger.TransactionTypePurchase, nil, nil)
	require.NoError(t, err)
	assert.True(t, dec("10.6667").Equal(ledger.WeightedAverageUnitCost(purchases)))

	start, end := ledger.DayRange(t0.AddDate(0, 0, 1), t0.AddDate(0, 0, 1))
	window, err := repo.FindAmountLines(ctx, product, ledger.TransactionTypeSale, &start, &end)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.True(t, dec("450").Equal(ledger.TotalAmount(window)))

	byKey, err := repo.FindByKey(ctx, k1)
	require.NoError(t, err)
	require.Len(t, byKey, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{byKey[0].Sequence, byKey[1].Sequence, byKey[2].Sequence})
	_, mismatch := ledger.Replay(byKey)
	assert.Nil(t, mismatch)

	byRef, err := repo.FindByReference(ctx, "PO-2024-00001")
	require.NoError(t, err)
	assert.Len(t, byRef, 2)

	byProduct, err := repo.FindByProduct(ctx, product)
	require.NoError(t, err)
	assert.Len(t, byProduct, 4)

	has, err := repo.ExistsForWarehouse(ctx, w2)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = repo.ExistsForWarehouse(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, has)

	keys, err := repo.ListKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []ledger.Key{k1, k2}, keys)
}
