package integration

import (
	"context"
	"testing"

	ledgerapp "github.com/erp/stockledger/internal/application/ledger"
	purchasingapp "github.com/erp/stockledger/internal/application/purchasing"
	taxapp "github.com/erp/stockledger/internal/application/taxation"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/lock"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchasing_ReceiptPostsToLedger(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()
	store := tdb.Store()
	products := persistence.NewGormProductLookup(tdb.DB)
	clock := shared.NewFixedClock(testutil.Epoch)

	supplier := testutil.SeedSupplier(t, tdb.Database, "Acme Supply")
	product := testutil.SeedProduct(t, tdb.Database, "Widget")
	profile := testutil.SeedTaxProfile(t, tdb.Database, "Standard", "20")
	primary := seedWarehouse(t, tdb, "Main", true)

	ledger := ledgerapp.NewService(store, products, ledgerapp.WithClock(clock), ledgerapp.WithLocker(lock.NewMemoryLocker()))
	taxes := taxapp.NewService(store, products, persistence.NewGormTaxProfileLookup(tdb.DB), taxapp.WithClock(clock))
	orders := purchasingapp.NewPurchaseOrderService(store, persistence.NewGormSupplierLookup(tdb.DB), products, taxes, ledger,
		purchasingapp.WithClock(clock),
		purchasingapp.WithPolicy(purchasingapp.Policy{AutoComplete: true}))

	_, err := taxes.Assign(ctx, taxapp.AssignTaxProfileRequest{ProductID: product.ID, TaxProfileID: profile.ID, IsPrimary: true})
	require.NoError(t, err)

	order, err := orders.Create(ctx, purchasingapp.CreatePurchaseOrderRequest{SupplierID: supplier.ID})
	require.NoError(t, err)
	order, err = orders.AddLine(ctx, order.ID, purchasingapp.LineRequest{
		ProductID:       product.ID,
		Quantity:        testutil.Dec("8"),
		UnitPrice:       testutil.Dec("3.3333"),
		DiscountPercent: testutil.Dec("5"),
	})
	require.NoError(t, err)
	assert.True(t, testutil.Dec("20").Equal(order.Lines[0].TaxPercent))

	for _, target := range []string{"PENDING_APPROVAL", "APPROVED", "ORDERED"} {
		_, err := orders.Transition(ctx, order.ID, purchasingapp.TransitionRequest{Target: target})
		require.NoError(t, err)
	}

	lineID := order.Lines[0].ID
	_, err = orders.Receive(ctx, order.ID, purchasingapp.ReceiveRequest{LineID: lineID, Quantity: testutil.Dec("3")})
	require.NoError(t, err)
	_, err = orders.Receive(ctx, order.ID, purchasingapp.ReceiveRequest{LineID: lineID, Quantity: testutil.Dec("6")})
	assert.ErrorIs(t, err, shared.ErrOverReceipt)
	result, err := orders.Receive(ctx, order.ID, purchasingapp.ReceiveRequest{LineID: lineID, Quantity: testutil.Dec("5")})
	require.NoError(t, err)

	assert.Equal(t, "COMPLETED", result.Order.Status)
	assert.Equal(t, primary, result.WarehouseID)

	stock, err := ledger.CurrentStockInWarehouse(ctx, product.ID, primary)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("8").Equal(stock))

	entries, err := ledger.ListByReference(ctx, order.OrderNumber)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// 8 * 3.3333 * 0.95 / 8
	assert.True(t, testutil.Dec("3.1667").Equal(entries[0].UnitPrice), "got %s", entries[0].UnitPrice)

	avg, err := ledger.AverageUnitCost(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Dec("3.1667").Equal(avg))
}
