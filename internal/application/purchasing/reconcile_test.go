package purchasing

import (
	"context"
	"testing"

	ledgerapp "github.com/erp/stockledger/internal/application/ledger"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// receiveAll places a one-line order of qty and receives all of it
func (f *fixture) receiveAll(t *testing.T, qty string) *PurchaseOrderResponse {
	t.Helper()
	o := f.createOrder(t, nil)
	o = f.addLine(t, o.ID, qty, "4", "0", dec("0"))
	f.placeOrder(t, o.ID)
	result, err := f.service.Receive(context.Background(), o.ID, ReceiveRequest{
		LineID:   o.Lines[0].ID,
		Quantity: testutil.Dec(qty),
		Actor:    "clerk",
	})
	require.NoError(t, err)
	return &result.Order
}

// withPolicy returns a second service over the fixture's store
func (f *fixture) withPolicy(t *testing.T, p Policy) *PurchaseOrderService {
	return NewPurchaseOrderService(f.db.Store(),
		persistence.NewGormSupplierLookup(f.db.DB),
		persistence.NewGormProductLookup(f.db.DB),
		f.taxes, f.ledger,
		WithClock(f.clock), WithLogger(zaptest.NewLogger(t)), WithPolicy(p))
}

func TestPurchaseOrderService_ReconcileReceipts(t *testing.T) {
	ctx := context.Background()

	t.Run("received orders match the ledger", func(t *testing.T) {
		f := newFixture(t)
		f.receiveAll(t, "5")
		f.createOrder(t, nil)

		result, err := f.service.ReconcileReceipts(ctx, "audit")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Orders, "drafts hold no receipts")
		assert.Empty(t, result.Discrepancies)
		assert.Empty(t, result.Completed, "completion is manual by default")
	})

	t.Run("auto complete policy completes fully received orders", func(t *testing.T) {
		f := newFixture(t)
		o := f.receiveAll(t, "5")
		require.Equal(t, "PARTIALLY_RECEIVED", o.Status)

		result, err := f.withPolicy(t, Policy{AutoComplete: true}).ReconcileReceipts(ctx, "audit")
		require.NoError(t, err)
		assert.Equal(t, []string{o.OrderNumber}, result.Completed)

		reloaded, err := f.service.Get(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "COMPLETED", reloaded.Status)

		again, err := f.service.ReconcileReceipts(ctx, "audit")
		require.NoError(t, err)
		assert.Empty(t, again.Discrepancies)
	})

	t.Run("stray purchase under an order number is reported", func(t *testing.T) {
		f := newFixture(t)
		o := f.receiveAll(t, "5")
		_, err := f.ledger.Record(ctx, ledgerapp.RecordTransactionRequest{
			ProductID:       f.product.ID,
			WarehouseID:     f.primary,
			Type:            "PURCHASE",
			Quantity:        testutil.Dec("2"),
			UnitPrice:       testutil.Dec("4"),
			TransactionDate: testutil.Epoch,
			Reference:       o.OrderNumber,
		})
		require.NoError(t, err)

		result, err := f.withPolicy(t, Policy{AutoComplete: true}).ReconcileReceipts(ctx, "audit")
		require.NoError(t, err)
		require.Len(t, result.Discrepancies, 1)
		d := result.Discrepancies[0]
		assert.Equal(t, o.OrderNumber, d.OrderNumber)
		assert.Equal(t, f.product.ID, d.ProductID)
		assert.True(t, testutil.Dec("5").Equal(d.Received))
		assert.True(t, testutil.Dec("7").Equal(d.Posted))
		assert.Empty(t, result.Completed, "orders that do not reconcile stay open")
	})
}
