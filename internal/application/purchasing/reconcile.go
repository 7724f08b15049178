package purchasing

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/purchasing"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const reconcilePageSize = 100

// receivingStatuses are the states an order can hold receipts in
var receivingStatuses = []purchasing.Status{
	purchasing.StatusPartiallyReceived,
	purchasing.StatusCompleted,
	purchasing.StatusCancelled,
}

// ReceiptDiscrepancy is a product whose received quantity on an order differs
// from the Purchase entries posted under the order number
type ReceiptDiscrepancy struct {
	OrderID     uuid.UUID
	OrderNumber string
	ProductID   uuid.UUID
	Received    decimal.Decimal
	Posted      decimal.Decimal
}

// ReconcileResult summarizes a receipt reconciliation run
type ReconcileResult struct {
	Orders        int
	Discrepancies []ReceiptDiscrepancy
	// Completed lists orders moved to Completed because they were fully
	// received while the auto-complete policy is on
	Completed []string
}

// ReconcileReceipts checks every order that can hold receipts against the
// ledger. With the auto-complete policy on, fully received orders still left
// in PartiallyReceived are completed, provided they reconcile.
func (s *PurchaseOrderService) ReconcileReceipts(ctx context.Context, actor string) (*ReconcileResult, error) {
	ids, err := s.receivingOrderIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{Orders: len(ids)}
	for _, id := range ids {
		order, err := s.store.PurchaseOrders().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		entries, err := s.store.Ledger().FindByReference(ctx, order.OrderNumber)
		if err != nil {
			return nil, err
		}
		found := compareReceipts(order, entries)
		result.Discrepancies = append(result.Discrepancies, found...)

		if !s.policy.AutoComplete || len(found) > 0 ||
			order.Status != purchasing.StatusPartiallyReceived || !order.IsFullyReceived() {
			continue
		}
		if _, err := s.mutate(ctx, id, "completed by reconciliation", func(o *purchasing.PurchaseOrder, now time.Time) error {
			return o.TransitionTo(purchasing.StatusCompleted, actor, "fully received", now)
		}); err != nil {
			return nil, err
		}
		result.Completed = append(result.Completed, order.OrderNumber)
	}

	s.logger.Info("receipt reconciliation finished",
		zap.Int("orders", result.Orders),
		zap.Int("discrepancies", len(result.Discrepancies)),
		zap.Int("completed", len(result.Completed)))
	return result, nil
}

// receivingOrderIDs collects ids up front so completing an order does not
// shift the pages still to be read
func (s *PurchaseOrderService) receivingOrderIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, status := range receivingStatuses {
		filter := shared.DefaultFilter()
		filter.PageSize = reconcilePageSize
		filter.OrderDir = "asc"
		filter.Filters["status"] = status
		for {
			orders, total, err := s.store.PurchaseOrders().FindAll(ctx, filter)
			if err != nil {
				return nil, err
			}
			for i := range orders {
				ids = append(ids, orders[i].ID)
			}
			if len(orders) == 0 || int64(filter.Page*filter.PageSize) >= total {
				break
			}
			filter.Page++
		}
	}
	return ids, nil
}

// compareReceipts sums received quantity and posted Purchase quantity per
// product and returns the products where they differ
func compareReceipts(order *purchasing.PurchaseOrder, entries []ledger.StockTransaction) []ReceiptDiscrepancy {
	received := make(map[uuid.UUID]decimal.Decimal)
	var products []uuid.UUID
	track := func(id uuid.UUID) {
		if _, ok := received[id]; !ok {
			received[id] = decimal.Zero
			products = append(products, id)
		}
	}
	for i := range order.Lines {
		l := &order.Lines[i]
		track(l.ProductID)
		received[l.ProductID] = received[l.ProductID].Add(l.ReceivedQuantity)
	}

	posted := make(map[uuid.UUID]decimal.Decimal)
	for i := range entries {
		if entries[i].Type != ledger.TransactionTypePurchase {
			continue
		}
		track(entries[i].ProductID)
		posted[entries[i].ProductID] = posted[entries[i].ProductID].Add(entries[i].Quantity)
	}

	var out []ReceiptDiscrepancy
	for _, id := range products {
		if received[id].Equal(posted[id]) {
			continue
		}
		out = append(out, ReceiptDiscrepancy{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			ProductID:   id,
			Received:    received[id],
			Posted:      posted[id],
		})
	}
	return out
}
