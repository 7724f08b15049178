package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/purchasing"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, db *Database, number string, supplierID uuid.UUID) *purchasing.PurchaseOrder {
	t.Helper()
	order, err := purchasing.NewPurchaseOrder(number, purchasing.Header{SupplierID: supplierID, OrderDate: t0}, "alice", t0)
	require.NoError(t, err)
	_, err = order.AddLine(purchasing.LineInput{
		ProductID:  seedProduct(t, db, "Widget"),
		Quantity:   dec("10"),
		UnitPrice:  dec("12.50"),
		TaxPercent: dec("10"),
	}, "alice", t0)
	require.NoError(t, err)
	require.NoError(t, NewGormPurchaseOrderRepository(db.DB).Create(context.Background(), order))
	return order
}

func TestGormPurchaseOrderRepository_CreateAndLoad(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPurchaseOrderRepository(db.DB)
	ctx := context.Background()

	order := newTestOrder(t, db, "PO-2024-00001", seedSupplier(t, db))

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "PO-2024-00001", loaded.OrderNumber)
	assert.Equal(t, purchasing.StatusDraft, loaded.Status)
	require.Len(t, loaded.Lines, 1)
	assert.True(t, dec("137.5").Equal(loaded.Lines[0].LineTotal))
	assert.True(t, dec("137.5").Equal(loaded.Total))
	require.Len(t, loaded.History, 1)
	assert.Equal(t, purchasing.StatusDraft, loaded.History[0].Status)

	byNumber, err := repo.FindByOrderNumber(ctx, "PO-2024-00001")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormPurchaseOrderRepository_UpdateSyncsChildren(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPurchaseOrderRepository(db.DB)
	ctx := context.Background()

	order := newTestOrder(t, db, "PO-2024-00001", seedSupplier(t, db))
	first := order.Lines[0].ID

	now := t0.Add(time.Hour)
	second, err := order.AddLine(purchasing.LineInput{
		ProductID: seedProduct(t, db, "Gadget"),
		Quantity:  dec("4"),
		UnitPrice: dec("3"),
	}, "bob", now)
	require.NoError(t, err)
	secondID := second.ID
	require.NoError(t, order.RemoveLine(first, "bob", now))
	_, err = order.AddAttachment(purchasing.AttachmentInput{FileName: "quote.pdf", SizeBytes: 1024}, "bob", now)
	require.NoError(t, err)
	require.NoError(t, order.TransitionTo(purchasing.StatusPendingApproval, "bob", "ready", now))
	require.NoError(t, repo.Update(ctx, order))
	assert.Equal(t, 2, order.Version)

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 1)
	assert.Equal(t, secondID, loaded.Lines[0].ID)
	require.Len(t, loaded.Attachments, 1)
	assert.Equal(t, "quote.pdf", loaded.Attachments[0].FileName)
	require.Len(t, loaded.History, 2)
	assert.Equal(t, purchasing.StatusPendingApproval, loaded.History[1].Status)
	assert.Equal(t, purchasing.StatusPendingApproval, loaded.Status)
	assert.True(t, dec("12").Equal(loaded.Total))
	assert.Equal(t, "bob", loaded.UpdatedBy)
}

func TestGormPurchaseOrderRepository_StaleUpdate(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPurchaseOrderRepository(db.DB)
	ctx := context.Background()

	order := newTestOrder(t, db, "PO-2024-00001", seedSupplier(t, db))
	a, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, a.Cancel("alice", "duplicate", t0))
	require.NoError(t, repo.Update(ctx, a))

	require.NoError(t, b.TransitionTo(purchasing.StatusPendingApproval, "bob", "", t0))
	err = repo.Update(ctx, b)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, purchasing.StatusCancelled, loaded.Status)
	assert.Len(t, loaded.History, 2)
}

func TestGormPurchaseOrderRepository_GenerateOrderNumber(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPurchaseOrderRepository(db.DB)
	ctx := context.Background()

	number, err := repo.GenerateOrderNumber(ctx, "PO", 2024)
	require.NoError(t, err)
	assert.Equal(t, "PO-2024-00001", number)

	supplier := seedSupplier(t, db)
	newTestOrder(t, db, "PO-2024-00009", supplier)
	newTestOrder(t, db, "PO-2023-00042", supplier)

	number, err = repo.GenerateOrderNumber(ctx, "PO", 2024)
	require.NoError(t, err)
	assert.Equal(t, "PO-2024-00010", number)

	number, err = repo.GenerateOrderNumber(ctx, "RQ", 2024)
	require.NoError(t, err)
	assert.Equal(t, "RQ-2024-00001", number)
}

func TestGormPurchaseOrderRepository_GenerateOrderNumberPastFiveDigits(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPurchaseOrderRepository(db.DB)
	ctx := context.Background()

	supplier := seedSupplier(t, db)
	newTestOrder(t, db, "PO-2024-99999", supplier)
	newTestOrder(t, db, "PO-2024-100000", supplier)

	number, err := repo.GenerateOrderNumber(ctx, "PO", 2024)
	require.NoError(t, err)
	assert.Equal(t, "PO-2024-100001", number)
}

func TestGormPurchaseOrderRepository_GenerateOrderNumberEscapesWildcards(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPurchaseOrderRepository(db.DB)
	ctx := context.Background()

	supplier := seedSupplier(t, db)
	newTestOrder(t, db, "PX-2024-00050", supplier)
	newTestOrder(t, db, "P_-2024-00007", supplier)

	number, err := repo.GenerateOrderNumber(ctx, "P_", 2024)
	require.NoError(t, err)
	assert.Equal(t, "P_-2024-00008", number)

	number, err = repo.GenerateOrderNumber(ctx, "PX", 2024)
	require.NoError(t, err)
	assert.Equal(t, "PX-2024-00051", number)
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, `PO-2024-%`, likePrefix("PO-2024-"))
	assert.Equal(t, `P\_\%\\-%`, likePrefix(`P_%\-`))
}

func TestGormPurchaseOrderRepository_FindAll(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPurchaseOrderRepository(db.DB)
	ctx := context.Background()

	acme, other := seedSupplier(t, db), seedSupplier(t, db)
	newTestOrder(t, db, "PO-2024-00001", acme)
	newTestOrder(t, db, "PO-2024-00002", acme)
	cancelled := newTestOrder(t, db, "PO-2024-00003", other)
	require.NoError(t, cancelled.Cancel("alice", "", t0))
	require.NoError(t, repo.Update(ctx, cancelled))

	filter := shared.DefaultFilter()
	filter.OrderBy = "order_number"
	filter.OrderDir = "asc"
	filter.PageSize = 2
	orders, total, err := repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, orders, 2)
	assert.Equal(t, "PO-2024-00001", orders[0].OrderNumber)
	assert.Empty(t, orders[0].Lines, "list rows carry headers only")

	filter = shared.DefaultFilter()
	filter.Filters["supplier_id"] = acme
	_, total, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	filter = shared.DefaultFilter()
	filter.Filters["status"] = purchasing.StatusCancelled
	orders, total, err = repo.FindAll(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, cancelled.ID, orders[0].ID)
}
