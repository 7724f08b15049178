package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/stockledger/internal/domain/purchasing"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseOrderRepository implements purchasing.Repository using GORM.
// The header row carries the aggregate version; lines, history and
// attachments are written alongside it.
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindByID finds a purchase order by its ID
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	return r.load(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate finds a purchase order and locks its header row
func (r *GormPurchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	return r.load(ctx, r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

// FindByOrderNumber finds a purchase order by its order number
func (r *GormPurchaseOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*purchasing.PurchaseOrder, error) {
	return r.load(ctx, r.db.WithContext(ctx).Where("order_number = ?", orderNumber))
}

// FindAll lists order headers with filtering and pagination
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]purchasing.PurchaseOrder, int64, error) {
	var total int64
	if err := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	var ms []models.PurchaseOrderModel
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}), filter).
		Find(&ms).Error; err != nil {
		return nil, 0, translateError(err)
	}
	orders := make([]purchasing.PurchaseOrder, len(ms))
	for i := range ms {
		orders[i] = *ms[i].ToDomain()
	}
	return orders, total, nil
}

// Create inserts the header and all children
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, order *purchasing.PurchaseOrder) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(models.PurchaseOrderModelFromDomain(order)).Error; err != nil {
		return translateError(err)
	}
	if err := r.upsertLines(db, order); err != nil {
		return err
	}
	if err := r.appendHistory(db, order); err != nil {
		return err
	}
	return r.appendAttachments(db, order)
}

// Update writes the header with a version check, syncs lines and appends new
// history and attachment rows. On success order.Version is bumped.
func (r *GormPurchaseOrderRepository) Update(ctx context.Context, order *purchasing.PurchaseOrder) error {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.PurchaseOrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"supplier_id":            order.SupplierID,
			"warehouse_id":           order.WarehouseID,
			"order_date":             order.OrderDate,
			"expected_delivery_date": order.ExpectedDeliveryDate,
			"actual_delivery_date":   order.ActualDeliveryDate,
			"status":                 order.Status,
			"subtotal":               order.Subtotal,
			"tax_amount":             order.TaxAmount,
			"discount_amount":        order.DiscountAmount,
			"shipping_cost":          order.ShippingCost,
			"total":                  order.Total,
			"reference_number":       order.ReferenceNumber,
			"shipping_address":       order.ShippingAddress,
			"billing_address":        order.BillingAddress,
			"notes":                  order.Notes,
			"terms":                  order.Terms,
			"updated_by":             order.UpdatedBy,
			"version":                order.Version + 1,
			"updated_at":             order.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("purchase order %s was modified by another transaction", order.OrderNumber)
	}

	if err := r.upsertLines(db, order); err != nil {
		return err
	}
	if err := r.appendHistory(db, order); err != nil {
		return err
	}
	if err := r.appendAttachments(db, order); err != nil {
		return err
	}
	order.IncrementVersion()
	return nil
}

// GenerateOrderNumber generates the next order number for year.
// Format: PREFIX-YYYY-NNNNN (e.g., PO-2026-00001). The sequence widens past
// five digits, so the latest number is found by length before text.
func (r *GormPurchaseOrderRepository) GenerateOrderNumber(ctx context.Context, prefix string, year int) (string, error) {
	base := fmt.Sprintf("%s-%04d-", prefix, year)

	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where(`order_number LIKE ? ESCAPE '\'`, likePrefix(base)).
		Order("LENGTH(order_number) DESC, order_number DESC").
		Limit(1).
		Pluck("order_number", &numbers).Error; err != nil {
		return "", translateError(err)
	}

	var next int64 = 1
	if len(numbers) == 1 && strings.HasPrefix(numbers[0], base) {
		if last, err := strconv.ParseInt(strings.TrimPrefix(numbers[0], base), 10, 64); err == nil {
			next = last + 1
		}
	}
	return fmt.Sprintf("%s%05d", base, next), nil
}

// likePrefix escapes LIKE wildcards in s and appends a trailing %
func likePrefix(s string) string {
	return likeEscaper.Replace(s) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *GormPurchaseOrderRepository) load(ctx context.Context, query *gorm.DB) (*purchasing.PurchaseOrder, error) {
	var header models.PurchaseOrderModel
	if err := query.First(&header).Error; err != nil {
		return nil, translateError(err)
	}

	db := r.db.WithContext(ctx)
	var lines []models.PurchaseOrderLineModel
	if err := db.Where("order_id = ?", header.ID).
		Order("position ASC").Find(&lines).Error; err != nil {
		return nil, translateError(err)
	}
	var history []models.PurchaseOrderStatusHistoryModel
	if err := db.Where("order_id = ?", header.ID).
		Order("position ASC").Find(&history).Error; err != nil {
		return nil, translateError(err)
	}
	var attachments []models.PurchaseOrderAttachmentModel
	if err := db.Where("order_id = ?", header.ID).
		Order("uploaded_at ASC").Order("id ASC").Find(&attachments).Error; err != nil {
		return nil, translateError(err)
	}
	return models.AssemblePurchaseOrder(&header, lines, history, attachments), nil
}

// upsertLines writes every current line and deletes stored lines the order no longer has
func (r *GormPurchaseOrderRepository) upsertLines(db *gorm.DB, order *purchasing.PurchaseOrder) error {
	keep := make([]uuid.UUID, 0, len(order.Lines))
	if len(order.Lines) > 0 {
		rows := make([]*models.PurchaseOrderLineModel, len(order.Lines))
		for i := range order.Lines {
			rows[i] = models.PurchaseOrderLineModelFromDomain(order.ID, &order.Lines[i])
			keep = append(keep, order.Lines[i].ID)
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&rows).Error; err != nil {
			return translateError(err)
		}
	}

	stale := db.Where("order_id = ?", order.ID)
	if len(keep) > 0 {
		stale = stale.Where("id NOT IN ?", keep)
	}
	return translateError(stale.Delete(&models.PurchaseOrderLineModel{}).Error)
}

// appendHistory inserts history entries that are not stored yet. The slice
// index is the entry's position.
func (r *GormPurchaseOrderRepository) appendHistory(db *gorm.DB, order *purchasing.PurchaseOrder) error {
	var stored []uuid.UUID
	if err := db.Model(&models.PurchaseOrderStatusHistoryModel{}).
		Where("order_id = ?", order.ID).
		Pluck("id", &stored).Error; err != nil {
		return translateError(err)
	}
	known := idSet(stored)

	var rows []*models.PurchaseOrderStatusHistoryModel
	for i := range order.History {
		if _, ok := known[order.History[i].ID]; ok {
			continue
		}
		rows = append(rows, models.PurchaseOrderStatusHistoryModelFromDomain(order.ID, i, &order.History[i]))
	}
	if len(rows) == 0 {
		return nil
	}
	return translateError(db.Create(&rows).Error)
}

func (r *GormPurchaseOrderRepository) appendAttachments(db *gorm.DB, order *purchasing.PurchaseOrder) error {
	var stored []uuid.UUID
	if err := db.Model(&models.PurchaseOrderAttachmentModel{}).
		Where("order_id = ?", order.ID).
		Pluck("id", &stored).Error; err != nil {
		return translateError(err)
	}
	known := idSet(stored)

	var rows []*models.PurchaseOrderAttachmentModel
	for i := range order.Attachments {
		if _, ok := known[order.Attachments[i].ID]; ok {
			continue
		}
		rows = append(rows, models.PurchaseOrderAttachmentModelFromDomain(order.ID, &order.Attachments[i]))
	}
	if len(rows) == 0 {
		return nil
	}
	return translateError(db.Create(&rows).Error)
}

// applyFilter applies filtering, ordering and pagination
func (r *GormPurchaseOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	query = query.Order(purchaseOrderSortColumns.orderClause(filter.OrderBy, filter.OrderDir, "created_at")).
		Order("order_number DESC")

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// applyFilterWithoutPagination applies only filtering, used for counting
func (r *GormPurchaseOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(reference_number) LIKE ?", pattern, pattern)
	}
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		case "warehouse_id":
			query = query.Where("warehouse_id = ?", value)
		}
	}
	return query
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Ensure GormPurchaseOrderRepository implements purchasing.Repository
var _ purchasing.Repository = (*GormPurchaseOrderRepository)(nil)
