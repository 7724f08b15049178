package persistence

import (
	"context"
	"sort"
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// quantityScale matches the decimal(18,4) quantity columns. Aggregates are
// rounded to it because SQLite sums NUMERIC columns as floating point.
const quantityScale = 4

// GormLedgerRepository implements ledger.Repository using GORM
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// LockBalance returns the balance row for key, creating an empty one on
// first use, and holds a row lock on it until the transaction ends.
func (r *GormLedgerRepository) LockBalance(ctx context.Context, key ledger.Key, now time.Time) (*ledger.StockBalance, error) {
	fresh := models.StockBalanceModelFromDomain(ledger.NewStockBalance(key, now))
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "warehouse_id"}},
			DoNothing: true,
		}).
		Create(fresh).Error; err != nil {
		return nil, translateError(err)
	}

	var m models.StockBalanceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND warehouse_id = ?", key.ProductID, key.WarehouseID).
		First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// SaveBalance writes b if the stored version still matches, then bumps b.Version
func (r *GormLedgerRepository) SaveBalance(ctx context.Context, b *ledger.StockBalance) error {
	result := r.db.WithContext(ctx).
		Model(&models.StockBalanceModel{}).
		Where("product_id = ? AND warehouse_id = ? AND version = ?", b.ProductID, b.WarehouseID, b.Version).
		Updates(map[string]any{
			"quantity":              b.Quantity,
			"last_sequence":         b.LastSequence,
			"last_transaction_date": b.LastTransactionDate,
			"version":               b.Version + 1,
			"updated_at":            b.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("stock balance %s was modified by another transaction", b.Key())
	}
	b.Version++
	return nil
}

// Append inserts a ledger row. A duplicate sequence for the key surfaces as
// ErrConcurrencyConflict.
func (r *GormLedgerRepository) Append(ctx context.Context, tx *ledger.StockTransaction) error {
	return translateError(r.db.WithContext(ctx).Create(models.StockTransactionModelFromDomain(tx)).Error)
}

// FindBalance returns the balance snapshot for key
func (r *GormLedgerRepository) FindBalance(ctx context.Context, key ledger.Key) (*ledger.StockBalance, error) {
	var m models.StockBalanceModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", key.ProductID, key.WarehouseID).
		First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// SumBalances totals the balance snapshots of a product across warehouses
func (r *GormLedgerRepository) SumBalances(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(r.db.WithContext(ctx).Model(&models.StockBalanceModel{}).
		Where("product_id = ?", productID), "quantity")
}

// FindByKey returns the ledger of one product in one warehouse in ledger order
func (r *GormLedgerRepository) FindByKey(ctx context.Context, key ledger.Key) ([]ledger.StockTransaction, error) {
	return r.find(r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", key.ProductID, key.WarehouseID))
}

// FindByProduct returns a product's ledger rows across warehouses
func (r *GormLedgerRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]ledger.StockTransaction, error) {
	return r.find(r.db.WithContext(ctx).Where("product_id = ?", productID))
}

// FindByReference returns every ledger row carrying reference
func (r *GormLedgerRepository) FindByReference(ctx context.Context, reference string) ([]ledger.StockTransaction, error) {
	return r.find(r.db.WithContext(ctx).Where("reference = ?", reference))
}

// SumQuantityByType totals the unsigned quantities of one transaction type
func (r *GormLedgerRepository) SumQuantityByType(ctx context.Context, productID uuid.UUID, txType ledger.TransactionType) (decimal.Decimal, error) {
	return r.sum(r.db.WithContext(ctx).Model(&models.StockTransactionModel{}).
		Where("product_id = ? AND type = ?", productID, txType), "quantity")
}

// FindAmountLines returns quantity and unit price of the matching rows.
// start is inclusive and end exclusive; nil leaves that side open.
func (r *GormLedgerRepository) FindAmountLines(ctx context.Context, productID uuid.UUID, txType ledger.TransactionType, start, end *time.Time) ([]ledger.AmountLine, error) {
	query := r.db.WithContext(ctx).Model(&models.StockTransactionModel{}).
		Select("quantity", "unit_price").
		Where("product_id = ? AND type = ?", productID, txType)
	if start != nil {
		query = query.Where("transaction_date >= ?", *start)
	}
	if end != nil {
		query = query.Where("transaction_date < ?", *end)
	}

	var rows []models.StockTransactionModel
	if err := query.Order("transaction_date ASC").Order("sequence ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	lines := make([]ledger.AmountLine, len(rows))
	for i := range rows {
		lines[i] = ledger.AmountLine{Quantity: rows[i].Quantity, UnitPrice: rows[i].UnitPrice}
	}
	return lines, nil
}

// ExistsForWarehouse reports whether any ledger row references the warehouse
func (r *GormLedgerRepository) ExistsForWarehouse(ctx context.Context, warehouseID uuid.UUID) (bool, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.StockTransactionModel{}).
		Where("warehouse_id = ?", warehouseID).
		Limit(1).
		Pluck("id", &ids).Error; err != nil {
		return false, translateError(err)
	}
	return len(ids) > 0, nil
}

// ListKeys returns every (product, warehouse) pair with a balance or a
// ledger row, sorted by product then warehouse.
func (r *GormLedgerRepository) ListKeys(ctx context.Context) ([]ledger.Key, error) {
	type keyRow struct {
		ProductID   uuid.UUID
		WarehouseID uuid.UUID
	}
	var balances, transactions []keyRow
	if err := r.db.WithContext(ctx).Model(&models.StockBalanceModel{}).
		Select("product_id", "warehouse_id").
		Scan(&balances).Error; err != nil {
		return nil, translateError(err)
	}
	if err := r.db.WithContext(ctx).Model(&models.StockTransactionModel{}).
		Distinct("product_id", "warehouse_id").
		Scan(&transactions).Error; err != nil {
		return nil, translateError(err)
	}

	seen := make(map[ledger.Key]struct{}, len(balances))
	keys := make([]ledger.Key, 0, len(balances))
	for _, row := range append(balances, transactions...) {
		k := ledger.Key{ProductID: row.ProductID, WarehouseID: row.WarehouseID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ProductID != keys[j].ProductID {
			return keys[i].ProductID.String() < keys[j].ProductID.String()
		}
		return keys[i].WarehouseID.String() < keys[j].WarehouseID.String()
	})
	return keys, nil
}

func (r *GormLedgerRepository) find(query *gorm.DB) ([]ledger.StockTransaction, error) {
	var ms []models.StockTransactionModel
	if err := query.
		Order("transaction_date ASC").Order("sequence ASC").Order("id ASC").
		Find(&ms).Error; err != nil {
		return nil, translateError(err)
	}
	return models.StockTransactionsToDomain(ms), nil
}

func (r *GormLedgerRepository) sum(query *gorm.DB, column string) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := query.Select("COALESCE(SUM(" + column + "), 0) AS total").Scan(&result).Error; err != nil {
		return decimal.Zero, translateError(err)
	}
	return result.Total.Round(quantityScale), nil
}

// Ensure GormLedgerRepository implements ledger.Repository
var _ ledger.Repository = (*GormLedgerRepository)(nil)
