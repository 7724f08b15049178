package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductLookup implements catalog.ProductLookup over the products table
type GormProductLookup struct {
	db *gorm.DB
}

// NewGormProductLookup creates a new GormProductLookup
func NewGormProductLookup(db *gorm.DB) *GormProductLookup {
	return &GormProductLookup{db: db}
}

// Exists reports whether the product exists
func (r *GormProductLookup) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, &models.ProductModel{}, id)
}

// Get finds a product by its ID
func (r *GormProductLookup) Get(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var m models.ProductModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// Upsert writes product master data, replacing an existing row with the same ID
func (r *GormProductLookup) Upsert(ctx context.Context, p *catalog.Product) error {
	m := &models.ProductModel{Name: p.Name, SKU: p.SKU, IsActive: p.IsActive}
	m.ID = p.ID
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "sku", "is_active", "updated_at"}),
		}).
		Create(m).Error)
}

// exists checks for a row with the given primary key in model's table
func exists(ctx context.Context, db *gorm.DB, model any, id uuid.UUID) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Ensure GormProductLookup implements catalog.ProductLookup
var _ catalog.ProductLookup = (*GormProductLookup)(nil)
