package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSupplierLookup implements catalog.SupplierLookup over the suppliers table
type GormSupplierLookup struct {
	db *gorm.DB
}

// NewGormSupplierLookup creates a new GormSupplierLookup
func NewGormSupplierLookup(db *gorm.DB) *GormSupplierLookup {
	return &GormSupplierLookup{db: db}
}

// Exists reports whether the supplier exists
func (r *GormSupplierLookup) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, &models.SupplierModel{}, id)
}

// Get finds a supplier by its ID
func (r *GormSupplierLookup) Get(ctx context.Context, id uuid.UUID) (*catalog.Supplier, error) {
	var m models.SupplierModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// Upsert writes supplier master data, replacing an existing row with the same ID
func (r *GormSupplierLookup) Upsert(ctx context.Context, s *catalog.Supplier) error {
	m := &models.SupplierModel{Name: s.Name, IsActive: s.IsActive}
	m.ID = s.ID
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "is_active", "updated_at"}),
		}).
		Create(m).Error)
}

// Ensure GormSupplierLookup implements catalog.SupplierLookup
var _ catalog.SupplierLookup = (*GormSupplierLookup)(nil)
