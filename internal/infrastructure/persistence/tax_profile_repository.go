package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaxProfileLookup implements catalog.TaxProfileLookup over the tax_profiles table
type GormTaxProfileLookup struct {
	db *gorm.DB
}

// NewGormTaxProfileLookup creates a new GormTaxProfileLookup
func NewGormTaxProfileLookup(db *gorm.DB) *GormTaxProfileLookup {
	return &GormTaxProfileLookup{db: db}
}

// Exists reports whether the tax profile exists
func (r *GormTaxProfileLookup) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, &models.TaxProfileModel{}, id)
}

// Get finds a tax profile by its ID
func (r *GormTaxProfileLookup) Get(ctx context.Context, id uuid.UUID) (*catalog.TaxProfile, error) {
	var m models.TaxProfileModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// Upsert writes tax profile master data, replacing an existing row with the same ID
func (r *GormTaxProfileLookup) Upsert(ctx context.Context, p *catalog.TaxProfile) error {
	m := &models.TaxProfileModel{Name: p.Name, Rate: p.Rate, IsActive: p.IsActive}
	m.ID = p.ID
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "rate", "is_active", "updated_at"}),
		}).
		Create(m).Error)
}

// Ensure GormTaxProfileLookup implements catalog.TaxProfileLookup
var _ catalog.TaxProfileLookup = (*GormTaxProfileLookup)(nil)
