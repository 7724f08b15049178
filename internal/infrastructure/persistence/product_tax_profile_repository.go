package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/taxation"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductTaxProfileRepository implements taxation.Repository using GORM
type GormProductTaxProfileRepository struct {
	db *gorm.DB
}

// NewGormProductTaxProfileRepository creates a new GormProductTaxProfileRepository
func NewGormProductTaxProfileRepository(db *gorm.DB) *GormProductTaxProfileRepository {
	return &GormProductTaxProfileRepository{db: db}
}

// FindByProduct returns a product's assignments, primary first
func (r *GormProductTaxProfileRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]taxation.Assignment, error) {
	return r.find(r.db.WithContext(ctx).Where("product_id = ?", productID))
}

// FindByProductForUpdate returns a product's assignments and locks them
func (r *GormProductTaxProfileRepository) FindByProductForUpdate(ctx context.Context, productID uuid.UUID) ([]taxation.Assignment, error) {
	return r.find(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID))
}

// FindByTaxProfile returns every assignment of a tax profile
func (r *GormProductTaxProfileRepository) FindByTaxProfile(ctx context.Context, taxProfileID uuid.UUID) ([]taxation.Assignment, error) {
	return r.find(r.db.WithContext(ctx).Where("tax_profile_id = ?", taxProfileID))
}

// FindPrimary returns the product's primary assignment
func (r *GormProductTaxProfileRepository) FindPrimary(ctx context.Context, productID uuid.UUID) (*taxation.Assignment, error) {
	var m models.ProductTaxProfileModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND is_primary = ?", productID, true).
		First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	a := m.ToDomain()
	return &a, nil
}

// Apply persists changes. Demotions run before promotions so the single
// primary index never sees two primary rows.
func (r *GormProductTaxProfileRepository) Apply(ctx context.Context, changes taxation.Changes) error {
	db := r.db.WithContext(ctx)
	for _, demoted := range changes.Updated {
		if !demoted.IsPrimary {
			if err := r.setPrimary(db, demoted); err != nil {
				return err
			}
		}
	}
	for _, promoted := range changes.Updated {
		if promoted.IsPrimary {
			if err := r.setPrimary(db, promoted); err != nil {
				return err
			}
		}
	}
	if changes.Added != nil {
		if err := db.Create(models.ProductTaxProfileModelFromDomain(changes.Added)).Error; err != nil {
			return translateError(err)
		}
	}
	if changes.Removed != nil {
		result := db.Delete(&models.ProductTaxProfileModel{}, "id = ?", changes.Removed.ID)
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
	}
	return nil
}

func (r *GormProductTaxProfileRepository) setPrimary(db *gorm.DB, a taxation.Assignment) error {
	result := db.Model(&models.ProductTaxProfileModel{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"is_primary": a.IsPrimary,
			"updated_at": a.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("tax profile assignment %s no longer exists", a.ID)
	}
	return nil
}

func (r *GormProductTaxProfileRepository) find(query *gorm.DB) ([]taxation.Assignment, error) {
	var ms []models.ProductTaxProfileModel
	if err := query.
		Order("is_primary DESC").Order("created_at ASC").Order("id ASC").
		Find(&ms).Error; err != nil {
		return nil, translateError(err)
	}
	out := make([]taxation.Assignment, len(ms))
	for i := range ms {
		out[i] = ms[i].ToDomain()
	}
	return out, nil
}

// Ensure GormProductTaxProfileRepository implements taxation.Repository
var _ taxation.Repository = (*GormProductTaxProfileRepository)(nil)
