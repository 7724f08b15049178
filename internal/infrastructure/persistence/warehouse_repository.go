package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/warehouse"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWarehouseRepository implements warehouse.Repository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by its ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*warehouse.Warehouse, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate finds a warehouse by ID and locks its row
func (r *GormWarehouseRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*warehouse.Warehouse, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

// FindAll lists every warehouse, primary first then by name
func (r *GormWarehouseRepository) FindAll(ctx context.Context) ([]warehouse.Warehouse, error) {
	var ms []models.WarehouseModel
	if err := r.db.WithContext(ctx).
		Order("is_primary DESC").Order("name_key ASC").
		Find(&ms).Error; err != nil {
		return nil, translateError(err)
	}
	return models.WarehousesToDomain(ms), nil
}

// FindActive lists active warehouses, primary first then by name
func (r *GormWarehouseRepository) FindActive(ctx context.Context) ([]warehouse.Warehouse, error) {
	var ms []models.WarehouseModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("is_primary DESC").Order("name_key ASC").
		Find(&ms).Error; err != nil {
		return nil, translateError(err)
	}
	return models.WarehousesToDomain(ms), nil
}

// FindPrimary returns the primary warehouse
func (r *GormWarehouseRepository) FindPrimary(ctx context.Context) (*warehouse.Warehouse, error) {
	return r.first(r.db.WithContext(ctx).Where("is_primary = ?", true))
}

// FindPrimaryForUpdate locks and returns the primary rows. The partial unique
// index keeps this to at most one row.
func (r *GormWarehouseRepository) FindPrimaryForUpdate(ctx context.Context) ([]warehouse.Warehouse, error) {
	var ms []models.WarehouseModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("is_primary = ?", true).
		Find(&ms).Error; err != nil {
		return nil, translateError(err)
	}
	return models.WarehousesToDomain(ms), nil
}

// ExistsByName checks whether another warehouse uses the same case-folded name
func (r *GormWarehouseRepository) ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.WarehouseModel{}).
		Where("name_key = ?", warehouse.NameKey(name))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, translateError(err)
	}
	return count > 0, nil
}

// Count returns the number of warehouses
func (r *GormWarehouseRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.WarehouseModel{}).Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

// Create inserts a new warehouse
func (r *GormWarehouseRepository) Create(ctx context.Context, w *warehouse.Warehouse) error {
	return translateError(r.db.WithContext(ctx).Create(models.WarehouseModelFromDomain(w)).Error)
}

// Update saves w if the stored version still matches, then bumps w.Version
func (r *GormWarehouseRepository) Update(ctx context.Context, w *warehouse.Warehouse) error {
	result := r.db.WithContext(ctx).
		Model(&models.WarehouseModel{}).
		Where("id = ? AND version = ?", w.ID, w.Version).
		Updates(map[string]any{
			"name":             w.Name,
			"name_key":         w.NameKey(),
			"shipping_address": w.ShippingAddress,
			"is_active":        w.IsActive,
			"is_primary":       w.IsPrimary,
			"version":          w.Version + 1,
			"updated_at":       w.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("warehouse %s was modified by another transaction", w.ID)
	}
	w.IncrementVersion()
	return nil
}

// Delete removes a warehouse
func (r *GormWarehouseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.WarehouseModel{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormWarehouseRepository) first(query *gorm.DB) (*warehouse.Warehouse, error) {
	var m models.WarehouseModel
	if err := query.First(&m).Error; err != nil {
		return nil, translateError(err)
	}
	return m.ToDomain(), nil
}

// Ensure GormWarehouseRepository implements warehouse.Repository
var _ warehouse.Repository = (*GormWarehouseRepository)(nil)
