package warehouse

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists warehouses
type Repository interface {
	// FindByID returns shared.ErrNotFound when the warehouse does not exist
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	// FindByIDForUpdate is FindByID holding a row lock until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindAll(ctx context.Context) ([]Warehouse, error)
	FindActive(ctx context.Context) ([]Warehouse, error)
	// FindPrimary returns shared.ErrNotFound when no warehouse is primary
	FindPrimary(ctx context.Context) (*Warehouse, error)
	// FindPrimaryForUpdate locks the current primary rows for demotion
	FindPrimaryForUpdate(ctx context.Context) ([]Warehouse, error)
	// ExistsByName compares case-folded names, ignoring excludeID when set
	ExistsByName(ctx context.Context, name string, excludeID *uuid.UUID) (bool, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, w *Warehouse) error
	// Update writes w with an optimistic version check and bumps its version
	Update(ctx context.Context, w *Warehouse) error
	Delete(ctx context.Context, id uuid.UUID) error
}
