package taxation

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists product tax profile assignments
type Repository interface {
	// FindByProduct returns the product's assignments, primary first
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]Assignment, error)
	// FindByProductForUpdate is FindByProduct holding row locks on the result
	FindByProductForUpdate(ctx context.Context, productID uuid.UUID) ([]Assignment, error)
	FindByTaxProfile(ctx context.Context, taxProfileID uuid.UUID) ([]Assignment, error)
	// FindPrimary returns shared.ErrNotFound when the product has no primary
	FindPrimary(ctx context.Context, productID uuid.UUID) (*Assignment, error)
	// Apply persists the rows in changes: demotions first, then promotions,
	// inserts and deletes
	Apply(ctx context.Context, changes Changes) error
}
