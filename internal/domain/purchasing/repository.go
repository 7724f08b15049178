package purchasing

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository persists purchase orders together with their lines, history and attachments
type Repository interface {
	// FindByID loads the full aggregate; shared.ErrNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	// FindByIDForUpdate is FindByID holding a row lock on the order header
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*PurchaseOrder, error)
	// FindAll lists order headers (without children). Supported filters:
	// "status" (Status) and "supplier_id" (uuid.UUID).
	FindAll(ctx context.Context, filter shared.Filter) ([]PurchaseOrder, int64, error)
	Create(ctx context.Context, order *PurchaseOrder) error
	// Update writes the header with a version compare-and-set, syncs lines and
	// appends history and attachment rows not yet stored
	Update(ctx context.Context, order *PurchaseOrder) error
	// GenerateOrderNumber returns the next PREFIX-YYYY-NNNNN number for year
	GenerateOrderNumber(ctx context.Context, prefix string, year int) (string, error)
}
