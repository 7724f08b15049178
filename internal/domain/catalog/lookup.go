// Package catalog declares the read-only views of master data owned outside
// this module: products, suppliers and tax profiles.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the subset of product master data used here
type Product struct {
	ID       uuid.UUID
	Name     string
	SKU      string
	IsActive bool
}

// Supplier is the subset of supplier master data used here
type Supplier struct {
	ID       uuid.UUID
	Name     string
	IsActive bool
}

// TaxProfile is a named tax rate expressed in percent
type TaxProfile struct {
	ID       uuid.UUID
	Name     string
	Rate     decimal.Decimal
	IsActive bool
}

// ProductLookup resolves products. Get returns shared.ErrNotFound when absent.
type ProductLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
}

// SupplierLookup resolves suppliers. Get returns shared.ErrNotFound when absent.
type SupplierLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*Supplier, error)
}

// TaxProfileLookup resolves tax profiles. Get returns shared.ErrNotFound when absent.
type TaxProfileLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (*TaxProfile, error)
}
