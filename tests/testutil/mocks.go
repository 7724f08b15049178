package testutil

import (
	"context"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProductLookup is a mock implementation of catalog.ProductLookup
type MockProductLookup struct {
	mock.Mock
}

func (m *MockProductLookup) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductLookup) Get(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

// MockSupplierLookup is a mock implementation of catalog.SupplierLookup
type MockSupplierLookup struct {
	mock.Mock
}

func (m *MockSupplierLookup) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockSupplierLookup) Get(ctx context.Context, id uuid.UUID) (*catalog.Supplier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Supplier), args.Error(1)
}

// MockTaxProfileLookup is a mock implementation of catalog.TaxProfileLookup
type MockTaxProfileLookup struct {
	mock.Mock
}

func (m *MockTaxProfileLookup) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaxProfileLookup) Get(ctx context.Context, id uuid.UUID) (*catalog.TaxProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.TaxProfile), args.Error(1)
}

var (
	_ catalog.ProductLookup    = (*MockProductLookup)(nil)
	_ catalog.SupplierLookup   = (*MockSupplierLookup)(nil)
	_ catalog.TaxProfileLookup = (*MockTaxProfileLookup)(nil)
)
