package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormProductLookup(t *testing.T) {
	db := newTestDatabase(t)
	lookup := NewGormProductLookup(db.DB)
	ctx := context.Background()

	id := seedProduct(t, db, "Widget")

	ok, err := lookup.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lookup.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lookup.Upsert(ctx, &catalog.Product{ID: id, Name: "Widget v2", SKU: "W-2", IsActive: false}))
	p, err := lookup.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", p.Name)
	assert.Equal(t, "W-2", p.SKU)
	assert.False(t, p.IsActive)

	_, err = lookup.Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormTaxProfileLookup(t *testing.T) {
	db := newTestDatabase(t)
	lookup := NewGormTaxProfileLookup(db.DB)
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, lookup.Upsert(ctx, &catalog.TaxProfile{ID: id, Name: "VAT", Rate: dec("19.5"), IsActive: true}))

	p, err := lookup.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, dec("19.5").Equal(p.Rate))

	ok, err := lookup.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGormSupplierLookup(t *testing.T) {
	db := newTestDatabase(t)
	lookup := NewGormSupplierLookup(db.DB)
	ctx := context.Background()

	id := seedSupplier(t, db)
	s, err := lookup.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme Supply", s.Name)

	ok, err := lookup.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
