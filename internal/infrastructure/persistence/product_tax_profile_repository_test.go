package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/taxation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormProductTaxProfileRepository_Apply(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormProductTaxProfileRepository(db.DB)
	ctx := context.Background()
	product := uuid.New()
	standard, reduced := uuid.New(), uuid.New()

	profiles := taxation.NewProductTaxProfiles(product, nil)
	changes, err := profiles.Assign(standard, true, t0)
	require.NoError(t, err)
	require.NoError(t, repo.Apply(ctx, changes))

	changes, err = profiles.Assign(reduced, true, t0)
	require.NoError(t, err)
	require.NoError(t, repo.Apply(ctx, changes), "demotion runs before the insert")

	primary, err := repo.FindPrimary(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, reduced, primary.TaxProfileID)

	stored, err := repo.FindByProduct(ctx, product)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.True(t, stored[0].IsPrimary, "primary first")

	profiles = taxation.NewProductTaxProfiles(product, stored)
	changes, err = profiles.SetPrimary(standard, t0)
	require.NoError(t, err)
	require.NoError(t, repo.Apply(ctx, changes))

	primary, err = repo.FindPrimary(ctx, product)
	require.NoError(t, err)
	assert.Equal(t, standard, primary.TaxProfileID)

	changes, err = profiles.Remove(reduced)
	require.NoError(t, err)
	require.NoError(t, repo.Apply(ctx, changes))

	byProfile, err := repo.FindByTaxProfile(ctx, reduced)
	require.NoError(t, err)
	assert.Empty(t, byProfile)

	_, err = repo.FindPrimary(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormProductTaxProfileRepository_DuplicatePair(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormProductTaxProfileRepository(db.DB)
	ctx := context.Background()
	product, profile := uuid.New(), uuid.New()

	first, err := taxation.NewProductTaxProfiles(product, nil).Assign(profile, false, t0)
	require.NoError(t, err)
	require.NoError(t, repo.Apply(ctx, first))

	// A writer that read an empty list before the first insert committed
	second, err := taxation.NewProductTaxProfiles(product, nil).Assign(profile, false, t0)
	require.NoError(t, err)
	err = repo.Apply(ctx, second)
	assert.True(t, errors.Is(err, shared.ErrAlreadyAssigned), "got %v", err)
}

func TestGormProductTaxProfileRepository_FindByProductForUpdate(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormProductTaxProfileRepository(gormDB)

	product := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "product_id", "tax_profile_id", "is_primary"}).
		AddRow(uuid.New(), product, uuid.New(), true)
	mock.ExpectQuery(`SELECT \* FROM "product_tax_profiles" WHERE product_id = \$1 ORDER BY is_primary DESC,created_at ASC,id ASC FOR UPDATE`).
		WithArgs(product).
		WillReturnRows(rows)

	assignments, err := repo.FindByProductForUpdate(context.Background(), product)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.True(t, assignments[0].IsPrimary)
	assert.NoError(t, mock.ExpectationsWereMet())
}
