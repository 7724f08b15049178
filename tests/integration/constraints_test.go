package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	taxapp "github.com/erp/stockledger/internal/application/taxation"
	warehouseapp "github.com/erp/stockledger/internal/application/warehouse"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/warehouse"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarehouses_NameKeyIsUnique(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()
	repo := tdb.Store().Warehouses()

	first, err := warehouse.NewWarehouse("Main", "", true, false, testutil.Epoch)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	second, err := warehouse.NewWarehouse("MAIN", "", true, false, testutil.Epoch)
	require.NoError(t, err)
	err = repo.Create(ctx, second)
	assert.ErrorIs(t, err, shared.ErrDuplicateName)
}

func TestWarehouses_SinglePrimaryIndex(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()
	seedWarehouse(t, tdb, "Main", true)

	w, err := warehouse.NewWarehouse("North", "", true, true, testutil.Epoch)
	require.NoError(t, err)
	err = tdb.Store().Warehouses().Create(ctx, w)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestWarehouses_StaleUpdate(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()
	id := seedWarehouse(t, tdb, "Main", true)
	repo := tdb.Store().Warehouses()

	a, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, a.Rename("Central", testutil.Epoch))
	require.NoError(t, repo.Update(ctx, a))

	require.NoError(t, b.Rename("Head Office", testutil.Epoch))
	assert.ErrorIs(t, repo.Update(ctx, b), shared.ErrConcurrencyConflict)
}

// Concurrent promotions must leave exactly one primary; losers see a retryable conflict
func TestWarehouses_ConcurrentPromotions(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()
	service := warehouseapp.NewService(tdb.Store())
	seedWarehouse(t, tdb, "Main", true)

	candidates := make([]uuid.UUID, 6)
	for i := range candidates {
		candidates[i] = seedWarehouse(t, tdb, "Branch "+string(rune('A'+i)), false)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(candidates))
	for i, id := range candidates {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = service.PromoteToPrimary(ctx, id)
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict), "unexpected error: %v", err)
		}
	}

	var primaries int64
	require.NoError(t, tdb.DB.Table("warehouses").Where("is_primary = ?", true).Count(&primaries).Error)
	assert.Equal(t, int64(1), primaries)
}

func TestTaxation_ConcurrentAssignments(t *testing.T) {
	tdb := NewTestDB(t)
	ctx := context.Background()
	product := testutil.SeedProduct(t, tdb.Database, "Widget")
	profile := testutil.SeedTaxProfile(t, tdb.Database, "Standard", "20")

	service := taxapp.NewService(tdb.Store(),
		persistence.NewGormProductLookup(tdb.DB),
		persistence.NewGormTaxProfileLookup(tdb.DB))

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Assign(ctx, taxapp.AssignTaxProfileRequest{
				ProductID:    product.ID,
				TaxProfileID: profile.ID,
				IsPrimary:    true,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, shared.ErrAlreadyAssigned) || errors.Is(err, shared.ErrConcurrencyConflict),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	list, err := service.ListForProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsPrimary)
}
