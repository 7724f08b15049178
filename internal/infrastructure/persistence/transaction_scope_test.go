package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/stockledger/internal/application/uow"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/warehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStore_Execute(t *testing.T) {
	t.Run("commits when fn succeeds", func(t *testing.T) {
		db := newTestDatabase(t)
		store := db.Store()
		ctx := context.Background()

		w, err := warehouse.NewWarehouse("Main", "", true, true, t0)
		require.NoError(t, err)
		require.NoError(t, store.Execute(ctx, func(repos uow.Repositories) error {
			return repos.Warehouses().Create(ctx, w)
		}))

		found, err := store.Warehouses().FindByID(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, "Main", found.Name)
	})

	t.Run("rolls back every repository when fn fails", func(t *testing.T) {
		db := newTestDatabase(t)
		store := db.Store()
		ctx := context.Background()

		w, err := warehouse.NewWarehouse("Main", "", true, true, t0)
		require.NoError(t, err)
		boom := shared.ErrOverReceipt.WithMessage("late failure")

		err = store.Execute(ctx, func(repos uow.Repositories) error {
			if err := repos.Warehouses().Create(ctx, w); err != nil {
				return err
			}
			return boom
		})
		assert.True(t, errors.Is(err, shared.ErrOverReceipt))

		_, err = store.Warehouses().FindByID(ctx, w.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}
