package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/warehouse"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// newTestDatabase opens a migrated in-memory SQLite database
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newMockGormDB creates a GORM DB on the postgres dialector backed by sqlmock
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func seedProduct(t *testing.T, db *Database, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, NewGormProductLookup(db.DB).Upsert(context.Background(), &catalog.Product{
		ID: id, Name: name, SKU: "SKU-" + id.String()[:8], IsActive: true,
	}))
	return id
}

func seedSupplier(t *testing.T, db *Database) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, NewGormSupplierLookup(db.DB).Upsert(context.Background(), &catalog.Supplier{
		ID: id, Name: "Acme Supply", IsActive: true,
	}))
	return id
}

func seedWarehouse(t *testing.T, db *Database, name string, primary bool) *warehouse.Warehouse {
	t.Helper()
	w, err := warehouse.NewWarehouse(name, "", true, primary, t0)
	require.NoError(t, err)
	require.NoError(t, NewGormWarehouseRepository(db.DB).Create(context.Background(), w))
	return w
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
