// Package testutil provides common test utilities for the stock ledger.
// It contains helpers for opening test databases, seeding catalog master
// data and mocking the catalog lookups.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Epoch is the reference instant tests build their clocks from
var Epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a new mock database on the postgres dialector.
// The caller is responsible for calling Close() when done.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{
		DB:    gormDB,
		Mock:  mock,
		SqlDB: mockDB,
	}
}

// Close closes the mock database connection.
func (m *MockDB) Close() error {
	return m.SqlDB.Close()
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	err := m.Mock.ExpectationsWereMet()
	require.NoError(t, err, "Unmet database expectations")
}

// NewSQLiteDatabase opens a migrated in-memory SQLite database that is
// closed when the test ends.
func NewSQLiteDatabase(t *testing.T) *persistence.Database {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   ":memory:",
	}, nil)
	require.NoError(t, err, "Failed to open SQLite database")
	require.NoError(t, db.Migrate(context.Background()), "Failed to migrate SQLite database")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// SeedProduct inserts an active product
func SeedProduct(t *testing.T, db *persistence.Database, name string) *catalog.Product {
	t.Helper()
	id := uuid.New()
	p := &catalog.Product{ID: id, Name: name, SKU: "SKU-" + id.String()[:8], IsActive: true}
	require.NoError(t, persistence.NewGormProductLookup(db.DB).Upsert(context.Background(), p))
	return p
}

// SeedSupplier inserts an active supplier
func SeedSupplier(t *testing.T, db *persistence.Database, name string) *catalog.Supplier {
	t.Helper()
	s := &catalog.Supplier{ID: uuid.New(), Name: name, IsActive: true}
	require.NoError(t, persistence.NewGormSupplierLookup(db.DB).Upsert(context.Background(), s))
	return s
}

// SeedTaxProfile inserts an active tax profile with rate in percent
func SeedTaxProfile(t *testing.T, db *persistence.Database, name, rate string) *catalog.TaxProfile {
	t.Helper()
	p := &catalog.TaxProfile{ID: uuid.New(), Name: name, Rate: decimal.RequireFromString(rate), IsActive: true}
	require.NoError(t, persistence.NewGormTaxProfileLookup(db.DB).Upsert(context.Background(), p))
	return p
}

// NewTestUUID generates a deterministic UUID for testing.
// Uses the provided seed string to create a reproducible UUID.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// ContextWithTimeout creates a context with a timeout for tests.
func ContextWithTimeout(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// Dec parses a decimal literal, panicking on malformed input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
