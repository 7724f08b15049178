// Package integration runs the stock ledger against a real PostgreSQL server.
// It uses testcontainers to start the database; tests are skipped with -short.
package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var (
	// Shared container for all tests in the package
	sharedContainer    *tcpostgres.PostgresContainer
	sharedContainerMu  sync.Mutex
	sharedContainerCfg config.DatabaseConfig
)

// TestDB is a migrated database on the shared container
type TestDB struct {
	*persistence.Database
	t *testing.T
}

// NewTestDB connects to the shared PostgreSQL container, starting and
// migrating it on first use, and empties every table. Tests using it must not
// run in parallel with each other.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	cfg := sharedDatabaseConfig(t)

	var log *zap.Logger
	if os.Getenv("TEST_DB_DEBUG") != "" {
		cfg.LogSQL = true
		log = zaptest.NewLogger(t)
	}
	db, err := persistence.NewDatabase(&cfg, log)
	require.NoError(t, err, "Failed to connect to database")

	tdb := &TestDB{Database: db, t: t}
	tdb.CleanTables()
	t.Cleanup(func() {
		_ = db.Close()
	})
	return tdb
}

func sharedDatabaseConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		return sharedContainerCfg
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("stockledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err, "Failed to get container host")
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err, "Failed to get container port")

	cfg := config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            host,
		Port:            port.Int(),
		User:            "postgres",
		Password:        "admin123",
		DBName:          "stockledger_test",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5,
	}

	db, err := persistence.NewDatabase(&cfg, nil)
	require.NoError(t, err, "Failed to connect to database")
	defer db.Close()
	require.NoError(t, db.Migrate(ctx), "Failed to migrate schema")

	sharedContainer = container
	sharedContainerCfg = cfg
	return cfg
}

// CleanTables truncates every table in the public schema
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`SELECT tablename FROM pg_tables WHERE schemaname = 'public'`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %q CASCADE", table)).Error
		require.NoError(tdb.t, err, "Failed to truncate table %s", table)
	}
}

// CleanupSharedContainer terminates the shared container.
// This should be called in TestMain.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
	}
}
