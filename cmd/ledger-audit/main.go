// Command ledger-audit replays every stock ledger key and reports entries whose
// stored running balance disagrees with the replay. With -receipts it also
// checks received purchase order quantities against the Purchase entries
// posted under each order number. It exits with status 1 when anything is
// inconsistent.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	ledgerapp "github.com/erp/stockledger/internal/application/ledger"
	purchasingapp "github.com/erp/stockledger/internal/application/purchasing"
	taxapp "github.com/erp/stockledger/internal/application/taxation"
	warehouseapp "github.com/erp/stockledger/internal/application/warehouse"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/erp/stockledger/internal/infrastructure/lock"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/infrastructure/persistence"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	var (
		configPath string
		migrate    bool
		bootstrap  string
		receipts   bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config.toml (default: ./config.toml)")
	flag.BoolVar(&migrate, "migrate", false, "Create or update the schema before auditing")
	flag.StringVar(&bootstrap, "bootstrap-warehouse", "", "Create this primary warehouse if none exists")
	flag.BoolVar(&receipts, "receipts", false, "Also reconcile purchase order receipts against the ledger")
	flag.Parse()

	os.Exit(run(configPath, migrate, bootstrap, receipts))
}

func run(configPath string, migrate bool, bootstrap string, receipts bool) int {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 2
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 2
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.App.Name, cfg.Telemetry, log)
	if err != nil {
		log.Error("Failed to initialize log export", zap.Error(err))
		return 2
	}
	defer func() {
		_ = loggerProvider.Shutdown(context.Background())
	}()
	log = loggerProvider.Bridge(log, cfg.App.Name)
	ctx, log = logger.WithRunID(ctx, log, uuid.NewString())

	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.App.Name, cfg.Telemetry, log)
	if err != nil {
		log.Error("Failed to initialize tracing", zap.Error(err))
		return 2
	}
	defer func() {
		_ = tracerProvider.Shutdown(context.Background())
	}()

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return 2
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()

	if err := telemetry.NewDBTracingPlugin(cfg.Telemetry, cfg.Database, log).RegisterOtelGorm(db.DB); err != nil {
		log.Error("Failed to register database tracing", zap.Error(err))
		return 2
	}

	if migrate {
		if err := db.Migrate(ctx); err != nil {
			log.Error("Failed to migrate schema", zap.Error(err))
			return 2
		}
		log.Info("Schema migrated", zap.String("driver", db.Driver()))
	}

	locker, closeLocker, err := lock.NewFromConfig(cfg.Ledger, cfg.Redis,
		lock.WithFactoryLogger(log),
		lock.WithInMemoryFallback(cfg.App.Env != "production"))
	if err != nil {
		log.Error("Failed to create ledger key locker", zap.Error(err))
		return 2
	}
	defer func() {
		_ = closeLocker()
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.App.Name, cfg.Telemetry, log)
	if err != nil {
		log.Error("Failed to initialize metrics", zap.Error(err))
		return 2
	}
	defer func() {
		_ = meterProvider.Shutdown(context.Background())
	}()
	metrics, err := telemetry.NewLedgerMetrics(meterProvider)
	if err != nil {
		log.Error("Failed to register ledger metrics", zap.Error(err))
		return 2
	}

	store := db.Store()

	if bootstrap != "" {
		warehouses := warehouseapp.NewService(store,
			warehouseapp.WithLogger(log),
			warehouseapp.WithPolicy(warehouseapp.Policy{
				BlockDeactivateWithTransactions: cfg.Warehouse.BlockDeactivateWithTransactions,
			}))
		primary, created, err := warehouses.EnsurePrimary(ctx, bootstrap, "")
		if err != nil {
			log.Error("Failed to ensure primary warehouse", zap.Error(err))
			return 2
		}
		log.Info("Primary warehouse",
			zap.String("warehouse_id", primary.ID.String()),
			zap.String("name", primary.Name),
			zap.Bool("created", created))
	}

	ledger := ledgerapp.NewService(store, persistence.NewGormProductLookup(db.DB),
		ledgerapp.WithLocker(locker),
		ledgerapp.WithLogger(log),
		ledgerapp.WithMetrics(metrics),
		ledgerapp.WithPolicy(ledgerapp.Policy{AllowNegativeStock: cfg.Ledger.AllowNegativeStock}))

	results, err := ledger.VerifyAll(ctx)
	if err != nil {
		log.Error("Ledger audit failed", zap.Error(err))
		return 2
	}

	inconsistent := 0
	for _, r := range results {
		if r.Consistent() {
			continue
		}
		inconsistent++
		fields := []zap.Field{
			zap.String("product_id", r.ProductID.String()),
			zap.String("warehouse_id", r.WarehouseID.String()),
			zap.String("replayed", r.Replayed.String()),
			zap.String("head", r.HeadQuantity.String()),
		}
		if r.Mismatch != nil {
			fields = append(fields,
				zap.String("transaction_id", r.Mismatch.ID.String()),
				zap.Int64("sequence", r.Mismatch.Sequence),
				zap.String("stored_level", r.Mismatch.StockLevelAfter.String()),
				zap.String("expected_level", r.ExpectedLevel.String()))
		}
		log.Warn("Inconsistent ledger key", fields...)
	}

	log.Info("Ledger audit finished",
		zap.Int("keys", len(results)),
		zap.Int("inconsistent", inconsistent))

	if receipts {
		taxes := taxapp.NewService(store, persistence.NewGormProductLookup(db.DB),
			persistence.NewGormTaxProfileLookup(db.DB),
			taxapp.WithLogger(log))
		orders := purchasingapp.NewPurchaseOrderService(store,
			persistence.NewGormSupplierLookup(db.DB),
			persistence.NewGormProductLookup(db.DB),
			taxes, ledger,
			purchasingapp.WithLogger(log),
			purchasingapp.WithPolicy(purchasingapp.Policy{
				AutoComplete: cfg.Purchasing.AutoComplete,
				OrderPrefix:  cfg.Purchasing.OrderPrefix,
			}))
		reconciled, err := orders.ReconcileReceipts(ctx, "ledger-audit")
		if err != nil {
			log.Error("Receipt reconciliation failed", zap.Error(err))
			return 2
		}
		for _, d := range reconciled.Discrepancies {
			log.Warn("Receipt does not match the ledger",
				zap.String("order_number", d.OrderNumber),
				zap.String("product_id", d.ProductID.String()),
				zap.String("received", d.Received.String()),
				zap.String("posted", d.Posted.String()))
		}
		for _, number := range reconciled.Completed {
			log.Info("Purchase order completed", zap.String("order_number", number))
		}
		inconsistent += len(reconciled.Discrepancies)
	}

	if inconsistent > 0 {
		return 1
	}
	return 0
}
