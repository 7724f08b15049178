package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockledger/internal/application/uow"
	"github.com/erp/stockledger/internal/application/validation"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Policy holds configurable recording rules
type Policy struct {
	AllowNegativeStock bool
}

// DefaultPolicy allows balances to go negative
func DefaultPolicy() Policy {
	return Policy{AllowNegativeStock: true}
}

// Service records stock movements and answers stock queries
type Service struct {
	store    uow.Store
	products catalog.ProductLookup
	locker   uow.KeyLocker
	clock    shared.Clock
	logger   *zap.Logger
	metrics  Metrics
	policy   Policy
}

// Option configures a Service
type Option func(*Service)

// WithLocker sets the key locker taken before the database transaction
func WithLocker(locker uow.KeyLocker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger.Named("ledger")
	}
}

// WithClock sets the time source used for created_at stamps
func WithClock(clock shared.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithPolicy sets the recording policy
func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// NewService creates a ledger Service
func NewService(store uow.Store, products catalog.ProductLookup, opts ...Option) *Service {
	s := &Service{
		store:    store,
		products: products,
		locker:   uow.NoOpLocker{},
		clock:    shared.SystemClock{},
		logger:   zap.NewNop(),
		metrics:  noopMetrics{},
		policy:   DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockKey takes the process-level lock for one balance key
func (s *Service) LockKey(ctx context.Context, key ledger.Key) (func(), error) {
	release, err := s.locker.Lock(ctx, "stock:"+key.String())
	if err != nil {
		return nil, err
	}
	return release, nil
}

// Record appends one movement to the ledger
func (s *Service) Record(ctx context.Context, req RecordTransactionRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "record",
		telemetry.AttrProductID.String(req.ProductID.String()),
		telemetry.AttrWarehouseID.String(req.WarehouseID.String()))
	defer span.End()

	resp, err := s.record(ctx, req)
	telemetry.RecordError(span, err)
	return resp, err
}

func (s *Service) record(ctx context.Context, req RecordTransactionRequest) (*TransactionResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	txType, err := ledger.ParseTransactionType(req.Type)
	if err != nil {
		return nil, err
	}
	entry := ledger.Entry{
		ProductID:       req.ProductID,
		WarehouseID:     req.WarehouseID,
		Type:            txType,
		Direction:       ledger.Direction(req.Direction),
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		TransactionDate: req.TransactionDate,
		Reference:       req.Reference,
		Actor:           req.Actor,
	}
	if err := entry.Validate(); err != nil {
		s.metrics.TransactionRejected(ctx, txType, err)
		return nil, err
	}
	if err := s.requireProduct(ctx, entry.ProductID); err != nil {
		s.metrics.TransactionRejected(ctx, txType, err)
		return nil, err
	}

	start := time.Now()
	release, err := s.LockKey(ctx, ledger.Key{ProductID: entry.ProductID, WarehouseID: entry.WarehouseID})
	if err != nil {
		s.metrics.TransactionRejected(ctx, txType, err)
		return nil, err
	}
	defer release()

	var tx *ledger.StockTransaction
	err = s.store.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		tx, err = s.Post(ctx, repos, entry)
		return err
	})
	if err != nil {
		s.logger.Debug("stock transaction rejected",
			zap.String("product_id", entry.ProductID.String()),
			zap.String("warehouse_id", entry.WarehouseID.String()),
			zap.String("type", entry.Type.String()),
			zap.Error(err))
		s.metrics.TransactionRejected(ctx, txType, err)
		return nil, err
	}
	s.metrics.TransactionRecorded(ctx, txType, time.Since(start))

	s.logger.Info("stock transaction recorded",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("product_id", tx.ProductID.String()),
		zap.String("warehouse_id", tx.WarehouseID.String()),
		zap.String("type", tx.Type.String()),
		zap.String("quantity", tx.SignedQuantity.String()),
		zap.String("stock_level_after", tx.StockLevelAfter.String()))
	resp := ToTransactionResponse(tx)
	return &resp, nil
}

// Post appends entry using repositories of an open transaction. The caller
// holds the key lock and has checked the product. The destination warehouse
// must exist and be active.
func (s *Service) Post(ctx context.Context, repos uow.Repositories, entry ledger.Entry) (*ledger.StockTransaction, error) {
	w, err := repos.Warehouses().FindByID(ctx, entry.WarehouseID)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, shared.ErrInactiveWarehouse.WithMessage("warehouse %q is inactive", w.Name)
	}

	key := ledger.Key{ProductID: entry.ProductID, WarehouseID: entry.WarehouseID}
	now := s.clock.Now()
	balance, err := repos.Ledger().LockBalance(ctx, key, now)
	if err != nil {
		return nil, err
	}
	tx, err := balance.Append(entry, now, ledger.AppendOptions{AllowNegative: s.policy.AllowNegativeStock})
	if err != nil {
		return nil, err
	}
	if err := repos.Ledger().SaveBalance(ctx, balance); err != nil {
		return nil, err
	}
	if err := repos.Ledger().Append(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// CurrentStock is the sum over warehouses of each warehouse's latest balance
func (s *Service) CurrentStock(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return s.store.Ledger().SumBalances(ctx, productID)
}

// CurrentStockInWarehouse returns the running balance of one key, zero when
// the key has no entries
func (s *Service) CurrentStockInWarehouse(ctx context.Context, productID, warehouseID uuid.UUID) (decimal.Decimal, error) {
	b, err := s.store.Ledger().FindBalance(ctx, ledger.Key{ProductID: productID, WarehouseID: warehouseID})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return b.Quantity, nil
}

// TotalSold sums the quantity of every Sale entry for the product
func (s *Service) TotalSold(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return s.store.Ledger().SumQuantityByType(ctx, productID, ledger.TransactionTypeSale)
}

// SalesAmount sums quantity*unitPrice over Sale entries. Both bounds are
// optional and inclusive by calendar day.
func (s *Service) SalesAmount(ctx context.Context, productID uuid.UUID, from, to *time.Time) (decimal.Decimal, error) {
	var start, end *time.Time
	if from != nil {
		d, _ := ledger.DayRange(*from, *from)
		start = &d
	}
	if to != nil {
		_, d := ledger.DayRange(*to, *to)
		end = &d
	}
	lines, err := s.store.Ledger().FindAmountLines(ctx, productID, ledger.TransactionTypeSale, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.TotalAmount(lines), nil
}

// AverageUnitCost is the quantity-weighted mean Purchase unit price, zero
// when the product was never purchased
func (s *Service) AverageUnitCost(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	lines, err := s.store.Ledger().FindAmountLines(ctx, productID, ledger.TransactionTypePurchase, nil, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.WeightedAverageUnitCost(lines), nil
}

// ListByProduct returns the product's entries across warehouses in ledger order
func (s *Service) ListByProduct(ctx context.Context, productID uuid.UUID) ([]TransactionResponse, error) {
	txs, err := s.store.Ledger().FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return ToTransactionResponses(txs), nil
}

// ListByReference returns entries posted under a reference such as an order number
func (s *Service) ListByReference(ctx context.Context, reference string) ([]TransactionResponse, error) {
	txs, err := s.store.Ledger().FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return ToTransactionResponses(txs), nil
}

// Verify replays one key and compares every snapshot and the head
func (s *Service) Verify(ctx context.Context, productID, warehouseID uuid.UUID) (*VerifyResult, error) {
	key := ledger.Key{ProductID: productID, WarehouseID: warehouseID}
	txs, err := s.store.Ledger().FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	head := decimal.Zero
	b, err := s.store.Ledger().FindBalance(ctx, key)
	switch {
	case err == nil:
		head = b.Quantity
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}

	replayed, mismatch := ledger.Replay(txs)
	result := &VerifyResult{
		ProductID:    productID,
		WarehouseID:  warehouseID,
		Entries:      len(txs),
		Replayed:     replayed,
		HeadQuantity: head,
	}
	if mismatch != nil {
		resp := ToTransactionResponse(&mismatch.Transaction)
		result.Mismatch = &resp
		result.ExpectedLevel = mismatch.Expected
		s.logger.Warn("ledger replay mismatch",
			zap.String("key", key.String()),
			zap.String("transaction_id", mismatch.Transaction.ID.String()),
			zap.String("stored", mismatch.Transaction.StockLevelAfter.String()),
			zap.String("expected", mismatch.Expected.String()))
	}
	return result, nil
}

// VerifyAll replays every key known to the ledger
func (s *Service) VerifyAll(ctx context.Context) ([]VerifyResult, error) {
	keys, err := s.store.Ledger().ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]VerifyResult, 0, len(keys))
	inconsistent := 0
	for _, key := range keys {
		r, err := s.Verify(ctx, key.ProductID, key.WarehouseID)
		if err != nil {
			return nil, err
		}
		if !r.Consistent() {
			inconsistent++
		}
		results = append(results, *r)
	}
	s.metrics.LedgerVerified(ctx, len(results), inconsistent)
	return results, nil
}

func (s *Service) requireProduct(ctx context.Context, productID uuid.UUID) error {
	ok, err := s.products.Exists(ctx, productID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrNotFound.WithMessage("product %s not found", productID)
	}
	return nil
}
