package purchasing

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockledger/internal/application/uow"
	"github.com/erp/stockledger/internal/application/validation"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/purchasing"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TaxRateResolver returns the rate of a product's primary tax profile
type TaxRateResolver interface {
	ResolveRate(ctx context.Context, productID uuid.UUID) (decimal.Decimal, bool, error)
}

// StockPoster appends ledger entries inside an open unit of work
type StockPoster interface {
	LockKey(ctx context.Context, key ledger.Key) (func(), error)
	Post(ctx context.Context, repos uow.Repositories, entry ledger.Entry) (*ledger.StockTransaction, error)
}

// Policy holds configurable workflow rules
type Policy struct {
	// AutoComplete completes an order on the receipt that fills its last line
	AutoComplete bool
	OrderPrefix  string
}

// DefaultPolicy requires an explicit transition to Completed
func DefaultPolicy() Policy {
	return Policy{OrderPrefix: "PO"}
}

// PurchaseOrderService handles purchase order business operations
type PurchaseOrderService struct {
	store     uow.Store
	suppliers catalog.SupplierLookup
	products  catalog.ProductLookup
	taxes     TaxRateResolver
	stock     StockPoster
	clock     shared.Clock
	logger    *zap.Logger
	policy    Policy
}

// Option configures a PurchaseOrderService
type Option func(*PurchaseOrderService)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *PurchaseOrderService) {
		s.logger = logger.Named("purchasing")
	}
}

// WithClock sets the clock that stamps order changes and receipts
func WithClock(clock shared.Clock) Option {
	return func(s *PurchaseOrderService) {
		s.clock = clock
	}
}

// WithPolicy sets the completion and numbering policy. An empty prefix
// falls back to the default.
func WithPolicy(p Policy) Option {
	return func(s *PurchaseOrderService) {
		if p.OrderPrefix == "" {
			p.OrderPrefix = DefaultPolicy().OrderPrefix
		}
		s.policy = p
	}
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(
	store uow.Store,
	suppliers catalog.SupplierLookup,
	products catalog.ProductLookup,
	taxes TaxRateResolver,
	stock StockPoster,
	opts ...Option,
) *PurchaseOrderService {
	s := &PurchaseOrderService{
		store:     store,
		suppliers: suppliers,
		products:  products,
		taxes:     taxes,
		stock:     stock,
		clock:     shared.SystemClock{},
		logger:    zap.NewNop(),
		policy:    DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a new purchase order in Draft
func (s *PurchaseOrderService) Create(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	ok, err := s.suppliers.Exists(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrNotFound.WithMessage("supplier %s not found", req.SupplierID)
	}

	now := s.clock.Now()
	var order *purchasing.PurchaseOrder
	err = s.store.Execute(ctx, func(repos uow.Repositories) error {
		if req.WarehouseID != nil {
			if err := requireActiveWarehouse(ctx, repos, *req.WarehouseID); err != nil {
				return err
			}
		}
		number, err := repos.PurchaseOrders().GenerateOrderNumber(ctx, s.policy.OrderPrefix, now.Year())
		if err != nil {
			return err
		}
		order, err = purchasing.NewPurchaseOrder(number, purchasing.Header{
			SupplierID:           req.SupplierID,
			WarehouseID:          req.WarehouseID,
			OrderDate:            req.OrderDate,
			ExpectedDeliveryDate: req.ExpectedDeliveryDate,
			ReferenceNumber:      req.ReferenceNumber,
			ShippingAddress:      req.ShippingAddress,
			BillingAddress:       req.BillingAddress,
			Notes:                req.Notes,
			Terms:                req.Terms,
		}, req.Actor, now)
		if err != nil {
			return err
		}
		return repos.PurchaseOrders().Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber))
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// AddLine adds a line to a Draft or PendingApproval order
func (s *PurchaseOrderService) AddLine(ctx context.Context, orderID uuid.UUID, req LineRequest) (*PurchaseOrderResponse, error) {
	in, err := s.lineInput(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, "line added", func(o *purchasing.PurchaseOrder, now time.Time) error {
		_, err := o.AddLine(in, req.Actor, now)
		return err
	})
}

// UpdateLine replaces the editable fields of a line
func (s *PurchaseOrderService) UpdateLine(ctx context.Context, orderID, lineID uuid.UUID, req LineRequest) (*PurchaseOrderResponse, error) {
	in, err := s.lineInput(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, "line updated", func(o *purchasing.PurchaseOrder, now time.Time) error {
		return o.UpdateLine(lineID, in, req.Actor, now)
	})
}

// RemoveLine deletes a line from a Draft or PendingApproval order
func (s *PurchaseOrderService) RemoveLine(ctx context.Context, orderID, lineID uuid.UUID, actor string) (*PurchaseOrderResponse, error) {
	return s.mutate(ctx, orderID, "line removed", func(o *purchasing.PurchaseOrder, now time.Time) error {
		return o.RemoveLine(lineID, actor, now)
	})
}

// SetCharges sets the order-level discount amount and shipping cost
func (s *PurchaseOrderService) SetCharges(ctx context.Context, orderID uuid.UUID, req SetChargesRequest) (*PurchaseOrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, "charges set", func(o *purchasing.PurchaseOrder, now time.Time) error {
		return o.SetCharges(req.DiscountAmount, req.ShippingCost, req.Actor, now)
	})
}

// SetWarehouse sets the default receiving warehouse of an open order
func (s *PurchaseOrderService) SetWarehouse(ctx context.Context, orderID, warehouseID uuid.UUID, actor string) (*PurchaseOrderResponse, error) {
	var order *purchasing.PurchaseOrder
	err := s.store.Execute(ctx, func(repos uow.Repositories) error {
		if err := requireActiveWarehouse(ctx, repos, warehouseID); err != nil {
			return err
		}
		var err error
		order, err = repos.PurchaseOrders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.SetWarehouse(warehouseID, actor, s.clock.Now()); err != nil {
			return err
		}
		return repos.PurchaseOrders().Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// AddAttachment records attachment metadata on a non-terminal order
func (s *PurchaseOrderService) AddAttachment(ctx context.Context, orderID uuid.UUID, req AddAttachmentRequest) (*AttachmentResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var added *purchasing.Attachment
	_, err := s.mutate(ctx, orderID, "attachment added", func(o *purchasing.PurchaseOrder, now time.Time) error {
		var err error
		added, err = o.AddAttachment(purchasing.AttachmentInput{
			FileName:    req.FileName,
			ContentType: req.ContentType,
			SizeBytes:   req.SizeBytes,
			Description: req.Description,
		}, req.Actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &AttachmentResponse{
		ID:          added.ID,
		FileName:    added.FileName,
		ContentType: added.ContentType,
		SizeBytes:   added.SizeBytes,
		Description: added.Description,
		UploadedBy:  added.UploadedBy,
		UploadedAt:  added.UploadedAt,
	}, nil
}

// Transition moves the order to req.Target and records the history entry
func (s *PurchaseOrderService) Transition(ctx context.Context, orderID uuid.UUID, req TransitionRequest) (*PurchaseOrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	target, err := purchasing.ParseStatus(req.Target)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, "status changed", func(o *purchasing.PurchaseOrder, now time.Time) error {
		return o.TransitionTo(target, req.Actor, req.Note, now)
	})
}

// Cancel moves a non-terminal order to Cancelled
func (s *PurchaseOrderService) Cancel(ctx context.Context, orderID uuid.UUID, reason, actor string) (*PurchaseOrderResponse, error) {
	return s.Transition(ctx, orderID, TransitionRequest{
		Target: purchasing.StatusCancelled.String(),
		Note:   reason,
		Actor:  actor,
	})
}

// Receive books goods against a line. The line update, the Purchase ledger
// entry and any status change commit together or not at all.
func (s *PurchaseOrderService) Receive(ctx context.Context, orderID uuid.UUID, req ReceiveRequest) (*ReceiveResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchasing", "receive",
		telemetry.AttrOrderLineID.String(req.LineID.String()))
	defer span.End()

	result, err := s.receive(ctx, orderID, req)
	if err == nil {
		span.SetAttributes(
			telemetry.AttrOrderNumber.String(result.Order.OrderNumber),
			telemetry.AttrWarehouseID.String(result.WarehouseID.String()))
	}
	telemetry.RecordError(span, err)
	return result, err
}

func (s *PurchaseOrderService) receive(ctx context.Context, orderID uuid.UUID, req ReceiveRequest) (*ReceiveResultResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Quantity.IsPositive() {
		return nil, shared.ErrInvalidQuantity.WithMessage("receipt quantity must be greater than zero, got %s", req.Quantity)
	}

	// Resolve the ledger key before locking it
	snapshot, err := s.store.PurchaseOrders().FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	line := snapshot.Line(req.LineID)
	if line == nil {
		return nil, shared.ErrNotFound.WithMessage("line %s not found on order %s", req.LineID, snapshot.OrderNumber)
	}
	warehouseID, err := s.receivingWarehouse(ctx, snapshot, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	key := ledger.Key{ProductID: line.ProductID, WarehouseID: warehouseID}

	release, err := s.stock.LockKey(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		order    *purchasing.PurchaseOrder
		received purchasing.Line
		tx       *ledger.StockTransaction
	)
	err = s.store.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		order, err = repos.PurchaseOrders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		l, err := order.Receive(req.LineID, req.Quantity, req.Actor, now, purchasing.ReceiptOptions{AutoComplete: s.policy.AutoComplete})
		if err != nil {
			return err
		}
		received = *l
		if order.WarehouseID == nil {
			order.WarehouseID = &warehouseID
		}

		tx, err = s.stock.Post(ctx, repos, ledger.Entry{
			ProductID:       l.ProductID,
			WarehouseID:     warehouseID,
			Type:            ledger.TransactionTypePurchase,
			Quantity:        req.Quantity,
			UnitPrice:       l.UnitPrice,
			TransactionDate: now,
			Reference:       order.OrderNumber,
			Actor:           req.Actor,
		})
		if err != nil {
			return err
		}
		return repos.PurchaseOrders().Update(ctx, order)
	})
	if err != nil {
		s.logger.Debug("receipt rejected",
			zap.String("order_id", orderID.String()),
			zap.String("line_id", req.LineID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("goods received",
		zap.String("order_number", order.OrderNumber),
		zap.String("line_id", received.ID.String()),
		zap.String("quantity", req.Quantity.String()),
		zap.String("warehouse_id", warehouseID.String()),
		zap.String("status", order.Status.String()))
	return &ReceiveResultResponse{
		Order:         ToPurchaseOrderResponse(order),
		Line:          ToLineResponse(&received),
		WarehouseID:   warehouseID,
		TransactionID: tx.ID,
		StockLevel:    tx.StockLevelAfter,
	}, nil
}

// Get retrieves a purchase order by ID
func (s *PurchaseOrderService) Get(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.store.PurchaseOrders().FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// GetByNumber retrieves a purchase order by its order number
func (s *PurchaseOrderService) GetByNumber(ctx context.Context, orderNumber string) (*PurchaseOrderResponse, error) {
	order, err := s.store.PurchaseOrders().FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// List returns a page of order headers
func (s *PurchaseOrderService) List(ctx context.Context, req ListPurchaseOrdersRequest) (*shared.Paginated[PurchaseOrderListItemResponse], error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
	}
	if req.OrderDir != "" {
		filter.OrderDir = req.OrderDir
	}
	if req.Status != "" {
		status, err := purchasing.ParseStatus(req.Status)
		if err != nil {
			return nil, err
		}
		filter.Filters["status"] = status
	}
	if req.SupplierID != nil {
		filter.Filters["supplier_id"] = *req.SupplierID
	}

	orders, total, err := s.store.PurchaseOrders().FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(ToPurchaseOrderListItemResponses(orders), total, filter.Page, filter.PageSize)
	return &page, nil
}

// History returns the order's status history, oldest first
func (s *PurchaseOrderService) History(ctx context.Context, orderID uuid.UUID) ([]StatusHistoryResponse, error) {
	order, err := s.store.PurchaseOrders().FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToStatusHistoryResponses(order.History), nil
}

// mutate loads the order under lock, applies op and writes it back
func (s *PurchaseOrderService) mutate(ctx context.Context, orderID uuid.UUID, action string, op func(*purchasing.PurchaseOrder, time.Time) error) (*PurchaseOrderResponse, error) {
	var order *purchasing.PurchaseOrder
	err := s.store.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		order, err = repos.PurchaseOrders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := op(order, s.clock.Now()); err != nil {
			return err
		}
		return repos.PurchaseOrders().Update(ctx, order)
	})
	if err != nil {
		s.logger.Debug("purchase order "+action+" rejected", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("purchase order "+action,
		zap.String("order_number", order.OrderNumber),
		zap.String("status", order.Status.String()),
		zap.String("total", order.Total.String()))
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// lineInput validates req and snapshots product data. It reads outside any
// transaction.
func (s *PurchaseOrderService) lineInput(ctx context.Context, req LineRequest) (purchasing.LineInput, error) {
	if err := validation.Struct(req); err != nil {
		return purchasing.LineInput{}, err
	}
	product, err := s.products.Get(ctx, req.ProductID)
	if err != nil {
		return purchasing.LineInput{}, err
	}

	tax := decimal.Zero
	if req.TaxPercent != nil {
		tax = *req.TaxPercent
	} else if s.taxes != nil {
		rate, ok, err := s.taxes.ResolveRate(ctx, req.ProductID)
		if err != nil {
			return purchasing.LineInput{}, err
		}
		if ok {
			tax = rate
		}
	}

	return purchasing.LineInput{
		ProductID:       product.ID,
		ProductName:     product.Name,
		SKU:             product.SKU,
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		DiscountPercent: req.DiscountPercent,
		TaxPercent:      tax,
		ExpectedDate:    req.ExpectedDate,
		Notes:           req.Notes,
	}, nil
}

// receivingWarehouse picks the request's warehouse, then the order's, then the primary
func (s *PurchaseOrderService) receivingWarehouse(ctx context.Context, o *purchasing.PurchaseOrder, requested *uuid.UUID) (uuid.UUID, error) {
	switch {
	case requested != nil:
		return *requested, nil
	case o.WarehouseID != nil:
		return *o.WarehouseID, nil
	}
	primary, err := s.store.Warehouses().FindPrimary(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return uuid.Nil, shared.ErrNotFound.WithMessage("order %s has no warehouse and no primary warehouse is set", o.OrderNumber)
		}
		return uuid.Nil, err
	}
	return primary.ID, nil
}

func requireActiveWarehouse(ctx context.Context, repos uow.Repositories, id uuid.UUID) error {
	w, err := repos.Warehouses().FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !w.IsActive {
		return shared.ErrInactiveWarehouse.WithMessage("warehouse %q is inactive", w.Name)
	}
	return nil
}
