package purchasing

import (
	"time"

	"github.com/erp/stockledger/internal/domain/purchasing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePurchaseOrderRequest represents a request to create a purchase order
type CreatePurchaseOrderRequest struct {
	SupplierID           uuid.UUID  `json:"supplier_id" validate:"required"`
	WarehouseID          *uuid.UUID `json:"warehouse_id"`
	OrderDate            time.Time  `json:"order_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date"`
	ReferenceNumber      string     `json:"reference_number" validate:"max=100"`
	ShippingAddress      string     `json:"shipping_address" validate:"max=500"`
	BillingAddress       string     `json:"billing_address" validate:"max=500"`
	Notes                string     `json:"notes" validate:"max=2000"`
	Terms                string     `json:"terms" validate:"max=2000"`
	Actor                string     `json:"actor" validate:"max=100"`
}

// LineRequest adds or replaces an order line. A nil TaxPercent takes the
// rate of the product's primary tax profile.
type LineRequest struct {
	ProductID       uuid.UUID        `json:"product_id" validate:"required"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unit_price" validate:"gte=0"`
	DiscountPercent decimal.Decimal  `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      *decimal.Decimal `json:"tax_percent"`
	ExpectedDate    *time.Time       `json:"expected_date"`
	Notes           string           `json:"notes" validate:"max=500"`
	Actor           string           `json:"actor" validate:"max=100"`
}

// SetChargesRequest sets order-level discount and shipping
type SetChargesRequest struct {
	DiscountAmount decimal.Decimal `json:"discount_amount" validate:"gte=0"`
	ShippingCost   decimal.Decimal `json:"shipping_cost" validate:"gte=0"`
	Actor          string          `json:"actor" validate:"max=100"`
}

// AddAttachmentRequest records attachment metadata
type AddAttachmentRequest struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"max=100"`
	SizeBytes   int64  `json:"size_bytes" validate:"gte=0"`
	Description string `json:"description" validate:"max=500"`
	Actor       string `json:"actor" validate:"max=100"`
}

// TransitionRequest moves an order to another status
type TransitionRequest struct {
	Target string `json:"target" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
	Actor  string `json:"actor" validate:"max=100"`
}

// ReceiveRequest books goods against one line. WarehouseID falls back to the
// order's warehouse and then to the primary warehouse.
type ReceiveRequest struct {
	LineID      uuid.UUID       `json:"line_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	WarehouseID *uuid.UUID      `json:"warehouse_id"`
	Actor       string          `json:"actor" validate:"max=100"`
}

// ListPurchaseOrdersRequest filters the order list
type ListPurchaseOrdersRequest struct {
	Status     string     `json:"status"`
	SupplierID *uuid.UUID `json:"supplier_id"`
	Page       int        `json:"page" validate:"omitempty,min=1"`
	PageSize   int        `json:"page_size" validate:"omitempty,min=1,max=100"`
	OrderBy    string     `json:"order_by" validate:"omitempty,oneof=order_date order_number expected_delivery_date status total created_at"`
	OrderDir   string     `json:"order_dir" validate:"omitempty,oneof=asc desc"`
}

// PurchaseOrderResponse represents a purchase order with its lines
type PurchaseOrderResponse struct {
	ID                   uuid.UUID            `json:"id"`
	OrderNumber          string               `json:"order_number"`
	SupplierID           uuid.UUID            `json:"supplier_id"`
	WarehouseID          *uuid.UUID           `json:"warehouse_id,omitempty"`
	OrderDate            time.Time            `json:"order_date"`
	ExpectedDeliveryDate *time.Time           `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time           `json:"actual_delivery_date,omitempty"`
	Status               string               `json:"status"`
	NextStatuses         []string             `json:"next_statuses"`
	Subtotal             decimal.Decimal      `json:"subtotal"`
	TaxAmount            decimal.Decimal      `json:"tax_amount"`
	DiscountAmount       decimal.Decimal      `json:"discount_amount"`
	ShippingCost         decimal.Decimal      `json:"shipping_cost"`
	Total                decimal.Decimal      `json:"total"`
	ReferenceNumber      string               `json:"reference_number,omitempty"`
	ShippingAddress      string               `json:"shipping_address,omitempty"`
	BillingAddress       string               `json:"billing_address,omitempty"`
	Notes                string               `json:"notes,omitempty"`
	Terms                string               `json:"terms,omitempty"`
	Lines                []LineResponse       `json:"lines"`
	Attachments          []AttachmentResponse `json:"attachments"`
	IsFullyReceived      bool                 `json:"is_fully_received"`
	CreatedBy            string               `json:"created_by,omitempty"`
	UpdatedBy            string               `json:"updated_by,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	Version              int                  `json:"version"`
}

// PurchaseOrderListItemResponse is the header-only list view
type PurchaseOrderListItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderNumber string          `json:"order_number"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	WarehouseID *uuid.UUID      `json:"warehouse_id,omitempty"`
	OrderDate   time.Time       `json:"order_date"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LineResponse represents one order line
type LineResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	ProductName       string          `json:"product_name"`
	SKU               string          `json:"sku"`
	Quantity          decimal.Decimal `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	TaxPercent        decimal.Decimal `json:"tax_percent"`
	LineTotal         decimal.Decimal `json:"line_total"`
	ReceivedQuantity  decimal.Decimal `json:"received_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	ExpectedDate      *time.Time      `json:"expected_date,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

// AttachmentResponse represents attachment metadata
type AttachmentResponse struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	Description string    `json:"description,omitempty"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// StatusHistoryResponse represents one audit entry
type StatusHistoryResponse struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	ChangedBy string    `json:"changed_by,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// ReceiveResultResponse is the outcome of a receipt
type ReceiveResultResponse struct {
	Order         PurchaseOrderResponse `json:"order"`
	Line          LineResponse          `json:"line"`
	WarehouseID   uuid.UUID             `json:"warehouse_id"`
	TransactionID uuid.UUID             `json:"transaction_id"`
	StockLevel    decimal.Decimal       `json:"stock_level"`
}

// ToPurchaseOrderResponse converts domain PurchaseOrder to response DTO
func ToPurchaseOrderResponse(o *purchasing.PurchaseOrder) PurchaseOrderResponse {
	lines := make([]LineResponse, len(o.Lines))
	for i := range o.Lines {
		lines[i] = ToLineResponse(&o.Lines[i])
	}
	attachments := make([]AttachmentResponse, len(o.Attachments))
	for i, a := range o.Attachments {
		attachments[i] = AttachmentResponse{
			ID:          a.ID,
			FileName:    a.FileName,
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
			Description: a.Description,
			UploadedBy:  a.UploadedBy,
			UploadedAt:  a.UploadedAt,
		}
	}
	next := o.Status.NextStatuses()
	nextStatuses := make([]string, len(next))
	for i, s := range next {
		nextStatuses[i] = s.String()
	}
	return PurchaseOrderResponse{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		SupplierID:           o.SupplierID,
		WarehouseID:          o.WarehouseID,
		OrderDate:            o.OrderDate,
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		ActualDeliveryDate:   o.ActualDeliveryDate,
		Status:               o.Status.String(),
		NextStatuses:         nextStatuses,
		Subtotal:             o.Subtotal,
		TaxAmount:            o.TaxAmount,
		DiscountAmount:       o.DiscountAmount,
		ShippingCost:         o.ShippingCost,
		Total:                o.Total,
		ReferenceNumber:      o.ReferenceNumber,
		ShippingAddress:      o.ShippingAddress,
		BillingAddress:       o.BillingAddress,
		Notes:                o.Notes,
		Terms:                o.Terms,
		Lines:                lines,
		Attachments:          attachments,
		IsFullyReceived:      o.IsFullyReceived(),
		CreatedBy:            o.CreatedBy,
		UpdatedBy:            o.UpdatedBy,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		Version:              o.Version,
	}
}

// ToPurchaseOrderListItemResponses converts order headers for list responses
func ToPurchaseOrderListItemResponses(orders []purchasing.PurchaseOrder) []PurchaseOrderListItemResponse {
	out := make([]PurchaseOrderListItemResponse, len(orders))
	for i, o := range orders {
		out[i] = PurchaseOrderListItemResponse{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			SupplierID:  o.SupplierID,
			WarehouseID: o.WarehouseID,
			OrderDate:   o.OrderDate,
			Status:      o.Status.String(),
			Total:       o.Total,
			CreatedAt:   o.CreatedAt,
			UpdatedAt:   o.UpdatedAt,
		}
	}
	return out
}

// ToLineResponse converts a domain line
func ToLineResponse(l *purchasing.Line) LineResponse {
	return LineResponse{
		ID:                l.ID,
		ProductID:         l.ProductID,
		ProductName:       l.ProductName,
		SKU:               l.SKU,
		Quantity:          l.Quantity,
		UnitPrice:         l.UnitPrice,
		DiscountPercent:   l.DiscountPercent,
		TaxPercent:        l.TaxPercent,
		LineTotal:         l.LineTotal,
		ReceivedQuantity:  l.ReceivedQuantity,
		RemainingQuantity: l.RemainingQuantity(),
		ExpectedDate:      l.ExpectedDate,
		Notes:             l.Notes,
	}
}

// ToStatusHistoryResponses converts history entries, oldest first
func ToStatusHistoryResponses(history []purchasing.StatusHistory) []StatusHistoryResponse {
	out := make([]StatusHistoryResponse, len(history))
	for i, h := range history {
		out[i] = StatusHistoryResponse{
			Status:    h.Status.String(),
			Note:      h.Note,
			ChangedBy: h.ChangedBy,
			ChangedAt: h.ChangedAt,
		}
	}
	return out
}
