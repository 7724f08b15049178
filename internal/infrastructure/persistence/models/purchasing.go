package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/purchasing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
// Children are loaded and written by the repository, not through associations.
type PurchaseOrderModel struct {
	AggregateModel
	OrderNumber          string            `gorm:"type:varchar(50);not null;uniqueIndex:idx_purchase_orders_number"`
	SupplierID           uuid.UUID         `gorm:"type:uuid;not null;index"`
	WarehouseID          *uuid.UUID        `gorm:"type:uuid;index"`
	OrderDate            time.Time         `gorm:"not null;index"`
	ExpectedDeliveryDate *time.Time        `gorm:"index"`
	ActualDeliveryDate   *time.Time        `gorm:"column:actual_delivery_date"`
	Status               purchasing.Status `gorm:"type:varchar(30);not null;default:'DRAFT';index"`
	Subtotal             decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount            decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount       decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingCost         decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Total                decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	ReferenceNumber      string            `gorm:"type:varchar(100)"`
	ShippingAddress      string            `gorm:"type:text"`
	BillingAddress       string            `gorm:"type:text"`
	Notes                string            `gorm:"type:text"`
	Terms                string            `gorm:"type:text"`
	CreatedBy            string            `gorm:"type:varchar(100)"`
	UpdatedBy            string            `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the header to a domain PurchaseOrder without children
func (m *PurchaseOrderModel) ToDomain() *purchasing.PurchaseOrder {
	return &purchasing.PurchaseOrder{
		BaseAggregateRoot:    m.ToAggregateRoot(),
		OrderNumber:          m.OrderNumber,
		SupplierID:           m.SupplierID,
		WarehouseID:          m.WarehouseID,
		OrderDate:            m.OrderDate,
		ExpectedDeliveryDate: m.ExpectedDeliveryDate,
		ActualDeliveryDate:   m.ActualDeliveryDate,
		Status:               m.Status,
		Subtotal:             m.Subtotal,
		TaxAmount:            m.TaxAmount,
		DiscountAmount:       m.DiscountAmount,
		ShippingCost:         m.ShippingCost,
		Total:                m.Total,
		ReferenceNumber:      m.ReferenceNumber,
		ShippingAddress:      m.ShippingAddress,
		BillingAddress:       m.BillingAddress,
		Notes:                m.Notes,
		Terms:                m.Terms,
		CreatedBy:            m.CreatedBy,
		UpdatedBy:            m.UpdatedBy,
	}
}

// FromDomain populates the header model from a domain PurchaseOrder
func (m *PurchaseOrderModel) FromDomain(o *purchasing.PurchaseOrder) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.SupplierID = o.SupplierID
	m.WarehouseID = o.WarehouseID
	m.OrderDate = o.OrderDate
	m.ExpectedDeliveryDate = o.ExpectedDeliveryDate
	m.ActualDeliveryDate = o.ActualDeliveryDate
	m.Status = o.Status
	m.Subtotal = o.Subtotal
	m.TaxAmount = o.TaxAmount
	m.DiscountAmount = o.DiscountAmount
	m.ShippingCost = o.ShippingCost
	m.Total = o.Total
	m.ReferenceNumber = o.ReferenceNumber
	m.ShippingAddress = o.ShippingAddress
	m.BillingAddress = o.BillingAddress
	m.Notes = o.Notes
	m.Terms = o.Terms
	m.CreatedBy = o.CreatedBy
	m.UpdatedBy = o.UpdatedBy
}

// PurchaseOrderModelFromDomain creates a header model from a domain PurchaseOrder
func PurchaseOrderModelFromDomain(o *purchasing.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	return m
}

// PurchaseOrderLineModel is the persistence model for a purchase order line
type PurchaseOrderLineModel struct {
	BaseModel
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_po_lines_order_position,priority:1"`
	Position         int             `gorm:"not null;index:idx_po_lines_order_position,priority:2"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName      string          `gorm:"type:varchar(200)"`
	SKU              string          `gorm:"column:sku;type:varchar(100)"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountPercent  decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	TaxPercent       decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ExpectedDate     *time.Time      `gorm:"column:expected_date"`
	Notes            string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// ToDomain converts the persistence model to a domain Line
func (m *PurchaseOrderLineModel) ToDomain() purchasing.Line {
	return purchasing.Line{
		ID:               m.ID,
		OrderID:          m.OrderID,
		ProductID:        m.ProductID,
		ProductName:      m.ProductName,
		SKU:              m.SKU,
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		DiscountPercent:  m.DiscountPercent,
		TaxPercent:       m.TaxPercent,
		LineTotal:        m.LineTotal,
		ReceivedQuantity: m.ReceivedQuantity,
		ExpectedDate:     m.ExpectedDate,
		Notes:            m.Notes,
		Position:         m.Position,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// PurchaseOrderLineModelFromDomain creates a persistence model from a domain Line
func PurchaseOrderLineModelFromDomain(orderID uuid.UUID, l *purchasing.Line) *PurchaseOrderLineModel {
	return &PurchaseOrderLineModel{
		BaseModel: BaseModel{
			ID:        l.ID,
			CreatedAt: l.CreatedAt,
			UpdatedAt: l.UpdatedAt,
		},
		OrderID:          orderID,
		Position:         l.Position,
		ProductID:        l.ProductID,
		ProductName:      l.ProductName,
		SKU:              l.SKU,
		Quantity:         l.Quantity,
		UnitPrice:        l.UnitPrice,
		DiscountPercent:  l.DiscountPercent,
		TaxPercent:       l.TaxPercent,
		LineTotal:        l.LineTotal,
		ReceivedQuantity: l.ReceivedQuantity,
		ExpectedDate:     l.ExpectedDate,
		Notes:            l.Notes,
	}
}

// PurchaseOrderStatusHistoryModel is an append-only audit row.
// Position preserves insertion order for entries sharing a timestamp.
type PurchaseOrderStatusHistoryModel struct {
	ID        uuid.UUID         `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_po_history_order_position,priority:1"`
	Position  int               `gorm:"not null;uniqueIndex:idx_po_history_order_position,priority:2"`
	Status    purchasing.Status `gorm:"type:varchar(30);not null"`
	Note      string            `gorm:"type:text"`
	ChangedBy string            `gorm:"type:varchar(100)"`
	ChangedAt time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderStatusHistoryModel) TableName() string {
	return "purchase_order_status_history"
}

// ToDomain converts the persistence model to a domain StatusHistory
func (m *PurchaseOrderStatusHistoryModel) ToDomain() purchasing.StatusHistory {
	return purchasing.StatusHistory{
		ID:        m.ID,
		OrderID:   m.OrderID,
		Status:    m.Status,
		Note:      m.Note,
		ChangedBy: m.ChangedBy,
		ChangedAt: m.ChangedAt,
	}
}

// PurchaseOrderStatusHistoryModelFromDomain creates a history row at position
func PurchaseOrderStatusHistoryModelFromDomain(orderID uuid.UUID, position int, h *purchasing.StatusHistory) *PurchaseOrderStatusHistoryModel {
	return &PurchaseOrderStatusHistoryModel{
		ID:        h.ID,
		OrderID:   orderID,
		Position:  position,
		Status:    h.Status,
		Note:      h.Note,
		ChangedBy: h.ChangedBy,
		ChangedAt: h.ChangedAt,
	}
}

// PurchaseOrderAttachmentModel stores attachment metadata only
type PurchaseOrderAttachmentModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	FileName    string    `gorm:"type:varchar(255);not null"`
	ContentType string    `gorm:"type:varchar(100)"`
	SizeBytes   int64     `gorm:"not null;default:0"`
	Description string    `gorm:"type:text"`
	UploadedBy  string    `gorm:"type:varchar(100)"`
	UploadedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderAttachmentModel) TableName() string {
	return "purchase_order_attachments"
}

// ToDomain converts the persistence model to a domain Attachment
func (m *PurchaseOrderAttachmentModel) ToDomain() purchasing.Attachment {
	return purchasing.Attachment{
		ID:          m.ID,
		OrderID:     m.OrderID,
		FileName:    m.FileName,
		ContentType: m.ContentType,
		SizeBytes:   m.SizeBytes,
		Description: m.Description,
		UploadedBy:  m.UploadedBy,
		UploadedAt:  m.UploadedAt,
	}
}

// PurchaseOrderAttachmentModelFromDomain creates a persistence model from a domain Attachment
func PurchaseOrderAttachmentModelFromDomain(orderID uuid.UUID, a *purchasing.Attachment) *PurchaseOrderAttachmentModel {
	return &PurchaseOrderAttachmentModel{
		ID:          a.ID,
		OrderID:     orderID,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		Description: a.Description,
		UploadedBy:  a.UploadedBy,
		UploadedAt:  a.UploadedAt,
	}
}

// AssemblePurchaseOrder attaches children to a header. Inputs must already be ordered.
func AssemblePurchaseOrder(
	header *PurchaseOrderModel,
	lines []PurchaseOrderLineModel,
	history []PurchaseOrderStatusHistoryModel,
	attachments []PurchaseOrderAttachmentModel,
) *purchasing.PurchaseOrder {
	order := header.ToDomain()
	order.Lines = make([]purchasing.Line, len(lines))
	for i := range lines {
		order.Lines[i] = lines[i].ToDomain()
	}
	order.History = make([]purchasing.StatusHistory, len(history))
	for i := range history {
		order.History[i] = history[i].ToDomain()
	}
	order.Attachments = make([]purchasing.Attachment, len(attachments))
	for i := range attachments {
		order.Attachments[i] = attachments[i].ToDomain()
	}
	return order
}
