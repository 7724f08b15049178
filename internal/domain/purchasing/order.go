package purchasing

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrder is the aggregate root for an order placed with a supplier.
// Lines, status history and attachments are owned collections keyed by OrderID.
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber          string
	SupplierID           uuid.UUID
	WarehouseID          *uuid.UUID
	OrderDate            time.Time
	ExpectedDeliveryDate *time.Time
	ActualDeliveryDate   *time.Time
	Status               Status
	Subtotal             decimal.Decimal
	TaxAmount            decimal.Decimal
	DiscountAmount       decimal.Decimal
	ShippingCost         decimal.Decimal
	Total                decimal.Decimal
	ReferenceNumber      string
	ShippingAddress      string
	BillingAddress       string
	Notes                string
	Terms                string
	CreatedBy            string
	UpdatedBy            string
	Lines                []Line
	History              []StatusHistory
	Attachments          []Attachment
}

// Header holds the descriptive fields of a new order
type Header struct {
	SupplierID           uuid.UUID
	WarehouseID          *uuid.UUID
	OrderDate            time.Time
	ExpectedDeliveryDate *time.Time
	ReferenceNumber      string
	ShippingAddress      string
	BillingAddress       string
	Notes                string
	Terms                string
}

// NewPurchaseOrder creates an order in Draft with its initial history entry
func NewPurchaseOrder(orderNumber string, h Header, actor string, now time.Time) (*PurchaseOrder, error) {
	if strings.TrimSpace(orderNumber) == "" {
		return nil, shared.ErrInvalidInput.WithMessage("order number is required")
	}
	if h.SupplierID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("supplier is required")
	}
	orderDate := h.OrderDate
	if orderDate.IsZero() {
		orderDate = now
	}
	if h.ExpectedDeliveryDate != nil && h.ExpectedDeliveryDate.Before(orderDate) {
		return nil, shared.ErrInvalidInput.WithMessage("expected delivery date cannot precede the order date")
	}

	o := &PurchaseOrder{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(now),
		OrderNumber:          orderNumber,
		SupplierID:           h.SupplierID,
		WarehouseID:          h.WarehouseID,
		OrderDate:            orderDate,
		ExpectedDeliveryDate: h.ExpectedDeliveryDate,
		Status:               StatusDraft,
		Subtotal:             decimal.Zero,
		TaxAmount:            decimal.Zero,
		DiscountAmount:       decimal.Zero,
		ShippingCost:         decimal.Zero,
		Total:                decimal.Zero,
		ReferenceNumber:      strings.TrimSpace(h.ReferenceNumber),
		ShippingAddress:      strings.TrimSpace(h.ShippingAddress),
		BillingAddress:       strings.TrimSpace(h.BillingAddress),
		Notes:                strings.TrimSpace(h.Notes),
		Terms:                strings.TrimSpace(h.Terms),
		CreatedBy:            actor,
		UpdatedBy:            actor,
	}
	o.appendHistory(StatusDraft, "Order created", actor, now)
	return o, nil
}

// Line returns the line with the given id, or nil
func (o *PurchaseOrder) Line(lineID uuid.UUID) *Line {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// AddLine appends a line and recomputes the rollups
func (o *PurchaseOrder) AddLine(in LineInput, actor string, now time.Time) (*Line, error) {
	if err := o.requireLineEdits(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	line := Line{
		ID:               uuid.New(),
		OrderID:          o.ID,
		ReceivedQuantity: decimal.Zero,
		Position:         o.nextPosition(),
		CreatedAt:        now,
	}
	line.apply(in, now)
	o.Lines = append(o.Lines, line)
	o.Recalculate()
	o.touch(actor, now)
	return &o.Lines[len(o.Lines)-1], nil
}

// UpdateLine replaces a line's editable fields
func (o *PurchaseOrder) UpdateLine(lineID uuid.UUID, in LineInput, actor string, now time.Time) error {
	if err := o.requireLineEdits(); err != nil {
		return err
	}
	line := o.Line(lineID)
	if line == nil {
		return shared.ErrNotFound.WithMessage("line %s not found on order %s", lineID, o.OrderNumber)
	}
	if err := in.validate(); err != nil {
		return err
	}
	before := *line
	line.apply(in, now)
	if err := o.checkDiscount(o.linesTotal()); err != nil {
		*line = before
		return err
	}
	o.Recalculate()
	o.touch(actor, now)
	return nil
}

// RemoveLine drops a line from the order. A removal that would leave the
// order discount above the remaining amount is rejected; lower the discount
// first.
func (o *PurchaseOrder) RemoveLine(lineID uuid.UUID, actor string, now time.Time) error {
	if err := o.requireLineEdits(); err != nil {
		return err
	}
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			if err := o.checkDiscount(o.linesTotal().Sub(o.Lines[i].LineTotal)); err != nil {
				return err
			}
			o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
			o.Recalculate()
			o.touch(actor, now)
			return nil
		}
	}
	return shared.ErrNotFound.WithMessage("line %s not found on order %s", lineID, o.OrderNumber)
}

// SetCharges sets the order-level discount amount and shipping cost
func (o *PurchaseOrder) SetCharges(discount, shipping decimal.Decimal, actor string, now time.Time) error {
	if err := o.requireLineEdits(); err != nil {
		return err
	}
	if discount.IsNegative() || shipping.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("discount and shipping cannot be negative")
	}
	discount = discount.Round(MoneyScale)
	shipping = shipping.Round(MoneyScale)
	if discount.GreaterThan(o.linesTotal().Add(shipping)) {
		return shared.ErrInvalidInput.WithMessage("discount %s exceeds the order amount", discount)
	}
	o.DiscountAmount = discount
	o.ShippingCost = shipping
	o.Recalculate()
	o.touch(actor, now)
	return nil
}

// SetWarehouse sets the default receiving warehouse
func (o *PurchaseOrder) SetWarehouse(warehouseID uuid.UUID, actor string, now time.Time) error {
	if o.Status.IsTerminal() {
		return shared.ErrInvalidState.WithMessage("order %s is %s", o.OrderNumber, o.Status)
	}
	o.WarehouseID = &warehouseID
	o.touch(actor, now)
	return nil
}

// AddAttachment records attachment metadata
func (o *PurchaseOrder) AddAttachment(in AttachmentInput, actor string, now time.Time) (*Attachment, error) {
	if o.Status.IsTerminal() {
		return nil, shared.ErrInvalidState.WithMessage("order %s is %s", o.OrderNumber, o.Status)
	}
	name := strings.TrimSpace(in.FileName)
	if name == "" {
		return nil, shared.ErrInvalidInput.WithMessage("file name is required")
	}
	if in.SizeBytes < 0 {
		return nil, shared.ErrInvalidInput.WithMessage("file size cannot be negative")
	}
	o.Attachments = append(o.Attachments, Attachment{
		ID:          uuid.New(),
		OrderID:     o.ID,
		FileName:    name,
		ContentType: strings.TrimSpace(in.ContentType),
		SizeBytes:   in.SizeBytes,
		Description: strings.TrimSpace(in.Description),
		UploadedBy:  actor,
		UploadedAt:  now,
	})
	o.touch(actor, now)
	return &o.Attachments[len(o.Attachments)-1], nil
}

// TransitionTo moves the order along the workflow graph and appends the
// matching history entry.
func (o *PurchaseOrder) TransitionTo(target Status, actor, note string, now time.Time) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.ErrInvalidTransition.WithMessage("order %s cannot move from %s to %s", o.OrderNumber, o.Status, target)
	}
	switch target {
	case StatusOrdered:
		if len(o.Lines) == 0 {
			return shared.ErrInvalidState.WithMessage("order %s has no lines", o.OrderNumber)
		}
	case StatusCompleted:
		if !o.IsFullyReceived() {
			return shared.ErrIncompleteReceipt.WithMessage("order %s has under-received lines", o.OrderNumber)
		}
		delivered := now
		o.ActualDeliveryDate = &delivered
	}
	o.Status = target
	o.appendHistory(target, note, actor, now)
	o.touch(actor, now)
	return nil
}

// ReceiptOptions carries the completion policy
type ReceiptOptions struct {
	AutoComplete bool
}

// Receive books quantity against a line. The first receipt moves an Ordered
// order to PartiallyReceived; with AutoComplete the receipt that fills the
// last line also completes the order.
func (o *PurchaseOrder) Receive(lineID uuid.UUID, quantity decimal.Decimal, actor string, now time.Time, opts ReceiptOptions) (*Line, error) {
	if !o.Status.AllowsReceipt() {
		return nil, shared.ErrInvalidState.WithMessage("order %s is %s and cannot receive goods", o.OrderNumber, o.Status)
	}
	line := o.Line(lineID)
	if line == nil {
		return nil, shared.ErrNotFound.WithMessage("line %s not found on order %s", lineID, o.OrderNumber)
	}
	if err := line.receive(quantity, now); err != nil {
		return nil, err
	}

	if o.Status == StatusOrdered {
		if err := o.TransitionTo(StatusPartiallyReceived, actor, "Goods received", now); err != nil {
			return nil, err
		}
	}
	if opts.AutoComplete && o.IsFullyReceived() {
		if err := o.TransitionTo(StatusCompleted, actor, "All lines received", now); err != nil {
			return nil, err
		}
	}
	o.touch(actor, now)
	return line, nil
}

// Cancel is TransitionTo(Cancelled)
func (o *PurchaseOrder) Cancel(actor, reason string, now time.Time) error {
	return o.TransitionTo(StatusCancelled, actor, reason, now)
}

// IsFullyReceived is true when the order has lines and every line is fully received
func (o *PurchaseOrder) IsFullyReceived() bool {
	if len(o.Lines) == 0 {
		return false
	}
	for i := range o.Lines {
		if !o.Lines[i].IsFullyReceived() {
			return false
		}
	}
	return true
}

// Recalculate derives the rollups from the current lines. Subtotal rounds the
// sum of unrounded net amounts; tax is the remainder up to the sum of line totals.
func (o *PurchaseOrder) Recalculate() {
	net := decimal.Zero
	for i := range o.Lines {
		net = net.Add(o.Lines[i].NetAmount())
	}
	lines := o.linesTotal()
	o.Subtotal = net.Round(MoneyScale)
	o.TaxAmount = lines.Sub(o.Subtotal)
	o.Total = lines.Add(o.ShippingCost).Sub(o.DiscountAmount)
}

// LatestHistory returns the most recent history entry
func (o *PurchaseOrder) LatestHistory() *StatusHistory {
	if len(o.History) == 0 {
		return nil
	}
	return &o.History[len(o.History)-1]
}

// checkDiscount rejects a line edit that would leave the order discount
// above lines plus shipping
func (o *PurchaseOrder) checkDiscount(lines decimal.Decimal) error {
	if o.DiscountAmount.GreaterThan(lines.Add(o.ShippingCost)) {
		return shared.ErrInvalidInput.WithMessage(
			"order discount %s would exceed the order amount %s; lower the discount first",
			o.DiscountAmount, lines.Add(o.ShippingCost))
	}
	return nil
}

func (o *PurchaseOrder) linesTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Lines {
		total = total.Add(o.Lines[i].LineTotal)
	}
	return total
}

func (o *PurchaseOrder) requireLineEdits() error {
	if !o.Status.AllowsLineEdits() {
		return shared.ErrInvalidState.WithMessage("order %s is %s; lines can only change in %s or %s",
			o.OrderNumber, o.Status, StatusDraft, StatusPendingApproval)
	}
	return nil
}

func (o *PurchaseOrder) nextPosition() int {
	pos := 0
	for i := range o.Lines {
		if o.Lines[i].Position >= pos {
			pos = o.Lines[i].Position + 1
		}
	}
	return pos
}

func (o *PurchaseOrder) appendHistory(status Status, note, actor string, now time.Time) {
	o.History = append(o.History, StatusHistory{
		ID:        uuid.New(),
		OrderID:   o.ID,
		Status:    status,
		Note:      strings.TrimSpace(note),
		ChangedBy: actor,
		ChangedAt: now,
	})
}

func (o *PurchaseOrder) touch(actor string, now time.Time) {
	o.UpdatedBy = actor
	o.Touch(now)
}
