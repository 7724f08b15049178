package purchasing

import (
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places monetary results are rounded to
const MoneyScale = 2

var hundred = decimal.NewFromInt(100)

// Line is one product row of a purchase order
type Line struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	ProductID        uuid.UUID
	ProductName      string
	SKU              string
	Quantity         decimal.Decimal
	UnitPrice        decimal.Decimal
	DiscountPercent  decimal.Decimal
	TaxPercent       decimal.Decimal
	LineTotal        decimal.Decimal
	ReceivedQuantity decimal.Decimal
	ExpectedDate     *time.Time
	Notes            string
	Position         int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// LineInput carries the editable fields of a line
type LineInput struct {
	ProductID       uuid.UUID
	ProductName     string
	SKU             string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxPercent      decimal.Decimal
	ExpectedDate    *time.Time
	Notes           string
}

func (in LineInput) validate() error {
	if in.ProductID == uuid.Nil {
		return shared.ErrInvalidInput.WithMessage("product is required")
	}
	if !in.Quantity.IsPositive() {
		return shared.ErrInvalidQuantity.WithMessage("line quantity must be greater than zero, got %s", in.Quantity)
	}
	if in.UnitPrice.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("unit price cannot be negative")
	}
	if in.DiscountPercent.IsNegative() || in.DiscountPercent.GreaterThan(hundred) {
		return shared.ErrInvalidInput.WithMessage("discount percent must be between 0 and 100")
	}
	if in.TaxPercent.IsNegative() || in.TaxPercent.GreaterThan(hundred) {
		return shared.ErrInvalidInput.WithMessage("tax percent must be between 0 and 100")
	}
	return nil
}

// NetAmount is quantity*unitPrice after discount, unrounded
func NetAmount(quantity, unitPrice, discountPercent decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Mul(hundred.Sub(discountPercent)).Div(hundred)
}

// GrossAmount is NetAmount with tax applied, unrounded
func GrossAmount(quantity, unitPrice, discountPercent, taxPercent decimal.Decimal) decimal.Decimal {
	return NetAmount(quantity, unitPrice, discountPercent).Mul(hundred.Add(taxPercent)).Div(hundred)
}

// LineTotal rounds GrossAmount to MoneyScale. This is the only rounding
// step applied to a line.
func LineTotal(quantity, unitPrice, discountPercent, taxPercent decimal.Decimal) decimal.Decimal {
	return GrossAmount(quantity, unitPrice, discountPercent, taxPercent).Round(MoneyScale)
}

func (l *Line) apply(in LineInput, now time.Time) {
	l.ProductID = in.ProductID
	l.ProductName = strings.TrimSpace(in.ProductName)
	l.SKU = strings.TrimSpace(in.SKU)
	l.Quantity = in.Quantity
	l.UnitPrice = in.UnitPrice
	l.DiscountPercent = in.DiscountPercent
	l.TaxPercent = in.TaxPercent
	l.ExpectedDate = in.ExpectedDate
	l.Notes = strings.TrimSpace(in.Notes)
	l.LineTotal = LineTotal(l.Quantity, l.UnitPrice, l.DiscountPercent, l.TaxPercent)
	l.UpdatedAt = now
}

// NetAmount returns the line's unrounded discounted amount before tax
func (l *Line) NetAmount() decimal.Decimal {
	return NetAmount(l.Quantity, l.UnitPrice, l.DiscountPercent)
}

// RemainingQuantity is what is still expected from the supplier
func (l *Line) RemainingQuantity() decimal.Decimal {
	remaining := l.Quantity.Sub(l.ReceivedQuantity)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsFullyReceived is true once the ordered quantity has arrived
func (l *Line) IsFullyReceived() bool {
	return l.ReceivedQuantity.GreaterThanOrEqual(l.Quantity)
}

func (l *Line) receive(quantity decimal.Decimal, now time.Time) error {
	if !quantity.IsPositive() {
		return shared.ErrInvalidQuantity.WithMessage("received quantity must be greater than zero, got %s", quantity)
	}
	received := l.ReceivedQuantity.Add(quantity)
	if received.GreaterThan(l.Quantity) {
		return shared.ErrOverReceipt.WithMessage(
			"cannot receive %s of line %s: ordered %s, already received %s",
			quantity, l.ID, l.Quantity, l.ReceivedQuantity)
	}
	l.ReceivedQuantity = received
	l.UpdatedAt = now
	return nil
}
