package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitCostScale is the precision averaged unit costs are rounded to
const UnitCostScale = 4

// AmountLine is the (quantity, unit price) projection of a ledger entry
type AmountLine struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// TotalAmount sums quantity*unitPrice over lines
func TotalAmount(lines []AmountLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Quantity.Mul(l.UnitPrice))
	}
	return total
}

// WeightedAverageUnitCost is the quantity-weighted mean unit price.
// It returns zero when lines carry no quantity.
func WeightedAverageUnitCost(lines []AmountLine) decimal.Decimal {
	qty := decimal.Zero
	for _, l := range lines {
		qty = qty.Add(l.Quantity)
	}
	if qty.IsZero() {
		return decimal.Zero
	}
	return TotalAmount(lines).Div(qty).Round(UnitCostScale)
}

// DayRange widens [from, to] to whole days in from's and to's locations and
// returns a half-open interval [start, end).
func DayRange(from, to time.Time) (time.Time, time.Time) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location()).AddDate(0, 0, 1)
	return start, end
}
