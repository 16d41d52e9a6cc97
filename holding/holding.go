package holding

import (
	"github.com/shopspring/decimal"
	"go-currency-keeper/domain"
)

// Holding one tracked currency: how much of it is held and what a unit is worth
// in the reference currency. The zero values of Amount and Cost are only meaningful
// when HasAmount and HasCost are set.
type Holding struct {
	Code domain.Currency

	Amount    domain.Amount
	HasAmount bool

	// Cost value of one unit of Code in the reference currency
	Cost    domain.Rate
	HasCost bool

	// Dirty is true when Amount or Cost changed since the last reconciliation
	Dirty bool
}

// Value of the holding in the reference currency. An unset amount counts as zero.
// ok is false when the cost is not known yet, or is zero and prices nothing.
func (h Holding) Value() (value decimal.Decimal, ok bool) {
	if !h.HasCost || h.Cost == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(float64(h.Amount)).Mul(decimal.NewFromFloat(float64(h.Cost))), true
}
