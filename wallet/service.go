package wallet

import (
	"context"
	"errors"
	"fmt"
	"github.com/shopspring/decimal"
	"go-currency-keeper/domain"
	"go-currency-keeper/holding"
)

// ErrEmptyRequest a mutation named no currency at all
var ErrEmptyRequest = errors.New("empty request")

// Service reads and changes the holdings
type Service interface {
	// Summary values every holding in every currency
	Summary(ctx context.Context) (Summary, error)
	// Holding looks up one holding, case-insensitively
	Holding(ctx context.Context, code domain.Currency) (holding.Holding, error)
	// SetAmounts overwrites amounts and returns the amount of every holding
	SetAmounts(ctx context.Context, amounts domain.Amounts) (domain.Amounts, error)
	// ModifyAmounts adds deltas to amounts and returns the amount of every holding
	ModifyAmounts(ctx context.Context, deltas domain.Amounts) (domain.Amounts, error)
}

// Total the summed value of every priced holding, expressed in Code
type Total struct {
	Code  domain.Currency
	Value decimal.Decimal
}

// CrossRate how many units of Base one unit of Quote is worth
type CrossRate struct {
	Base  domain.Currency
	Quote domain.Currency
	Rate  decimal.Decimal
}

// Summary a consistent valuation of every holding
type Summary struct {
	// Reference the currency costs are expressed in
	Reference domain.Currency
	// Holdings every holding, in registry order
	Holdings []holding.Holding
	// Total value of every priced holding in the reference currency
	Total decimal.Decimal
	// Totals Total expressed in each priced currency, rounded to 2 places
	Totals []Total
	// CrossRates one per unordered pair of priced holdings, rounded to 2 places
	CrossRates []CrossRate
	// Unpriced holdings whose cost is not known yet, excluded from every figure above
	Unpriced []domain.Currency
}

// service holdings backed by a registry
type service struct {
	registry *holding.Registry
}

// NewService constructs a valid Service
func NewService(registry *holding.Registry) Service {
	return &service{
		registry: registry,
	}
}

// Summary works on a single snapshot of the registry, so every figure agrees with the others
// even while the holdings change underneath.
func (s *service) Summary(_ context.Context) (Summary, error) {
	summary := Summary{
		Reference: s.registry.Reference(),
		Holdings:  s.registry.All(),
		Total:     decimal.Zero,
	}

	var priced []holding.Holding
	for _, h := range summary.Holdings {
		value, ok := h.Value()
		if !ok {
			summary.Unpriced = append(summary.Unpriced, h.Code)
			continue
		}
		priced = append(priced, h)
		summary.Total = summary.Total.Add(value)
	}

	for _, h := range priced {
		summary.Totals = append(summary.Totals, Total{
			Code:  h.Code,
			Value: summary.Total.DivRound(cost(h), 2),
		})
	}

	for i, base := range priced {
		for _, quote := range priced[i+1:] {
			summary.CrossRates = append(summary.CrossRates, CrossRate{
				Base:  base.Code,
				Quote: quote.Code,
				Rate:  cost(quote).DivRound(cost(base), 2),
			})
		}
	}

	return summary, nil
}

func (s *service) Holding(_ context.Context, code domain.Currency) (holding.Holding, error) {
	h, err := s.registry.Find(domain.ParseCurrency(string(code)))
	if err != nil {
		return holding.Holding{}, fmt.Errorf("holding: %w", err)
	}
	return h, nil
}

func (s *service) SetAmounts(_ context.Context, amounts domain.Amounts) (domain.Amounts, error) {
	if len(amounts) == 0 {
		return nil, fmt.Errorf("set amounts: %w", ErrEmptyRequest)
	}
	canonical := domain.Amounts{}
	for code, a := range amounts {
		canonical[domain.ParseCurrency(string(code))] = a
	}
	holdings, err := s.registry.SetAmounts(canonical)
	if err != nil {
		return nil, fmt.Errorf("set amounts: %w", err)
	}
	return amountsOf(holdings), nil
}

func (s *service) ModifyAmounts(_ context.Context, deltas domain.Amounts) (domain.Amounts, error) {
	if len(deltas) == 0 {
		return nil, fmt.Errorf("modify amounts: %w", ErrEmptyRequest)
	}
	canonical := domain.Amounts{}
	for code, d := range deltas {
		canonical[domain.ParseCurrency(string(code))] += d
	}
	holdings, err := s.registry.ModifyAmounts(canonical)
	if err != nil {
		return nil, fmt.Errorf("modify amounts: %w", err)
	}
	return amountsOf(holdings), nil
}

func cost(h holding.Holding) decimal.Decimal {
	return decimal.NewFromFloat(float64(h.Cost))
}

// amountsOf maps every holding to its amount, an unset amount reads as zero
func amountsOf(holdings []holding.Holding) domain.Amounts {
	amounts := make(domain.Amounts, len(holdings))
	for _, h := range holdings {
		amounts[h.Code] = h.Amount
	}
	return amounts
}
