package wallet

import (
	"context"
	"errors"
	"github.com/go-kit/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-currency-keeper/domain"
	"go-currency-keeper/holding"
	"math"
	"strings"
	"testing"
)

func amount(a domain.Amount) *domain.Amount {
	return &a
}

// scenario RUB 1000 at 1, USD 10 at 95
func scenario(t *testing.T) *holding.Registry {
	reg := holding.NewRegistry("RUB")
	require.NoError(t, reg.Add("RUB", amount(1000)))
	require.NoError(t, reg.Add("USD", amount(10)))
	_, err := reg.Observe("USD", 95.0)
	require.NoError(t, err)
	return reg
}

func TestService_Summary(t *testing.T) {
	s := NewService(scenario(t))

	summary, err := s.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.Currency("RUB"), summary.Reference)
	assert.True(t, summary.Total.Equal(decimal.NewFromInt(1950)), summary.Total.String())
	require.Len(t, summary.Totals, 2)
	assert.Equal(t, domain.Currency("RUB"), summary.Totals[0].Code)
	assert.Equal(t, "1950.00", summary.Totals[0].Value.StringFixed(2))
	assert.Equal(t, domain.Currency("USD"), summary.Totals[1].Code)
	assert.Equal(t, "20.53", summary.Totals[1].Value.StringFixed(2))
	require.Len(t, summary.CrossRates, 1)
	assert.Equal(t, CrossRate{Base: "RUB", Quote: "USD", Rate: summary.CrossRates[0].Rate}, summary.CrossRates[0])
	assert.Equal(t, "95.00", summary.CrossRates[0].Rate.StringFixed(2))
	assert.Empty(t, summary.Unpriced)
}

func TestService_SummaryExcludesUnpriced(t *testing.T) {
	reg := scenario(t)
	require.NoError(t, reg.Add("EUR", amount(3)))
	s := NewService(reg)

	summary, err := s.Summary(context.Background())

	require.NoError(t, err)
	assert.Len(t, summary.Holdings, 3)
	assert.Equal(t, []domain.Currency{"EUR"}, summary.Unpriced)
	assert.True(t, summary.Total.Equal(decimal.NewFromInt(1950)))
	assert.Len(t, summary.Totals, 2)
	assert.Len(t, summary.CrossRates, 1)
}

func TestService_SummaryCrossRatesAreReciprocal(t *testing.T) {
	reg := holding.NewRegistry("RUB")
	for code, cost := range map[domain.Currency]domain.Rate{"USD": 95.0, "EUR": 100.5, "CNY": 13.2} {
		require.NoError(t, reg.Add(code, amount(1)))
		_, _ = reg.Observe(code, cost)
	}
	s := NewService(reg)

	summary, err := s.Summary(context.Background())
	require.NoError(t, err)

	// four priced holdings, six unordered pairs
	require.Len(t, summary.CrossRates, 6)
	costs := map[domain.Currency]float64{}
	for _, h := range summary.Holdings {
		costs[h.Code] = float64(h.Cost)
	}
	for _, cr := range summary.CrossRates {
		rate := cr.Rate.InexactFloat64()
		assert.InDelta(t, costs[cr.Quote]/costs[cr.Base], rate, 0.005, "%v-%v", cr.Base, cr.Quote)

		reverse := decimal.NewFromFloat(costs[cr.Base]).DivRound(decimal.NewFromFloat(costs[cr.Quote]), 2).InexactFloat64()
		// each side is off by at most half a cent
		tolerance := 0.005*(rate+reverse) + 0.001
		assert.InDelta(t, 1.0, rate*reverse, tolerance, "%v-%v", cr.Base, cr.Quote)
	}
}

func TestService_Holding(t *testing.T) {
	s := NewService(scenario(t))

	usd, err := s.Holding(context.Background(), "usd")
	require.NoError(t, err)
	assert.Equal(t, domain.Currency("USD"), usd.Code)
	assert.Equal(t, domain.Amount(10), usd.Amount)
	assert.Equal(t, domain.Rate(95), usd.Cost)

	_, err = s.Holding(context.Background(), "GBP")
	assert.True(t, errors.Is(err, holding.ErrUnknownCurrency))
}

func TestService_SetAmounts(t *testing.T) {
	reg := scenario(t)
	s := NewLoggingService(log.NewNopLogger(), NewService(reg))

	tests := []struct {
		name    string
		amounts domain.Amounts
		want    domain.Amounts
		wantErr error
	}{
		{"overwrite", domain.Amounts{"usd": 42}, domain.Amounts{"RUB": 1000, "USD": 42}, nil},
		{"idempotent", domain.Amounts{"usd": 42}, domain.Amounts{"RUB": 1000, "USD": 42}, nil},
		{"unknown codes ignored", domain.Amounts{"GBP": 1, "RUB": 7}, domain.Amounts{"RUB": 7, "USD": 42}, nil},
		{"empty", domain.Amounts{}, nil, ErrEmptyRequest},
		{"nil", nil, nil, ErrEmptyRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SetAmounts(context.Background(), tt.amounts)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	usd, _ := reg.Find("USD")
	assert.True(t, usd.Dirty)
}

func TestService_ModifyAmounts(t *testing.T) {
	reg := scenario(t)
	s := NewService(reg)

	got, err := s.ModifyAmounts(context.Background(), domain.Amounts{"usd": 5})
	require.NoError(t, err)
	assert.Equal(t, domain.Amounts{"RUB": 1000, "USD": 15}, got)

	got, err = s.ModifyAmounts(context.Background(), domain.Amounts{"usd": 5})
	require.NoError(t, err)
	assert.Equal(t, domain.Amounts{"RUB": 1000, "USD": 20}, got)

	usd, _ := reg.Find("USD")
	assert.True(t, usd.Dirty)

	_, err = s.ModifyAmounts(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrEmptyRequest))
}

func TestService_AmountsStayFinite(t *testing.T) {
	reg := scenario(t)
	s := NewService(reg)

	_, err := s.ModifyAmounts(context.Background(), domain.Amounts{"usd": 1e308})
	require.NoError(t, err)
	_, err = s.ModifyAmounts(context.Background(), domain.Amounts{"usd": 1e308})
	assert.True(t, errors.Is(err, holding.ErrInvalidAmount))

	_, err = s.SetAmounts(context.Background(), domain.Amounts{"rub": domain.Amount(math.NaN())})
	assert.True(t, errors.Is(err, holding.ErrInvalidAmount))

	usd, _ := reg.Find("USD")
	assert.Equal(t, domain.Amount(1e308), usd.Amount)
	rub, _ := reg.Find("RUB")
	assert.Equal(t, domain.Amount(1000), rub.Amount)

	summary, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary.Totals, 2)
}

func TestSummary_Render(t *testing.T) {
	reg := scenario(t)
	require.NoError(t, reg.Add("EUR", nil))
	summary, err := NewService(reg).Summary(context.Background())
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, summary.Render(&b))

	want := `rub: 1000
usd: 10
eur: -

rub-usd: 95.00

sum: 1950.00 rub / 20.53 usd

unpriced: eur
`
	assert.Equal(t, want, b.String())
}
