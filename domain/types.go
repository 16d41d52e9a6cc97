package domain

import (
	"math"
	"strings"
)

// Currency a currency code
type Currency string

// ParseCurrency canonicalizes a currency code to its upper case form
func ParseCurrency(s string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(s)))
}

// Lower the code as printed in reports
func (c Currency) Lower() string {
	return strings.ToLower(string(c))
}

// Amount a signed quantity of a currency
type Amount float64

// Finite false for NaN and the infinities, which no holding may ever carry
func (a Amount) Finite() bool {
	return finite(float64(a))
}

// Rate the value of one unit of a currency in the reference currency
type Rate float64

// Finite false for NaN and the infinities
func (r Rate) Finite() bool {
	return finite(float64(r))
}

// Rates maps currency codes to their rate
type Rates map[Currency]Rate

// Amounts maps currency codes to amounts held
type Amounts map[Currency]Amount

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
