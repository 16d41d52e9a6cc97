package wallet

import (
	"fmt"
	"github.com/shopspring/decimal"
	"io"
	"strings"
)

// Render writes the summary as the plain text report:
//
//	rub: 1000
//	usd: 10
//
//	rub-usd: 95.00
//
//	sum: 1950.00 rub / 20.53 usd
func (s Summary) Render(w io.Writer) error {
	var b strings.Builder

	for _, h := range s.Holdings {
		amount := "-"
		if h.HasAmount {
			amount = decimal.NewFromFloat(float64(h.Amount)).String()
		}
		fmt.Fprintf(&b, "%s: %s\n", h.Code.Lower(), amount)
	}

	if len(s.CrossRates) > 0 {
		b.WriteString("\n")
		for _, cr := range s.CrossRates {
			fmt.Fprintf(&b, "%s-%s: %s\n", cr.Base.Lower(), cr.Quote.Lower(), cr.Rate.StringFixed(2))
		}
	}

	if len(s.Totals) > 0 {
		totals := make([]string, len(s.Totals))
		for i, t := range s.Totals {
			totals[i] = fmt.Sprintf("%s %s", t.Value.StringFixed(2), t.Code.Lower())
		}
		fmt.Fprintf(&b, "\nsum: %s\n", strings.Join(totals, " / "))
	}

	if len(s.Unpriced) > 0 {
		codes := make([]string, len(s.Unpriced))
		for i, c := range s.Unpriced {
			codes[i] = c.Lower()
		}
		fmt.Fprintf(&b, "\nunpriced: %s\n", strings.Join(codes, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
