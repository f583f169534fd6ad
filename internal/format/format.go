// Package format renders amounts, percentages and dates for display.
package format

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"trackit/internal/core"
)

const displayDate = "Jan 2, 2006"

// Currency renders whole dollars with thousands separators: $1,234.
func Currency(amount float64) string {
	d := decimal.NewFromFloat(core.FiniteOrZero(amount)).Round(0)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + "$" + humanize.Comma(d.IntPart())
}

// CurrencyPrecise renders cents as well: $1,234.57.
func CurrencyPrecise(amount float64) string {
	d := decimal.NewFromFloat(core.FiniteOrZero(amount)).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	cents := d.Sub(d.Truncate(0)).Shift(2).IntPart()
	return sign + "$" + humanize.Comma(d.IntPart()) + "." + twoDigits(cents)
}

// Percentage renders one decimal place: 12.3%.
func Percentage(v float64) string {
	return decimal.NewFromFloat(core.FiniteOrZero(v)).StringFixed(1) + "%"
}

// Date renders a YYYY-MM-DD date as "Jan 31, 2025". Input that is not a
// valid date is returned unchanged.
func Date(s string) string {
	t, ok := core.ParseDate(s)
	if !ok {
		return s
	}
	return t.Format(displayDate)
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + humanize.Comma(n)
	}
	return humanize.Comma(n)
}
