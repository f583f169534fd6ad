// Package core provides amount parsing for values entering from the outside.
//
// Every numeric field that crosses the API boundary goes through ParseAmount
// or ParseDayOfMonth, so the calculators only ever see finite numbers.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a finite amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Anything
// that does not parse as a decimal number yields 0 instead of an error.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("1,234.5") -> 1234.5
//	ParseAmount("abc")    -> 0
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		// thousands separator
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return FiniteOrZero(d.InexactFloat64())
}

// FiniteOrZero maps NaN and infinities to 0.
func FiniteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseDayOfMonth parses a day-of-month field; invalid input yields 0.
func ParseDayOfMonth(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// RoundCents rounds an amount to two decimals, half away from zero.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(FiniteOrZero(v)).Round(2).InexactFloat64()
}
