// Package core provides sales amount parsing.
//
// Amounts are kept as arbitrary-precision decimals so that sums over a
// whole year stay exact.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseSales converts a numeric string to a non-negative decimal.
//
// Surrounding whitespace is ignored. Scientific notation is accepted because
// spreadsheet exports sometimes produce it.
//
// Examples:
//
//	ParseSales("12.34")  -> 12.34, nil
//	ParseSales(" 100 ")  -> 100, nil
//	ParseSales("-1")     -> 0, ErrNegativeSales
//	ParseSales("abc")    -> 0, ErrInvalidAmount
func ParseSales(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeSales
	}
	return d, nil
}
