package http

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"salesdash/internal/core"
)

// FormattedKPIs holds the display strings for the four KPI cards.
type FormattedKPIs struct {
	Total       string `json:"total"`
	Count       string `json:"count"`
	Average     string `json:"average"`
	TopCategory string `json:"top_category"`
}

// Formatter renders amounts and counts with locale digit grouping.
type Formatter struct {
	symbol  string
	printer *message.Printer
}

// NewFormatter builds a formatter for a BCP 47 locale tag such as "id" or "en-US".
func NewFormatter(currencySymbol, locale string) (*Formatter, error) {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return nil, fmt.Errorf("parse display locale %q: %w", locale, err)
	}
	return &Formatter{
		symbol:  strings.TrimSpace(currencySymbol),
		printer: message.NewPrinter(tag),
	}, nil
}

// Currency rounds d half-to-even to a whole unit and prefixes the symbol,
// e.g. "Rp 1.234.567".
func (f *Formatter) Currency(d decimal.Decimal) string {
	n := f.printer.Sprintf("%d", d.RoundBank(0).IntPart())
	if f.symbol == "" {
		return n
	}
	return f.symbol + " " + n
}

// Count formats an integer with grouping.
func (f *Formatter) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}

// KPIs formats the KPI block. An undefined average renders as "-".
func (f *Formatter) KPIs(k core.KPIs) FormattedKPIs {
	avg := core.NoValue
	if k.HasAverage {
		avg = f.Currency(k.Average)
	}
	return FormattedKPIs{
		Total:       f.Currency(k.Total),
		Count:       f.Count(k.Count),
		Average:     avg,
		TopCategory: k.TopCategory,
	}
}
