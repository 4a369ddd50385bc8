package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// NoDataMessage labels the category share chart when nothing is selected.
const NoDataMessage = "No data for this period"

// KPIs are the four headline numbers of the dashboard.
type KPIs struct {
	Total       decimal.Decimal `json:"total"`
	Count       int             `json:"count"`
	Average     decimal.Decimal `json:"average"`
	HasAverage  bool            `json:"has_average"`
	TopCategory string          `json:"top_category"`
}

// MonthAmount is one point of the monthly trend.
type MonthAmount struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"category"`
	Amount decimal.Decimal `json:"amount"`
}

// DayAmount is the mean sales for one calendar date.
type DayAmount struct {
	Date   Date            `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryShare is a category total together with its fraction of the grand total.
type CategoryShare struct {
	Name   string          `json:"category"`
	Amount decimal.Decimal `json:"amount"`
	Share  decimal.Decimal `json:"share"`
}

// Shares holds the proportion chart, or a no-data marker for empty selections.
type Shares struct {
	NoData  bool            `json:"no_data"`
	Message string          `json:"message,omitempty"`
	Items   []CategoryShare `json:"items"`
}

// Result is everything the dashboard shows for one set of criteria.
type Result struct {
	Criteria       Criteria         `json:"-"`
	KPIs           KPIs             `json:"kpis"`
	MonthlyTrend   []MonthAmount    `json:"monthly_trend"`
	CategoryTotals []CategoryAmount `json:"category_totals"`
	DailyAverage   []DayAmount      `json:"daily_average"`
	CategoryShares Shares           `json:"category_shares"`
}

// Empty reports whether the result was computed over an empty selection.
func (r Result) Empty() bool {
	return r.KPIs.Count == 0
}

// NormalizeCategories trims, drops blanks, dedupes and sorts category labels.
func NormalizeCategories(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
