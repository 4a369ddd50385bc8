// Package analytics filters the sales dataset and computes the dashboard
// aggregates.
//
// Compute is a pure function of the criteria and the immutable dataset:
// it never fails, and an empty selection yields zero totals, no average,
// the "-" top category and a no-data marker for the share chart.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"salesdash/internal/core"
	"salesdash/internal/dataset"
)

// divisionPlaces bounds the precision of means and shares.
const divisionPlaces = 8

// Engine computes dashboard results over one dataset.
type Engine struct {
	ds *dataset.Dataset
}

func NewEngine(ds *dataset.Dataset) *Engine {
	if ds == nil {
		ds = dataset.New(nil)
	}
	return &Engine{ds: ds}
}

// Dataset returns the table the engine reads from.
func (e *Engine) Dataset() *dataset.Dataset {
	return e.ds
}

// Select returns the rows matching c, in load order.
func (e *Engine) Select(c core.Criteria) []core.Transaction {
	var cats map[string]struct{}
	if norm := core.NormalizeCategories(c.Categories); len(norm) > 0 {
		cats = make(map[string]struct{}, len(norm))
		for _, name := range norm {
			cats[name] = struct{}{}
		}
	}

	var out []core.Transaction
	e.ds.Each(func(t core.Transaction) {
		if t.Year != c.Year || !c.Contains(t.Date) {
			return
		}
		if cats != nil {
			if _, ok := cats[t.Category]; !ok {
				return
			}
		}
		out = append(out, t)
	})
	return out
}

// Compute filters the dataset by c and builds every aggregate.
func (e *Engine) Compute(c core.Criteria) core.Result {
	sel := e.Select(c)

	totals := CategoryTotals(sel)
	res := core.Result{
		Criteria:       c,
		KPIs:           Summarize(sel, totals),
		MonthlyTrend:   MonthlyTrend(sel),
		CategoryTotals: totals,
		DailyAverage:   DailyAverage(sel),
		CategoryShares: Shares(totals),
	}
	return res
}

// Summarize computes the KPIs. totals must be the output of CategoryTotals(sel).
func Summarize(sel []core.Transaction, totals []core.CategoryAmount) core.KPIs {
	k := core.KPIs{
		Total:       decimal.Zero,
		Average:     decimal.Zero,
		Count:       len(sel),
		TopCategory: core.NoCategory,
	}
	for _, t := range sel {
		k.Total = k.Total.Add(t.Sales)
	}
	if k.Count > 0 {
		k.Average = k.Total.DivRound(decimal.NewFromInt(int64(k.Count)), divisionPlaces)
		k.HasAverage = true
	}
	if len(totals) > 0 {
		k.TopCategory = totals[0].Name
	}
	return k
}

// MonthlyTrend sums sales per month in calendar order. Months without rows
// are omitted rather than reported as zero.
func MonthlyTrend(sel []core.Transaction) []core.MonthAmount {
	var sums [12]decimal.Decimal
	var present [12]bool
	for _, t := range sel {
		i, err := core.MonthIndex(t.Month)
		if err != nil {
			i = int(t.Date.Time.Month()) - 1
		}
		if !present[i] {
			sums[i] = decimal.Zero
			present[i] = true
		}
		sums[i] = sums[i].Add(t.Sales)
	}
	out := []core.MonthAmount{}
	for i := range sums {
		if present[i] {
			out = append(out, core.MonthAmount{Month: core.MonthAbbrevs[i], Amount: sums[i]})
		}
	}
	return out
}

// CategoryTotals sums sales per category, largest first. Equal sums are
// ordered by category name so the first entry is also the top category.
func CategoryTotals(sel []core.Transaction) []core.CategoryAmount {
	sums := map[string]decimal.Decimal{}
	for _, t := range sel {
		cur, ok := sums[t.Category]
		if !ok {
			cur = decimal.Zero
		}
		sums[t.Category] = cur.Add(t.Sales)
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amt := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Amount.Cmp(out[j].Amount); cmp != 0 {
			return cmp > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DailyAverage computes the mean sale per calendar date, oldest first.
func DailyAverage(sel []core.Transaction) []core.DayAmount {
	type acc struct {
		date  core.Date
		sum   decimal.Decimal
		count int64
	}
	byDay := map[string]*acc{}
	for _, t := range sel {
		key := t.Date.String()
		a, ok := byDay[key]
		if !ok {
			a = &acc{date: t.Date, sum: decimal.Zero}
			byDay[key] = a
		}
		a.sum = a.sum.Add(t.Sales)
		a.count++
	}
	out := make([]core.DayAmount, 0, len(byDay))
	for _, a := range byDay {
		out = append(out, core.DayAmount{
			Date:   a.date,
			Amount: a.sum.DivRound(decimal.NewFromInt(a.count), divisionPlaces),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Shares turns category totals into fractions of the grand total.
func Shares(totals []core.CategoryAmount) core.Shares {
	if len(totals) == 0 {
		return core.Shares{NoData: true, Message: core.NoDataMessage, Items: []core.CategoryShare{}}
	}
	grand := decimal.Zero
	for _, c := range totals {
		grand = grand.Add(c.Amount)
	}
	items := make([]core.CategoryShare, 0, len(totals))
	for _, c := range totals {
		share := decimal.Zero
		if !grand.IsZero() {
			share = c.Amount.DivRound(grand, divisionPlaces)
		}
		items = append(items, core.CategoryShare{Name: c.Name, Amount: c.Amount, Share: share})
	}
	return core.Shares{Items: items}
}
