package analytics

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesdash/internal/core"
	"salesdash/internal/dataset"
)

func tx(y, m, d int, cat, sales string) core.Transaction {
	return core.NewTransaction(core.NewDate(y, m, d), cat, decimal.RequireFromString(sales))
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func exampleEngine() *Engine {
	return NewEngine(dataset.New([]core.Transaction{
		tx(2024, 1, 5, "Toys", "100"),
		tx(2024, 1, 20, "Toys", "50"),
		tx(2024, 2, 1, "Books", "30"),
	}))
}

func TestCompute_Example(t *testing.T) {
	res := exampleEngine().Compute(core.Criteria{
		Year:  2024,
		Start: core.NewDate(2024, 1, 1),
		End:   core.NewDate(2024, 2, 28),
	})

	assert.True(t, res.KPIs.Total.Equal(dec("180")), "total=%s", res.KPIs.Total)
	assert.Equal(t, 3, res.KPIs.Count)
	require.True(t, res.KPIs.HasAverage)
	assert.True(t, res.KPIs.Average.Equal(dec("60")), "average=%s", res.KPIs.Average)
	assert.Equal(t, "Toys", res.KPIs.TopCategory)

	require.Len(t, res.MonthlyTrend, 2)
	assert.Equal(t, "Jan", res.MonthlyTrend[0].Month)
	assert.True(t, res.MonthlyTrend[0].Amount.Equal(dec("150")))
	assert.Equal(t, "Feb", res.MonthlyTrend[1].Month)
	assert.True(t, res.MonthlyTrend[1].Amount.Equal(dec("30")))

	require.Len(t, res.CategoryTotals, 2)
	assert.Equal(t, "Toys", res.CategoryTotals[0].Name)
	assert.Equal(t, "Books", res.CategoryTotals[1].Name)

	require.Len(t, res.DailyAverage, 3)
	assert.Equal(t, "2024-01-05", res.DailyAverage[0].Date.String())
	assert.Equal(t, "2024-02-01", res.DailyAverage[2].Date.String())

	assert.False(t, res.CategoryShares.NoData)
	require.Len(t, res.CategoryShares.Items, 2)
	assert.True(t, res.CategoryShares.Items[0].Share.Equal(dec("0.83333333")), "share=%s", res.CategoryShares.Items[0].Share)
	assert.True(t, res.CategoryShares.Items[1].Share.Equal(dec("0.16666667")), "share=%s", res.CategoryShares.Items[1].Share)
}

func TestCompute_EmptySelection(t *testing.T) {
	cases := map[string]core.Criteria{
		"year not present":      {Year: 1999},
		"range excludes all":    {Year: 2024, Start: core.NewDate(2024, 3, 1), End: core.NewDate(2024, 3, 31)},
		"unknown category":      {Year: 2024, Categories: []string{"Garden"}},
		"range before the data": {Year: 2024, End: core.NewDate(2024, 1, 4)},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			res := exampleEngine().Compute(c)
			assert.True(t, res.Empty())
			assert.True(t, res.KPIs.Total.IsZero())
			assert.Equal(t, 0, res.KPIs.Count)
			assert.False(t, res.KPIs.HasAverage)
			assert.Equal(t, core.NoCategory, res.KPIs.TopCategory)
			assert.Empty(t, res.MonthlyTrend)
			assert.Empty(t, res.CategoryTotals)
			assert.Empty(t, res.DailyAverage)
			assert.True(t, res.CategoryShares.NoData)
			assert.Equal(t, core.NoDataMessage, res.CategoryShares.Message)
			assert.NotNil(t, res.MonthlyTrend)
			assert.NotNil(t, res.CategoryShares.Items)
		})
	}
}

func TestCompute_EmptyDataset(t *testing.T) {
	res := NewEngine(nil).Compute(core.Criteria{Year: 2024})
	assert.True(t, res.Empty())
	assert.Equal(t, core.NoCategory, res.KPIs.TopCategory)
}

func TestCompute_CategoryFilter(t *testing.T) {
	res := exampleEngine().Compute(core.Criteria{Year: 2024, Categories: []string{"Books"}})
	assert.Equal(t, 1, res.KPIs.Count)
	assert.Equal(t, "Books", res.KPIs.TopCategory)
	assert.True(t, res.KPIs.Total.Equal(dec("30")))
}

func TestCompute_YearFilterIgnoresOtherYears(t *testing.T) {
	e := NewEngine(dataset.New([]core.Transaction{
		tx(2023, 1, 5, "Toys", "999"),
		tx(2024, 1, 5, "Toys", "1"),
	}))
	res := e.Compute(core.Criteria{Year: 2024, Start: core.NewDate(2023, 1, 1), End: core.NewDate(2024, 12, 31)})
	assert.Equal(t, 1, res.KPIs.Count)
	assert.True(t, res.KPIs.Total.Equal(dec("1")))
}

func TestCompute_TopCategoryTieBreaksAlphabetically(t *testing.T) {
	e := NewEngine(dataset.New([]core.Transaction{
		tx(2024, 1, 1, "Zebra", "50"),
		tx(2024, 1, 2, "Apple", "20"),
		tx(2024, 1, 3, "Apple", "30"),
		tx(2024, 1, 4, "Mango", "10"),
	}))
	res := e.Compute(core.Criteria{Year: 2024})
	assert.Equal(t, "Apple", res.KPIs.TopCategory)
	names := []string{res.CategoryTotals[0].Name, res.CategoryTotals[1].Name, res.CategoryTotals[2].Name}
	assert.Equal(t, []string{"Apple", "Zebra", "Mango"}, names)
}

func TestCompute_MonthOrderIndependentOfInput(t *testing.T) {
	e := NewEngine(dataset.New([]core.Transaction{
		tx(2024, 12, 1, "A", "1"),
		tx(2024, 3, 1, "A", "1"),
		tx(2024, 7, 1, "A", "1"),
		tx(2024, 1, 9, "A", "1"),
		tx(2024, 3, 2, "A", "1"),
	}))
	res := e.Compute(core.Criteria{Year: 2024})
	var months []string
	for _, m := range res.MonthlyTrend {
		months = append(months, m.Month)
	}
	assert.Equal(t, []string{"Jan", "Mar", "Jul", "Dec"}, months)
	assert.True(t, res.MonthlyTrend[1].Amount.Equal(dec("2")))
}

func TestCompute_DailyAverageIsMeanPerDate(t *testing.T) {
	e := NewEngine(dataset.New([]core.Transaction{
		tx(2024, 5, 2, "A", "10"),
		tx(2024, 5, 1, "A", "1"),
		tx(2024, 5, 2, "B", "20"),
		tx(2024, 5, 2, "B", "30"),
	}))
	res := e.Compute(core.Criteria{Year: 2024})
	require.Len(t, res.DailyAverage, 2)
	assert.Equal(t, "2024-05-01", res.DailyAverage[0].Date.String())
	assert.True(t, res.DailyAverage[0].Amount.Equal(dec("1")))
	assert.True(t, res.DailyAverage[1].Amount.Equal(dec("20")))
}

func TestCompute_ZeroSalesDoNotDivideByZero(t *testing.T) {
	e := NewEngine(dataset.New([]core.Transaction{
		tx(2024, 5, 1, "A", "0"),
		tx(2024, 5, 1, "B", "0"),
	}))
	res := e.Compute(core.Criteria{Year: 2024})
	assert.False(t, res.CategoryShares.NoData)
	for _, s := range res.CategoryShares.Items {
		assert.True(t, s.Share.IsZero())
	}
	assert.True(t, res.KPIs.Average.IsZero())
	assert.True(t, res.KPIs.HasAverage)
}

func TestCompute_SumCheck(t *testing.T) {
	e := sampleEngine(t)
	for _, c := range []core.Criteria{
		{Year: 2024},
		{Year: 2023, Categories: []string{"Books", "Electronics"}},
		{Year: 2024, Start: core.NewDate(2024, 1, 10), End: core.NewDate(2024, 2, 1)},
	} {
		res := e.Compute(c)
		require.False(t, res.Empty(), "criteria %s", c.Key())
		sum := decimal.Zero
		for _, ct := range res.CategoryTotals {
			sum = sum.Add(ct.Amount)
		}
		assert.True(t, sum.Equal(res.KPIs.Total), "criteria %s: %s != %s", c.Key(), sum, res.KPIs.Total)
	}
}

func TestCompute_Monotonicity(t *testing.T) {
	e := sampleEngine(t)

	narrow := core.Criteria{Year: 2024, Start: core.NewDate(2024, 1, 10), End: core.NewDate(2024, 1, 31), Categories: []string{"Toys"}}
	wider := []core.Criteria{
		{Year: 2024, Start: core.NewDate(2024, 1, 1), End: core.NewDate(2024, 1, 31), Categories: []string{"Toys"}},
		{Year: 2024, Start: core.NewDate(2024, 1, 10), End: core.NewDate(2024, 12, 31), Categories: []string{"Toys"}},
		{Year: 2024, Start: core.NewDate(2024, 1, 10), End: core.NewDate(2024, 1, 31), Categories: []string{"Toys", "Books"}},
		{Year: 2024, Start: core.NewDate(2024, 1, 10), End: core.NewDate(2024, 1, 31)},
	}
	base := e.Compute(narrow)
	for _, w := range wider {
		res := e.Compute(w)
		assert.GreaterOrEqual(t, res.KPIs.Count, base.KPIs.Count, "criteria %s", w.Key())
		assert.True(t, res.KPIs.Total.GreaterThanOrEqual(base.KPIs.Total), "criteria %s", w.Key())
	}
}

func TestCompute_Idempotent(t *testing.T) {
	e := sampleEngine(t)
	c := core.Criteria{Year: 2024, Categories: []string{"Electronics", "Toys"}}
	first := e.Compute(c)
	second := e.Compute(c)
	assert.Equal(t, first, second)
}

func sampleEngine(t *testing.T) *Engine {
	t.Helper()
	rows, err := dataset.CSVSource{Path: "../../testdata/sales_sample.csv"}.Load(context.Background())
	require.NoError(t, err)
	return NewEngine(dataset.New(rows))
}

func TestCompute_DateRangeBoundsAreInclusive(t *testing.T) {
	e := NewEngine(dataset.New([]core.Transaction{
		tx(2024, 1, 31, "Toys", "1"),  // day before start
		tx(2024, 2, 1, "Toys", "10"),  // on start
		tx(2024, 2, 15, "Books", "100"),
		tx(2024, 2, 29, "Books", "1000"), // on end
		tx(2024, 3, 1, "Books", "10000"), // day after end
	}))
	start, end := core.NewDate(2024, 2, 1), core.NewDate(2024, 2, 29)

	tests := []struct {
		name      string
		start     core.Date
		end       core.Date
		wantCount int
		wantTotal string
	}{
		{"closed range keeps both bounds", start, end, 3, "1110"},
		{"single day on start", start, start, 1, "10"},
		{"single day on end", end, end, 1, "1000"},
		{"open start", core.Date{}, end, 4, "1111"},
		{"open end", start, core.Date{}, 4, "11110"},
		{"day after the last row", core.NewDate(2024, 3, 2), core.Date{}, 0, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Compute(core.Criteria{Year: 2024, Start: tt.start, End: tt.end})
			assert.Equal(t, tt.wantCount, res.KPIs.Count)
			assert.True(t, res.KPIs.Total.Equal(dec(tt.wantTotal)), "total=%s", res.KPIs.Total)
		})
	}
}

func TestMonthlyTrend_DerivesMonthFromDate(t *testing.T) {
	bad := tx(2024, 3, 9, "Toys", "5")
	bad.Month = "Mars"

	trend := MonthlyTrend([]core.Transaction{bad, {Category: "Toys", Sales: dec("1")}})

	require.Len(t, trend, 2)
	assert.Equal(t, "Jan", trend[0].Month)
	assert.Equal(t, "Mar", trend[1].Month)
	assert.True(t, trend[1].Amount.Equal(dec("5")))
}
