package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"salesdash/internal/analytics"
	"salesdash/internal/cli"
	"salesdash/internal/config"
	"salesdash/internal/core"
	apphttp "salesdash/internal/http"
)

type filterFlags struct {
	year       string
	categories []string
	start      string
	end        string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.year, "year", "", "year to report (default: latest year in the data)")
	cmd.Flags().StringArrayVar(&f.categories, "category", nil, "category to include, repeatable; a value that is not a category name is split on commas (default: all)")
	cmd.Flags().StringVar(&f.start, "start", "", "first date, YYYY-MM-DD (default: earliest date in the data)")
	cmd.Flags().StringVar(&f.end, "end", "", "last date, YYYY-MM-DD (default: latest date in the data)")
}

// query renders the flags the way the dashboard sends them.
func (f *filterFlags) query() url.Values {
	q := url.Values{}
	if f.year != "" {
		q.Set("year", f.year)
	}
	for _, c := range f.categories {
		q.Add("category", c)
	}
	if f.start != "" {
		q.Set("start", f.start)
	}
	if f.end != "" {
		q.Set("end", f.end)
	}
	return q
}

func newSummaryCommand() *cobra.Command {
	var filters filterFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Compute the dashboard once and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(cmd.ErrOrStderr(), nil, (*config.Config).Validate)
			if err != nil {
				return err
			}

			ds, err := cli.LoadDataset(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			c, err := apphttp.ParseCriteria(filters.query(), ds)
			if err != nil {
				return err
			}
			formatter, err := apphttp.NewFormatter(cfg.CurrencySymbol, cfg.DisplayLocale)
			if err != nil {
				return err
			}

			res := analytics.NewEngine(ds).Compute(c)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(apphttp.NewDashboardResponse(res, c, formatter))
			}
			return writeSummary(cmd.OutOrStdout(), c, res, formatter)
		},
	}

	filters.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the /api/dashboard JSON instead of text")

	return cmd
}

var hundred = decimal.NewFromInt(100)

func writeSummary(out io.Writer, c core.Criteria, res core.Result, f *apphttp.Formatter) error {
	cats := "all"
	if len(c.Categories) > 0 {
		cats = strings.Join(c.Categories, ", ")
	}
	from, to := c.Start.String(), c.End.String()
	if from == "" {
		from = "open"
	}
	if to == "" {
		to = "open"
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Year\t%d\n", c.Year)
	fmt.Fprintf(tw, "Categories\t%s\n", cats)
	fmt.Fprintf(tw, "Dates\t%s .. %s\n", from, to)
	fmt.Fprintln(tw)

	k := f.KPIs(res.KPIs)
	fmt.Fprintf(tw, "Total Sales\t%s\n", k.Total)
	fmt.Fprintf(tw, "Transactions\t%s\n", k.Count)
	fmt.Fprintf(tw, "Average Sale\t%s\n", k.Average)
	fmt.Fprintf(tw, "Top Category\t%s\n", k.TopCategory)

	if res.CategoryShares.NoData {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, res.CategoryShares.Message)
		return tw.Flush()
	}

	fmt.Fprintln(tw, "\nMonthly Sales Trend")
	for _, m := range res.MonthlyTrend {
		fmt.Fprintf(tw, "  %s\t%s\n", m.Month, f.Currency(m.Amount))
	}

	fmt.Fprintln(tw, "\nSales by Category")
	for _, s := range res.CategoryShares.Items {
		fmt.Fprintf(tw, "  %s\t%s\t%s%%\n", s.Name, f.Currency(s.Amount), s.Share.Mul(hundred).StringFixed(1))
	}

	fmt.Fprintln(tw, "\nDaily Average Sales")
	for _, d := range res.DailyAverage {
		fmt.Fprintf(tw, "  %s\t%s\n", d.Date, f.Currency(d.Amount))
	}

	return tw.Flush()
}
