// Package dataset holds the immutable sales table loaded at startup.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"salesdash/internal/core"
)

// Source yields the raw transactions of the dataset. It is called once.
type Source interface {
	Load(ctx context.Context) ([]core.Transaction, error)
	Name() string
}

// Dataset is a read-only view of the loaded transactions. Nothing in it is
// ever modified after New returns, so it is safe for concurrent readers.
type Dataset struct {
	rows       []core.Transaction
	years      []int
	categories []string
	minDate    core.Date
	maxDate    core.Date
}

// Options describes the values the filter controls can offer.
type Options struct {
	Years       []int     `json:"years"`
	Categories  []string  `json:"categories"`
	Start       core.Date `json:"start"`
	End         core.Date `json:"end"`
	DefaultYear int       `json:"default_year"`
}

var ErrNilSource = errors.New("nil dataset source")

// Load reads every transaction from src and freezes them into a Dataset.
func Load(ctx context.Context, src Source) (*Dataset, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	rows, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s dataset: %w", src.Name(), err)
	}
	return New(rows), nil
}

// New copies rows and indexes distinct years, categories and the date span.
// Year and Month are always re-derived from Date.
func New(rows []core.Transaction) *Dataset {
	d := &Dataset{rows: make([]core.Transaction, len(rows))}
	for i, r := range rows {
		d.rows[i] = core.NewTransaction(r.Date, r.Category, r.Sales)
	}

	years := map[int]struct{}{}
	cats := map[string]struct{}{}
	for i, r := range d.rows {
		years[r.Year] = struct{}{}
		cats[r.Category] = struct{}{}
		if i == 0 || r.Date.Before(d.minDate) {
			d.minDate = r.Date
		}
		if i == 0 || r.Date.After(d.maxDate) {
			d.maxDate = r.Date
		}
	}
	for y := range years {
		d.years = append(d.years, y)
	}
	sort.Ints(d.years)
	for c := range cats {
		d.categories = append(d.categories, c)
	}
	sort.Strings(d.categories)
	return d
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Rows returns a copy of the rows in load order.
func (d *Dataset) Rows() []core.Transaction {
	out := make([]core.Transaction, len(d.rows))
	copy(out, d.rows)
	return out
}

// Each calls fn for every row in load order. Rows are passed by value.
func (d *Dataset) Each(fn func(core.Transaction)) {
	for _, r := range d.rows {
		fn(r)
	}
}

// Years returns the distinct years, ascending.
func (d *Dataset) Years() []int {
	return append([]int(nil), d.years...)
}

// Categories returns the distinct categories, ascending.
func (d *Dataset) Categories() []string {
	return append([]string(nil), d.categories...)
}

// DateRange returns the earliest and latest dates. ok is false for an empty dataset.
func (d *Dataset) DateRange() (first, last core.Date, ok bool) {
	if len(d.rows) == 0 {
		return core.Date{}, core.Date{}, false
	}
	return d.minDate, d.maxDate, true
}

// LatestYear returns the most recent year present.
func (d *Dataset) LatestYear() (int, bool) {
	if len(d.years) == 0 {
		return 0, false
	}
	return d.years[len(d.years)-1], true
}

// Options returns the filter choices with the dashboard defaults filled in.
func (d *Dataset) Options() Options {
	opts := Options{
		Years:      d.Years(),
		Categories: d.Categories(),
	}
	opts.Start, opts.End, _ = d.DateRange()
	opts.DefaultYear, _ = d.LatestYear()
	return opts
}

// DefaultCriteria fills the unset fields of c with the dashboard defaults:
// the latest year and the full date span of the data.
func (d *Dataset) DefaultCriteria(c core.Criteria) core.Criteria {
	if c.Year == 0 {
		c.Year, _ = d.LatestYear()
	}
	first, last, ok := d.DateRange()
	if ok {
		if c.Start.IsZero() {
			c.Start = first
		}
		if c.End.IsZero() {
			c.End = last
		}
	}
	c.Categories = core.NormalizeCategories(c.Categories)
	return c
}

// Resolve fills c with the dashboard defaults and validates it. A default
// bound that would invert a bound the caller set is left open instead.
func (d *Dataset) Resolve(c core.Criteria) (core.Criteria, error) {
	given := c
	c = d.DefaultCriteria(c)
	if c.Start.After(c.End) {
		if given.End.IsZero() && !given.Start.IsZero() {
			c.End = core.Date{}
		} else if given.Start.IsZero() && !given.End.IsZero() {
			c.Start = core.Date{}
		}
	}
	if c.Year == 0 {
		// empty dataset and no year given; any valid year selects nothing
		c.Year = 1
	}
	if err := c.Validate(); err != nil {
		return core.Criteria{}, err
	}
	return c, nil
}

// ExpandCategories turns filter values into category labels. A value naming a
// known category is kept whole, even when it contains a comma; any other
// value is treated as a comma-separated list.
func (d *Dataset) ExpandCategories(values []string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if d.hasCategory(v) {
			out = append(out, v)
			continue
		}
		out = append(out, strings.Split(v, ",")...)
	}
	return core.NormalizeCategories(out)
}

func (d *Dataset) hasCategory(name string) bool {
	i := sort.SearchStrings(d.categories, name)
	return i < len(d.categories) && d.categories[i] == name
}
