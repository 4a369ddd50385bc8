package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// NoCategory is shown as the top category when a selection is empty.
const NoCategory = "-"

// NoValue is shown for a KPI that is undefined, such as the average of nothing.
const NoValue = "-"

// MonthAbbrevs lists the month labels in calendar order.
var MonthAbbrevs = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type (
	Date struct {
		time.Time
	}

	// Transaction is one row of the sales dataset with its derived fields.
	Transaction struct {
		Date     Date
		Category string
		Sales    decimal.Decimal
		Year     int
		Month    string // Jan..Dec
	}

	// Criteria selects rows for a dashboard computation.
	// Start and End are inclusive; a zero value leaves that side open.
	Criteria struct {
		Year       int
		Categories []string // empty means all
		Start      Date
		End        Date
	}
)

var (
	ErrInvalidYear     = errors.New("invalid year")
	ErrInvalidRange    = errors.New("start date is after end date")
	ErrEmptyCategory   = errors.New("empty category")
	ErrNegativeSales   = errors.New("sales must not be negative")
	ErrInvalidMonthKey = errors.New("invalid month abbreviation")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, or "" when zero.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Time.After(o.Time) }

// Equal reports whether d and o are the same calendar date.
func (d Date) Equal(o Date) bool { return d.Time.Equal(o.Time) }

// MarshalText implements encoding.TextMarshaler so dates render as YYYY-MM-DD in JSON.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	if len(strings.TrimSpace(string(b))) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthAbbrev returns the three-letter English abbreviation of d's month.
func (d Date) MonthAbbrev() string {
	return MonthAbbrevs[d.Time.Month()-1]
}

// MonthIndex returns the 0-based calendar position of a month abbreviation.
func MonthIndex(abbrev string) (int, error) {
	for i, m := range MonthAbbrevs {
		if m == abbrev {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrInvalidMonthKey, abbrev)
}

// NewTransaction builds a row and derives Year and Month from the date.
func NewTransaction(date Date, category string, sales decimal.Decimal) Transaction {
	return Transaction{
		Date:     date,
		Category: category,
		Sales:    sales,
		Year:     date.Year(),
		Month:    date.MonthAbbrev(),
	}
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Sales.IsNegative() {
		return ErrNegativeSales
	}
	return nil
}

func (c Criteria) Validate() error {
	if c.Year < 1 || c.Year > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, c.Year)
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.Start.After(c.End) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether d falls in the criteria's inclusive date range.
func (c Criteria) Contains(d Date) bool {
	if !c.Start.IsZero() && d.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && d.After(c.End) {
		return false
	}
	return true
}

// Key returns a canonical string for the criteria, stable under category order.
func (c Criteria) Key() string {
	cats := NormalizeCategories(c.Categories)
	return fmt.Sprintf("%d|%s|%s|%s", c.Year, strings.Join(cats, ","), c.Start, c.End)
}
