package dataset

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"salesdash/internal/core"
)

const (
	ColumnDate     = "Date"
	ColumnCategory = "Category"
	ColumnSales    = "Sales"
)

// dateLayouts are tried in order. Only the calendar date is kept.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
}

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyDataset  = errors.New("dataset has no header row")
	ErrInvalidDate   = errors.New("unparseable date")
)

// ParseError reports a row that could not be converted to a transaction.
type ParseError struct {
	Line   int // 1-based, header is line 1
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: column %s: parsing %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// columnIndex maps the required columns to their positions in a header.
type columnIndex struct {
	date, category, sales int
}

func indexHeader(header []string) (columnIndex, error) {
	idx := columnIndex{date: -1, category: -1, sales: -1}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(h, ColumnDate):
			idx.date = i
		case strings.EqualFold(h, ColumnCategory):
			idx.category = i
		case strings.EqualFold(h, ColumnSales):
			idx.sales = i
		}
	}
	var missing []string
	if idx.date == -1 {
		missing = append(missing, ColumnDate)
	}
	if idx.category == -1 {
		missing = append(missing, ColumnCategory)
	}
	if idx.sales == -1 {
		missing = append(missing, ColumnSales)
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("%w: %s; got headers=%v", ErrMissingColumn, strings.Join(missing, ","), header)
	}
	return idx, nil
}

// ParseRecords converts a header and its data rows into transactions.
// Extra columns are ignored. The first bad row aborts the whole parse.
func ParseRecords(header []string, records [][]string) ([]core.Transaction, error) {
	if len(header) == 0 {
		return nil, ErrEmptyDataset
	}
	idx, err := indexHeader(header)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(records))
	for i, rec := range records {
		tx, err := parseRecord(idx, rec, i+2)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func parseRecord(idx columnIndex, rec []string, line int) (core.Transaction, error) {
	field := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	rawDate := field(idx.date)
	date, err := ParseDate(rawDate)
	if err != nil {
		return core.Transaction{}, &ParseError{Line: line, Column: ColumnDate, Value: rawDate, Err: err}
	}

	category := field(idx.category)
	if category == "" {
		return core.Transaction{}, &ParseError{Line: line, Column: ColumnCategory, Value: category, Err: core.ErrEmptyCategory}
	}

	rawSales := field(idx.sales)
	sales, err := core.ParseSales(rawSales)
	if err != nil {
		return core.Transaction{}, &ParseError{Line: line, Column: ColumnSales, Value: rawSales, Err: err}
	}

	return core.NewTransaction(date, category, sales), nil
}

// ParseDate accepts the date layouts found in common sales exports.
func ParseDate(s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t), nil
		}
	}
	return core.Date{}, ErrInvalidDate
}
