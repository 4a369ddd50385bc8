package google

import (
	"context"
	"errors"
	"testing"

	"salesdash/internal/dataset"
)

func TestParseSales_MixedCellTypes(t *testing.T) {
	values := [][]interface{}{
		{"Order ID", "Date", "Category", "Sales"},
		{"A1", "2024-01-05", "Toys", 100.0},
		{"A2", "01/20/2024", "Toys", "50.5"},
		{"A3", "2024-02-01", "Books", 30},
		{},
		{"", ""},
	}
	rows, err := parseSales(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0].Sales.String() != "100" || rows[1].Sales.String() != "50.5" {
		t.Fatalf("unexpected sales: %s, %s", rows[0].Sales, rows[1].Sales)
	}
	if rows[1].Date.String() != "2024-01-20" || rows[1].Month != "Jan" {
		t.Fatalf("unexpected date: %s %s", rows[1].Date, rows[1].Month)
	}
}

func TestParseSales_Errors(t *testing.T) {
	if _, err := parseSales(nil); !errors.Is(err, dataset.ErrEmptyDataset) {
		t.Fatalf("empty sheet err = %v", err)
	}
	if _, err := parseSales([][]interface{}{{"Date", "Sales"}}); !errors.Is(err, dataset.ErrMissingColumn) {
		t.Fatalf("missing column err = %v", err)
	}

	_, err := parseSales([][]interface{}{
		{"Date", "Category", "Sales"},
		{"2024-01-01", "Toys", "abc"},
	})
	var pe *dataset.ParseError
	if !errors.As(err, &pe) || pe.Line != 2 || pe.Column != dataset.ColumnSales {
		t.Fatalf("bad sales err = %v", err)
	}
}

func TestQuoteSheetName(t *testing.T) {
	tests := map[string]string{
		"Sales":       "Sales",
		"Sales 2024":  "'Sales 2024'",
		"Bob's sales": "'Bob''s sales'",
	}
	for in, want := range tests {
		if got := quoteSheetName(in); got != want {
			t.Errorf("quoteSheetName(%q) = %q, want %q", in, got, want)
		}
	}
}

type fakeValues struct {
	rng    string
	values [][]interface{}
	err    error
}

func (f *fakeValues) Get(_ context.Context, _ string, rng string) ([][]interface{}, error) {
	f.rng = rng
	return f.values, f.err
}

func TestClient_Load(t *testing.T) {
	fv := &fakeValues{values: [][]interface{}{
		{"Date", "Category", "Sales"},
		{"2024-03-01", "Toys", 12.5},
	}}
	c := &Client{values: fv, spreadsheetID: "sheet-id", sheetName: "Sales Data"}

	rows, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fv.rng != "'Sales Data'!A:Z" {
		t.Errorf("range = %q", fv.rng)
	}
	if len(rows) != 1 || rows[0].Category != "Toys" {
		t.Errorf("rows = %+v", rows)
	}

	fv.err = errors.New("quota exceeded")
	if _, err := c.Load(context.Background()); err == nil {
		t.Fatal("expected API error to propagate")
	}
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}
