package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"salesdash/internal/core"
	"salesdash/internal/dataset"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "sub", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_ReplaceAllAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := []core.Transaction{
		core.NewTransaction(core.NewDate(2024, 1, 5), "Toys", decimal.NewFromInt(100)),
		core.NewTransaction(core.NewDate(2024, 1, 20), "Toys", decimal.RequireFromString("50.25")),
		core.NewTransaction(core.NewDate(2024, 2, 1), "Books", decimal.NewFromInt(30)),
	}
	if err := repo.ReplaceAll(ctx, in); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("Load returned %d rows, want %d", len(got), len(in))
	}
	for i := range in {
		if !got[i].Date.Equal(in[i].Date) || got[i].Category != in[i].Category || !got[i].Sales.Equal(in[i].Sales) {
			t.Errorf("row %d = %+v, want %+v", i, got[i], in[i])
		}
		if got[i].Month != in[i].Month || got[i].Year != in[i].Year {
			t.Errorf("row %d derived fields = %d/%s", i, got[i].Year, got[i].Month)
		}
	}

	// replacing again must not duplicate
	if err := repo.ReplaceAll(ctx, in[:1]); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}
}

func TestSQLiteRepository_ReplaceAllRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if err := repo.ReplaceAll(ctx, []core.Transaction{
		core.NewTransaction(core.NewDate(2024, 1, 1), "Toys", decimal.NewFromInt(1)),
	}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	bad := []core.Transaction{
		core.NewTransaction(core.NewDate(2024, 1, 1), "Toys", decimal.NewFromInt(-1)),
	}
	err := repo.ReplaceAll(ctx, bad)
	if !errors.Is(err, core.ErrNegativeSales) {
		t.Fatalf("ReplaceAll err = %v, want ErrNegativeSales", err)
	}

	// rolled back: previous contents kept
	n, _ := repo.Count(ctx)
	if n != 1 {
		t.Fatalf("Count = %d after failed replace, want 1", n)
	}
}

func TestSQLiteRepository_LoadBadRow(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.db.ExecContext(ctx,
		`INSERT INTO sales_transactions (date, category, sales) VALUES ('2024-01-01', 'Toys', '10'), ('not-a-date', 'Toys', '5')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	_, err := repo.Load(ctx)
	var pe *dataset.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load err = %v, want *dataset.ParseError", err)
	}
	if pe.Line != 3 || pe.Column != dataset.ColumnDate {
		t.Errorf("ParseError = %+v", pe)
	}
}

func TestSQLiteRepository_AsDatasetSource(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ds, err := dataset.Load(ctx, repo)
	if err != nil {
		t.Fatalf("dataset.Load: %v", err)
	}
	if ds.Len() != 0 {
		t.Fatalf("empty table loaded %d rows", ds.Len())
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("RunMigrations #%d: %v", i+1, err)
		}
	}
}
