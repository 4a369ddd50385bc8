package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"salesdash/internal/core"
	"salesdash/internal/dataset"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores sales transactions in a sqlite database and serves
// them as a dataset source.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Name implements dataset.Source.
func (r *SQLiteRepository) Name() string { return "sqlite" }

// Load implements dataset.Source. Rows are read in insertion order and go
// through the same parser as CSV input, so a bad stored value fails the load
// with a *dataset.ParseError.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, category, sales FROM sales_transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sales transactions: %w", err)
	}
	defer rows.Close()

	var records [][]string
	for rows.Next() {
		var date, category, sales string
		if err := rows.Scan(&date, &category, &sales); err != nil {
			return nil, fmt.Errorf("scan sales transaction: %w", err)
		}
		records = append(records, []string{date, category, sales})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales transactions: %w", err)
	}

	header := []string{dataset.ColumnDate, dataset.ColumnCategory, dataset.ColumnSales}
	return dataset.ParseRecords(header, records)
}

// ReplaceAll swaps the stored table for txs in a single transaction.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, txs []core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sales_transactions`); err != nil {
		return fmt.Errorf("clear sales transactions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sales_transactions (date, category, sales) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %s/%s: %w", t.Date, t.Category, err)
		}
		if _, err := stmt.ExecContext(ctx, t.Date.String(), t.Category, t.Sales.String()); err != nil {
			return fmt.Errorf("insert sales transaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Sales transactions imported to SQLite",
		"rows", len(txs),
		"path", r.path)
	return nil
}

// Count returns the number of stored transactions.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales_transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sales transactions: %w", err)
	}
	return n, nil
}
