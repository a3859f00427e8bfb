package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finpal/internal/core"
	"finpal/internal/records"
	"finpal/internal/tax"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements records.Store on a SQLite database file.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ records.Store = (*SQLiteRepository)(nil)

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

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load implements records.Loader
func (r *SQLiteRepository) Load(ctx context.Context, username string) (core.UserRecord, error) {
	var (
		rec         = core.UserRecord{Username: username}
		income      int64
		city        int64
		budgetJSON  string
		summaryJSON sql.NullString
		updatedAt   string
		juris       string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT annual_income_cents, jurisdiction, city_resident, budget, tax_summary, updated_at
		FROM users WHERE username = ?`, username).
		Scan(&income, &juris, &city, &budgetJSON, &summaryJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserRecord{}, records.ErrNotFound
	}
	if err != nil {
		return core.UserRecord{}, fmt.Errorf("get user %s: %w", username, err)
	}

	rec.Income = core.Money{Cents: income}
	rec.Jurisdiction = tax.Jurisdiction(juris)
	rec.CityResident = city != 0

	budget, err := decodeBudget(budgetJSON)
	if err != nil {
		return core.UserRecord{}, fmt.Errorf("decode budget for %s: %w", username, err)
	}
	rec.Budget = budget

	if summaryJSON.Valid && summaryJSON.String != "" {
		var res tax.Result
		if err := json.Unmarshal([]byte(summaryJSON.String), &res); err != nil {
			return core.UserRecord{}, fmt.Errorf("decode tax summary for %s: %w", username, err)
		}
		rec.TaxSummary = &res
	}

	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return core.UserRecord{}, fmt.Errorf("parse updated_at for %s: %w", username, err)
	}

	rec.Expenses, err = r.listExpenses(ctx, username)
	if err != nil {
		return core.UserRecord{}, err
	}
	return rec, nil
}

func (r *SQLiteRepository) listExpenses(ctx context.Context, username string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, amount_cents, category, description, source
		FROM expenses WHERE username = ? ORDER BY id`, username)
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s: %w", username, err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e      core.Expense
			date   string
			source string
		)
		if err := rows.Scan(&date, &e.Amount.Cents, &e.Category, &e.Description, &source); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse expense date %q: %w", date, err)
		}
		e.Source = core.ExpenseSource(source)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Save implements records.Saver. The user row is upserted and the expense
// rows are replaced within one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, rec core.UserRecord) (err error) {
	if err := rec.Validate(); err != nil {
		return err
	}

	budgetJSON, err := encodeBudget(rec.Budget)
	if err != nil {
		return fmt.Errorf("encode budget: %w", err)
	}
	var summary sql.NullString
	if rec.TaxSummary != nil {
		b, err := json.Marshal(rec.TaxSummary)
		if err != nil {
			return fmt.Errorf("encode tax summary: %w", err)
		}
		summary = sql.NullString{String: string(b), Valid: true}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (username, annual_income_cents, jurisdiction, city_resident, budget, tax_summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			annual_income_cents = excluded.annual_income_cents,
			jurisdiction        = excluded.jurisdiction,
			city_resident       = excluded.city_resident,
			budget              = excluded.budget,
			tax_summary         = excluded.tax_summary,
			updated_at          = excluded.updated_at`,
		rec.Username, rec.Income.Cents, string(rec.Jurisdiction), boolToInt(rec.CityResident),
		budgetJSON, summary, r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", rec.Username, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM expenses WHERE username = ?`, rec.Username); err != nil {
		return fmt.Errorf("clear expenses for %s: %w", rec.Username, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO expenses (username, date, amount_cents, category, description, source)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare expense insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range rec.Expenses {
		source := e.Source
		if source == "" {
			source = core.SourceManual
		}
		if _, err = stmt.ExecContext(ctx, rec.Username, e.Date.String(), e.Amount.Cents, e.Category, e.Description, string(source)); err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "User record saved to SQLite",
		"username", rec.Username,
		"expenses", len(rec.Expenses),
		"jurisdiction", rec.Jurisdiction)
	return nil
}

// Usernames lists every stored user.
func (r *SQLiteRepository) Usernames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT username FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func encodeBudget(b core.Budget) (string, error) {
	m := make(map[string]int64, len(b))
	for k, v := range b {
		m[k] = v.Cents
	}
	out, err := json.Marshal(m)
	return string(out), err
}

func decodeBudget(s string) (core.Budget, error) {
	var m map[string]int64
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	b := make(core.Budget, len(m))
	for k, v := range m {
		b[k] = core.Money{Cents: v}
	}
	return b, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
