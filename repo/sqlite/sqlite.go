/*
Package sqlite provides a SQLite-backed implementation of the durable
repository.

PURPOSE:
  Persists the full ledger entry set - the single source of truth the
  balances and aggregates are derived from - plus accounts and
  categories consumed at startup.

SAVE SEMANTICS:
  Save replaces the whole entry set inside one database transaction.
  The Store calls it at the end of every mutation, so the durable state
  always mirrors the in-memory set the caller just observed. There is no
  second mutation path that could let the two drift apart.

BALANCES:
  Account rows persist only the opening-balance anchor. The projected
  balance is never stored: it is rebuilt from entries on every open.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  db, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer db.Close()

  store, err := ledger.Open(ctx, db, accounts, categories, cfg)

SEE ALSO:
  - ledger/store.go: Repository interface and the mutation funnel
  - ledger/repo/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/ledger-engine/ledger"
)

// DB implements ledger.Repository plus account/category persistence.
type DB struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	schema := `
	-- The full entry set; replaced wholesale on every Save
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		entry_date TEXT NOT NULL,
		description TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		category TEXT NOT NULL,
		subcategory TEXT,
		account_id TEXT NOT NULL,
		target_account_id TEXT,
		target_amount TEXT,
		target_currency TEXT,
		recurring_series_id TEXT,
		recurring_occurrence_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_date
		ON entries(entry_date);
	CREATE INDEX IF NOT EXISTS idx_entries_account
		ON entries(account_id);
	CREATE INDEX IF NOT EXISTS idx_entries_series
		ON entries(recurring_series_id) WHERE recurring_series_id IS NOT NULL;

	-- Accounts: identity + currency + the opening-balance anchor only.
	-- Projected balances are derived, never persisted.
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		currency TEXT NOT NULL,
		opening_balance TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS categories (
		name TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);
	`
	_, err := d.db.Exec(schema)
	return err
}

// =============================================================================
// ENTRY SET (ledger.Repository interface)
// =============================================================================

// Load returns the full entry set, oldest first.
func (d *DB) Load(ctx context.Context) ([]ledger.Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	query := `
		SELECT id, entry_date, description, amount, currency, entry_type,
		       category, subcategory, account_id, target_account_id,
		       target_amount, target_currency,
		       recurring_series_id, recurring_occurrence_id, created_at
		FROM entries
		ORDER BY entry_date ASC, created_at ASC
	`
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Save replaces the full entry set atomically.
func (d *DB) Save(ctx context.Context, entries []ledger.Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	insert := `
		INSERT INTO entries
		(id, entry_date, description, amount, currency, entry_type,
		 category, subcategory, account_id, target_account_id,
		 target_amount, target_currency,
		 recurring_series_id, recurring_occurrence_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var targetAmount, targetCurrency any
		if e.TargetAmount.Currency != "" {
			targetAmount = e.TargetAmount.Value.String()
			targetCurrency = e.TargetAmount.Currency
		}
		_, err := stmt.ExecContext(ctx,
			string(e.ID),
			e.Date.String(),
			e.Description,
			e.Amount.Value.String(),
			e.Amount.Currency,
			string(e.Type),
			e.Category,
			nullString(e.Subcategory),
			string(e.AccountID),
			nullString(string(e.TargetAccountID)),
			targetAmount,
			targetCurrency,
			nullString(e.RecurringSeriesID),
			nullString(e.RecurringOccurrenceID),
			e.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		e               ledger.Entry
		id              string
		entryDate       string
		amount          string
		currency        string
		entryType       string
		subcategory     sql.NullString
		accountID       string
		targetAccountID sql.NullString
		targetAmount    sql.NullString
		targetCurrency  sql.NullString
		seriesID        sql.NullString
		occurrenceID    sql.NullString
		createdAt       string
	)

	err := rows.Scan(
		&id, &entryDate, &e.Description, &amount, &currency, &entryType,
		&e.Category, &subcategory, &accountID, &targetAccountID,
		&targetAmount, &targetCurrency, &seriesID, &occurrenceID, &createdAt,
	)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.ID = ledger.EntryID(id)
	date, err := ledger.ParseDate(entryDate)
	if err != nil {
		return e, err
	}
	e.Date = date
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return e, fmt.Errorf("failed to parse amount for entry %s: %w", id, err)
	}
	e.Amount = ledger.Money{Value: value, Currency: currency}
	e.Type = ledger.EntryType(entryType)
	e.Subcategory = subcategory.String
	e.AccountID = ledger.AccountID(accountID)
	e.TargetAccountID = ledger.AccountID(targetAccountID.String)
	if targetAmount.Valid && targetCurrency.Valid {
		tv, err := decimal.NewFromString(targetAmount.String)
		if err != nil {
			return e, fmt.Errorf("failed to parse target amount for entry %s: %w", id, err)
		}
		e.TargetAmount = ledger.Money{Value: tv, Currency: targetCurrency.String}
	}
	e.RecurringSeriesID = seriesID.String
	e.RecurringOccurrenceID = occurrenceID.String
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to parse created_at: %w", err)
	}
	e.CreatedAt = t

	return e, nil
}

// =============================================================================
// ACCOUNTS AND CATEGORIES - Loaded once at startup, CRUD'd by the API
// =============================================================================

func (d *DB) LoadAccounts(ctx context.Context) ([]ledger.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, name, currency, opening_balance FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var a ledger.Account
		var id, opening string
		if err := rows.Scan(&id, &a.Name, &a.Currency, &opening); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.ID = ledger.AccountID(id)
		a.OpeningBalance, err = decimal.NewFromString(opening)
		if err != nil {
			return nil, fmt.Errorf("failed to parse opening balance for account %s: %w", id, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (d *DB) SaveAccount(ctx context.Context, a ledger.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, currency, opening_balance, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, currency=excluded.currency,
			opening_balance=excluded.opening_balance`,
		string(a.ID), a.Name, a.Currency, a.OpeningBalance.String(),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (d *DB) LoadCategories(ctx context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, "SELECT name FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *DB) SaveCategory(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO categories (name, created_at) VALUES (?, ?)",
		name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save category: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
