/*
Package sqlite provides a SQLite-backed implementation of the engine's
input source.

PURPOSE:
  Persists the four input collections a reconciliation run consumes
  (raw transactions, budget allocations, transfers, balance snapshots)
  and implements envelope.Source over them. In production against a
  real bank-feed pipeline the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  envelope.Source:           Read side of one reconciliation run
  envelope.TransferAppender: The single write path (apply a rebalance)

APPEND-ONLY TRANSFERS:
  The transfers table is the rebalancing journal. Applying an advisor
  proposal appends a row; nothing updates or deletes one. Undoing a
  move is another transfer in the opposite direction.

KEY TABLES:
  transactions: Raw feed rows exactly as imported (strings; the
                normalizer owns parsing and exclusion accounting)
  budgets:      One explicit allocation per (month, category)
  transfers:    Append-only envelope-to-envelope moves
  snapshots:    Sparse externally asserted bank balances, one per month

WAL MODE:
  The database is opened in WAL journal mode so reads never block on the
  single writer, and recovery after a crash is cleaner.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  inputs, err := envelope.LoadInputs(ctx, store, cfg)
  result, err := envelope.Reconcile(inputs)

SEE ALSO:
  - envelope/source.go: Interface definitions
  - api/server.go: Re-reconciles after every transfer append
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/triage/envelope-engine/envelope"
)

// Store implements envelope.Source and envelope.TransferAppender over SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Raw feed rows, stored as imported. Parsing is the normalizer's job;
	-- keeping the strings intact preserves the exclusion audit trail.
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		posted_date TEXT,
		authorized_date TEXT,
		amount TEXT,
		status TEXT,
		description TEXT,
		detailed_category TEXT,
		primary_category TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_posted_date
		ON transactions(posted_date);

	-- One explicit allocation per (month, category).
	CREATE TABLE IF NOT EXISTS budgets (
		month TEXT NOT NULL,
		category TEXT NOT NULL,
		allocated TEXT NOT NULL,
		PRIMARY KEY (month, category)
	);

	-- Append-only rebalancing journal.
	CREATE TABLE IF NOT EXISTS transfers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		month TEXT NOT NULL,
		from_category TEXT NOT NULL,
		to_category TEXT NOT NULL,
		amount TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_month
		ON transfers(month);

	-- Sparse bank-balance assertions, one per month.
	CREATE TABLE IF NOT EXISTS snapshots (
		month TEXT PRIMARY KEY,
		balance TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READ SIDE (envelope.Source interface)
// =============================================================================

// LoadTransactions returns every raw feed row in import order.
func (s *Store) LoadTransactions(ctx context.Context) ([]envelope.RawTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT posted_date, authorized_date, amount, status, description,
		       detailed_category, primary_category
		FROM transactions
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var raw []envelope.RawTransaction
	for rows.Next() {
		var r envelope.RawTransaction
		var posted, authorized, amount, status, desc, detailed, primary sql.NullString
		if err := rows.Scan(&posted, &authorized, &amount, &status, &desc, &detailed, &primary); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		r.PostedDate = posted.String
		r.AuthorizedDate = authorized.String
		r.Amount = amount.String
		r.Status = status.String
		r.Description = desc.String
		r.Detailed = envelope.Category(detailed.String)
		r.Primary = envelope.Category(primary.String)
		raw = append(raw, r)
	}
	return raw, rows.Err()
}

// LoadBudgets returns all explicit allocations.
func (s *Store) LoadBudgets(ctx context.Context) ([]envelope.BudgetAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT month, category, allocated
		FROM budgets
		ORDER BY month ASC, category ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []envelope.BudgetAllocation
	for rows.Next() {
		var monthStr, category, allocated string
		if err := rows.Scan(&monthStr, &category, &allocated); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		m, err := envelope.ParseMonth(monthStr)
		if err != nil {
			return nil, fmt.Errorf("budget row for %q: %w", category, err)
		}
		amount, err := envelope.ParseMoney(allocated)
		if err != nil {
			return nil, fmt.Errorf("budget row %s/%s: %w", monthStr, category, err)
		}
		budgets = append(budgets, envelope.BudgetAllocation{
			Month:     m,
			Category:  envelope.Category(category),
			Allocated: amount,
		})
	}
	return budgets, rows.Err()
}

// LoadTransfers returns the rebalancing journal in append order.
func (s *Store) LoadTransfers(ctx context.Context) ([]envelope.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT month, from_category, to_category, amount, note
		FROM transfers
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []envelope.Transfer
	for rows.Next() {
		var monthStr, from, to, amount string
		var note sql.NullString
		if err := rows.Scan(&monthStr, &from, &to, &amount, &note); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		m, err := envelope.ParseMonth(monthStr)
		if err != nil {
			return nil, fmt.Errorf("transfer row %s -> %s: %w", from, to, err)
		}
		amt, err := envelope.ParseMoney(amount)
		if err != nil {
			return nil, fmt.Errorf("transfer row %s -> %s: %w", from, to, err)
		}
		transfers = append(transfers, envelope.Transfer{
			Month:  m,
			From:   envelope.Category(from),
			To:     envelope.Category(to),
			Amount: amt,
			Note:   note.String,
		})
	}
	return transfers, rows.Err()
}

// LoadSnapshots returns the bank-balance assertions.
func (s *Store) LoadSnapshots(ctx context.Context) ([]envelope.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT month, balance
		FROM snapshots
		ORDER BY month ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []envelope.BalanceSnapshot
	for rows.Next() {
		var monthStr, balance string
		if err := rows.Scan(&monthStr, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		m, err := envelope.ParseMonth(monthStr)
		if err != nil {
			return nil, fmt.Errorf("snapshot row %s: %w", monthStr, err)
		}
		bal, err := envelope.ParseMoney(balance)
		if err != nil {
			return nil, fmt.Errorf("snapshot row %s: %w", monthStr, err)
		}
		snaps = append(snaps, envelope.BalanceSnapshot{Month: m, Balance: bal})
	}
	return snaps, rows.Err()
}

// =============================================================================
// WRITE SIDE (envelope.TransferAppender interface)
// =============================================================================

// AppendTransfer records a transfer row. Negative amounts are rejected here
// as well as in the engine, so a bad row never reaches the journal.
func (s *Store) AppendTransfer(ctx context.Context, t envelope.Transfer) error {
	if t.Amount.IsNegative() {
		return &envelope.TransferError{
			Month: t.Month, From: t.From, To: t.To,
			Err: envelope.ErrNegativeTransfer,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO transfers (month, from_category, to_category, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		t.Month.String(),
		string(t.From),
		string(t.To),
		t.Amount.String(),
		t.Note,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append transfer: %w", err)
	}
	return nil
}

// =============================================================================
// IMPORT / SEEDING
// =============================================================================

// SeedBundle is a full replacement dataset, used by CSV import and scenario
// loading.
type SeedBundle struct {
	Transactions []envelope.RawTransaction
	Budgets      []envelope.BudgetAllocation
	Transfers    []envelope.Transfer
	Snapshots    []envelope.BalanceSnapshot
}

// Replace atomically swaps the stored dataset for the bundle. The transfers
// journal restarts from the bundle's rows.
func (s *Store) Replace(ctx context.Context, b SeedBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "budgets", "transfers", "snapshots"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)

	for _, r := range b.Transactions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions
			(posted_date, authorized_date, amount, status, description,
			 detailed_category, primary_category)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.PostedDate, r.AuthorizedDate, r.Amount, r.Status,
			r.Description, string(r.Detailed), string(r.Primary),
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}

	for _, bd := range b.Budgets {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO budgets (month, category, allocated)
			VALUES (?, ?, ?)`,
			bd.Month.String(), string(bd.Category), bd.Allocated.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert budget %s/%s: %w", bd.Month, bd.Category, err)
		}
	}

	for _, t := range b.Transfers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transfers (month, from_category, to_category, amount, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			t.Month.String(), string(t.From), string(t.To), t.Amount.String(), t.Note, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transfer: %w", err)
		}
	}

	for _, snap := range b.Snapshots {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (month, balance, recorded_at)
			VALUES (?, ?, ?)`,
			snap.Month.String(), snap.Balance.String(), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot %s: %w", snap.Month, err)
		}
	}

	return tx.Commit()
}
