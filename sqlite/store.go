// Package sqlite stores a cost-basis ledger in a SQLite database.
//
// The schema is created and upgraded by the migrations embedded in the
// package. Store implements costbasis.Store with the same semantics as the
// in-memory ledger, so both can be used interchangeably by the engine and the
// position cache.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/etnz/costbasis"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a costbasis.Store backed by SQLite.
type Store struct {
	db       *sql.DB
	currency string
	strict   bool
	log      zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCurrency sets the currency of a new database. An existing database keeps
// the currency it was created with.
func WithCurrency(code string) Option {
	return func(s *Store) { s.currency = strings.ToUpper(code) }
}

// WithStrictSells controls whether Append refuses a sell when nothing is held.
func WithStrictSells(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

// WithLogger sets the logger used to trace mutations.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open opens the database at path, ":memory:" included, and migrates it to
// the latest schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{currency: "EUR", strict: true, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: every statement sees the same database, even in memory,
	// and writers never compete for the file lock.
	db.SetMaxOpenConns(1)
	s.db = db

	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	for _, r := range results {
		s.log.Info().Str("migration", r.Source.Path).Dur("duration", r.Duration).Msg("migration applied")
	}

	// the first currency wins.
	if err := costbasis.ValidateCurrency(s.currency); err != nil {
		return fmt.Errorf("invalid ledger currency: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO ledger (key, value) VALUES ('currency', ?)`, s.currency); err != nil {
		return fmt.Errorf("failed to record currency: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM ledger WHERE key = 'currency'`).Scan(&s.currency); err != nil {
		return fmt.Errorf("failed to read currency: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Currency returns the currency recorded in the database.
func (s *Store) Currency() string { return s.currency }

// CreateAccount adds an empty account.
func (s *Store) CreateAccount(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &costbasis.ValidationError{Field: "account", Reason: "name is missing"}
	}
	return s.inTx(func(tx *sql.Tx) error {
		if err := accountExists(tx, name); err == nil {
			return fmt.Errorf("%w: %q", costbasis.ErrDuplicateAccount, name)
		} else if !errors.Is(err, costbasis.ErrAccountNotFound) {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO account (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("failed to insert account: %w", err)
		}
		s.log.Debug().Str("account", name).Msg("account created")
		return nil
	})
}

// Accounts returns the sorted account names.
func (s *Store) Accounts() ([]string, error) {
	return queryStrings(s.db, `SELECT name FROM account ORDER BY name`)
}

// Append validates t and records it at the end of its instrument sequence.
func (s *Store) Append(account string, t costbasis.Transaction) (costbasis.TransactionID, error) {
	t, err := t.Validate(s.currency)
	if err != nil {
		return costbasis.TransactionID{}, err
	}
	account = strings.TrimSpace(account)

	var id costbasis.TransactionID
	err = s.inTx(func(tx *sql.Tx) error {
		if err := accountExists(tx, account); err != nil {
			return err
		}
		seq, err := sequence(tx, account, t.Instrument)
		if err != nil {
			return err
		}
		if s.strict && t.Side == costbasis.Sell {
			if pos, _ := costbasis.ComputePosition(seq.Transactions); !pos.Quantity.IsPositive() {
				s.log.Warn().Str("account", account).Str("instrument", t.Instrument).Msg("sell refused")
				return &costbasis.InvalidSellError{Index: len(seq.Transactions), Instrument: t.Instrument, Quantity: t.Quantity}
			}
		}

		_, err = tx.Exec(`INSERT OR IGNORE INTO sequence (account, instrument) VALUES (?, ?)`, account, t.Instrument)
		if err != nil {
			return fmt.Errorf("failed to insert sequence: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO "transaction" (account, instrument, side, date, quantity, price, currency, memo)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			account, t.Instrument, t.Side.String(), t.Timestamp.UTC().Format(time.RFC3339Nano),
			t.Quantity.String(), t.Price.Decimal().String(), t.Price.Currency(), t.Memo)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
		id = costbasis.TransactionID{Account: account, Instrument: t.Instrument, Index: len(seq.Transactions)}
		return nil
	})
	if err != nil {
		return costbasis.TransactionID{}, err
	}
	s.log.Debug().Stringer("id", id).Stringer("side", t.Side).Stringer("quantity", t.Quantity).Msg("transaction appended")
	return id, nil
}

// Remove deletes and returns the transaction at index.
func (s *Store) Remove(account, instrument string, index int) (costbasis.Transaction, error) {
	account = strings.TrimSpace(account)
	instrument = costbasis.NormalizeInstrument(instrument)

	var removed costbasis.Transaction
	err := s.inTx(func(tx *sql.Tx) error {
		if err := accountExists(tx, account); err != nil {
			return err
		}
		if index < 0 {
			return fmt.Errorf("%w: index %d out of range for %s", costbasis.ErrNotFound, index, instrument)
		}
		row := tx.QueryRow(`
			SELECT seq, side, date, quantity, price, currency, memo
			FROM "transaction"
			WHERE account = ? AND instrument = ?
			ORDER BY seq
			LIMIT 1 OFFSET ?`, account, instrument, index)
		var rowID int64
		t, err := scanTransaction(row, instrument, &rowID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: index %d out of range for %s", costbasis.ErrNotFound, index, instrument)
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM "transaction" WHERE seq = ?`, rowID); err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		_, err = tx.Exec(`UPDATE sequence SET epoch = epoch + 1 WHERE account = ? AND instrument = ?`, account, instrument)
		if err != nil {
			return fmt.Errorf("failed to update sequence: %w", err)
		}
		removed = t
		return nil
	})
	if err != nil {
		return costbasis.Transaction{}, err
	}
	s.log.Debug().Str("account", account).Str("instrument", instrument).Int("index", index).Msg("transaction removed")
	return removed, nil
}

// Sequence returns a snapshot of an instrument's transactions.
func (s *Store) Sequence(account, instrument string) (costbasis.Sequence, error) {
	account = strings.TrimSpace(account)
	var seq costbasis.Sequence
	err := s.inTx(func(tx *sql.Tx) error {
		if err := accountExists(tx, account); err != nil {
			return err
		}
		var err error
		seq, err = sequence(tx, account, costbasis.NormalizeInstrument(instrument))
		return err
	})
	return seq, err
}

// List returns an instrument's transactions in insertion order.
func (s *Store) List(account, instrument string) ([]costbasis.Transaction, error) {
	seq, err := s.Sequence(account, instrument)
	return seq.Transactions, err
}

// Instruments returns the sorted instruments with at least one transaction.
func (s *Store) Instruments(account string) ([]string, error) {
	account = strings.TrimSpace(account)
	var res []string
	err := s.inTx(func(tx *sql.Tx) error {
		if err := accountExists(tx, account); err != nil {
			return err
		}
		var err error
		res, err = queryStrings(tx, `SELECT DISTINCT instrument FROM "transaction" WHERE account = ? ORDER BY instrument`, account)
		return err
	})
	return res, err
}

// inTx runs f in a database transaction, committed when f succeeds.
func (s *Store) inTx(f func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// querier is implemented by both *sql.DB and *sql.Tx.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func accountExists(q querier, name string) error {
	var one int
	err := q.QueryRow(`SELECT 1 FROM account WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", costbasis.ErrAccountNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to query account: %w", err)
	}
	return nil
}

// sequence reads an instrument sequence. An instrument never traded has an
// empty sequence at epoch 0.
func sequence(q querier, account, instrument string) (costbasis.Sequence, error) {
	var seq costbasis.Sequence
	err := q.QueryRow(`SELECT epoch FROM sequence WHERE account = ? AND instrument = ?`, account, instrument).Scan(&seq.Epoch)
	if errors.Is(err, sql.ErrNoRows) {
		return seq, nil
	}
	if err != nil {
		return seq, fmt.Errorf("failed to query sequence: %w", err)
	}

	rows, err := q.Query(`
		SELECT seq, side, date, quantity, price, currency, memo
		FROM "transaction"
		WHERE account = ? AND instrument = ?
		ORDER BY seq`, account, instrument)
	if err != nil {
		return seq, fmt.Errorf("failed to query transaction table: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var rowID int64
		t, err := scanTransaction(rows, instrument, &rowID)
		if err != nil {
			return seq, err
		}
		seq.Transactions = append(seq.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return seq, fmt.Errorf("error iterating transaction table: %w", err)
	}
	return seq, nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner, instrument string, rowID *int64) (costbasis.Transaction, error) {
	var side, date, quantity, price, currency, memo string
	if err := row.Scan(rowID, &side, &date, &quantity, &price, &currency, &memo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return costbasis.Transaction{}, err
		}
		return costbasis.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t := costbasis.Transaction{Instrument: instrument, Memo: memo}
	var err error
	if t.Side, err = costbasis.ParseSide(side); err != nil {
		return t, fmt.Errorf("transaction %d: %w", *rowID, err)
	}
	if t.Timestamp, err = time.Parse(time.RFC3339Nano, date); err != nil {
		return t, fmt.Errorf("transaction %d: failed to parse date: %w", *rowID, err)
	}
	if t.Quantity, err = costbasis.ParseQuantity(quantity); err != nil {
		return t, fmt.Errorf("transaction %d: failed to parse quantity: %w", *rowID, err)
	}
	if t.Price, err = costbasis.ParseMoney(price, currency); err != nil {
		return t, fmt.Errorf("transaction %d: failed to parse price: %w", *rowID, err)
	}
	return t, nil
}

func queryStrings(q querier, query string, args ...any) ([]string, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		res = append(res, v)
	}
	return res, rows.Err()
}
