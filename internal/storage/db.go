package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// DB is the persistence adapter: a transactional, parameterised-statement
// store over a single SQLite file, following the shape of
// shoal-provision's internal/database.DB (sql.Open with the pure-Go
// modernc.org/sqlite driver, migrations run inside one transaction).
type DB struct {
	conn *sql.DB

	writeMu   sync.Mutex
	sessionMu map[string]*sync.Mutex
}

// Open creates or opens the SQLite database file at path and runs
// migrations.
func Open(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// SQLite tolerates only one writer; a single pooled connection avoids
	// "database is locked" churn under the per-session mutex write path below.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, sessionMu: make(map[string]*sync.Mutex)}
	if err := db.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}
	return tx.Commit()
}

// Close releases the underlying database handle. Operations issued after
// Close fail.
func (db *DB) Close() error {
	return db.conn.Close()
}

// WriteTx runs f inside one transaction with strict serialisable
// semantics: any error inside f rolls the transaction back and is
// surfaced to the caller. Calls for the same session key are additionally
// serialised through a per-session mutex, so two goroutines racing to
// write the same session queue behind each other and each run its own
// transaction in turn — unlike singleflight, neither call's work is ever
// skipped or shared with the other (see §5 of SPEC_FULL.md and testable
// property 12: concurrent writes to one path must yield versions v and
// v+1, never a collapsed single write).
func (db *DB) WriteTx(ctx context.Context, session string, f func(*sql.Tx) error) error {
	mu := db.sessionLock(session)
	mu.Lock()
	defer mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := f(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (db *DB) sessionLock(session string) *sync.Mutex {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	mu, ok := db.sessionMu[session]
	if !ok {
		mu = &sync.Mutex{}
		db.sessionMu[session] = mu
	}
	return mu
}

// QueryRowContext and QueryContext are read paths; they bypass the
// per-session write mutex since reads only need the driver's own snapshot
// isolation.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}
