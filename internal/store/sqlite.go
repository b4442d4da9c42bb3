package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const maxBusyTimeoutMs = 5000

const schema = `
CREATE TABLE IF NOT EXISTS market_config (
	id                   INTEGER PRIMARY KEY CHECK (id = 1),
	username             TEXT NOT NULL,
	fee_denom            TEXT NOT NULL,
	issuer_fee_collector TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS market_supply (
	id     INTEGER PRIMARY KEY CHECK (id = 1),
	supply TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS holders (
	address TEXT PRIMARY KEY,
	amount  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS question_seq (
	id   INTEGER PRIMARY KEY CHECK (id = 1),
	next INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS questions (
	id          INTEGER PRIMARY KEY,
	asker       TEXT NOT NULL,
	content     TEXT NOT NULL,
	answered    INTEGER NOT NULL DEFAULT 0,
	answer      TEXT,
	asked_at    INTEGER NOT NULL,
	answered_at INTEGER
);
CREATE INDEX IF NOT EXISTS questions_answered_id ON questions (answered, id);
`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite opens (creating if needed) the SQLite database at path and
// ensures the schema exists.
func OpenSQLite(path string) (*sql.DB, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(absPath)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps transactions
	// free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", maxBusyTimeoutMs),
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}
