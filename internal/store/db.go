// Package store keeps uploaded grade files, their rosters and the history of
// generated reports in SQLite or Postgres, plus the file blobs on disk.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ErrNotFound is returned when a record does not exist or belongs to another owner.
var ErrNotFound = errors.New("not found")

// ParseDriver maps user-facing aliases to a Driver.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pg", "pgx":
		return DriverPostgres, nil
	}
	return "", fmt.Errorf("unsupported db driver %q (use sqlite or postgres)", s)
}

// SQLiteDSN builds a modernc DSN for a database file with foreign keys on.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Store is the SQL-backed record store.
type Store struct {
	db     *sql.DB
	driver Driver
	now    func() time.Time
}

// Open connects, tunes the pool and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = SQLiteDSN("gradeloom.db")
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/gradeloom?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	tunePool(driver, db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db, driver: driver, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver reports which database the store is connected to.
func (s *Store) Driver() Driver { return s.driver }

// withTx runs fn in a transaction and commits when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if e := tx.Commit(); e != nil {
			err = fmt.Errorf("store: commit: %w", e)
		}
	}()
	return fn(tx)
}

// tunePool keeps SQLite on a single connection so per-connection pragmas and
// the single-writer lock behave predictably.
func tunePool(driver Driver, db *sql.DB) {
	switch driver {
	case DriverSQLite:
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(45 * time.Minute)
		db.SetConnMaxIdleTime(15 * time.Minute)
	}
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	schema := schemaPostgres
	if driver == DriverSQLite {
		schema = schemaSQLite
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Timestamps are Unix nanoseconds so ordering by upload or generation time is
// stable within a second.
const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS files (
  id TEXT PRIMARY KEY,
  owner TEXT NOT NULL,
  name TEXT NOT NULL,
  sources_json TEXT NOT NULL,
  uploaded_at INTEGER NOT NULL,
  cohort_json TEXT,
  active INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS files_owner_uploaded ON files(owner, uploaded_at DESC);

CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS students_file ON students(file_id, position);

CREATE TABLE IF NOT EXISTS reports (
  id TEXT PRIMARY KEY,
  owner TEXT NOT NULL,
  file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  student TEXT,
  description TEXT NOT NULL,
  report_json TEXT NOT NULL,
  narrative TEXT NOT NULL,
  fallback INTEGER NOT NULL DEFAULT 0,
  model TEXT NOT NULL DEFAULT '',
  document_key TEXT NOT NULL DEFAULT '',
  generated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_owner_generated ON reports(owner, generated_at DESC)
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS files (
  id TEXT PRIMARY KEY,
  owner TEXT NOT NULL,
  name TEXT NOT NULL,
  sources_json TEXT NOT NULL,
  uploaded_at BIGINT NOT NULL,
  cohort_json TEXT,
  active INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS files_owner_uploaded ON files(owner, uploaded_at DESC);

CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS students_file ON students(file_id, position);

CREATE TABLE IF NOT EXISTS reports (
  id TEXT PRIMARY KEY,
  owner TEXT NOT NULL,
  file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  student TEXT,
  description TEXT NOT NULL,
  report_json TEXT NOT NULL,
  narrative TEXT NOT NULL,
  fallback INTEGER NOT NULL DEFAULT 0,
  model TEXT NOT NULL DEFAULT '',
  document_key TEXT NOT NULL DEFAULT '',
  generated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_owner_generated ON reports(owner, generated_at DESC)
`
