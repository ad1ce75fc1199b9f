// Package history records one row per `kano run` invocation to a pluggable
// SQL backend, each tagged with the source's content hash, so `kano history`
// can list past runs (SPEC_FULL.md §13). Every run gets its own row; rows of
// identical source are not merged.
//
// Grounded on the teacher's internal/database/db_manager.go: same
// type-switched driver selection and *sql.DB pooling, narrowed from a
// general-purpose multi-connection manager down to the one fixed `runs`
// table this tool needs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Run is one recorded `kano run` invocation.
type Run struct {
	ID          string
	SourcePath  string
	SourceHash  string
	Diagnostics string
	Stdout      string
	ExitCode    int
	WallTime    time.Duration
	CreatedAt   time.Time
}

// Store is a connection to the history backend selected by a run's DSN.
type Store struct {
	db     *sql.DB
	driver string
}

// Open parses dsn's scheme (sqlite:, postgres:, mysql:, sqlserver:) to pick
// a driver, connects, and ensures the runs table exists.
func Open(dsn string) (*Store, error) {
	driver, source, err := splitDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping %s: %w", driver, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func splitDSN(dsn string) (driver, source string, err error) {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		// Bare path: treat as a sqlite file, the default backend.
		return "sqlite", dsn, nil
	}
	switch scheme {
	case "sqlite", "sqlite3":
		return "sqlite", rest, nil
	case "postgres", "postgresql":
		return "postgres", dsn, nil
	case "mysql":
		return "mysql", rest, nil
	case "sqlserver":
		return "sqlserver", dsn, nil
	default:
		return "", "", fmt.Errorf("history: unsupported DSN scheme %q", scheme)
	}
}

func (s *Store) migrate() error {
	stmt := `CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		source_hash TEXT NOT NULL,
		diagnostics TEXT,
		stdout      TEXT,
		exit_code   INTEGER NOT NULL,
		wall_time_ns INTEGER NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`
	_, err := s.db.Exec(stmt)
	return err
}

// HashSource returns the blake2b-256 hex digest of source, stored with each
// recorded run and used as the debug server's singleflight key.
func HashSource(source []byte) string {
	sum := blake2b.Sum256(source)
	return fmt.Sprintf("%x", sum)
}

// Record inserts a run, assigning it a fresh ID and timestamp.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_path, source_hash, diagnostics, stdout, exit_code, wall_time_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourcePath, r.SourceHash, r.Diagnostics, r.Stdout, r.ExitCode, r.WallTime.Nanoseconds(), r.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("history: record run: %w", err)
	}
	return r, nil
}

// Recent returns the most recently recorded runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_path, source_hash, diagnostics, stdout, exit_code, wall_time_ns, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var wallNS int64
		if err := rows.Scan(&r.ID, &r.SourcePath, &r.SourceHash, &r.Diagnostics, &r.Stdout, &r.ExitCode, &wallNS, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.WallTime = time.Duration(wallNS)
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindByHash looks up the most recently recorded run with the given source
// hash. Nothing in the repository calls it; `kano debug` always resolves and
// runs afresh.
func (s *Store) FindByHash(ctx context.Context, hash string) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_path, source_hash, diagnostics, stdout, exit_code, wall_time_ns, created_at
		 FROM runs WHERE source_hash = ? ORDER BY created_at DESC LIMIT 1`, hash)
	var r Run
	var wallNS int64
	if err := row.Scan(&r.ID, &r.SourcePath, &r.SourceHash, &r.Diagnostics, &r.Stdout, &r.ExitCode, &wallNS, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	r.WallTime = time.Duration(wallNS)
	return r, true, nil
}

func (s *Store) Close() error { return s.db.Close() }
