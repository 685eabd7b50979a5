// Package sqlstore is a database/sql inventory.Store with two dialects:
// SQLite through modernc.org/sqlite and PostgreSQL through pgx.
//
// Both dialects share one set of queries written with ? placeholders;
// PostgreSQL queries are rebound to $n before execution. Decimals and
// timestamps are stored as text so values survive both engines unchanged.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/movingbox/inventory-archive/internal/inventory"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options configures Open.
type Options struct {
	Driver string // DriverSQLite or DriverPostgres
	Path   string // SQLite database file
	DSN    string // PostgreSQL connection string

	// Pool settings, PostgreSQL only.
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store implements inventory.Store over database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	path    string        // SQLite file, for Snapshot
	pool    *pgxpool.Pool // PostgreSQL only
	logger  *slog.Logger
}

var (
	_ inventory.Store       = (*Store)(nil)
	_ inventory.Snapshotter = (*Store)(nil)
)

// Open connects to the database described by opts and creates the schema
// if it does not exist.
func Open(ctx context.Context, opts Options) (*Store, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return OpenSQLite(ctx, opts.Path)
	case DriverPostgres:
		return OpenPostgres(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{
		db:      db,
		dialect: sqliteDialect,
		path:    path,
		logger:  slog.Default().With("component", "store", "driver", DriverSQLite),
	}
	if err := s.migrate(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("store opened", "path", path)
	return s, nil
}

// OpenPostgres connects a pgx pool and exposes it through database/sql.
func OpenPostgres(ctx context.Context, opts Options) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:      stdlib.OpenDBFromPool(pool),
		dialect: postgresDialect,
		pool:    pool,
		logger:  slog.Default().With("component", "store", "driver", DriverPostgres),
	}
	if err := s.migrate(ctx, postgresSchema); err != nil {
		s.Close()
		return nil, err
	}
	s.logger.Info("store opened", "database", poolConfig.ConnConfig.Database)
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Driver returns DriverSQLite or DriverPostgres.
func (s *Store) Driver() string { return s.dialect.name }

func (s *Store) migrate(ctx context.Context, schema string) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// Snapshot writes a consistent copy of a SQLite database to dest, which
// must not exist. PostgreSQL stores return inventory.ErrSnapshotUnsupported.
func (s *Store) Snapshot(ctx context.Context, dest string) error {
	if s.dialect.name != DriverSQLite {
		return inventory.ErrSnapshotUnsupported
	}
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("snapshot %s: destination exists", dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("snapshot %s: %w", dest, err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("snapshot %s: %w", dest, err)
	}
	s.logger.Info("snapshot written", "dest", dest)
	return nil
}
