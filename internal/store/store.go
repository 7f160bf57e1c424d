package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/querysql"
)

//go:embed schema.sql
var schemaSQL string

//go:embed schema_postgres.sql
var schemaPostgresSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added lookup indexes on discovery links, functions and graph items
const currentSchemaVersion = ir.SchemaVersion

// DefaultBatchSize is the number of rows per multi-row INSERT or DELETE.
const DefaultBatchSize = 500

// Store provides access to the monitoring configuration database.
type Store struct {
	db        *sql.DB
	dialect   querysql.Dialect
	batchSize int

	mu        sync.Mutex
	observers []Observer
}

// Option configures a Store.
type Option func(*Store)

// WithObserver registers an observer for committed statements.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observers = append(s.observers, o)
	}
}

// WithBatchSize limits the rows per multi-row statement.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := newStore(db, querysql.SQLite, opts)
	if err := s.applySchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

// OpenPostgres connects to PostgreSQL through the pgx stdlib driver and
// applies the schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := newStore(db, querysql.Postgres, opts)
	if err := s.applySchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return s, nil
}

// OpenDriver opens a store by driver name ("sqlite3" or "pgx"/"postgres").
// For SQLite the DSN is the database path.
func OpenDriver(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	dialect, ok := querysql.ParseDialect(driver)
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if dialect == querysql.Postgres {
		return OpenPostgres(ctx, dsn, opts...)
	}
	return Open(dsn, opts...)
}

func newStore(db *sql.DB, dialect querysql.Dialect, opts []Option) *Store {
	s := &Store{db: db, dialect: dialect, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// AddObserver registers an observer after the store was opened.
func (s *Store) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Query runs a hand-written query written with ? placeholders.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
}

// QueryRow runs a hand-written single-row query written with ? placeholders.
func (s *Store) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func (s *Store) applySchema(ctx context.Context) error {
	if s.dialect == querysql.Postgres {
		for _, stmt := range splitStatements(schemaPostgresSQL) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute schema: %w", err)
			}
		}
	} else if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// splitStatements splits a schema file on statement terminators.
func splitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		if strings.TrimSpace(stripComments(part)) != "" {
			stmts = append(stmts, part)
		}
	}
	return stmts
}

func stripComments(sql string) string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// runMigrations applies incremental schema migrations based on the
// recorded schema version.
func (s *Store) runMigrations(ctx context.Context) error {
	version, err := s.schemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	if version < 1 {
		if err := s.migrateToV1(ctx); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateToV2(ctx); err != nil {
			return err
		}
	}

	if err := s.setSchemaVersion(ctx, currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}

	return nil
}

// migrateToV1 adds the lookup indexes used by the prototype loaders.
func (s *Store) migrateToV1(ctx context.Context) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS trigger_discovery_1 ON trigger_discovery (parent_triggerid)",
		"CREATE INDEX IF NOT EXISTS graph_discovery_1 ON graph_discovery (parent_graphid)",
		"CREATE INDEX IF NOT EXISTS functions_1 ON functions (triggerid)",
		"CREATE INDEX IF NOT EXISTS functions_2 ON functions (itemid)",
		"CREATE INDEX IF NOT EXISTS graphs_items_1 ON graphs_items (graphid)",
		"CREATE INDEX IF NOT EXISTS items_1 ON items (hostid)",
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}

// migrateToV2 indexes trigger tags by owner.
func (s *Store) migrateToV2(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS trigger_tag_1 ON trigger_tag (triggerid)"); err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var version int
	if s.dialect == querysql.SQLite {
		err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
		return version, err
	}

	err := s.db.QueryRowContext(ctx, "SELECT mandatory FROM dbversion").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return version, err
}

func (s *Store) setSchemaVersion(ctx context.Context, version int) error {
	if s.dialect == querysql.SQLite {
		_, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version))
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM dbversion"); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO dbversion (mandatory) VALUES ($1)", version)
	return err
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
