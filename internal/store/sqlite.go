package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db     *sqlx.DB
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock overrides the clock used to stamp task creation times.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) { s.now = now }
}

// WithLogger sets the logger used for structural mutations.
func WithLogger(l *slog.Logger) Option {
	return func(s *SQLiteStore) { s.logger = l }
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode and foreign keys, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	memory := dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")

	dsn := dbPath
	if memory && !strings.HasPrefix(dsn, "file:") {
		dsn = "file::memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	// Pragmas in the DSN apply to every pooled connection. Transactions
	// take the write lock at BEGIN, so busy_timeout covers every wait.
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite&_txlock=immediate"
	if !memory {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Each connection to an in-memory database is a separate database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{
		db:     db,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// withTx runs fn inside a single transaction, committing only if fn
// returns nil. No intermediate state is visible to other connections.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// requireTask returns ErrNotFound if no task with id exists.
func requireTask(ctx context.Context, q sqlx.QueryerContext, id int64) error {
	var exists int
	err := sqlx.GetContext(ctx, q, &exists, "SELECT 1 FROM tasks WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("looking up task %d: %w", id, err)
	}
	return nil
}

// formatDate renders a civil date for storage, or NULL.
func formatDate(d *civil.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// formatTime renders a time of day for storage at second precision, or NULL.
func formatTime(t *civil.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{
		String: fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second),
		Valid:  true,
	}
}

func parseDate(s sql.NullString) (*civil.Date, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := civil.ParseDate(s.String)
	if err != nil {
		return nil, fmt.Errorf("parsing stored date %q: %w", s.String, err)
	}
	return &d, nil
}

func parseTime(s sql.NullString) (*civil.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := civil.ParseTime(s.String)
	if err != nil {
		return nil, fmt.Errorf("parsing stored time %q: %w", s.String, err)
	}
	return &t, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
