package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists counter units in SQLite so rate limits and dedup survive across
// separate invocations (cron, Lambda-style runs).
//
// Each increment inserts one row with its own expiry; counts only consider rows that have
// not expired at the caller's now, which keeps windows rolling.
type SQLiteStore struct {
	db        *sql.DB
	closeOnce sync.Once
}

var _ repository.CounterStore = (*SQLiteStore)(nil)

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// DBPath is the path to the database file; ":memory:" is accepted for tests.
	DBPath string
	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteStoreConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig opens the database with custom settings.
func NewSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", cfg.DBPath, cfg.BusyTimeout.Milliseconds())
	if cfg.DBPath != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite aceita um único escritor; com :memory: cada conexão seria um banco novo.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s, err := newSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS counter_units (
	counter_key TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_counter_units_key ON counter_units(counter_key, expires_at);
CREATE INDEX IF NOT EXISTS idx_counter_units_expires ON counter_units(expires_at);
`

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const (
	countQuery  = `SELECT COUNT(*) FROM counter_units WHERE counter_key = ? AND expires_at > ?`
	insertQuery = `INSERT INTO counter_units (counter_key, expires_at) VALUES (?, ?)`
	// pruneQuery remove unidades expiradas de todas as chaves, inclusive dedup que não voltam a incrementar.
	pruneQuery = `DELETE FROM counter_units WHERE expires_at <= ?`
)

// Get returns the number of live units for key at now.
func (s *SQLiteStore) Get(ctx context.Context, key string, now time.Time) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, countQuery, key, now.UnixNano()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", key, err)
	}
	return count, nil
}

// IncrementWithTTL prunes expired units of every key, inserts a new one expiring at now+ttl and
// returns the live count, all in one transaction.
func (s *SQLiteStore) IncrementWithTTL(ctx context.Context, key string, now time.Time, ttl time.Duration) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	nowNanos := now.UnixNano()

	if _, err := tx.ExecContext(ctx, pruneQuery, nowNanos); err != nil {
		return 0, fmt.Errorf("failed to prune expired counters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertQuery, key, now.Add(ttl).UnixNano()); err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}

	var count int64
	if err := tx.QueryRowContext(ctx, countQuery, key, nowNanos).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit increment: %w", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}
