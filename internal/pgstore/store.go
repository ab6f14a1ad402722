// Package pgstore implements statestore.Store on PostgreSQL, letting several
// processes drive the same runs. Every compare-and-set is a single SQL
// statement, so row locking provides the atomicity the engine relies on.
//
// Expiry is evaluated against the caller's clock and expired rows are
// ignored by every query; DeleteExpired reclaims them.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/vk/jobchain/internal/statestore"
)

// Store is a PostgreSQL-backed statestore.Store.
type Store struct {
	db    *sql.DB
	table string
	now   func() time.Time

	getSQL    string
	putSQL    string
	insertSQL string
	swapSQL   string
	deleteSQL string
}

var _ statestore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now as the expiry reference.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open connects to the database described by cfg and verifies the
// connection with a ping.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// New wraps an open database handle. The table must already exist; see
// Migrate.
func New(db *sql.DB, table string, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("pgstore: nil database handle")
	}
	if table == "" {
		table = DefaultTable
	}
	if !tableNameRegex.MatchString(table) {
		return nil, fmt.Errorf("pgstore: invalid table name %q", table)
	}

	s := &Store{db: db, table: table, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	// $now is always the last parameter.
	s.getSQL = fmt.Sprintf(`SELECT value FROM %s WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`, table)
	s.putSQL = fmt.Sprintf(`INSERT INTO %s (key, value, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`, table)
	s.insertSQL = fmt.Sprintf(`INSERT INTO %s AS t (key, value, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
WHERE t.expires_at IS NOT NULL AND t.expires_at <= $4`, table)
	s.swapSQL = fmt.Sprintf(`UPDATE %s SET value = $2, expires_at = $3
WHERE key = $1 AND value = $4 AND (expires_at IS NULL OR expires_at > $5)`, table)
	s.deleteSQL = fmt.Sprintf(`DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at <= $1`, table)
	return s, nil
}

// Migrate creates the state table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	expires_at TIMESTAMPTZ NULL
)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) expiry(ttl time.Duration) sql.NullTime {
	if ttl <= 0 {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: s.now().Add(ttl).UTC(), Valid: true}
}

// Get returns the live value under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.getSQL, key, s.now().UTC()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

// Put upserts value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := s.db.ExecContext(ctx, s.putSQL, key, nonNil(value), s.expiry(ttl)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Has reports whether a live entry exists under key.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// CompareAndSet swaps the entry under key when it matches expected.
func (s *Store) CompareAndSet(ctx context.Context, key string, expected, value []byte, ttl time.Duration) (bool, error) {
	var (
		res sql.Result
		err error
	)
	now := s.now().UTC()
	if expected == nil {
		res, err = s.db.ExecContext(ctx, s.insertSQL, key, nonNil(value), s.expiry(ttl), now)
	} else {
		res, err = s.db.ExecContext(ctx, s.swapSQL, key, nonNil(value), s.expiry(ttl), expected, now)
	}
	if err != nil {
		return false, fmt.Errorf("compare-and-set %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("compare-and-set %s: %w", key, err)
	}
	return n == 1, nil
}

// DeleteExpired removes rows whose lifetime has passed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.deleteSQL, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return res.RowsAffected()
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
