package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/platinummonkey/handoff/pkg/sso"
)

const BackendPostgres = "postgres"

const (
	migrateQuery = `CREATE TABLE IF NOT EXISTS sso_tokens (
	cache_key  TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	uid        TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sso_tokens_expires_at_idx ON sso_tokens (expires_at)`

	putQuery = `INSERT INTO sso_tokens (cache_key, token, uid, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (cache_key) DO UPDATE
SET token = EXCLUDED.token, uid = EXCLUDED.uid, expires_at = EXCLUDED.expires_at`

	getQuery = `SELECT token, uid FROM sso_tokens WHERE cache_key = $1 AND expires_at > $2`

	getDelQuery = `DELETE FROM sso_tokens WHERE cache_key = $1 AND expires_at > $2 RETURNING token, uid`

	sweepQuery = `DELETE FROM sso_tokens WHERE expires_at <= $1`
)

// SQLConfig configures the Postgres connection pool
type SQLConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration
	Timeout     time.Duration
}

// SQLStore keeps tokens in a Postgres table. Expired rows are invisible to reads
// and removed by Sweep.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLStore)(nil)

// OpenSQLStore opens and verifies a Postgres connection pool
func OpenSQLStore(ctx context.Context, cfg SQLConfig) (*SQLStore, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	}
	if cfg.MaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewSQLStore(db), nil
}

// NewSQLStore wraps an open database
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// Migrate creates the token table if it does not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migrateQuery); err != nil {
		return fmt.Errorf("failed to migrate sso_tokens: %w", err)
	}
	return nil
}

// Put stores tok under key for ttl, replacing any previous value
func (s *SQLStore) Put(ctx context.Context, key string, tok *sso.SSOToken, ttl time.Duration) error {
	if tok == nil {
		return ErrNilToken
	}
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	expiresAt := s.now().Add(ttl).UTC()
	if _, err := s.db.ExecContext(ctx, putQuery, key, tok.Token, tok.UID, expiresAt); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Get returns the live token under key, or nil on a miss
func (s *SQLStore) Get(ctx context.Context, key string) (*sso.SSOToken, error) {
	return s.scan(s.db.QueryRowContext(ctx, getQuery, key, s.now().UTC()))
}

// GetDel atomically returns and removes the live token under key
func (s *SQLStore) GetDel(ctx context.Context, key string) (*sso.SSOToken, error) {
	return s.scan(s.db.QueryRowContext(ctx, getDelQuery, key, s.now().UTC()))
}

func (s *SQLStore) scan(row *sql.Row) (*sso.SSOToken, error) {
	var tok sso.SSOToken
	err := row.Scan(&tok.Token, &tok.UID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	return &tok, nil
}

// Sweep deletes expired rows and returns how many were removed
func (s *SQLStore) Sweep(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, sweepQuery, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired tokens: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count swept tokens: %w", err)
	}
	return n, nil
}

// Ping checks database connectivity
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Backend returns "postgres"
func (s *SQLStore) Backend() string {
	return BackendPostgres
}

// DB returns the underlying database for health checks
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
