// Package access keeps the API keys that unlock per-key rate limits.
//
// Keys live in Postgres and are mirrored into memory; lookups never touch the
// database.
package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	u "receipt2pdf/internal/utils"
)

var (
	// ErrInvalidAPIKey signals that the provided API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrKeyStoreNotReady signals that keys have not been loaded yet, e.g.
	// while the database is still starting.
	ErrKeyStoreNotReady = errors.New("api key store not ready")
)

// KeyStore maps API keys to their requests-per-interval limit.
type KeyStore struct {
	cfg u.PostgresConfig

	mu     sync.RWMutex
	limits map[string]int

	dbMu sync.Mutex
	db   *sql.DB
}

// NewKeyStore returns an empty, not yet ready store backed by cfg.
func NewKeyStore(cfg u.PostgresConfig) *KeyStore {
	return &KeyStore{cfg: cfg}
}

// Configured reports whether a database is set up for keys.
func (s *KeyStore) Configured() bool {
	return s.cfg.Host != ""
}

// Ready reports whether keys have been loaded at least once.
func (s *KeyStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits != nil
}

// Len is the number of loaded keys.
func (s *KeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.limits)
}

// Validate checks whether key is known.
func (s *KeyStore) Validate(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.limits[key]
	return ok
}

// Limit returns the rate limit of key, or 0 (unlimited) for unknown keys.
func (s *KeyStore) Limit(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits[key]
}

// LoadMap replaces all keys with a copy of m. A nil map marks the store ready with no keys.
func (s *KeyStore) LoadMap(m map[string]int) {
	limits := make(map[string]int, len(m))
	for k, v := range m {
		limits[k] = v
	}
	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()
}

// Load reads all keys from Postgres, creating the table on first use.
func (s *KeyStore) Load(ctx context.Context) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	if err := ensureSchema(ctx, db); err != nil {
		return err
	}

	qctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := db.QueryContext(qctx, `SELECT api_key, rate_limit FROM api_keys;`)
	if err != nil {
		return err
	}
	defer rows.Close()

	limits := make(map[string]int)
	for rows.Next() {
		var key string
		var limit int
		if err := rows.Scan(&key, &limit); err != nil {
			return err
		}
		limits[key] = limit
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()
	return nil
}

// Refresh reloads keys every interval until stop is closed.
func (s *KeyStore) Refresh(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Load(context.Background()); err != nil {
				u.Error("Failed to reload API keys", "error", err)
			}
		case <-stop:
			s.Close()
			return
		}
	}
}

// Close releases the database handle.
func (s *KeyStore) Close() {
	s.dbMu.Lock()
	defer s.dbMu.Unlock()
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}

func (s *KeyStore) open(ctx context.Context) (*sql.DB, error) {
	dsn, err := postgresDSN(s.cfg)
	if err != nil {
		return nil, err
	}

	s.dbMu.Lock()
	defer s.dbMu.Unlock()
	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Small, low-throughput control table.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS api_keys (
		api_key TEXT PRIMARY KEY,
		rate_limit INTEGER NOT NULL DEFAULT 60,
		label TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`)
	return err
}

func postgresDSN(cfg u.PostgresConfig) (string, error) {
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		return cfg.Host, nil
	}
	switch {
	case cfg.Host == "":
		return "", fmt.Errorf("postgres host is empty")
	case cfg.Database == "":
		return "", fmt.Errorf("postgres database is empty")
	case cfg.User == "":
		return "", fmt.Errorf("postgres user is empty")
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	host := cfg.Host
	switch {
	case strings.HasPrefix(host, "["):
		if !strings.Contains(host, "]:") {
			host = fmt.Sprintf("%s:%d", host, port)
		}
	case strings.Count(host, ":") >= 2:
		host = fmt.Sprintf("[%s]:%d", host, port)
	case !strings.Contains(host, ":"):
		host = fmt.Sprintf("%s:%d", host, port)
	}

	dsn := &url.URL{Scheme: "postgres", Host: host, Path: "/" + cfg.Database}
	if cfg.Password != "" {
		dsn.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		dsn.User = url.User(cfg.User)
	}
	if cfg.SSLMode != "" {
		q := dsn.Query()
		q.Set("sslmode", cfg.SSLMode)
		dsn.RawQuery = q.Encode()
	}
	return dsn.String(), nil
}
