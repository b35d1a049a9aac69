package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Store is a key-value store of JSON documents backed by SQLite. Every
// value read or written passes through an in-memory cache, so a session
// keeps working when the database stops accepting writes.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// mu serializes read-modify-write sequences on the entity lists.
	mu sync.Mutex

	cacheMu sync.RWMutex
	cache   map[string][]byte
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{
		db:     db,
		logger: logger,
		cache:  make(map[string][]byte),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store. Used for tests and as the
// session-only fallback when the database file cannot be opened.
func NewMemory(logger *slog.Logger) (*Store, error) {
	return New(":memory:", logger)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS kv (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);
	`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	return s.seedSubjects()
}

// load returns the raw document stored under key. The cache wins over the
// database so that values written during a database outage stay visible.
func (s *Store) load(key string) ([]byte, bool, error) {
	s.cacheMu.RLock()
	data, ok := s.cache[key]
	s.cacheMu.RUnlock()
	if ok {
		return data, true, nil
	}

	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %q: %w", key, err)
	}

	data = []byte(value)
	s.cacheMu.Lock()
	s.cache[key] = data
	s.cacheMu.Unlock()
	return data, true, nil
}

func (s *Store) save(key string, data []byte) error {
	s.cacheMu.Lock()
	s.cache[key] = data
	s.cacheMu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(data), now,
	)
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// Reset deletes every stored document. Subsequent reads fall back to the
// key defaults; the first-run subjects are not seeded again. When the
// delete fails nothing changes, cached values included.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM kv`); err != nil {
		s.logger.Warn("reset storage", "error", err)
		return fmt.Errorf("reset: %w", err)
	}

	s.cacheMu.Lock()
	s.cache = make(map[string][]byte)
	s.cacheMu.Unlock()
	return nil
}

// DefaultDBPath returns ~/.config/studycompanion/studycompanion.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "studycompanion", "studycompanion.db"), nil
}
