package credstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aifinance/finctl/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// SQLiteStore keeps the session in a small SQLite key/value table.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens or creates the session database at the given path.
func Open(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("credstore: creating dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(full)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("credstore: opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("credstore: creating schema: %w", err)
	}

	// Tokens are secrets; keep the file private to the user.
	_ = os.Chmod(dbPath, 0o600)

	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save writes both tokens in one transaction.
func (s *SQLiteStore) Save(creds Credentials) error {
	if creds.AccessToken == "" {
		return ErrEmptyAccessToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("credstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	if err := upsert(tx, KeyAccessToken, creds.AccessToken, now); err != nil {
		return err
	}
	if creds.HasRefreshToken() {
		if err := upsert(tx, KeyRefreshToken, creds.RefreshToken, now); err != nil {
			return err
		}
	} else if _, err := tx.Exec("DELETE FROM session_kv WHERE key = ?", KeyRefreshToken); err != nil {
		return fmt.Errorf("credstore: deleting refresh token: %w", err)
	}

	return tx.Commit()
}

// Load returns the stored credentials, or nil if no access token is stored.
func (s *SQLiteStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	access, err := s.get(KeyAccessToken)
	if err != nil || access == "" {
		return nil, err
	}
	refresh, err := s.get(KeyRefreshToken)
	if err != nil {
		return nil, err
	}
	return &Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

// Clear removes tokens and the cached user.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM session_kv WHERE key IN (?, ?, ?)",
		KeyAccessToken, KeyRefreshToken, KeyUser)
	if err != nil {
		return fmt.Errorf("credstore: clearing: %w", err)
	}
	return nil
}

// SaveUser caches the profile as a JSON blob.
func (s *SQLiteStore) SaveUser(u model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("credstore: encoding user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`INSERT OR REPLACE INTO session_kv (key, value, updated_at) VALUES (?, ?, ?)`,
		KeyUser, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("credstore: saving user: %w", err)
	}
	return nil
}

// LoadUser returns the cached profile, or nil if none is cached.
func (s *SQLiteStore) LoadUser() (*model.User, error) {
	s.mu.Lock()
	raw, err := s.get(KeyUser)
	s.mu.Unlock()
	if err != nil || raw == "" {
		return nil, err
	}

	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("credstore: decoding user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM session_kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("credstore: reading %s: %w", key, err)
	}
	return value, nil
}

func upsert(tx *sql.Tx, key, value, now string) error {
	_, err := tx.Exec(`INSERT OR REPLACE INTO session_kv (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("credstore: writing %s: %w", key, err)
	}
	return nil
}
