package credstore

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aifinance/finctl/internal/model"
)

// MemoryStore keeps the session in process memory. It stores the user as
// encoded JSON so it behaves like the persistent store.
type MemoryStore struct {
	mu   sync.Mutex
	vals map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{vals: make(map[string]string)}
}

// Save implements Store.
func (m *MemoryStore) Save(creds Credentials) error {
	if creds.AccessToken == "" {
		return ErrEmptyAccessToken
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[KeyAccessToken] = creds.AccessToken
	if creds.HasRefreshToken() {
		m.vals[KeyRefreshToken] = creds.RefreshToken
	} else {
		delete(m.vals, KeyRefreshToken)
	}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load() (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	access := m.vals[KeyAccessToken]
	if access == "" {
		return nil, nil
	}
	return &Credentials{AccessToken: access, RefreshToken: m.vals[KeyRefreshToken]}, nil
}

// Clear implements Store.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, KeyAccessToken)
	delete(m.vals, KeyRefreshToken)
	delete(m.vals, KeyUser)
	return nil
}

// SaveUser implements Store.
func (m *MemoryStore) SaveUser(u model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("credstore: encoding user: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[KeyUser] = string(data)
	return nil
}

// LoadUser implements Store.
func (m *MemoryStore) LoadUser() (*model.User, error) {
	m.mu.Lock()
	raw := m.vals[KeyUser]
	m.mu.Unlock()
	if raw == "" {
		return nil, nil
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("credstore: decoding user: %w", err)
	}
	return &u, nil
}

// Keys returns the names of the keys currently set, for inspection in tests.
func (m *MemoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.vals))
	for k := range m.vals {
		keys = append(keys, k)
	}
	return keys
}
