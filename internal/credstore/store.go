// Package credstore persists the single bearer token the client uses to
// authenticate against the taskflow backend.
package credstore

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/marcus/taskflow/internal/config"
)

// TokenKey is the fixed key the token is stored under.
const TokenKey = "taskflow_token"

// Store holds at most one bearer token.
//
// Get must not have side effects. Storage errors on Get are reported as an
// absent token. Clear is idempotent.
type Store interface {
	Get() (string, bool)
	Set(token string) error
	Clear() error
}

// Open returns the store selected by cfg.TokenStore, rooted at config.Dir().
func Open(cfg *config.Config) (Store, error) {
	if cfg.TokenStore == config.StoreMemory {
		return NewMemoryStore(), nil
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	return OpenIn(dir, cfg.TokenStore)
}

// OpenIn returns the store of the given kind under dir.
func OpenIn(dir, kind string) (Store, error) {
	switch kind {
	case config.StoreFile, "":
		return NewFileStore(filepath.Join(dir, credentialsFile)), nil
	case config.StoreSQLite:
		return OpenSQLiteStore(filepath.Join(dir, credentialsDB))
	case config.StoreMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown token store %q", kind)
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	set   bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.set
}

func (m *MemoryStore) Set(token string) error {
	m.mu.Lock()
	m.token, m.set = token, true
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	m.token, m.set = "", false
	m.mu.Unlock()
	return nil
}
