package credstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const (
	credentialsFile = "credentials.json"
	lockTimeout     = 500 * time.Millisecond
)

// FileStore keeps the token in a small JSON object file (mode 0600), keyed
// by TokenKey. Other keys in the file are preserved.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path. The file is not
// created until the first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get() (string, bool) {
	entries, err := f.read()
	if err != nil {
		slog.Debug("credstore: read", "path", f.path, "err", err)
		return "", false
	}
	token, ok := entries[TokenKey]
	return token, ok
}

func (f *FileStore) Set(token string) error {
	return f.update(func(entries map[string]string) {
		entries[TokenKey] = token
	})
}

func (f *FileStore) Clear() error {
	if _, err := os.Stat(f.path); os.IsNotExist(err) {
		return nil
	}
	return f.update(func(entries map[string]string) {
		delete(entries, TokenKey)
	})
}

func (f *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	entries := map[string]string{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return entries, nil
}

// update applies fn to the stored entries under an exclusive file lock and
// writes the result atomically. An empty result removes the file.
func (f *FileStore) update(fn func(map[string]string)) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}

	lock := newFileLocker(f.path + ".lock")
	if err := lock.acquire(lockTimeout); err != nil {
		return err
	}
	defer lock.release()

	entries, err := f.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking logins forever.
		slog.Warn("credstore: discarding unreadable credentials", "path", f.path, "err", err)
		entries = map[string]string{}
	}
	fn(entries)

	if len(entries) == 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove credentials: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
