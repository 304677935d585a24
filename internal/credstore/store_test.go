package credstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/marcus/taskflow/internal/config"
)

// storeFactories builds each implementation in an isolated directory.
func storeFactories(t *testing.T) map[string]func() Store {
	t.Helper()
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"file": func() Store {
			return NewFileStore(filepath.Join(t.TempDir(), credentialsFile))
		},
		"sqlite": func() Store {
			s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), credentialsDB))
			if err != nil {
				t.Fatalf("OpenSQLiteStore: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStoreLifecycle(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore()

			if tok, ok := s.Get(); ok {
				t.Fatalf("fresh store: got token %q, want absent", tok)
			}

			if err := s.Set("T1"); err != nil {
				t.Fatalf("Set T1: %v", err)
			}
			if tok, ok := s.Get(); !ok || tok != "T1" {
				t.Fatalf("after Set: got %q/%v, want T1", tok, ok)
			}

			// Later logins overwrite
			if err := s.Set("T2"); err != nil {
				t.Fatalf("Set T2: %v", err)
			}
			if tok, _ := s.Get(); tok != "T2" {
				t.Fatalf("after overwrite: got %q, want T2", tok)
			}

			if err := s.Clear(); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if tok, ok := s.Get(); ok {
				t.Fatalf("after Clear: got %q, want absent", tok)
			}

			// Clear is idempotent
			if err := s.Clear(); err != nil {
				t.Fatalf("second Clear: %v", err)
			}
		})
	}
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), credentialsFile)

	if err := NewFileStore(path).Set("persisted"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	tok, ok := NewFileStore(path).Get()
	if !ok || tok != "persisted" {
		t.Fatalf("reopened store: got %q/%v, want persisted", tok, ok)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credentials mode: got %o, want 600", perm)
	}
}

func TestFileStoreClearRemovesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), credentialsFile)
	s := NewFileStore(path)
	if err := s.Set("x"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected credentials file removed, stat err = %v", err)
	}
}

func TestFileStorePreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), credentialsFile)
	if err := os.WriteFile(path, []byte(`{"theme":"dark"}`), 0600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := NewFileStore(path)
	if err := s.Set("tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := string(data); !strings.Contains(got, `"theme"`) {
		t.Errorf("other keys lost: %s", got)
	}
}

func TestFileStoreCorruptFileReadsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), credentialsFile)
	if err := os.WriteFile(path, []byte("garbage"), 0600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := NewFileStore(path)
	if _, ok := s.Get(); ok {
		t.Fatal("corrupt file should read as absent")
	}
	// Set recovers by replacing the file
	if err := s.Set("fresh"); err != nil {
		t.Fatalf("Set over corrupt file: %v", err)
	}
	if tok, _ := s.Get(); tok != "fresh" {
		t.Errorf("after recovery: got %q, want fresh", tok)
	}
}

func TestFileStoreConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), credentialsFile)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each goroutine uses its own instance, like separate processes
			if err := NewFileStore(path).Set("same"); err != nil {
				t.Errorf("Set: %v", err)
			}
		}()
	}
	wg.Wait()

	if tok, ok := NewFileStore(path).Get(); !ok || tok != "same" {
		t.Fatalf("after concurrent writes: got %q/%v", tok, ok)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		kind string
		want string
	}{
		{config.StoreFile, "*credstore.FileStore"},
		{config.StoreSQLite, "*credstore.SQLiteStore"},
		{config.StoreMemory, "*credstore.MemoryStore"},
	}
	for _, tt := range tests {
		s, err := Open(&config.Config{TokenStore: tt.kind})
		if err != nil {
			t.Fatalf("Open(%s): %v", tt.kind, err)
		}
		if got := fmt.Sprintf("%T", s); got != tt.want {
			t.Errorf("Open(%s): got %s, want %s", tt.kind, got, tt.want)
		}
		if c, ok := s.(*SQLiteStore); ok {
			c.Close()
		}
		if f, ok := s.(*FileStore); ok {
			want := filepath.Join(home, ".config", "taskflow", "credentials.json")
			if f.Path() != want {
				t.Errorf("file store path: got %q, want %q", f.Path(), want)
			}
		}
	}

	if _, err := OpenIn(t.TempDir(), "keychain"); err == nil {
		t.Error("expected error for unknown backend")
	}
}
