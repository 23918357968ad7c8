// Package cliconfig persists client-side session state for the databucket
// CLI. The persisted session is a small key-value YAML file under the user
// config directory; pkg/session treats it as an abstract key-value surface.
package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDirName is the directory under the user config dir.
	ConfigDirName = "databucket"

	// SessionFileName is the persisted session file name.
	SessionFileName = "session.yaml"

	// EnvServerURL overrides the server URL for CLI commands.
	EnvServerURL = "DATABUCKET_URL"
)

// DefaultCommunityServerURL is the preconfigured credential-less capture
// server offered as a zero-setup alternative to running your own.
const DefaultCommunityServerURL = "https://databucket.automationhub.in"

// DefaultMaxBuckets is the client-side bucket quota per user. The server
// remains authoritative; this only fast-fails obviously doomed creates.
const DefaultMaxBuckets = 5

// DefaultSessionPath returns the path of the persisted session file.
func DefaultSessionPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigDirName, SessionFileName), nil
}

// ServerURLFromEnv returns the DATABUCKET_URL override, if set.
func ServerURLFromEnv() string {
	return os.Getenv(EnvServerURL)
}

// FileStore is a YAML-file-backed key-value store implementing
// session.Store. Values are written with owner-only permissions since the
// file holds credentials.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the given file path. The file and
// its directory are created lazily on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// OpenDefaultStore creates a store at the default session path.
func OpenDefaultStore() (*FileStore, error) {
	path, err := DefaultSessionPath()
	if err != nil {
		return nil, err
	}
	return NewFileStore(path), nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get returns the value for key and whether it was present.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false
	}
	v, ok := values[key]
	return v, ok
}

// Set writes key to the session file, creating it if needed.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Remove deletes key from the session file. Removing an absent key is not an
// error.
func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	if len(values) == 0 {
		err := os.Remove(s.path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return s.save(values)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

// MemoryStore is an in-memory session.Store for tests and embedding.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

// Get returns the value for key and whether it was present.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores key.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Remove deletes key.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
