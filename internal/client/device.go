package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DeviceStore keeps the anonymous device id between runs. It is the CLI
// counterpart of the browser cookie.
type DeviceStore interface {
	Load() (string, error)
	Save(id string) error
}

// FileDeviceStore persists the id in a small text file.
type FileDeviceStore struct {
	path string
	mu   sync.Mutex
}

// NewFileDeviceStore stores the id at path.
func NewFileDeviceStore(path string) *FileDeviceStore {
	return &FileDeviceStore{path: path}
}

// DefaultDeviceStorePath is <user config dir>/bongbari/device_id.
func DefaultDeviceStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "bongbari", "device_id"), nil
}

// Load returns the stored id, or "" when none was saved yet.
func (s *FileDeviceStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes id, creating the parent directory when needed.
func (s *FileDeviceStore) Save(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create device dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(id+"\n"), 0o600); err != nil {
		return fmt.Errorf("write device id: %w", err)
	}
	return nil
}

type memoryDeviceStore struct {
	mu sync.Mutex
	id string
}

func (s *memoryDeviceStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, nil
}

func (s *memoryDeviceStore) Save(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	return nil
}

// ensureDeviceID loads the id or mints and saves a new one.
func ensureDeviceID(store DeviceStore) (string, error) {
	id, err := store.Load()
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := store.Save(id); err != nil {
		return "", err
	}
	return id, nil
}
