package rollover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// MemoryState keeps reset dates in memory.
type MemoryState struct {
	mu    sync.Mutex
	dates map[string]string
}

func NewMemoryState() *MemoryState {
	return &MemoryState{dates: make(map[string]string)}
}

func (m *MemoryState) LastResetDate(userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dates[userID], nil
}

func (m *MemoryState) SetLastResetDate(userID, date string) error {
	m.mu.Lock()
	m.dates[userID] = date
	m.mu.Unlock()
	return nil
}

// FileState persists reset dates in a small TOML file, the command-line
// counterpart of a browser-local key.
type FileState struct {
	mu   sync.Mutex
	path string
}

type stateFile struct {
	LastResetDate map[string]string `toml:"last_reset_date"`
}

func NewFileState(path string) *FileState {
	return &FileState{path: path}
}

func (f *FileState) read() (stateFile, error) {
	var sf stateFile
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return stateFile{LastResetDate: map[string]string{}}, nil
	}
	if err != nil {
		return sf, fmt.Errorf("read state file: %w", err)
	}
	if err := toml.Unmarshal(data, &sf); err != nil {
		return sf, fmt.Errorf("parse state file: %w", err)
	}
	if sf.LastResetDate == nil {
		sf.LastResetDate = map[string]string{}
	}
	return sf, nil
}

func (f *FileState) LastResetDate(userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sf, err := f.read()
	if err != nil {
		return "", err
	}
	return sf.LastResetDate[userID], nil
}

func (f *FileState) SetLastResetDate(userID, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	sf, err := f.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking the check.
		sf = stateFile{LastResetDate: map[string]string{}}
	}
	sf.LastResetDate[userID] = date

	data, err := toml.Marshal(sf)
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}
