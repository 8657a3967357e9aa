package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/FahimKhamsa/madhabits/internal/constants"
)

// JSONStore keeps the snapshot in a single JSON file.
type JSONStore struct {
	mu   sync.Mutex
	path string
	snap *Snapshot
}

func NewJSONStore(configPath string) *JSONStore {
	return &JSONStore{
		path: configPath,
	}
}

func (s *JSONStore) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		return fmt.Errorf("storage already initialized at %s", s.path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &Snapshot{Version: SnapshotVersion}
	return s.save()
}

func (s *JSONStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("storage not initialized, run '%s init' first", constants.AppName)
		}
		return fmt.Errorf("failed to read storage: %w", err)
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return fmt.Errorf("failed to parse storage: %w", err)
	}
	if snap.Version > SnapshotVersion {
		return fmt.Errorf("storage version (%d) is newer than supported version (%d) - please upgrade the application", snap.Version, SnapshotVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) LoadSnapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return Snapshot{}, fmt.Errorf("storage not loaded")
	}
	return *s.snap, nil
}

func (s *JSONStore) SaveSnapshot(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return fmt.Errorf("storage not loaded")
	}
	snap.Version = SnapshotVersion
	s.snap = &snap
	return s.save()
}

func (s *JSONStore) GetConfigPath() string {
	return s.path
}

// save writes through a temp file so a crash never leaves a truncated file.
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize storage: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to write storage: %w", err)
	}
	return nil
}
