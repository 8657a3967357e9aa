// Package sqlite persists the habit snapshot in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/FahimKhamsa/madhabits/internal/constants"
	"github.com/FahimKhamsa/madhabits/internal/logger"
	"github.com/FahimKhamsa/madhabits/internal/migration"
	"github.com/FahimKhamsa/madhabits/internal/storage"
	"github.com/FahimKhamsa/madhabits/migrations"
)

// Snapshot keys. Each holds one JSON document.
const (
	keyUserID      = "user_id"
	keyHabits      = "habits"
	keyCompletions = "completions"
	keyLastSyncAt  = "last_sync_at"
	keyOutbox      = "outbox"
)

type Store struct {
	path string
	db   *sql.DB
}

var _ storage.Provider = (*Store)(nil)

func NewStore(path string) *Store {
	return &Store{
		path: path,
	}
}

func (s *Store) Init() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	_, err := s.Migrate(context.Background(), func(msg string) {
		logger.Info(msg, "backend", "sqlite")
	})
	return err
}

// Migrate opens the database and applies pending migrations, reporting each
// through logf. It returns how many were applied.
func (s *Store) Migrate(ctx context.Context, logf func(string)) (int, error) {
	if err := s.open(); err != nil {
		return 0, err
	}
	runner, err := s.runner()
	if err != nil {
		return 0, err
	}
	count, err := runner.Apply(ctx, logf)
	if err != nil {
		return count, fmt.Errorf("failed to run migrations: %w", err)
	}
	return count, nil
}

func (s *Store) Load() error {
	if s.db != nil {
		return nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run '%s init' first", constants.AppName)
	}

	if err := s.open(); err != nil {
		return err
	}
	runner, err := s.runner()
	if err != nil {
		return err
	}
	return runner.Validate(context.Background())
}

func (s *Store) open() error {
	if s.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers and keeps the file lock simple.
	db.SetMaxOpenConns(1)
	s.db = db
	return nil
}

func (s *Store) runner() (*migration.Runner, error) {
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, sub), nil
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// GetDB returns the underlying database connection.
// Returns nil if the database has not been initialized or loaded.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

func (s *Store) LoadSnapshot() (storage.Snapshot, error) {
	if s.db == nil {
		return storage.Snapshot{}, fmt.Errorf("storage not loaded")
	}
	snap := storage.Snapshot{Version: storage.SnapshotVersion}

	rows, err := s.db.Query(`SELECT key, value FROM snapshot_kv`)
	if err != nil {
		return snap, fmt.Errorf("failed to read snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return snap, fmt.Errorf("failed to read snapshot: %w", err)
		}
		if err := decode(&snap, key, value); err != nil {
			return snap, fmt.Errorf("failed to decode %s: %w", key, err)
		}
	}
	return snap, rows.Err()
}

func decode(snap *storage.Snapshot, key, value string) error {
	switch key {
	case keyUserID:
		return json.Unmarshal([]byte(value), &snap.UserID)
	case keyHabits:
		return json.Unmarshal([]byte(value), &snap.Habits)
	case keyCompletions:
		return json.Unmarshal([]byte(value), &snap.Completions)
	case keyLastSyncAt:
		return json.Unmarshal([]byte(value), &snap.LastSyncAt)
	case keyOutbox:
		return json.Unmarshal([]byte(value), &snap.Outbox)
	}
	logger.Debug("Ignoring unknown snapshot key", "key", key)
	return nil
}

func (s *Store) SaveSnapshot(snap storage.Snapshot) error {
	if s.db == nil {
		return errors.New("storage not loaded")
	}

	values := map[string]any{
		keyUserID:      snap.UserID,
		keyHabits:      snap.Habits,
		keyCompletions: snap.Completions,
		keyLastSyncAt:  snap.LastSyncAt,
		keyOutbox:      snap.Outbox,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for key, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		_, err = tx.Exec(`
			INSERT INTO snapshot_kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, string(data), now)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}
	return tx.Commit()
}
