package storage

import (
	"time"

	"github.com/FahimKhamsa/madhabits/internal/models"
)

// SnapshotVersion is bumped whenever the persisted layout changes.
const SnapshotVersion = 1

// Snapshot is the locally persisted habit state of one user.
type Snapshot struct {
	Version     int                       `json:"version"`
	UserID      string                    `json:"user_id,omitempty"`
	Habits      []models.Habit            `json:"habits"`
	Completions []models.CompletionRecord `json:"completions"`
	LastSyncAt  *time.Time                `json:"last_sync_at,omitempty"`
	Outbox      []models.OutboxEntry      `json:"outbox,omitempty"`
}

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Snapshot
	LoadSnapshot() (Snapshot, error)
	SaveSnapshot(Snapshot) error

	// Utils
	GetConfigPath() string
}
