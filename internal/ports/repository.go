// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"time"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

// StateRepository persists the serializable snapshot of the core.
// Implementations can use files, preferences stores, or in-memory storage.
//
// Thread-safety: Implementations must be thread-safe.
type StateRepository interface {
	// Save replaces the stored snapshot.
	Save(snapshot *domain.Snapshot) error

	// Load returns the stored snapshot.
	// If nothing was saved yet it returns domain.EmptySnapshot() and no error.
	Load() (*domain.Snapshot, error)

	// Clear removes the stored snapshot.
	Clear() error
}

// MetadataCache remembers extracted metadata keyed by file path and its stat signature,
// so rescans skip files that did not change.
//
// Thread-safety: Implementations must be thread-safe.
type MetadataCache interface {
	// Get returns cached metadata if path was cached with the same size and modification time.
	Get(path string, size int64, modTime time.Time) (domain.TrackMetadata, bool, error)

	// Put stores metadata for path.
	Put(path string, size int64, modTime time.Time, meta domain.TrackMetadata) error

	// Delete forgets path.
	Delete(path string) error

	Close() error
}
