// Package memory provides an in-process snapshot repository for ephemeral sessions
// and tests.
package memory

import (
	"sync"

	"github.com/goccy/go-json"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// SnapshotRepository keeps the snapshot in memory. Snapshots are stored in encoded form
// so callers never share maps or slices with the repository.
//
// Thread-safe: All operations protected by sync.RWMutex.
type SnapshotRepository struct {
	mu    sync.RWMutex
	data  []byte
	saves int
}

// NewSnapshotRepository creates an empty repository.
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

// Save replaces the stored snapshot.
func (r *SnapshotRepository) Save(snap *domain.Snapshot) error {
	if snap == nil {
		return domain.NewRepositoryError("save", "memory", "snapshot is nil", nil)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return domain.NewRepositoryError("save", "memory", "failed to marshal snapshot", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = data
	r.saves++
	return nil
}

// Load returns a copy of the stored snapshot, or an empty one.
func (r *SnapshotRepository) Load() (*domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.data == nil {
		return domain.EmptySnapshot(), nil
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(r.data, &snap); err != nil {
		return nil, domain.NewRepositoryError("load", "memory", "failed to unmarshal snapshot", err)
	}
	if snap.ProviderConfigs == nil {
		snap.ProviderConfigs = map[string]domain.ProviderData{}
	}
	return &snap, nil
}

// Clear removes the stored snapshot.
func (r *SnapshotRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = nil
	return nil
}

// Saves returns how many times Save succeeded.
func (r *SnapshotRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

var _ ports.StateRepository = (*SnapshotRepository)(nil)
