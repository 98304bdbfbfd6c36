// Package preferences stores the session snapshot in Fyne preferences.
package preferences

import (
	"sync"

	"fyne.io/fyne/v2"
	"github.com/goccy/go-json"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

const (
	snapshotKey = "tunehub.snapshot"
	versionKey  = "tunehub.snapshot_version"
)

// SnapshotRepository implements ports.StateRepository on top of Fyne preferences.
// The snapshot is kept as one JSON string.
//
// Fyne preferences automatically use OS-specific app data directories:
// - macOS: ~/Library/Preferences/<app id>.plist
// - Linux: ~/.config/fyne/<app id>/
// - Windows: %APPDATA%\fyne\<app id>\
//
// Thread-safe: All operations protected by sync.RWMutex.
type SnapshotRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewSnapshotRepository creates a repository backed by prefs, usually
// fyne.CurrentApp().Preferences().
func NewSnapshotRepository(prefs fyne.Preferences) *SnapshotRepository {
	return &SnapshotRepository{prefs: prefs}
}

// Save replaces the stored snapshot.
func (r *SnapshotRepository) Save(snap *domain.Snapshot) error {
	if snap == nil {
		return domain.NewRepositoryError("save", "preferences", "snapshot is nil", nil)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return domain.NewRepositoryError("save", "preferences", "failed to marshal snapshot", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(snapshotKey, string(data))
	r.prefs.SetInt(versionKey, snap.Version)
	return nil
}

// Load returns the stored snapshot, or an empty one when nothing was saved.
func (r *SnapshotRepository) Load() (*domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.prefs.String(snapshotKey)
	if data == "" {
		return domain.EmptySnapshot(), nil
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, domain.NewRepositoryError("load", "preferences", "failed to unmarshal snapshot", err)
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

	r.prefs.RemoveValue(snapshotKey)
	r.prefs.RemoveValue(versionKey)
	return nil
}

// StoredVersion returns the format version of the stored snapshot, 0 if none.
func (r *SnapshotRepository) StoredVersion() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefs.Int(versionKey)
}

// Verify interface implementation
var _ ports.StateRepository = (*SnapshotRepository)(nil)
