// Package file stores the session snapshot as a JSON document on disk.
package file

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

// DefaultFileName is the snapshot file name inside the data directory.
const DefaultFileName = "session.json"

// SnapshotRepository implements ports.StateRepository with a single JSON file.
// Writes go to a temporary file in the same directory which is then renamed over the
// previous snapshot, so a crash never leaves a half-written session behind.
//
// Thread-safe: All operations protected by sync.RWMutex.
type SnapshotRepository struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewSnapshotRepository creates a repository writing to path.
func NewSnapshotRepository(path string, logger *slog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		path:   path,
		logger: logger.With(slog.String("repository", "file")),
	}
}

// Path returns the snapshot file path.
func (r *SnapshotRepository) Path() string {
	return r.path
}

// Save replaces the stored snapshot.
func (r *SnapshotRepository) Save(snap *domain.Snapshot) (err error) {
	if snap == nil {
		return domain.NewRepositoryError("save", "file", "snapshot is nil", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.NewRepositoryError("save", "file", "failed to create data directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return domain.NewRepositoryError("save", "file", "failed to create temporary file", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err = enc.Encode(snap); err != nil {
		_ = tmp.Close()
		return domain.NewRepositoryError("save", "file", "failed to encode snapshot", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return domain.NewRepositoryError("save", "file", "failed to sync snapshot", err)
	}
	if err = tmp.Close(); err != nil {
		return domain.NewRepositoryError("save", "file", "failed to close snapshot", err)
	}
	if err = os.Rename(tmp.Name(), r.path); err != nil {
		return domain.NewRepositoryError("save", "file", "failed to replace snapshot", err)
	}

	r.logger.Debug("snapshot written", slog.String("path", r.path))
	return nil
}

// Load returns the stored snapshot, or an empty one when the file does not exist.
func (r *SnapshotRepository) Load() (*domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("no snapshot yet", slog.String("path", r.path))
		return domain.EmptySnapshot(), nil
	}
	if err != nil {
		return nil, domain.NewRepositoryError("load", "file", "failed to read snapshot", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, domain.NewRepositoryError("load", "file", "failed to decode snapshot", err)
	}
	if snap.ProviderConfigs == nil {
		snap.ProviderConfigs = map[string]domain.ProviderData{}
	}
	return &snap, nil
}

// Clear removes the snapshot file.
func (r *SnapshotRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.NewRepositoryError("clear", "file", "failed to remove snapshot", err)
	}
	return nil
}

var _ ports.StateRepository = (*SnapshotRepository)(nil)
