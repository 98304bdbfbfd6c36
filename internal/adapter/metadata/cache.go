package metadata

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS metadata_cache (
	path TEXT PRIMARY KEY,
	size INTEGER NOT NULL,
	mod_time INTEGER NOT NULL,
	data BLOB NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

// Cache stores extracted metadata in SQLite keyed by path, size and modification time.
// It is safe for concurrent use because the underlying *sql.DB is.
type Cache struct {
	db     *sql.DB
	logger *slog.Logger

	getStmt    *sql.Stmt
	putStmt    *sql.Stmt
	deleteStmt *sql.Stmt
}

// OpenCache opens (or creates) the cache database at path.
// The path can be ":memory:" for a throwaway cache.
func OpenCache(path string, logger *slog.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, domain.NewRepositoryError("open", "sqlite", "failed to open database", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=memory;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.Warn("failed to set pragma", slog.String("pragma", pragma), slog.Any("error", err))
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, domain.NewRepositoryError("open", "sqlite", "failed to create tables", err)
	}

	c := &Cache{
		db:     db,
		logger: logger.With(slog.String("component", "metadata-cache")),
	}
	if err := c.prepare(); err != nil {
		db.Close()
		return nil, domain.NewRepositoryError("open", "sqlite", "failed to prepare statements", err)
	}

	c.logger.Debug("metadata cache opened", slog.String("path", path))
	return c, nil
}

func (c *Cache) prepare() error {
	var err error
	if c.getStmt, err = c.db.Prepare(`SELECT size, mod_time, data FROM metadata_cache WHERE path = ?`); err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if c.putStmt, err = c.db.Prepare(`
		INSERT INTO metadata_cache (path, size, mod_time, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			mod_time = excluded.mod_time,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP`); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	if c.deleteStmt, err = c.db.Prepare(`DELETE FROM metadata_cache WHERE path = ?`); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Get returns the cached metadata for path if the file did not change since it was stored.
func (c *Cache) Get(path string, size int64, modTime time.Time) (domain.TrackMetadata, bool, error) {
	var (
		storedSize int64
		storedMod  int64
		data       []byte
	)
	err := c.getStmt.QueryRow(path).Scan(&storedSize, &storedMod, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TrackMetadata{}, false, nil
	}
	if err != nil {
		return domain.TrackMetadata{}, false, domain.NewRepositoryError("get", "sqlite", "failed to query cache", err)
	}
	if storedSize != size || storedMod != modTime.UnixNano() {
		return domain.TrackMetadata{}, false, nil
	}

	var meta domain.TrackMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.TrackMetadata{}, false, domain.NewRepositoryError("get", "sqlite", "failed to decode cached metadata", err)
	}
	return meta, true, nil
}

// Put stores metadata for path, replacing any previous entry.
func (c *Cache) Put(path string, size int64, modTime time.Time, meta domain.TrackMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return domain.NewRepositoryError("put", "sqlite", "failed to encode metadata", err)
	}
	if _, err := c.putStmt.Exec(path, size, modTime.UnixNano(), data); err != nil {
		return domain.NewRepositoryError("put", "sqlite", "failed to store metadata", err)
	}
	return nil
}

// Delete forgets path.
func (c *Cache) Delete(path string) error {
	if _, err := c.deleteStmt.Exec(path); err != nil {
		return domain.NewRepositoryError("delete", "sqlite", "failed to delete metadata", err)
	}
	return nil
}

// Close releases the prepared statements and the database.
func (c *Cache) Close() error {
	return errors.Join(
		c.getStmt.Close(),
		c.putStmt.Close(),
		c.deleteStmt.Close(),
		c.db.Close(),
	)
}

// Verify that Cache implements the MetadataCache interface
var _ ports.MetadataCache = (*Cache)(nil)
