package metadata

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/logger"
)

func newTestCache(t *testing.T, path string) *Cache {
	t.Helper()
	c, err := OpenCache(path, logger.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_PutAndGet(t *testing.T) {
	c := newTestCache(t, ":memory:")
	mod := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	meta := domain.TrackMetadata{
		URI:     "/music/a.mp3",
		Title:   lo.ToPtr("Song"),
		Artists: []string{"Band"},
		Year:    lo.ToPtr(1999),
	}
	require.NoError(t, c.Put("/music/a.mp3", 1024, mod, meta))

	got, ok, err := c.Get("/music/a.mp3", 1024, mod)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, meta, got)

	// A changed file misses
	_, ok, err = c.Get("/music/a.mp3", 2048, mod)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, _ = c.Get("/music/a.mp3", 1024, mod.Add(time.Second))
	assert.False(t, ok)

	_, ok, _ = c.Get("/music/unknown.mp3", 1, mod)
	assert.False(t, ok)
}

func TestCache_PutReplacesAndDelete(t *testing.T) {
	c := newTestCache(t, ":memory:")
	mod := time.Now()

	require.NoError(t, c.Put("p", 1, mod, domain.TrackMetadata{URI: "p", Title: lo.ToPtr("old")}))
	require.NoError(t, c.Put("p", 2, mod, domain.TrackMetadata{URI: "p", Title: lo.ToPtr("new")}))

	got, ok, err := c.Get("p", 2, mod)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", *got.Title)

	require.NoError(t, c.Delete("p"))
	_, ok, _ = c.Get("p", 2, mod)
	assert.False(t, ok)

	// Deleting a missing entry is fine
	assert.NoError(t, c.Delete("p"))
}

func TestCache_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	mod := time.Unix(1700000000, 0)

	first, err := OpenCache(path, logger.NewTestLogger())
	require.NoError(t, err)
	require.NoError(t, first.Put("x", 10, mod, domain.TrackMetadata{URI: "x"}))
	require.NoError(t, first.Close())

	second := newTestCache(t, path)
	got, ok, err := second.Get("x", 10, mod)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", got.URI)
}
