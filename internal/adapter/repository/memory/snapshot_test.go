package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

func TestSnapshotRepository_SaveAndLoad(t *testing.T) {
	repo := NewSnapshotRepository()

	snap := domain.EmptySnapshot()
	snap.EnabledProviders = []string{"mock"}
	require.NoError(t, repo.Save(snap))

	// Mutating the saved value does not leak into the repository
	snap.EnabledProviders[0] = "changed"

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"mock"}, loaded.EnabledProviders)
	assert.Equal(t, 1, repo.Saves())
}

func TestSnapshotRepository_EmptyAndClear(t *testing.T) {
	repo := NewSnapshotRepository()

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.EmptySnapshot(), loaded)

	require.NoError(t, repo.Save(domain.EmptySnapshot()))
	require.NoError(t, repo.Clear())

	loaded, err = repo.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.EmptySnapshot(), loaded)

	assert.Error(t, repo.Save(nil))
}
