package domain

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackID(t *testing.T) {
	id, err := NewTrackID("local", "/music/a:b.mp3")
	require.NoError(t, err)

	// Verify only the first separator splits the id
	assert.Equal(t, TrackID("local:/music/a:b.mp3"), id)
	assert.Equal(t, "local", id.ProviderID())
	assert.Equal(t, "/music/a:b.mp3", id.URI())
	assert.True(t, id.Valid())
}

func TestNewTrackID_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		uri      string
	}{
		{"empty provider", "", "x"},
		{"separator in provider", "a:b", "x"},
		{"empty uri", "local", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTrackID(tt.provider, tt.uri)

			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestMustTrackID_Panics(t *testing.T) {
	assert.Panics(t, func() { MustTrackID("", "x") })
}

func TestTrackID_Valid(t *testing.T) {
	assert.False(t, TrackID("").Valid())
	assert.False(t, TrackID("local").Valid())
	assert.False(t, TrackID(":uri").Valid())
	assert.False(t, TrackID("local:").Valid())
	assert.True(t, TrackID("local:uri").Valid())
}

func TestTrackMetadata_ApplyTo(t *testing.T) {
	stored := Track{
		Title:    "Old",
		Artists:  []string{"A"},
		Genres:   []string{"Rock"},
		Album:    "Album",
		Duration: 1000,
	}

	merged := TrackMetadata{
		URI:            "x",
		Title:          lo.ToPtr("New"),
		Genres:         []string{},
		Year:           lo.ToPtr(1999),
		MetadataLoaded: lo.ToPtr(true),
	}.ApplyTo(stored)

	// Verify present fields replace, absent fields survive and empty slices clear
	assert.Equal(t, "New", merged.Title)
	assert.Equal(t, []string{"A"}, merged.Artists)
	assert.Empty(t, merged.Genres)
	assert.Equal(t, "Album", merged.Album)
	assert.Equal(t, int64(1000), merged.Duration)
	assert.Equal(t, 1999, merged.Year)
	assert.True(t, merged.MetadataLoaded)
	assert.Equal(t, "Old", stored.Title)
}

func TestTrackMetadata_ApplyTo_CopiesSlices(t *testing.T) {
	artists := []string{"A", "B"}
	merged := TrackMetadata{URI: "x", Artists: artists}.ApplyTo(Track{})

	artists[0] = "changed"
	assert.Equal(t, []string{"A", "B"}, merged.Artists)
}

func TestTrack_Display(t *testing.T) {
	tr := Track{URI: "/music/a.mp3"}
	assert.Equal(t, "/music/a.mp3", tr.DisplayTitle())
	assert.Empty(t, tr.Artist())

	tr.Title = "Song"
	tr.Artists = []string{"A", "B"}
	assert.Equal(t, "Song", tr.DisplayTitle())
	assert.Equal(t, "A, B", tr.Artist())
}

func TestNewPlaylistItems_UniqueIDs(t *testing.T) {
	id := MustTrackID("local", "a")
	items := NewPlaylistItems([]TrackID{id, id, id})

	require.Len(t, items, 3)
	seen := lo.Uniq(lo.Map(items, func(it PlaylistItem, _ int) ItemID { return it.ItemID }))
	assert.Len(t, seen, 3)
	for _, it := range items {
		assert.Equal(t, id, it.TrackID)
	}
}

func TestProviderData(t *testing.T) {
	data := ProviderData{
		"name":    "lib",
		"watch":   true,
		"folders": []any{"/a", 3, "/b"},
		"tags":    []string{"x"},
	}

	assert.Equal(t, "lib", data.String("name"))
	assert.Empty(t, data.String("watch"))
	assert.True(t, data.Bool("watch"))
	assert.False(t, data.Bool("missing"))
	assert.Equal(t, []string{"/a", "/b"}, data.Strings("folders"))
	assert.Equal(t, []string{"x"}, data.Strings("tags"))
	assert.Nil(t, data.Strings("name"))
}

func TestProviderData_MergeAndClone(t *testing.T) {
	data := ProviderData{"a": 1, "b": 2}

	merged := data.Merge(ProviderData{"b": 3, "c": 4})
	clone := data.Clone()
	clone["a"] = 9

	assert.Equal(t, ProviderData{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, ProviderData{"a": 1, "b": 2}, data)
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "playlist", NodePlaylist.String())
	assert.Equal(t, "folder", NodeFolder.String())
	assert.Equal(t, "playing", StatusPlaying.String())
	assert.Equal(t, "unknown", PlaybackStatus(42).String())
}

func TestChangeSet_Has(t *testing.T) {
	c := ChangedTracks | ChangedQueue

	assert.True(t, c.Has(ChangedTracks))
	assert.True(t, c.Has(ChangedTracks|ChangedQueue))
	assert.False(t, c.Has(ChangedPlaylists))
	assert.False(t, c.Has(ChangedQueue|ChangedView))
}
