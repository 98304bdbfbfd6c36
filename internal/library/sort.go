package library

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

// Sorted returns tracks ordered by the layout's sort key. Ties fall back to album
// order (disc, track number) when GroupAlbumTracks is set, then to title and id.
// The input slice is not modified.
func Sorted(tracks []domain.Track, layout domain.Layout) []domain.Track {
	out := slices.Clone(tracks)
	slices.SortStableFunc(out, func(a, b domain.Track) int {
		c := compareBy(layout.SortKey, a, b)
		if layout.SortDescending {
			c = -c
		}
		if c != 0 {
			return c
		}
		if layout.GroupAlbumTracks {
			if c = cmp.Compare(a.DiscNumber, b.DiscNumber); c != 0 {
				return c
			}
			if c = cmp.Compare(a.TrackNumber, b.TrackNumber); c != 0 {
				return c
			}
		}
		if c = compareText(a.DisplayTitle(), b.DisplayTitle()); c != 0 {
			return c
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return out
}

// Sorted returns every track ordered by layout.
func (s Store) Sorted(layout domain.Layout) []domain.Track {
	return Sorted(s.All(), layout)
}

func compareBy(key domain.SortKey, a, b domain.Track) int {
	switch key {
	case domain.SortTitle:
		return compareText(a.DisplayTitle(), b.DisplayTitle())
	case domain.SortArtist:
		return compareText(a.Artist(), b.Artist())
	case domain.SortAlbum:
		return compareText(a.Album, b.Album)
	case domain.SortAlbumArtist:
		return compareText(a.AlbumArtist, b.AlbumArtist)
	case domain.SortGenre:
		return compareText(strings.Join(a.Genres, ", "), strings.Join(b.Genres, ", "))
	case domain.SortYear:
		return cmp.Compare(a.Year, b.Year)
	case domain.SortDuration:
		return cmp.Compare(a.Duration, b.Duration)
	case domain.SortDateAdded:
		return a.DateAdded.Compare(b.DateAdded)
	case domain.SortTrackNumber:
		return cmp.Compare(a.TrackNumber, b.TrackNumber)
	default:
		return 0
	}
}

func compareText(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
