// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the tunehub library core.
package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// trackIDSeparator joins the provider id and the provider URI in a serialized TrackID.
const trackIDSeparator = ":"

// TrackID identifies a track across all providers.
// It is the pair (providerID, providerURI) serialized as "<providerID>:<uri>".
type TrackID string

// NewTrackID builds a TrackID from a provider id and a provider-local URI.
// The provider id must be non-empty and must not contain ':'; the URI may contain anything.
func NewTrackID(providerID, uri string) (TrackID, error) {
	if err := ValidateProviderID(providerID); err != nil {
		return "", err
	}
	if uri == "" {
		return "", NewValidationError("uri", uri, "must not be empty")
	}
	return TrackID(providerID + trackIDSeparator + uri), nil
}

// ValidateProviderID checks that a provider id can be used inside a TrackID.
func ValidateProviderID(providerID string) error {
	if providerID == "" || strings.Contains(providerID, trackIDSeparator) {
		return NewValidationError("providerID", providerID, "must be non-empty and must not contain ':'")
	}
	return nil
}

// MustTrackID is like NewTrackID but panics on invalid input. Intended for tests and constants.
func MustTrackID(providerID, uri string) TrackID {
	id, err := NewTrackID(providerID, uri)
	if err != nil {
		panic(err)
	}
	return id
}

// ProviderID returns the provider part of the id.
func (id TrackID) ProviderID() string {
	p, _, _ := strings.Cut(string(id), trackIDSeparator)
	return p
}

// URI returns the provider-local part of the id.
func (id TrackID) URI() string {
	_, u, _ := strings.Cut(string(id), trackIDSeparator)
	return u
}

// Valid reports whether the id has both a provider and a URI part.
func (id TrackID) Valid() bool {
	p, u, ok := strings.Cut(string(id), trackIDSeparator)
	return ok && p != "" && u != ""
}

// Track is the merged, stored view of one track.
type Track struct {
	ID         TrackID
	ProviderID string
	URI        string

	Title       string
	Artists     []string
	Album       string
	AlbumArtist string
	Genres      []string
	Composers   []string
	Comment     string
	Year        int

	TrackNumber int
	TrackCount  int
	DiscNumber  int
	DiscCount   int

	// Duration is the track length in milliseconds.
	Duration int64

	// ArtworkRef is an opaque provider reference used to fetch artwork.
	ArtworkRef string
	FileSize   int64

	DateAdded    time.Time
	DateModified time.Time

	// MetadataLoaded is false while only a stub (URI, maybe a title) is known.
	MetadataLoaded bool
}

// Artist returns the artists joined for display.
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// DisplayTitle returns the title, falling back to the URI.
func (t Track) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.URI
}

// TrackMetadata is a partial record pushed by a provider.
// A nil field is absent and leaves the stored value untouched when merged.
type TrackMetadata struct {
	// URI is required; it is the provider-local identity of the track.
	URI string

	Title       *string
	Artists     []string
	Album       *string
	AlbumArtist *string
	Genres      []string
	Composers   []string
	Comment     *string
	Year        *int

	TrackNumber *int
	TrackCount  *int
	DiscNumber  *int
	DiscCount   *int

	Duration   *int64
	ArtworkRef *string
	FileSize   *int64

	MetadataLoaded *bool
}

// ApplyTo merges the present fields of m into t and returns the result.
// Slice fields are present when non-nil; an empty non-nil slice clears the stored value.
func (m TrackMetadata) ApplyTo(t Track) Track {
	if m.Title != nil {
		t.Title = *m.Title
	}
	if m.Artists != nil {
		t.Artists = append([]string(nil), m.Artists...)
	}
	if m.Album != nil {
		t.Album = *m.Album
	}
	if m.AlbumArtist != nil {
		t.AlbumArtist = *m.AlbumArtist
	}
	if m.Genres != nil {
		t.Genres = append([]string(nil), m.Genres...)
	}
	if m.Composers != nil {
		t.Composers = append([]string(nil), m.Composers...)
	}
	if m.Comment != nil {
		t.Comment = *m.Comment
	}
	if m.Year != nil {
		t.Year = *m.Year
	}
	if m.TrackNumber != nil {
		t.TrackNumber = *m.TrackNumber
	}
	if m.TrackCount != nil {
		t.TrackCount = *m.TrackCount
	}
	if m.DiscNumber != nil {
		t.DiscNumber = *m.DiscNumber
	}
	if m.DiscCount != nil {
		t.DiscCount = *m.DiscCount
	}
	if m.Duration != nil {
		t.Duration = *m.Duration
	}
	if m.ArtworkRef != nil {
		t.ArtworkRef = *m.ArtworkRef
	}
	if m.FileSize != nil {
		t.FileSize = *m.FileSize
	}
	if m.MetadataLoaded != nil {
		t.MetadataLoaded = *m.MetadataLoaded
	}
	return t
}

// ItemID identifies a single occurrence of a track in a playlist or the queue.
type ItemID string

// PlaylistItem is one occurrence of a track in an ordered list.
// The same TrackID may appear many times, each with its own ItemID.
type PlaylistItem struct {
	ItemID  ItemID  `json:"itemId"`
	TrackID TrackID `json:"trackId"`
}

// NewPlaylistItem wraps a track in a new item with a freshly generated ItemID.
func NewPlaylistItem(trackID TrackID) PlaylistItem {
	return PlaylistItem{ItemID: ItemID(uuid.NewString()), TrackID: trackID}
}

// NewPlaylistItems wraps every track id in a new item.
func NewPlaylistItems(trackIDs []TrackID) []PlaylistItem {
	items := make([]PlaylistItem, len(trackIDs))
	for i, id := range trackIDs {
		items[i] = NewPlaylistItem(id)
	}
	return items
}

// NodeID identifies a node in the playlist tree.
type NodeID string

// NewNodeID generates a new random node id.
func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

// NodeKind distinguishes playlists from folders.
type NodeKind int

const (
	// NodePlaylist is an ordered list of items.
	NodePlaylist NodeKind = iota

	// NodeFolder is an ordered list of child nodes.
	NodeFolder
)

// String returns a human-readable representation of the node kind.
func (k NodeKind) String() string {
	switch k {
	case NodePlaylist:
		return "playlist"
	case NodeFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// PlaylistNode is a playlist or folder in the playlist tree.
type PlaylistNode struct {
	ID          NodeID   `json:"id"`
	Kind        NodeKind `json:"kind"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`

	// Items is only used by playlists.
	Items []PlaylistItem `json:"items,omitempty"`

	// Children is only used by folders.
	Children []NodeID `json:"children,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsFolder reports whether the node is a folder.
func (n PlaylistNode) IsFolder() bool {
	return n.Kind == NodeFolder
}

// NodeChanges is a shallow update of a node's own fields.
type NodeChanges struct {
	Name        *string
	Description *string
}

// SortKey names a track field used to order a track listing.
type SortKey string

// Sort keys understood by the library selectors.
const (
	SortNone        SortKey = ""
	SortTitle       SortKey = "title"
	SortArtist      SortKey = "artist"
	SortAlbum       SortKey = "album"
	SortAlbumArtist SortKey = "albumArtist"
	SortGenre       SortKey = "genre"
	SortYear        SortKey = "year"
	SortDuration    SortKey = "duration"
	SortDateAdded   SortKey = "dateAdded"
	SortTrackNumber SortKey = "trackNumber"
)

// Layout is a display configuration for a track listing.
type Layout struct {
	SortKey          SortKey  `json:"sortKey,omitempty"`
	SortDescending   bool     `json:"sortDescending,omitempty"`
	GroupAlbumTracks bool     `json:"groupAlbumTracks,omitempty"`
	Columns          []string `json:"columns,omitempty"`
}

// Equal reports whether two layouts are identical.
func (l Layout) Equal(o Layout) bool {
	return l.SortKey == o.SortKey && l.SortDescending == o.SortDescending &&
		l.GroupAlbumTracks == o.GroupAlbumTracks && slices.Equal(l.Columns, o.Columns)
}

// ProviderData is the opaque, serializable configuration of one provider.
type ProviderData map[string]any

// Clone returns a shallow copy of the data.
func (d ProviderData) Clone() ProviderData {
	out := make(ProviderData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge returns a copy of d with patch applied on top.
func (d ProviderData) Merge(patch ProviderData) ProviderData {
	out := d.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// String returns the value under key as a string, or "" if absent or not a string.
func (d ProviderData) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Bool returns the value under key as a bool.
func (d ProviderData) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}

// Strings returns the value under key as a string slice.
// Values decoded from JSON arrive as []any and are converted.
func (d ProviderData) Strings(key string) []string {
	switch v := d[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// PlaybackStatus represents the current playback state.
type PlaybackStatus int

const (
	// StatusStopped indicates playback is stopped
	StatusStopped PlaybackStatus = iota

	// StatusPlaying indicates playback is active
	StatusPlaying

	// StatusPaused indicates playback is paused
	StatusPaused

	// StatusStalled indicates playback is stalled/buffering
	StatusStalled
)

// String returns a human-readable representation of the playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusStalled:
		return "stalled"
	default:
		return "unknown"
	}
}

// PlaybackState is the state exposed by the playback service.
type PlaybackState struct {
	// Item is the queue item being played (zero if none).
	Item PlaylistItem

	// Track is the resolved track for Item, nil if nothing is loaded.
	Track *Track

	Status PlaybackStatus

	// Volume is in percent, 0 to 100.
	Volume float64
	Muted  bool
}

// TrackHandle represents a handle to an audio track in the audio engine.
// This is an opaque identifier used by the audio engine to reference loaded tracks.
type TrackHandle int64

const (
	// InvalidTrackHandle represents an invalid or uninitialized track handle
	InvalidTrackHandle TrackHandle = 0
)

// ScanProgress represents the progress of a provider's library scan.
type ScanProgress struct {
	ProviderID string

	// CurrentFile is the file currently being scanned
	CurrentFile string

	// FilesScanned is the number of files processed so far
	FilesScanned int

	// TotalFiles is the total number of files to scan (may be -1 if unknown)
	TotalFiles int

	// TracksFound is the number of valid music tracks found
	TracksFound int
}

// Percentage returns the completion percentage (0-100), or -1 if total is unknown.
func (p ScanProgress) Percentage() float64 {
	if p.TotalFiles <= 0 {
		return -1
	}
	return float64(p.FilesScanned) / float64(p.TotalFiles) * 100.0
}

// Artwork is an image attached to a track.
type Artwork struct {
	MIMEType string
	Data     []byte
}
