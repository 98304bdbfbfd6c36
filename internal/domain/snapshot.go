package domain

// SnapshotVersion is the current persisted snapshot format version.
const SnapshotVersion = 1

// Snapshot is the serializable subset of the core state handed to persistence.
type Snapshot struct {
	Version          int                     `json:"version"`
	EnabledProviders []string                `json:"enabledProviders"`
	ProviderConfigs  map[string]ProviderData `json:"providerConfigs,omitempty"`
	Playlists        TreeSnapshot            `json:"playlists"`
	LibraryLayout    Layout                  `json:"libraryLayout"`
	PlaylistLayouts  map[NodeID]Layout       `json:"playlistLayouts,omitempty"`
	ExpandedFolders  []NodeID                `json:"expandedFolders,omitempty"`
	Queue            *QueueSnapshot          `json:"queue,omitempty"`
}

// TreeSnapshot is the flat, serializable form of the playlist tree.
type TreeSnapshot struct {
	Roots []NodeID       `json:"roots"`
	Nodes []PlaylistNode `json:"nodes"`
}

// QueueSnapshot is the serializable form of the playback queue.
type QueueSnapshot struct {
	Items  []PlaylistItem `json:"items"`
	Index  int            `json:"index"`
	UpNext []PlaylistItem `json:"upNext,omitempty"`
	Source NodeID         `json:"source,omitempty"`
}

// EmptySnapshot returns a snapshot with no providers, playlists or queue.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Version:         SnapshotVersion,
		ProviderConfigs: map[string]ProviderData{},
	}
}
