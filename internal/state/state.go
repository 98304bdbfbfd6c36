// Package state combines the track store, the playlist tree, the queue and the view
// options into the single value tracked by the undo history.
package state

import (
	"maps"
	"slices"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/history"
	"github.com/tejashwikalptaru/tunehub/internal/library"
	"github.com/tejashwikalptaru/tunehub/internal/playlist"
	"github.com/tejashwikalptaru/tunehub/internal/queue"
)

// Action names. Only the ones listed by UndoableActions are recorded in the history.
const (
	ActionPlaylistCreate = "playlist/create"
	ActionPlaylistMove   = "playlist/move"
	ActionPlaylistUpdate = "playlist/update"
	ActionPlaylistDelete = "playlist/delete"
	ActionItemsAdd       = "playlist/addItems"
	ActionItemsRemove    = "playlist/removeItems"
	ActionItemsMove      = "playlist/moveItems"
	ActionTrackEdit      = "tracks/edit"
	ActionTrackDelete    = "tracks/delete"
	ActionQueueUpNext    = "queue/insertUpNext"
	ActionQueueStray     = "queue/insertStray"
	ActionQueueReorder   = "queue/reorder"
	ActionQueueRemove    = "queue/remove"

	ActionTracksDelivered = "provider/tracks"
	ActionTracksRemoved   = "provider/removeTracks"
	ActionQueueSet        = "queue/set"
	ActionQueueSkip       = "queue/skip"
	ActionQueueAdvance    = "queue/advance"
	ActionQueueRetreat    = "queue/retreat"
	ActionQueueClear      = "queue/clear"
	ActionViewLayout      = "view/layout"
	ActionViewExpand      = "view/expand"
	ActionRestore         = "state/restore"
	ActionUndo            = "history/undo"
	ActionRedo            = "history/redo"
)

// UndoableActions returns the whitelist of recorded actions.
func UndoableActions() []string {
	return []string{
		ActionPlaylistCreate,
		ActionPlaylistMove,
		ActionPlaylistUpdate,
		ActionPlaylistDelete,
		ActionItemsAdd,
		ActionItemsRemove,
		ActionItemsMove,
		ActionTrackEdit,
		ActionTrackDelete,
		ActionQueueUpNext,
		ActionQueueStray,
		ActionQueueReorder,
		ActionQueueRemove,
	}
}

// UndoRules returns the slice table: content is reverted by undo, view preferences keep
// their live value. The queue is reverted but stays anchored to the live current item,
// since playback does not move on undo.
func UndoRules() []history.Rule[State] {
	return []history.Rule[State]{
		{Path: "tracks", Policy: history.Revert},
		{Path: "playlists", Policy: history.Revert},
		{Path: "queue", Policy: history.Revert},
		{Path: "queue.current", Policy: history.KeepCurrent, Keep: func(dst *State, cur State) {
			dst.Queue = dst.Queue.Anchor(cur.Queue)
		}},
		{Path: "view.library", Policy: history.KeepCurrent, Keep: func(dst *State, cur State) {
			dst.View.Library = cur.View.Library
		}},
		{Path: "view.playlists", Policy: history.KeepCurrent, Keep: func(dst *State, cur State) {
			dst.View.Playlists = cur.View.Playlists
		}},
		{Path: "view.expanded", Policy: history.KeepCurrent, Keep: func(dst *State, cur State) {
			dst.View.Expanded = cur.View.Expanded
		}},
	}
}

// NewHistory creates an undo history over initial with the default rules.
func NewHistory(initial State, limit int) *history.History[State] {
	return history.New(initial,
		history.WithLimit[State](limit),
		history.WithUndoable[State](UndoableActions()...),
		history.WithRules(UndoRules()...),
	)
}

// State is the complete core state. Values are immutable; every field is replaced, never
// modified in place.
type State struct {
	Tracks    library.Store
	Playlists playlist.Tree
	Queue     queue.Queue
	View      View
}

// New returns an empty state.
func New() State {
	return State{
		Tracks:    library.New(),
		Playlists: playlist.New(),
		Queue:     queue.Empty(),
		View:      View{},
	}
}

// View holds the display preferences that are never reverted by undo.
type View struct {
	Library   domain.Layout
	Playlists map[domain.NodeID]domain.Layout
	Expanded  map[domain.NodeID]bool
}

// LayoutFor returns the layout of a playlist, or the zero layout.
func (v View) LayoutFor(id domain.NodeID) domain.Layout {
	return v.Playlists[id]
}

// WithLayout returns a copy of v with the layout of id replaced. The empty id addresses
// the library view.
func (v View) WithLayout(id domain.NodeID, l domain.Layout) View {
	if id == playlist.RootID {
		v.Library = l
		return v
	}
	v.Playlists = maps.Clone(v.Playlists)
	if v.Playlists == nil {
		v.Playlists = map[domain.NodeID]domain.Layout{}
	}
	v.Playlists[id] = l
	return v
}

// WithExpanded returns a copy of v with the folder expansion of id set.
func (v View) WithExpanded(id domain.NodeID, expanded bool) View {
	v.Expanded = maps.Clone(v.Expanded)
	if v.Expanded == nil {
		v.Expanded = map[domain.NodeID]bool{}
	}
	if expanded {
		v.Expanded[id] = true
	} else {
		delete(v.Expanded, id)
	}
	return v
}

// IsExpanded reports whether the folder id is expanded.
func (v View) IsExpanded(id domain.NodeID) bool {
	return v.Expanded[id]
}

// Equal reports whether two views hold the same preferences.
func (v View) Equal(o View) bool {
	return v.Library.Equal(o.Library) &&
		maps.EqualFunc(v.Playlists, o.Playlists, domain.Layout.Equal) &&
		maps.Equal(v.Expanded, o.Expanded)
}

// Diff reports which slices differ between prev and next.
func Diff(prev, next State) domain.ChangeSet {
	var c domain.ChangeSet
	if prev.Tracks.Generation() != next.Tracks.Generation() {
		c |= domain.ChangedTracks
	}
	if prev.Playlists.Generation() != next.Playlists.Generation() {
		c |= domain.ChangedPlaylists
	}
	if !queue.Equal(prev.Queue, next.Queue) {
		c |= domain.ChangedQueue
	}
	if !prev.View.Equal(next.View) {
		c |= domain.ChangedView
	}
	return c
}

// Export fills the state-owned parts of a snapshot. Provider fields are left to the
// caller. Preferences of nodes that no longer exist are dropped.
func (s State) Export() *domain.Snapshot {
	snap := domain.EmptySnapshot()
	snap.Playlists = s.Playlists.Export()
	snap.LibraryLayout = s.View.Library
	for id, l := range s.View.Playlists {
		if _, ok := s.Playlists.FindNode(id); ok {
			if snap.PlaylistLayouts == nil {
				snap.PlaylistLayouts = map[domain.NodeID]domain.Layout{}
			}
			snap.PlaylistLayouts[id] = l
		}
	}
	for id := range s.View.Expanded {
		if n, ok := s.Playlists.FindNode(id); ok && n.IsFolder() {
			snap.ExpandedFolders = append(snap.ExpandedFolders, id)
		}
	}
	slices.Sort(snap.ExpandedFolders)
	if !s.Queue.IsEmpty() {
		snap.Queue = s.Queue.Snapshot()
	}
	return snap
}

// FromSnapshot rebuilds a state from a snapshot. Tracks are not persisted and start empty;
// providers deliver them again once activated.
func FromSnapshot(snap *domain.Snapshot) (State, error) {
	s := New()
	if snap == nil {
		return s, nil
	}
	tree, err := playlist.FromSnapshot(snap.Playlists)
	if err != nil {
		return s, err
	}
	q, err := queue.FromSnapshot(snap.Queue)
	if err != nil {
		return s, err
	}
	s.Playlists = tree
	s.Queue = q
	s.View.Library = snap.LibraryLayout
	if len(snap.PlaylistLayouts) > 0 {
		s.View.Playlists = maps.Clone(snap.PlaylistLayouts)
	}
	for _, id := range snap.ExpandedFolders {
		s.View = s.View.WithExpanded(id, true)
	}
	return s, nil
}
