package service

import (
	"log/slog"
	"time"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/state"
)

// CreateNode adds a playlist or folder under parent at index (-1 appends).
func (s *StateService) CreateNode(node domain.PlaylistNode, parent domain.NodeID, index int) (domain.NodeID, error) {
	var id domain.NodeID
	err := s.commit(state.ActionPlaylistCreate, func(cur state.State, now time.Time) (state.State, []domain.Event, error) {
		tree, created, err := cur.Playlists.CreateNode(node, parent, index, now)
		if err != nil {
			return cur, nil, err
		}
		id = created
		cur.Playlists = tree
		return cur, nil, nil
	})
	if err == nil {
		s.logger.Debug("node created", slog.String("id", string(id)), slog.String("kind", node.Kind.String()))
	}
	return id, err
}

// MoveNode moves a node under newParent at index.
func (s *StateService) MoveNode(id, newParent domain.NodeID, index int) error {
	return s.commit(state.ActionPlaylistMove, func(cur state.State, _ time.Time) (state.State, []domain.Event, error) {
		tree, err := cur.Playlists.MoveNode(id, newParent, index)
		if err != nil {
			return cur, nil, err
		}
		cur.Playlists = tree
		return cur, nil, nil
	})
}

// UpdateNode changes a node's own fields.
func (s *StateService) UpdateNode(id domain.NodeID, changes domain.NodeChanges) error {
	return s.commit(state.ActionPlaylistUpdate, func(cur state.State, now time.Time) (state.State, []domain.Event, error) {
		tree, err := cur.Playlists.UpdateNode(id, changes, now)
		if err != nil {
			return cur, nil, err
		}
		cur.Playlists = tree
		return cur, nil, nil
	})
}

// DeleteNode removes a node and, for folders, its whole subtree. When the queue was
// built from a removed playlist its source is cleared and QueueSourceRemovedEvent is
// published.
func (s *StateService) DeleteNode(id domain.NodeID) ([]domain.PlaylistNode, error) {
	var removed []domain.PlaylistNode
	err := s.commit(state.ActionPlaylistDelete, func(cur state.State, _ time.Time) (state.State, []domain.Event, error) {
		tree, gone, err := cur.Playlists.DeleteNode(id)
		if err != nil {
			return cur, nil, err
		}
		removed = gone
		cur.Playlists = tree
		events := []domain.Event{domain.NewPlaylistsDeletedEvent(gone)}
		if src := cur.Queue.Source; src != "" {
			if _, still := tree.FindNode(src); !still {
				cur.Queue = cur.Queue.ClearSource()
				events = append(events, domain.NewQueueSourceRemovedEvent(src))
			}
		}
		return cur, events, nil
	})
	return removed, err
}

// AddItems appends (index -1) or inserts references to tracks into a playlist and
// returns the new items.
func (s *StateService) AddItems(id domain.NodeID, trackIDs []domain.TrackID, index int) ([]domain.PlaylistItem, error) {
	for _, tid := range trackIDs {
		if !tid.Valid() {
			return nil, domain.ErrInvalidTrackID
		}
	}
	items := domain.NewPlaylistItems(trackIDs)
	err := s.commit(state.ActionItemsAdd, func(cur state.State, now time.Time) (state.State, []domain.Event, error) {
		tree, err := cur.Playlists.AddItems(id, items, index, now)
		if err != nil {
			return cur, nil, err
		}
		cur.Playlists = tree
		return cur, nil, nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// RemoveItems deletes items from a playlist and returns how many were removed.
func (s *StateService) RemoveItems(id domain.NodeID, itemIDs []domain.ItemID) (int, error) {
	var n int
	err := s.commit(state.ActionItemsRemove, func(cur state.State, now time.Time) (state.State, []domain.Event, error) {
		tree, removed, err := cur.Playlists.RemoveItems(id, itemIDs, now)
		if err != nil {
			return cur, nil, err
		}
		n = removed
		cur.Playlists = tree
		return cur, nil, nil
	})
	return n, err
}

// MoveItems moves the items at the selected positions of a playlist as one block.
func (s *StateService) MoveItems(id domain.NodeID, selected []int, drop int) error {
	return s.commit(state.ActionItemsMove, func(cur state.State, now time.Time) (state.State, []domain.Event, error) {
		tree, err := cur.Playlists.MoveItems(id, selected, drop, now)
		if err != nil {
			return cur, nil, err
		}
		cur.Playlists = tree
		return cur, nil, nil
	})
}

// SetLayout changes the layout of a playlist, or of the library for playlist.RootID.
// View changes are never recorded in the undo history.
func (s *StateService) SetLayout(id domain.NodeID, layout domain.Layout) error {
	return s.commit(state.ActionViewLayout, func(cur state.State, _ time.Time) (state.State, []domain.Event, error) {
		cur.View = cur.View.WithLayout(id, layout)
		return cur, nil, nil
	})
}

// SetExpanded expands or collapses a folder.
func (s *StateService) SetExpanded(id domain.NodeID, expanded bool) error {
	return s.commit(state.ActionViewExpand, func(cur state.State, _ time.Time) (state.State, []domain.Event, error) {
		n, ok := cur.Playlists.FindNode(id)
		if !ok {
			return cur, nil, domain.NewNodeError("expand", id, domain.ErrNodeNotFound)
		}
		if !n.IsFolder() {
			return cur, nil, domain.NewNodeError("expand", id, domain.ErrNotAFolder)
		}
		cur.View = cur.View.WithExpanded(id, expanded)
		return cur, nil, nil
	})
}
