package playlist

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/reorder"
)

func (t Tree) playlistNode(op string, id domain.NodeID) (domain.PlaylistNode, error) {
	n, ok := t.nodes[id]
	if !ok {
		return n, domain.NewNodeError(op, id, domain.ErrNodeNotFound)
	}
	if n.IsFolder() {
		return n, domain.NewNodeError(op, id, domain.ErrNotAPlaylist)
	}
	return n, nil
}

func (t Tree) withNode(n domain.PlaylistNode, now time.Time) Tree {
	n.UpdatedAt = now
	next := t.clone()
	next.nodes[n.ID] = n
	return next
}

// AddItems inserts items into a playlist at index (-1 appends).
func (t Tree) AddItems(id domain.NodeID, items []domain.PlaylistItem, index int, now time.Time) (Tree, error) {
	n, err := t.playlistNode("add items", id)
	if err != nil {
		return t, err
	}
	if index < 0 || index > len(n.Items) {
		index = len(n.Items)
	}
	n.Items = slices.Insert(slices.Clone(n.Items), index, items...)
	return t.withNode(n, now), nil
}

// RemoveItems deletes items by ItemID and returns how many were removed.
func (t Tree) RemoveItems(id domain.NodeID, itemIDs []domain.ItemID, now time.Time) (Tree, int, error) {
	n, err := t.playlistNode("remove items", id)
	if err != nil {
		return t, 0, err
	}
	drop := lo.SliceToMap(itemIDs, func(i domain.ItemID) (domain.ItemID, struct{}) {
		return i, struct{}{}
	})
	kept := lo.Reject(n.Items, func(it domain.PlaylistItem, _ int) bool {
		_, ok := drop[it.ItemID]
		return ok
	})
	removed := len(n.Items) - len(kept)
	if removed == 0 {
		return t, 0, nil
	}
	n.Items = kept
	return t.withNode(n, now), removed, nil
}

// MoveItems moves the items at the selected indexes as one block to drop.
func (t Tree) MoveItems(id domain.NodeID, selected []int, drop int, now time.Time) (Tree, error) {
	n, err := t.playlistNode("move items", id)
	if err != nil {
		return t, err
	}
	if drop < 0 || drop > len(n.Items) {
		return t, domain.NewNodeError("move items", id, domain.ErrInvalidIndex)
	}
	for _, i := range selected {
		if i < 0 || i >= len(n.Items) {
			return t, domain.NewNodeError("move items", id, domain.ErrInvalidIndex)
		}
	}
	n.Items = reorder.MoveBlock(n.Items, selected, drop)
	return t.withNode(n, now), nil
}

// Playlists returns every playlist (not folder) in display order.
func (t Tree) Playlists() []domain.PlaylistNode {
	var out []domain.PlaylistNode
	t.Walk(func(n domain.PlaylistNode, _ int) bool {
		if !n.IsFolder() {
			out = append(out, n)
		}
		return true
	})
	return out
}
