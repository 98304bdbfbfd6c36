// Package playlist implements the playlist tree: an arena of playlist and folder nodes
// addressed by id. Folders list their children by id, and a parent index gives O(1)
// upward navigation. Tree values are immutable; every mutating method returns a new Tree.
package playlist

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

// RootID is the parent id of top-level nodes.
const RootID domain.NodeID = ""

var generation atomic.Uint64

func nextGeneration() uint64 {
	return generation.Add(1)
}

// Tree is an immutable playlist tree.
//
// Invariants: every node is reachable from exactly one parent (a folder or the root
// list), the parent index agrees with the children lists, and there are no cycles.
type Tree struct {
	nodes   map[domain.NodeID]domain.PlaylistNode
	roots   []domain.NodeID
	parents map[domain.NodeID]domain.NodeID
	gen     uint64
}

// New returns an empty tree.
func New() Tree {
	return Tree{
		nodes:   map[domain.NodeID]domain.PlaylistNode{},
		parents: map[domain.NodeID]domain.NodeID{},
		gen:     nextGeneration(),
	}
}

// Generation identifies this tree value.
func (t Tree) Generation() uint64 {
	return t.gen
}

// Len returns the number of nodes.
func (t Tree) Len() int {
	return len(t.nodes)
}

// Roots returns the top-level node ids in order.
func (t Tree) Roots() []domain.NodeID {
	return slices.Clone(t.roots)
}

// FindNode returns the node with the given id.
func (t Tree) FindNode(id domain.NodeID) (domain.PlaylistNode, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Parent returns the parent id of a node (RootID for top-level nodes).
func (t Tree) Parent(id domain.NodeID) (domain.NodeID, bool) {
	p, ok := t.parents[id]
	return p, ok
}

// Children returns the ordered children of a folder, or the roots for RootID.
func (t Tree) Children(id domain.NodeID) []domain.NodeID {
	if id == RootID {
		return t.Roots()
	}
	return slices.Clone(t.nodes[id].Children)
}

// Ancestors returns the chain of folders above id, nearest first.
func (t Tree) Ancestors(id domain.NodeID) []domain.NodeID {
	var out []domain.NodeID
	for p, ok := t.parents[id]; ok && p != RootID; p, ok = t.parents[p] {
		out = append(out, p)
	}
	return out
}

// IsAncestor reports whether ancestor is id itself or lies above it.
func (t Tree) IsAncestor(ancestor, id domain.NodeID) bool {
	if ancestor == id {
		return true
	}
	return slices.Contains(t.Ancestors(id), ancestor)
}

// Walk visits nodes depth-first in display order. Returning false from fn stops the walk.
func (t Tree) Walk(fn func(node domain.PlaylistNode, depth int) bool) {
	var visit func(ids []domain.NodeID, depth int) bool
	visit = func(ids []domain.NodeID, depth int) bool {
		for _, id := range ids {
			n := t.nodes[id]
			if !fn(n, depth) {
				return false
			}
			if n.IsFolder() && !visit(n.Children, depth+1) {
				return false
			}
		}
		return true
	}
	visit(t.roots, 0)
}

func (t Tree) clone() Tree {
	nodes := make(map[domain.NodeID]domain.PlaylistNode, len(t.nodes)+1)
	for k, v := range t.nodes {
		nodes[k] = v
	}
	parents := make(map[domain.NodeID]domain.NodeID, len(t.parents)+1)
	for k, v := range t.parents {
		parents[k] = v
	}
	return Tree{nodes: nodes, roots: slices.Clone(t.roots), parents: parents, gen: nextGeneration()}
}

// siblings returns the child list a node with the given parent lives in.
func (t Tree) siblings(parent domain.NodeID) []domain.NodeID {
	if parent == RootID {
		return t.roots
	}
	return t.nodes[parent].Children
}

// setSiblings replaces a child list. It must only be called on a clone.
func (t *Tree) setSiblings(parent domain.NodeID, ids []domain.NodeID) {
	if parent == RootID {
		t.roots = ids
		return
	}
	n := t.nodes[parent]
	n.Children = ids
	t.nodes[parent] = n
}

func (t Tree) checkParent(op string, parent domain.NodeID) error {
	if parent == RootID {
		return nil
	}
	p, ok := t.nodes[parent]
	if !ok {
		return domain.NewNodeError(op, parent, domain.ErrParentNotFound)
	}
	if !p.IsFolder() {
		return domain.NewNodeError(op, parent, domain.ErrNotAFolder)
	}
	return nil
}

func insertAt(ids []domain.NodeID, id domain.NodeID, index int) []domain.NodeID {
	if index < 0 || index > len(ids) {
		index = len(ids)
	}
	return slices.Insert(slices.Clone(ids), index, id)
}

// CreateNode inserts node under parent at index (-1 appends). An empty node id is
// replaced with a generated one. Folders are created empty.
func (t Tree) CreateNode(node domain.PlaylistNode, parent domain.NodeID, index int, now time.Time) (Tree, domain.NodeID, error) {
	if node.ID == "" {
		node.ID = domain.NewNodeID()
	}
	if _, exists := t.nodes[node.ID]; exists {
		return t, "", domain.NewNodeError("create", node.ID, domain.ErrNodeExists)
	}
	if err := t.checkParent("create", parent); err != nil {
		return t, "", err
	}

	node.Children = nil
	if node.IsFolder() {
		node.Items = nil
	} else {
		node.Items = slices.Clone(node.Items)
	}
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	node.UpdatedAt = now

	next := t.clone()
	next.nodes[node.ID] = node
	next.parents[node.ID] = parent
	next.setSiblings(parent, insertAt(next.siblings(parent), node.ID, index))
	return next, node.ID, nil
}

// MoveNode detaches id and inserts it under newParent at index (-1 appends). The index
// is interpreted in the destination list after the node was removed from its old place.
func (t Tree) MoveNode(id, newParent domain.NodeID, index int) (Tree, error) {
	if _, ok := t.nodes[id]; !ok {
		return t, domain.NewNodeError("move", id, domain.ErrNodeNotFound)
	}
	if err := t.checkParent("move", newParent); err != nil {
		return t, err
	}
	if newParent != RootID && t.IsAncestor(id, newParent) {
		return t, domain.NewNodeError("move", id, domain.ErrCycleDetected)
	}

	next := t.clone()
	oldParent := next.parents[id]
	next.setSiblings(oldParent, slices.DeleteFunc(slices.Clone(next.siblings(oldParent)), func(c domain.NodeID) bool {
		return c == id
	}))
	next.setSiblings(newParent, insertAt(next.siblings(newParent), id, index))
	next.parents[id] = newParent
	return next, nil
}

// UpdateNode applies a shallow update to the node's own fields.
func (t Tree) UpdateNode(id domain.NodeID, changes domain.NodeChanges, now time.Time) (Tree, error) {
	n, ok := t.nodes[id]
	if !ok {
		return t, domain.NewNodeError("update", id, domain.ErrNodeNotFound)
	}
	if changes.Name != nil {
		n.Name = *changes.Name
	}
	if changes.Description != nil {
		n.Description = *changes.Description
	}
	n.UpdatedAt = now

	next := t.clone()
	next.nodes[id] = n
	return next, nil
}

// DeleteNode removes a node and, for folders, its whole subtree. It returns every
// removed node in depth-first order so callers can react (queue source, open views).
func (t Tree) DeleteNode(id domain.NodeID) (Tree, []domain.PlaylistNode, error) {
	if _, ok := t.nodes[id]; !ok {
		return t, nil, domain.NewNodeError("delete", id, domain.ErrNodeNotFound)
	}

	var removed []domain.PlaylistNode
	var collect func(domain.NodeID)
	collect = func(nid domain.NodeID) {
		n := t.nodes[nid]
		removed = append(removed, n)
		for _, c := range n.Children {
			collect(c)
		}
	}
	collect(id)

	next := t.clone()
	parent := next.parents[id]
	next.setSiblings(parent, slices.DeleteFunc(slices.Clone(next.siblings(parent)), func(c domain.NodeID) bool {
		return c == id
	}))
	for _, n := range removed {
		delete(next.nodes, n.ID)
		delete(next.parents, n.ID)
	}
	return next, removed, nil
}

// Validate checks the structural invariants of the tree.
func (t Tree) Validate() error {
	seen := make(map[domain.NodeID]bool, len(t.nodes))
	var check func(parent domain.NodeID, ids []domain.NodeID) error
	check = func(parent domain.NodeID, ids []domain.NodeID) error {
		for _, id := range ids {
			n, ok := t.nodes[id]
			if !ok {
				return domain.NewNodeError("validate", id, domain.ErrNodeNotFound)
			}
			if seen[id] {
				return domain.NewNodeError("validate", id, domain.ErrCorruptTree)
			}
			seen[id] = true
			if p, ok := t.parents[id]; !ok || p != parent {
				return domain.NewNodeError("validate", id, domain.ErrCorruptTree)
			}
			if !n.IsFolder() && len(n.Children) > 0 {
				return domain.NewNodeError("validate", id, domain.ErrNotAFolder)
			}
			if err := check(id, n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(RootID, t.roots); err != nil {
		return err
	}
	if len(seen) != len(t.nodes) || len(t.parents) != len(t.nodes) {
		return domain.NewNodeError("validate", RootID, domain.ErrCorruptTree)
	}
	return nil
}

// Export returns the flat serializable form of the tree, nodes in display order.
func (t Tree) Export() domain.TreeSnapshot {
	s := domain.TreeSnapshot{Roots: t.Roots(), Nodes: make([]domain.PlaylistNode, 0, len(t.nodes))}
	t.Walk(func(n domain.PlaylistNode, _ int) bool {
		n.Items = slices.Clone(n.Items)
		n.Children = slices.Clone(n.Children)
		s.Nodes = append(s.Nodes, n)
		return true
	})
	return s
}

// FromSnapshot rebuilds a tree and validates it.
func FromSnapshot(s domain.TreeSnapshot) (Tree, error) {
	t := New()
	t.roots = slices.Clone(s.Roots)
	for _, n := range s.Nodes {
		if _, dup := t.nodes[n.ID]; dup {
			return New(), domain.NewNodeError("restore", n.ID, domain.ErrNodeExists)
		}
		t.nodes[n.ID] = n
	}
	for _, id := range t.roots {
		t.parents[id] = RootID
	}
	for _, n := range s.Nodes {
		for _, c := range n.Children {
			t.parents[c] = n.ID
		}
	}
	if err := t.Validate(); err != nil {
		return New(), err
	}
	return t, nil
}
