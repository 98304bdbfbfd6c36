package service

import (
	"fmt"
	"time"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/queue"
	"github.com/tejashwikalptaru/tunehub/internal/state"
)

// carry rewrites the queue of past and future states. Non-undoable replacements of the
// queue pass one so that a later undo or redo does not bring the replaced queue back.
type carry func(queue.Queue) queue.Queue

// rebaseQueue applies c to every history entry. Callers hold s.mu.
func (s *StateService) rebaseQueue(c carry) {
	if c == nil {
		return
	}
	s.hist.Rebase(func(st state.State) state.State {
		st.Queue = c(st.Queue)
		return st
	})
}

func (s *StateService) queueOp(action string, c carry, fn func(queue.Queue) (queue.Queue, error)) error {
	return s.commit(action, func(cur state.State, _ time.Time) (state.State, []domain.Event, error) {
		q, err := fn(cur.Queue)
		if err != nil {
			return cur, nil, err
		}
		s.rebaseQueue(c)
		cur.Queue = q
		return cur, nil, nil
	})
}

// step moves the current position with fn. The move only commits when the new current
// item resolves to a loaded track; otherwise the queue is unchanged and
// ErrTrackNotFound is returned.
func (s *StateService) step(action string, c carry, fn func(state.State) (queue.Queue, error)) (Entry, error) {
	var entry Entry
	err := s.commit(action, func(cur state.State, _ time.Time) (state.State, []domain.Event, error) {
		q, err := fn(cur)
		if err != nil {
			return cur, nil, err
		}
		item, ok := q.Current()
		if !ok {
			return cur, nil, domain.ErrQueueEmpty
		}
		e := resolve(cur.Tracks, item)
		if e.Track == nil {
			return cur, nil, fmt.Errorf("queue item %s (%s): %w", item.ItemID, item.TrackID, domain.ErrTrackNotFound)
		}
		s.rebaseQueue(c)
		entry = e
		cur.Queue = q
		return cur, nil, nil
	})
	return entry, err
}

// setCarry replays a queue replacement on history entries. Each entry keeps its own
// up-next list, as Set does.
func setCarry(items []domain.PlaylistItem, start int, source domain.NodeID) carry {
	return func(q queue.Queue) queue.Queue {
		next, err := q.Set(items, start, source)
		if err != nil {
			return q
		}
		return next
	}
}

// SetQueue replaces the queue items and source and makes start current (-1 for none).
func (s *StateService) SetQueue(items []domain.PlaylistItem, start int, source domain.NodeID) error {
	return s.queueOp(state.ActionQueueSet, setCarry(items, start, source), func(q queue.Queue) (queue.Queue, error) {
		return q.Set(items, start, source)
	})
}

// PlayPlaylist loads a playlist into the queue and makes its item at start current.
func (s *StateService) PlayPlaylist(id domain.NodeID, start int) (Entry, error) {
	// The items are only known under the lock; fn runs before step rebases.
	var items []domain.PlaylistItem
	replay := func(q queue.Queue) queue.Queue { return setCarry(items, start, id)(q) }
	return s.step(state.ActionQueueSet, replay, func(cur state.State) (queue.Queue, error) {
		n, ok := cur.Playlists.FindNode(id)
		if !ok {
			return cur.Queue, domain.NewNodeError("play", id, domain.ErrNodeNotFound)
		}
		if n.IsFolder() {
			return cur.Queue, domain.NewNodeError("play", id, domain.ErrNotAPlaylist)
		}
		if len(n.Items) == 0 {
			return cur.Queue, domain.ErrQueueEmpty
		}
		items = n.Items
		return cur.Queue.Set(items, start, id)
	})
}

// PlayTracks loads tracks into the queue without a source playlist and makes start
// current.
func (s *StateService) PlayTracks(trackIDs []domain.TrackID, start int) (Entry, error) {
	if len(trackIDs) == 0 {
		return Entry{}, domain.ErrQueueEmpty
	}
	items := domain.NewPlaylistItems(trackIDs)
	return s.step(state.ActionQueueSet, setCarry(items, start, ""), func(cur state.State) (queue.Queue, error) {
		return cur.Queue.Set(items, start, "")
	})
}

// SkipTo makes the queue item at n current.
func (s *StateService) SkipTo(n int) (Entry, error) {
	return s.step(state.ActionQueueSkip, nil, func(cur state.State) (queue.Queue, error) {
		return cur.Queue.SkipTo(n)
	})
}

// Advance moves to the next item, consuming up-next first.
func (s *StateService) Advance() (Entry, error) {
	return s.step(state.ActionQueueAdvance, nil, func(cur state.State) (queue.Queue, error) {
		q, ok := cur.Queue.Advance()
		if !ok {
			return q, domain.ErrEndOfQueue
		}
		return q, nil
	})
}

// Retreat moves to the previous item.
func (s *StateService) Retreat() (Entry, error) {
	return s.step(state.ActionQueueRetreat, nil, func(cur state.State) (queue.Queue, error) {
		q, ok := cur.Queue.Retreat()
		if !ok {
			return q, domain.ErrStartOfQueue
		}
		return q, nil
	})
}

// InsertUpNext queues tracks to play after the current one.
func (s *StateService) InsertUpNext(trackIDs []domain.TrackID, atFront bool) ([]domain.PlaylistItem, error) {
	for _, tid := range trackIDs {
		if !tid.Valid() {
			return nil, domain.ErrInvalidTrackID
		}
	}
	items := domain.NewPlaylistItems(trackIDs)
	err := s.queueOp(state.ActionQueueUpNext, nil, func(q queue.Queue) (queue.Queue, error) {
		return q.InsertUpNext(items, atFront), nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// InsertStray inserts a track dragged in from outside the queue into the up-next list.
func (s *StateService) InsertStray(trackID domain.TrackID, index int) (domain.PlaylistItem, error) {
	if !trackID.Valid() {
		return domain.PlaylistItem{}, domain.ErrInvalidTrackID
	}
	item := domain.NewPlaylistItem(trackID)
	err := s.queueOp(state.ActionQueueStray, nil, func(q queue.Queue) (queue.Queue, error) {
		return q.InsertStray(item, index), nil
	})
	return item, err
}

// ReorderQueue rebuilds the queue from an edited tail (see queue.Queue.Tail). The tail
// must start with the current item unless queue.PromoteHead is passed.
func (s *StateService) ReorderQueue(tail []queue.Row, opts ...queue.ReorderOption) error {
	return s.queueOp(state.ActionQueueReorder, nil, func(q queue.Queue) (queue.Queue, error) {
		return q.Reorder(tail, opts...)
	})
}

// MoveQueueRows applies a drag of visible queue rows (indexes into VisibleQueue).
func (s *StateService) MoveQueueRows(selected []int, drop int) error {
	return s.queueOp(state.ActionQueueReorder, nil, func(q queue.Queue) (queue.Queue, error) {
		return q.MoveRows(selected, drop)
	})
}

// RemoveFromQueue removes items from the queue and up-next. The current item stays.
func (s *StateService) RemoveFromQueue(itemIDs []domain.ItemID) error {
	return s.queueOp(state.ActionQueueRemove, nil, func(q queue.Queue) (queue.Queue, error) {
		return q.Remove(itemIDs), nil
	})
}

// ClearQueue empties the queue.
func (s *StateService) ClearQueue() error {
	return s.queueOp(state.ActionQueueClear, queue.Queue.Clear, func(q queue.Queue) (queue.Queue, error) {
		return q.Clear(), nil
	})
}
