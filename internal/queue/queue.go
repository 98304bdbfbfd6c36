// Package queue implements the playback queue: a list of items with a current index,
// an "up next" list of items inserted to play after the current one, and the id of the
// playlist the queue was built from.
//
// Queue values are immutable: every method returns a new Queue and never modifies the
// receiver's slices.
package queue

import (
	"slices"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

// Unset is the index of a queue with no current item.
const Unset = -1

// Queue is the playback queue.
type Queue struct {
	Items  []domain.PlaylistItem
	Index  int
	UpNext []domain.PlaylistItem
	Source domain.NodeID
}

// Empty returns a queue with no items and no current index.
func Empty() Queue {
	return Queue{Index: Unset}
}

// FromSnapshot rebuilds a queue from its persisted form.
func FromSnapshot(s *domain.QueueSnapshot) (Queue, error) {
	if s == nil {
		return Empty(), nil
	}
	if s.Index < Unset || s.Index >= len(s.Items) {
		return Empty(), domain.ErrInvalidIndex
	}
	return Queue{
		Items:  slices.Clone(s.Items),
		Index:  s.Index,
		UpNext: slices.Clone(s.UpNext),
		Source: s.Source,
	}, nil
}

// Snapshot returns the persisted form of the queue.
func (q Queue) Snapshot() *domain.QueueSnapshot {
	return &domain.QueueSnapshot{
		Items:  slices.Clone(q.Items),
		Index:  q.Index,
		UpNext: slices.Clone(q.UpNext),
		Source: q.Source,
	}
}

// Equal reports whether two queues hold the same items, index, up-next and source.
func Equal(a, b Queue) bool {
	return a.Index == b.Index && a.Source == b.Source &&
		slices.Equal(a.Items, b.Items) && slices.Equal(a.UpNext, b.UpNext)
}

// IsEmpty reports whether there is nothing to play.
func (q Queue) IsEmpty() bool {
	return len(q.Items) == 0 && len(q.UpNext) == 0
}

// Current returns the current item.
func (q Queue) Current() (domain.PlaylistItem, bool) {
	if q.Index < 0 || q.Index >= len(q.Items) {
		return domain.PlaylistItem{}, false
	}
	return q.Items[q.Index], true
}

// Set replaces the items and source and makes start current. start may be Unset.
// The up-next list is kept.
func (q Queue) Set(items []domain.PlaylistItem, start int, source domain.NodeID) (Queue, error) {
	if start < Unset || start >= len(items) {
		return q, domain.ErrInvalidIndex
	}
	return Queue{
		Items:  slices.Clone(items),
		Index:  start,
		UpNext: slices.Clone(q.UpNext),
		Source: source,
	}, nil
}

// SkipTo makes the item at n current.
func (q Queue) SkipTo(n int) (Queue, error) {
	if n < 0 || n >= len(q.Items) {
		return q, domain.ErrInvalidIndex
	}
	next := q.clone()
	next.Index = n
	return next, nil
}

// Advance moves to the next item. A pending up-next item is consumed first by splicing
// it in right after the current item. At the end of the queue it returns false.
func (q Queue) Advance() (Queue, bool) {
	next := q.clone()
	if len(next.UpNext) > 0 {
		at := next.Index + 1
		next.Items = slices.Insert(next.Items, at, next.UpNext[0])
		next.UpNext = next.UpNext[1:]
		next.Index = at
		return next, true
	}
	if next.Index+1 < len(next.Items) {
		next.Index++
		return next, true
	}
	return q, false
}

// Retreat moves to the previous item. At the start of the queue it returns false.
func (q Queue) Retreat() (Queue, bool) {
	if q.Index <= 0 {
		return q, false
	}
	next := q.clone()
	next.Index--
	return next, true
}

// InsertUpNext adds items to the front or back of the up-next list.
func (q Queue) InsertUpNext(items []domain.PlaylistItem, atFront bool) Queue {
	next := q.clone()
	if atFront {
		next.UpNext = slices.Insert(next.UpNext, 0, items...)
	} else {
		next.UpNext = append(next.UpNext, items...)
	}
	return next
}

// InsertStray inserts a single item dragged in from outside the queue into the up-next
// list at index, clamped to the list bounds.
func (q Queue) InsertStray(item domain.PlaylistItem, index int) Queue {
	next := q.clone()
	index = max(0, min(index, len(next.UpNext)))
	next.UpNext = slices.Insert(next.UpNext, index, item)
	return next
}

// Remove deletes items by ItemID from the queue and the up-next list. The current item
// is never removed; the current index follows its item.
func (q Queue) Remove(itemIDs []domain.ItemID) Queue {
	drop := lo.SliceToMap(itemIDs, func(id domain.ItemID) (domain.ItemID, bool) {
		return id, true
	})
	_, hasCur := q.Current()

	next := q.clone()
	next.UpNext = lo.Reject(next.UpNext, func(it domain.PlaylistItem, _ int) bool {
		return drop[it.ItemID]
	})
	items := make([]domain.PlaylistItem, 0, len(next.Items))
	index := Unset
	for i, it := range next.Items {
		isCur := hasCur && i == q.Index
		if drop[it.ItemID] && !isCur {
			continue
		}
		if isCur {
			index = len(items)
		}
		items = append(items, it)
	}
	next.Items = items
	next.Index = index
	return next
}

// Clear empties the queue.
func (q Queue) Clear() Queue {
	return Empty()
}

// ClearSource forgets the playlist the queue was built from.
func (q Queue) ClearSource() Queue {
	next := q.clone()
	next.Source = ""
	return next
}

// Anchor returns q with the current item of live made current. A restored queue uses it
// to keep following the item that is playing.
//
// The item is looked up by ItemID. Found in the up-next list, it is spliced in after the
// current position the way Advance does; missing altogether, it is inserted there.
// Without a current item in live the index is unset.
func (q Queue) Anchor(live Queue) Queue {
	next := q.clone()
	cur, ok := live.Current()
	if !ok {
		next.Index = Unset
		return next
	}
	sameItem := func(it domain.PlaylistItem) bool { return it.ItemID == cur.ItemID }
	if i := slices.IndexFunc(next.Items, sameItem); i >= 0 {
		next.Index = i
		return next
	}
	next.UpNext = slices.DeleteFunc(next.UpNext, sameItem)
	at := next.Index + 1
	next.Items = slices.Insert(next.Items, at, cur)
	next.Index = at
	return next
}

// TrackIDs returns the distinct track ids referenced by the queue.
func (q Queue) TrackIDs() []domain.TrackID {
	all := append(slices.Clone(q.Items), q.UpNext...)
	return lo.Uniq(lo.Map(all, func(it domain.PlaylistItem, _ int) domain.TrackID {
		return it.TrackID
	}))
}

func (q Queue) clone() Queue {
	return Queue{
		Items:  slices.Clone(q.Items),
		Index:  q.Index,
		UpNext: slices.Clone(q.UpNext),
		Source: q.Source,
	}
}
