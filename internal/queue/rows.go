package queue

import (
	"slices"

	"github.com/samber/lo"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
	"github.com/tejashwikalptaru/tunehub/internal/reorder"
)

// RowKind distinguishes item rows from section separators in the visible queue.
type RowKind int

const (
	RowItem RowKind = iota
	RowCurrentSeparator
	RowUpNextSeparator
	RowSourceSeparator
)

// String returns a human-readable representation of the row kind.
func (k RowKind) String() string {
	switch k {
	case RowItem:
		return "item"
	case RowCurrentSeparator:
		return "current"
	case RowUpNextSeparator:
		return "upNext"
	case RowSourceSeparator:
		return "source"
	default:
		return "unknown"
	}
}

// Row is one entry of the visible queue.
type Row struct {
	Kind RowKind
	Item domain.PlaylistItem
}

// ItemRow wraps an item.
func ItemRow(item domain.PlaylistItem) Row {
	return Row{Kind: RowItem, Item: item}
}

// IsSeparator reports whether the row is a section header.
func (r Row) IsSeparator() bool {
	return r.Kind != RowItem
}

// Rows projects the queue into the flat list shown to the user:
//
//	[current-sep, current, upnext-sep, upNext..., source-sep, rest of queue...]
//
// A separator is omitted when its section is empty. Items before the current one are
// not shown. Without a current item the list starts at the up-next section and the
// source section holds the whole queue.
func (q Queue) Rows() []Row {
	rows := make([]Row, 0, len(q.Items)+len(q.UpNext)+3)
	rest := q.Items
	if cur, ok := q.Current(); ok {
		rows = append(rows, Row{Kind: RowCurrentSeparator}, ItemRow(cur))
		rest = q.Items[q.Index+1:]
	}
	if len(q.UpNext) > 0 {
		rows = append(rows, Row{Kind: RowUpNextSeparator})
		for _, it := range q.UpNext {
			rows = append(rows, ItemRow(it))
		}
	}
	if len(rest) > 0 {
		rows = append(rows, Row{Kind: RowSourceSeparator})
		for _, it := range rest {
			rows = append(rows, ItemRow(it))
		}
	}
	return rows
}

// Tail returns the movable part of the visible queue: the rows from the current item on
// (the leading current separator dropped), or every row when nothing is current.
func (q Queue) Tail() []Row {
	rows := q.Rows()
	if _, ok := q.Current(); ok {
		return rows[1:]
	}
	return rows
}

// ReorderOption adjusts Reorder.
type ReorderOption func(*reorderOptions)

type reorderOptions struct {
	promote bool
}

// PromoteHead lets Reorder make another item current when it is dragged to the top of
// the tail. Playback does not follow; the caller starts the new current item.
func PromoteHead() ReorderOption {
	return func(o *reorderOptions) { o.promote = true }
}

// Reorder rebuilds the queue from an edited tail (see Tail). Item rows before the first
// separator form the head: the first becomes current and the rest join the front of the
// up-next list, so the visible order is kept. Rows under the up-next separator become the up-next
// list, rows under the source separator the remainder of the queue.
//
// The tail must hold exactly the items of the current tail, in any order, and must start
// with the current item unless PromoteHead is given; otherwise ErrInvalidReorder is
// returned and the queue is unchanged.
func (q Queue) Reorder(tail []Row, opts ...ReorderOption) (Queue, error) {
	var o reorderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !sameItems(q.Tail(), tail) {
		return q, domain.ErrInvalidReorder
	}

	var head, upNext, source []domain.PlaylistItem
	section := &head
	for _, r := range tail {
		switch r.Kind {
		case RowItem:
			*section = append(*section, r.Item)
		case RowUpNextSeparator:
			section = &upNext
		case RowSourceSeparator:
			section = &source
		default:
			return q, domain.ErrInvalidReorder
		}
	}

	next := q.clone()
	next.UpNext = upNext
	if _, ok := q.Current(); ok {
		if len(head) == 0 {
			return q, domain.ErrInvalidReorder
		}
		if cur, _ := q.Current(); head[0].ItemID != cur.ItemID && !o.promote {
			return q, domain.ErrInvalidReorder
		}
		items := slices.Clone(q.Items[:q.Index])
		items = append(items, head[0])
		next.Items = append(items, source...)
		next.UpNext = append(head[1:len(head):len(head)], upNext...)
		return next, nil
	}
	next.Items = append(head, source...)
	return next, nil
}

// FromRows returns the items of a row list in order, ignoring separators.
func FromRows(rows []Row) []domain.PlaylistItem {
	items := make([]domain.PlaylistItem, 0, len(rows))
	for _, r := range rows {
		if r.Kind == RowItem {
			items = append(items, r.Item)
		}
	}
	return items
}

// MoveRows applies a drag of the selected visible rows (indexes into Rows) to drop.
//
// Drops above the first movable position are clamped to just after the current item.
// Dragging the current item itself into the tail inserts a copy of it (with a new
// ItemID) into the up-next list instead of moving it. Separators cannot be selected, and
// the current item cannot be dragged together with other rows.
func (q Queue) MoveRows(selected []int, drop int) (Queue, error) {
	rows := q.Rows()
	sel := reorder.Normalize(selected, len(rows))
	if len(sel) != len(lo.Uniq(selected)) {
		return q, domain.ErrInvalidIndex
	}
	if len(sel) == 0 {
		return q, nil
	}
	for _, i := range sel {
		if rows[i].IsSeparator() {
			return q, domain.ErrInvalidReorder
		}
	}

	cur, hasCur := q.Current()
	if !hasCur {
		return q.Reorder(reorder.MoveBlock(rows, sel, drop))
	}

	const currentRow = 1
	if slices.Contains(sel, currentRow) {
		if len(sel) > 1 {
			return q, domain.ErrInvalidReorder
		}
		if drop <= currentRow+1 {
			return q, nil
		}
		return q.InsertStray(domain.NewPlaylistItem(cur.TrackID), q.upNextIndexAt(rows, drop)), nil
	}

	drop = max(drop, currentRow+1)
	moved := reorder.MoveBlock(rows, sel, drop)
	return q.Reorder(moved[currentRow:])
}

// upNextIndexAt converts a visible drop index into an index in the up-next list.
func (q Queue) upNextIndexAt(rows []Row, drop int) int {
	sep := slices.IndexFunc(rows, func(r Row) bool { return r.Kind == RowUpNextSeparator })
	if sep < 0 {
		return 0
	}
	return max(0, min(drop-(sep+1), len(q.UpNext)))
}

func sameItems(a, b []Row) bool {
	count := map[domain.PlaylistItem]int{}
	for _, r := range a {
		if r.Kind == RowItem {
			count[r.Item]++
		}
	}
	for _, r := range b {
		if r.Kind != RowItem {
			continue
		}
		if count[r.Item] == 0 {
			return false
		}
		count[r.Item]--
	}
	for _, n := range count {
		if n != 0 {
			return false
		}
	}
	return true
}
