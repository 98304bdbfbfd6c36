package queue

import (
	"math/rand"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunehub/internal/domain"
)

func item(name string) domain.PlaylistItem {
	return domain.PlaylistItem{ItemID: domain.ItemID("i-" + name), TrackID: domain.TrackID("p:" + name)}
}

func items(names ...string) []domain.PlaylistItem {
	return lo.Map(names, func(n string, _ int) domain.PlaylistItem { return item(n) })
}

func names(list []domain.PlaylistItem) []string {
	return lo.Map(list, func(it domain.PlaylistItem, _ int) string { return it.TrackID.URI() })
}

func rowNames(rows []Row) []string {
	return lo.Map(rows, func(r Row, _ int) string {
		if r.IsSeparator() {
			return "|" + r.Kind.String()
		}
		return r.Item.TrackID.URI()
	})
}

func loaded(t *testing.T, current int, up []string, all ...string) Queue {
	t.Helper()
	q, err := Empty().Set(items(all...), current, "pl")
	require.NoError(t, err)
	return q.InsertUpNext(items(up...), false)
}

func TestQueue_Set(t *testing.T) {
	q, err := Empty().Set(items("A", "B"), 1, "pl")
	require.NoError(t, err)

	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, item("B"), cur)
	assert.Equal(t, domain.NodeID("pl"), q.Source)

	_, err = q.Set(items("A"), 1, "")
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)

	unset, err := q.Set(items("A"), Unset, "")
	require.NoError(t, err)
	_, ok = unset.Current()
	assert.False(t, ok)
}

func TestQueue_SkipTo(t *testing.T) {
	q := loaded(t, 0, nil, "A", "B", "C")

	next, err := q.SkipTo(2)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Index)
	assert.Equal(t, 0, q.Index)

	_, err = q.SkipTo(3)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)
}

func TestQueue_Advance_ConsumesUpNext(t *testing.T) {
	q := loaded(t, 0, []string{"X", "Y"}, "A", "B")

	q, ok := q.Advance()
	require.True(t, ok)
	assert.Equal(t, []string{"A", "X", "B"}, names(q.Items))
	assert.Equal(t, 1, q.Index)
	assert.Equal(t, []string{"Y"}, names(q.UpNext))

	q, ok = q.Advance()
	require.True(t, ok)
	assert.Equal(t, []string{"A", "X", "Y", "B"}, names(q.Items))
	assert.Equal(t, 2, q.Index)
	assert.Empty(t, q.UpNext)

	q, ok = q.Advance()
	require.True(t, ok)
	assert.Equal(t, 3, q.Index)

	_, ok = q.Advance()
	assert.False(t, ok, "end of queue")
}

func TestQueue_Advance_FromUnset(t *testing.T) {
	q, err := Empty().Set(items("A"), Unset, "")
	require.NoError(t, err)

	q, ok := q.Advance()
	require.True(t, ok)
	assert.Equal(t, 0, q.Index)

	_, ok = Empty().Advance()
	assert.False(t, ok)
}

func TestQueue_Retreat(t *testing.T) {
	q := loaded(t, 1, nil, "A", "B")

	q, ok := q.Retreat()
	require.True(t, ok)
	assert.Equal(t, 0, q.Index)

	_, ok = q.Retreat()
	assert.False(t, ok, "no wrap around")
}

func TestQueue_InsertUpNext(t *testing.T) {
	q := loaded(t, 0, []string{"X"}, "A")

	back := q.InsertUpNext(items("Y"), false)
	assert.Equal(t, []string{"X", "Y"}, names(back.UpNext))

	front := q.InsertUpNext(items("Y"), true)
	assert.Equal(t, []string{"Y", "X"}, names(front.UpNext))

	// Receiver untouched
	assert.Equal(t, []string{"X"}, names(q.UpNext))
}

func TestQueue_InsertStray(t *testing.T) {
	q := loaded(t, 0, nil, "A")

	next := q.InsertStray(item("B"), 0)
	assert.Equal(t, []string{"B"}, names(next.UpNext))
	assert.Equal(t, q.Items, next.Items)
	assert.Equal(t, q.Index, next.Index)

	clamped := next.InsertStray(item("C"), 99)
	assert.Equal(t, []string{"B", "C"}, names(clamped.UpNext))
	clamped = next.InsertStray(item("C"), -3)
	assert.Equal(t, []string{"C", "B"}, names(clamped.UpNext))
}

func TestQueue_Remove(t *testing.T) {
	q := loaded(t, 2, []string{"X"}, "A", "B", "C", "D")

	next := q.Remove([]domain.ItemID{"i-A", "i-C", "i-X", "i-D"})
	assert.Equal(t, []string{"B", "C"}, names(next.Items), "current item is kept")
	assert.Equal(t, 1, next.Index)
	assert.Empty(t, next.UpNext)
}

func TestQueue_Rows(t *testing.T) {
	q := loaded(t, 1, []string{"X"}, "A", "B", "C")
	assert.Equal(t, []string{"|current", "B", "|upNext", "X", "|source", "C"}, rowNames(q.Rows()))

	// Empty sections omit their separator
	q = loaded(t, 2, nil, "A", "B", "C")
	assert.Equal(t, []string{"|current", "C"}, rowNames(q.Rows()))

	// Nothing current
	unset, err := Empty().Set(items("A"), Unset, "")
	require.NoError(t, err)
	unset = unset.InsertUpNext(items("X"), false)
	assert.Equal(t, []string{"|upNext", "X", "|source", "A"}, rowNames(unset.Rows()))
}

func TestQueue_Reorder_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pool := []string{"A", "B", "C", "D", "E", "F", "G"}

	for i := 0; i < 200; i++ {
		n := rng.Intn(len(pool)) + 1
		index := rng.Intn(n+1) - 1
		up := pool[:rng.Intn(3)]
		q := loaded(t, index, nil, pool[:n]...)
		q = q.InsertUpNext(lo.Map(up, func(s string, _ int) domain.PlaylistItem {
			return domain.PlaylistItem{ItemID: domain.ItemID("u-" + s), TrackID: domain.TrackID("p:" + s)}
		}), false)

		back, err := q.Reorder(q.Tail())
		require.NoError(t, err)
		assert.True(t, Equal(q, back), "round trip %d", i)
	}
}

func TestQueue_Reorder_KeepsCurrent(t *testing.T) {
	q := loaded(t, 1, []string{"X", "Y"}, "A", "B", "C", "D")
	tail := q.Tail() // [B |upNext X Y |source C D]

	// Swap the two up-next items and move D ahead of C
	edited := []Row{tail[0], tail[1], tail[3], tail[2], tail[4], tail[6], tail[5]}
	next, err := q.Reorder(edited)
	require.NoError(t, err)

	cur, _ := next.Current()
	assert.Equal(t, item("B"), cur)
	assert.Equal(t, 1, next.Index)
	assert.Equal(t, []string{"A", "B", "D", "C"}, names(next.Items))
	assert.Equal(t, []string{"Y", "X"}, names(next.UpNext))
}

func TestQueue_Reorder_HeadExtrasJoinUpNext(t *testing.T) {
	q := loaded(t, 0, []string{"X"}, "A", "B")
	tail := q.Tail() // [A |upNext X |source B]

	next, err := q.Reorder([]Row{tail[0], tail[4], tail[1], tail[2], tail[3]})
	require.NoError(t, err)

	// Verify B now plays right after A, ahead of the old up-next
	assert.Equal(t, []string{"A"}, names(next.Items))
	assert.Equal(t, []string{"B", "X"}, names(next.UpNext))
	assert.Equal(t, []string{"|current", "A", "|upNext", "B", "X"}, rowNames(next.Rows()))
}

func TestQueue_Reorder_Invalid(t *testing.T) {
	q := loaded(t, 0, nil, "A", "B")
	tail := q.Tail()

	_, err := q.Reorder(tail[:len(tail)-1])
	assert.ErrorIs(t, err, domain.ErrInvalidReorder, "dropped item")

	_, err = q.Reorder(append(tail, ItemRow(item("Z"))))
	assert.ErrorIs(t, err, domain.ErrInvalidReorder, "invented item")

	_, err = q.Reorder([]Row{tail[1], tail[0], tail[2]})
	assert.ErrorIs(t, err, domain.ErrInvalidReorder, "empty head")
}

func TestQueue_Reorder_NewCurrentNeedsPromote(t *testing.T) {
	q := loaded(t, 0, []string{"X"}, "A", "B")
	tail := q.Tail() // [A |upNext X |source B]
	edited := []Row{tail[4], tail[0], tail[1], tail[2], tail[3]}

	_, err := q.Reorder(edited)
	assert.ErrorIs(t, err, domain.ErrInvalidReorder)

	next, err := q.Reorder(edited, PromoteHead())
	require.NoError(t, err)
	cur, ok := next.Current()
	require.True(t, ok)
	assert.Equal(t, item("B"), cur)
	assert.Equal(t, []string{"A", "X"}, names(next.UpNext))
}

func TestQueue_Anchor(t *testing.T) {
	tests := []struct {
		name      string
		restored  Queue
		live      Queue
		wantItems []string
		wantIndex int
		wantUp    []string
	}{
		{
			name:      "item in queue",
			restored:  loaded(t, 0, nil, "A", "B", "C"),
			live:      loaded(t, 2, nil, "A", "B", "C"),
			wantItems: []string{"A", "B", "C"},
			wantIndex: 2,
		},
		{
			name:      "item consumed from up-next",
			restored:  loaded(t, 0, []string{"X", "Y"}, "A", "B"),
			live:      loaded(t, 1, []string{"Y"}, "A", "X", "B"),
			wantItems: []string{"A", "X", "B"},
			wantIndex: 1,
			wantUp:    []string{"Y"},
		},
		{
			name:      "item missing",
			restored:  loaded(t, 0, nil, "A", "B"),
			live:      loaded(t, 0, nil, "Z"),
			wantItems: []string{"A", "Z", "B"},
			wantIndex: 1,
		},
		{
			name:      "missing into unset queue",
			restored:  loaded(t, Unset, nil, "A"),
			live:      loaded(t, 0, nil, "Z"),
			wantItems: []string{"Z", "A"},
			wantIndex: 0,
		},
		{
			name:      "nothing current",
			restored:  loaded(t, 1, nil, "A", "B"),
			live:      Empty(),
			wantItems: []string{"A", "B"},
			wantIndex: Unset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.restored.Anchor(tt.live)
			assert.Equal(t, tt.wantItems, names(got.Items))
			assert.Equal(t, tt.wantIndex, got.Index)
			assert.Equal(t, len(tt.wantUp), len(got.UpNext))
			if len(tt.wantUp) > 0 {
				assert.Equal(t, tt.wantUp, names(got.UpNext))
			}
		})
	}
}

func TestQueue_MoveRows(t *testing.T) {
	q := loaded(t, 0, []string{"X", "Y"}, "A", "B", "C")
	// rows: 0 |current, 1 A, 2 |upNext, 3 X, 4 Y, 5 |source, 6 B, 7 C

	// Move source item C into up-next front
	next, err := q.MoveRows([]int{7}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "X", "Y"}, names(next.UpNext))
	assert.Equal(t, []string{"A", "B"}, names(next.Items))

	// Move up-next X to the end of the source section
	next, err = q.MoveRows([]int{3}, 8)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y"}, names(next.UpNext))
	assert.Equal(t, []string{"A", "B", "C", "X"}, names(next.Items))

	// Drops above the current item clamp to just after it
	next, err = q.MoveRows([]int{6, 7}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(next.Items))
	assert.Equal(t, []string{"B", "C", "X", "Y"}, names(next.UpNext))
	assert.Equal(t, 0, next.Index)
	cur, _ := next.Current()
	assert.Equal(t, item("A"), cur)

	// Separators cannot be dragged
	_, err = q.MoveRows([]int{2}, 8)
	assert.ErrorIs(t, err, domain.ErrInvalidReorder)

	_, err = q.MoveRows([]int{42}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)
}

func TestQueue_MoveRows_CurrentBecomesStray(t *testing.T) {
	q := loaded(t, 0, []string{"X"}, "A", "B")
	// rows: 0 |current, 1 A, 2 |upNext, 3 X, 4 |source, 5 B

	next, err := q.MoveRows([]int{1}, 4)
	require.NoError(t, err)

	assert.Equal(t, q.Items, next.Items, "queue unchanged")
	assert.Equal(t, q.Index, next.Index)
	require.Len(t, next.UpNext, 2)
	assert.Equal(t, item("X"), next.UpNext[0])
	assert.Equal(t, domain.TrackID("p:A"), next.UpNext[1].TrackID)
	assert.NotEqual(t, item("A").ItemID, next.UpNext[1].ItemID, "stray copy gets a fresh item id")

	// Dropping onto itself does nothing
	same, err := q.MoveRows([]int{1}, 2)
	require.NoError(t, err)
	assert.True(t, Equal(q, same))

	_, err = q.MoveRows([]int{1, 3}, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidReorder)
}

func TestQueue_MoveRows_PreservesCurrent_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 300; i++ {
		q := loaded(t, 1, []string{"X", "Y", "Z"}, "A", "B", "C", "D", "E")
		cur, _ := q.Current()
		rows := q.Rows()

		var sel []int
		for j := 2; j < len(rows); j++ {
			if !rows[j].IsSeparator() && rng.Intn(3) == 0 {
				sel = append(sel, j)
			}
		}
		next, err := q.MoveRows(sel, rng.Intn(len(rows)+1))
		require.NoError(t, err)

		got, ok := next.Current()
		require.True(t, ok)
		assert.Equal(t, cur, got)
		assert.Equal(t, q.Items[:q.Index], next.Items[:next.Index], "history untouched")
		assert.ElementsMatch(t, append(q.Items, q.UpNext...), append(next.Items, next.UpNext...))
	}
}

func TestQueue_Snapshot(t *testing.T) {
	q := loaded(t, 1, []string{"X"}, "A", "B")

	back, err := FromSnapshot(q.Snapshot())
	require.NoError(t, err)
	assert.True(t, Equal(q, back))

	_, err = FromSnapshot(&domain.QueueSnapshot{Items: items("A"), Index: 4})
	assert.ErrorIs(t, err, domain.ErrInvalidIndex)

	empty, err := FromSnapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, Unset, empty.Index)
}

func TestFromRows_IgnoresSeparators(t *testing.T) {
	q := loaded(t, 1, []string{"X"}, "A", "B", "C")

	// Verify the visible list flattens to current, up-next, then the rest of the source
	got := FromRows(q.Rows())
	assert.Equal(t, []string{"B", "X", "C"}, names(got))
}
