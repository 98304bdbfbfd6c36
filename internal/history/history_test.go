package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Body   string
	Layout string
}

func newDocHistory(opts ...Option[doc]) *History[doc] {
	base := []Option[doc]{
		WithUndoable[doc]("edit"),
		WithRules(
			Rule[doc]{Path: "body", Policy: Revert},
			Rule[doc]{Path: "layout", Policy: KeepCurrent, Keep: func(dst *doc, cur doc) { dst.Layout = cur.Layout }},
		),
	}
	return New(doc{Body: "v0", Layout: "list"}, append(base, opts...)...)
}

func TestHistory_UndoRedo(t *testing.T) {
	h := newDocHistory()

	assert.True(t, h.Apply("edit", doc{Body: "v1", Layout: "list"}))
	assert.True(t, h.Apply("edit", doc{Body: "v2", Layout: "list"}))
	assert.True(t, h.CanUndo())
	assert.False(t, h.CanRedo())

	require.True(t, h.Undo())
	assert.Equal(t, "v1", h.Present().Body)
	require.True(t, h.Undo())
	assert.Equal(t, "v0", h.Present().Body)
	assert.False(t, h.Undo())

	require.True(t, h.Redo())
	assert.Equal(t, "v1", h.Present().Body)

	// A new action clears the future
	h.Apply("edit", doc{Body: "v3"})
	assert.False(t, h.CanRedo())
	assert.False(t, h.Redo())
}

func TestHistory_NonUndoableActionsBypass(t *testing.T) {
	h := newDocHistory()

	assert.False(t, h.Apply("scroll", doc{Body: "v0", Layout: "grid"}))
	assert.False(t, h.CanUndo())
	assert.Equal(t, "grid", h.Present().Layout)
}

func TestHistory_KeepCurrentSurvivesUndo(t *testing.T) {
	h := newDocHistory()

	h.Apply("edit", doc{Body: "v1", Layout: "list"})
	h.Apply("layout", doc{Body: "v1", Layout: "grid"})

	require.True(t, h.Undo())
	assert.Equal(t, "v0", h.Present().Body, "whitelisted field reverted")
	assert.Equal(t, "grid", h.Present().Layout, "keep-current field stays live")

	h.Apply("layout", doc{Body: "v0", Layout: "table"})
	require.True(t, h.Redo())
	assert.Equal(t, "v1", h.Present().Body)
	assert.Equal(t, "table", h.Present().Layout)
}

func TestHistory_Limit(t *testing.T) {
	h := newDocHistory(WithLimit[doc](3))

	for _, b := range []string{"v1", "v2", "v3", "v4", "v5"} {
		h.Apply("edit", doc{Body: b})
	}
	past, future := h.Depth()
	assert.Equal(t, 3, past)
	assert.Equal(t, 0, future)

	for h.Undo() {
	}
	assert.Equal(t, "v2", h.Present().Body, "oldest entries pruned")
}

func TestHistory_Reset(t *testing.T) {
	h := newDocHistory()
	h.Apply("edit", doc{Body: "v1"})

	h.Reset(doc{Body: "restored"})
	assert.False(t, h.CanUndo())
	assert.Equal(t, "restored", h.Present().Body)
	assert.Len(t, h.Rules(), 2)
	assert.True(t, h.IsUndoable("edit"))
}

func TestHistory_Rebase(t *testing.T) {
	h := newDocHistory()
	h.Apply("edit", doc{Body: "v1"})
	h.Apply("edit", doc{Body: "v2"})
	h.Undo()

	// Verify every recorded state receives the change, the present does not
	h.Rebase(func(d doc) doc {
		d.Body += "+"
		return d
	})
	assert.Equal(t, "v1", h.Present().Body)

	require.True(t, h.Undo())
	assert.Equal(t, "v0+", h.Present().Body)
	require.True(t, h.Redo())
	require.True(t, h.Redo())
	assert.Equal(t, "v2+", h.Present().Body)
}
