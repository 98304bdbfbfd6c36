// Package history implements a bounded undo/redo stack over immutable state values.
//
// Which actions are recorded is decided by a whitelist of action names, and which parts
// of the state survive an undo or redo is decided by a declarative rule table: slices
// marked KeepCurrent are spliced from the live state into the restored one.
package history

import "slices"

// DefaultLimit is the number of past states kept when no limit is configured.
const DefaultLimit = 100

// Policy tells the history what to do with a slice of the state on undo and redo.
type Policy int

const (
	// Revert restores the slice to its recorded value.
	Revert Policy = iota

	// KeepCurrent keeps the slice at its live value.
	KeepCurrent
)

// String returns a human-readable representation of the policy.
func (p Policy) String() string {
	if p == KeepCurrent {
		return "keepCurrent"
	}
	return "revert"
}

// Rule describes one slice of the state.
type Rule[S any] struct {
	// Path names the slice, e.g. "view.layout".
	Path   string
	Policy Policy

	// Keep copies the slice from current into restored. Required for KeepCurrent rules.
	Keep func(restored *S, current S)
}

// Option configures a History.
type Option[S any] func(*History[S])

// WithLimit bounds the number of past states. Values below 1 keep DefaultLimit.
func WithLimit[S any](limit int) Option[S] {
	return func(h *History[S]) {
		if limit > 0 {
			h.limit = limit
		}
	}
}

// WithRules installs the slice rule table.
func WithRules[S any](rules ...Rule[S]) Option[S] {
	return func(h *History[S]) {
		h.rules = append(h.rules, rules...)
	}
}

// WithUndoable whitelists action names that are recorded.
func WithUndoable[S any](actions ...string) Option[S] {
	return func(h *History[S]) {
		for _, a := range actions {
			h.undoable[a] = true
		}
	}
}

// History holds past, present and future states. It is not safe for concurrent use;
// the owner serializes access.
type History[S any] struct {
	past     []S
	present  S
	future   []S
	limit    int
	rules    []Rule[S]
	undoable map[string]bool
}

// New creates a history whose present is initial.
func New[S any](initial S, opts ...Option[S]) *History[S] {
	h := &History[S]{
		present:  initial,
		limit:    DefaultLimit,
		undoable: map[string]bool{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Present returns the live state.
func (h *History[S]) Present() S {
	return h.present
}

// IsUndoable reports whether action is recorded.
func (h *History[S]) IsUndoable(action string) bool {
	return h.undoable[action]
}

// Apply makes next the present. Undoable actions push the old present onto the past
// and clear the future; other actions replace the present without a history entry.
// It reports whether an entry was recorded.
func (h *History[S]) Apply(action string, next S) bool {
	if !h.undoable[action] {
		h.present = next
		return false
	}
	h.past = append(h.past, h.present)
	if over := len(h.past) - h.limit; over > 0 {
		h.past = slices.Delete(h.past, 0, over)
	}
	h.future = nil
	h.present = next
	return true
}

// Undo restores the most recent past state, keeping KeepCurrent slices at their live
// value. It returns false when there is nothing to undo.
func (h *History[S]) Undo() bool {
	if len(h.past) == 0 {
		return false
	}
	last := len(h.past) - 1
	restored := h.splice(h.past[last], h.present)
	h.future = append(h.future, h.present)
	h.past = h.past[:last]
	h.present = restored
	return true
}

// Redo re-applies the most recently undone state. It returns false when there is
// nothing to redo.
func (h *History[S]) Redo() bool {
	if len(h.future) == 0 {
		return false
	}
	last := len(h.future) - 1
	restored := h.splice(h.future[last], h.present)
	h.past = append(h.past, h.present)
	h.future = h.future[:last]
	h.present = restored
	return true
}

// Rebase applies fn to every past and future state, leaving the present alone. Owners
// use it for non-undoable changes that must survive a later undo or redo, such as data
// delivered from outside.
func (h *History[S]) Rebase(fn func(S) S) {
	for i := range h.past {
		h.past[i] = fn(h.past[i])
	}
	for i := range h.future {
		h.future[i] = fn(h.future[i])
	}
}

// Reset replaces the present and forgets every past and future state.
func (h *History[S]) Reset(present S) {
	h.past = nil
	h.future = nil
	h.present = present
}

// CanUndo reports whether Undo would succeed.
func (h *History[S]) CanUndo() bool {
	return len(h.past) > 0
}

// CanRedo reports whether Redo would succeed.
func (h *History[S]) CanRedo() bool {
	return len(h.future) > 0
}

// Depth returns the number of past and future states.
func (h *History[S]) Depth() (past, future int) {
	return len(h.past), len(h.future)
}

// Rules returns the slice rule table.
func (h *History[S]) Rules() []Rule[S] {
	return slices.Clone(h.rules)
}

func (h *History[S]) splice(restored, current S) S {
	for _, r := range h.rules {
		if r.Policy == KeepCurrent && r.Keep != nil {
			r.Keep(&restored, current)
		}
	}
	return restored
}
