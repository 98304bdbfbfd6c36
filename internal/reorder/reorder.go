// Package reorder holds the list math shared by every drag-and-drop surface:
// turning a pointer position into a drop index, and moving a selected batch of rows.
package reorder

import (
	"slices"

	"github.com/samber/lo"
)

// DropIndex maps a pointer position over a list to an insertion index in [0, length].
//
// hover is the index of the row under the pointer. pointerY and rowOrigin use a y axis
// growing upward, rowOrigin being the bottom edge of the hovered row. A pointer past the
// row's vertical midpoint drops at hover, otherwise at hover+1; the midpoint itself is
// not past it. A hover at or past the end of the list returns length.
func DropIndex(pointerY, rowOrigin, rowHeight float64, hover, length int) int {
	if length <= 0 {
		return 0
	}
	if hover < 0 {
		return 0
	}
	if hover >= length {
		return length
	}
	if pointerY > rowOrigin+rowHeight/2 {
		return hover
	}
	return hover + 1
}

// DropIndexAt is DropIndex for a list of uniform rows, with offset measured downward
// from the top of the list as list widgets report it.
func DropIndexAt(offset, rowHeight float64, length int) int {
	if rowHeight <= 0 || offset < 0 {
		return 0
	}
	hover := int(offset / rowHeight)
	above := float64(hover+1)*rowHeight - offset
	return DropIndex(above, 0, rowHeight, hover, length)
}

// Normalize sorts and deduplicates selected indexes and drops those outside [0, length).
func Normalize(selected []int, length int) []int {
	out := lo.Filter(lo.Uniq(selected), func(i int, _ int) bool {
		return i >= 0 && i < length
	})
	slices.Sort(out)
	return out
}

// AdjustedDrop returns the insertion index among the unselected rows that corresponds to
// drop in the original list: drop minus the number of selected rows before it.
func AdjustedDrop(selected []int, drop int) int {
	n := 0
	for _, i := range selected {
		if i < drop {
			n++
		}
	}
	return drop - n
}

// MoveBlock moves the selected rows, in their current relative order, so they form one
// contiguous block at drop. drop is expressed in the original list's indexes and is
// clamped to [0, len(list)]. The input is not modified.
//
// Example: list [A B C D E], selected {1,3}, drop 5 gives [A C E B D].
func MoveBlock[T any](list []T, selected []int, drop int) []T {
	sel := Normalize(selected, len(list))
	drop = max(0, min(drop, len(list)))
	if len(sel) == 0 {
		return slices.Clone(list)
	}

	picked := make(map[int]bool, len(sel))
	block := make([]T, 0, len(sel))
	for _, i := range sel {
		picked[i] = true
		block = append(block, list[i])
	}
	rest := make([]T, 0, len(list)-len(sel))
	for i, v := range list {
		if !picked[i] {
			rest = append(rest, v)
		}
	}

	at := AdjustedDrop(sel, drop)
	out := make([]T, 0, len(list))
	out = append(out, rest[:at]...)
	out = append(out, block...)
	out = append(out, rest[at:]...)
	return out
}
