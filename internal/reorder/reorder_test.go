package reorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDropIndex(t *testing.T) {
	// Row 3 is 20 units tall with its bottom edge at y=60, y growing upward
	assert.Equal(t, 3, DropIndex(75, 60, 20, 3, 10), "past the midpoint drops at the row")
	assert.Equal(t, 4, DropIndex(65, 60, 20, 3, 10), "below the midpoint drops after the row")
	assert.Equal(t, 4, DropIndex(70, 60, 20, 3, 10), "midpoint is not past it")
	assert.Equal(t, 10, DropIndex(500, 200, 20, 10, 10), "past the end drops at length")
	assert.Equal(t, 10, DropIndex(185, 180, 20, 9, 10), "lower part of the last row drops at length")
	assert.Equal(t, 0, DropIndex(1, 0, 20, -1, 10))
	assert.Equal(t, 0, DropIndex(1, 0, 20, 0, 0))
}

func TestDropIndex_ReleasedBelowLastRow(t *testing.T) {
	assert.Equal(t, 5, DropIndexAt(130, 20, 5))
	assert.Equal(t, 5, DropIndex(0, 0, 20, 5, 5))
}

func TestDropIndexAt(t *testing.T) {
	// Offsets grow downward from the list top; row 3 spans [60, 80)
	assert.Equal(t, 3, DropIndexAt(65, 20, 10), "upper half of the row")
	assert.Equal(t, 4, DropIndexAt(75, 20, 10), "lower half of the row")
	assert.Equal(t, 4, DropIndexAt(70, 20, 10), "midpoint")
	assert.Equal(t, 10, DropIndexAt(1000, 20, 10))
	assert.Equal(t, 0, DropIndexAt(-5, 20, 10))
}

func TestMoveBlock(t *testing.T) {
	list := []string{"A", "B", "C", "D", "E"}

	tests := []struct {
		name     string
		selected []int
		drop     int
		want     []string
	}{
		{"batch to end", []int{1, 3}, 5, []string{"A", "C", "E", "B", "D"}},
		{"batch to start", []int{1, 3}, 0, []string{"B", "D", "A", "C", "E"}},
		{"single down", []int{0}, 3, []string{"B", "C", "A", "D", "E"}},
		{"single up", []int{4}, 1, []string{"A", "E", "B", "C", "D"}},
		{"drop inside selection", []int{1, 2}, 2, []string{"A", "B", "C", "D", "E"}},
		{"unsorted duplicate selection", []int{3, 1, 3}, 5, []string{"A", "C", "E", "B", "D"}},
		{"out of range ignored", []int{-1, 9}, 2, []string{"A", "B", "C", "D", "E"}},
		{"drop clamped", []int{0}, 99, []string{"B", "C", "D", "E", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MoveBlock(list, tt.selected, tt.drop))
		})
	}

	// Input untouched
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, list)
}

func TestAdjustedDrop(t *testing.T) {
	assert.Equal(t, 3, AdjustedDrop([]int{1, 3}, 5))
	assert.Equal(t, 0, AdjustedDrop([]int{1, 3}, 0))
	assert.Equal(t, 1, AdjustedDrop([]int{1, 3}, 2))
}
