package point

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Point
		want int
	}{
		{"equal", New(1, 2), New(1, 2), 0},
		{"row_first", New(0, 9), New(1, 0), -1},
		{"column_within_row", New(2, 5), New(2, 3), 1},
		{"origin", Zero, New(0, 1), -1},
		{"infinity", New(100, 100), Infinity, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
		})
	}
}

func TestTraverse(t *testing.T) {
	t.Parallel()

	assert.Equal(t, New(1, 7), New(1, 2).Traverse(New(0, 5)))
	assert.Equal(t, New(3, 4), New(1, 2).Traverse(New(2, 4)))
	assert.Equal(t, New(1, 2), New(1, 2).Traverse(Zero))
}

func TestTraversal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, New(0, 3), New(1, 5).Traversal(New(1, 2)))
	assert.Equal(t, New(2, 1), New(3, 1).Traversal(New(1, 9)))
	assert.Equal(t, Zero, New(4, 4).Traversal(New(4, 4)))

	assert.Panics(t, func() {
		New(1, 0).Traversal(New(1, 1))
	})
}

func TestTraverseLaws(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	randomPoint := func() Point {
		return New(rng.Uint32N(4), rng.Uint32N(8))
	}

	for range 500 {
		base, d1, d2 := randomPoint(), randomPoint(), randomPoint()

		// Associativity.
		assert.Equal(t, base.Traverse(d1).Traverse(d2), base.Traverse(d1.Traverse(d2)))

		// Traversal inverts traverse.
		assert.Equal(t, d1, base.Traverse(d1).Traversal(base))

		target := base.Traverse(d1)
		assert.Equal(t, target, base.Traverse(target.Traversal(base)))
	}
}

func TestMinMax(t *testing.T) {
	t.Parallel()

	a, b := New(1, 4), New(0, 9)

	assert.Equal(t, b, Min(a, b))
	assert.Equal(t, a, Max(a, b))
	assert.Equal(t, a, Min(a, a))
}

func TestRange(t *testing.T) {
	t.Parallel()

	r := NewRange(New(0, 2), New(1, 3))

	assert.Equal(t, New(1, 3), r.Extent())
	assert.True(t, r.Contains(New(0, 2)))
	assert.True(t, r.Contains(New(1, 3)))
	assert.False(t, r.Contains(New(1, 4)))
	assert.True(t, r.Intersects(NewRange(New(1, 3), New(2, 0))))
	assert.False(t, r.Intersects(NewRange(New(1, 4), New(2, 0))))
	assert.False(t, r.IsEmpty())
	assert.Equal(t, "[(0, 2) - (1, 3)]", r.String())

	assert.Panics(t, func() {
		NewRange(New(1, 0), New(0, 5))
	})
}
