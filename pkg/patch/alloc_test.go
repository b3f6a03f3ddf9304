package patch //nolint:testpackage // Tests check allocator internals.

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator(t *testing.T) {
	t.Parallel()

	a := newAllocator()
	assert.Equal(t, 0, a.used())

	first := a.malloc()
	second := a.malloc()
	assert.Equal(t, uint32(1), first)
	assert.Equal(t, uint32(2), second)
	assert.Equal(t, 2, a.used())

	a.free(first)
	assert.Equal(t, 1, a.used())
	assert.Equal(t, first, a.malloc(), "freed slots are reused")

	assert.PanicsWithValue(t, "patch: node #0 is special and cannot be deallocated", func() {
		a.free(nilNode)
	})
}

func TestAllocatorClone(t *testing.T) {
	t.Parallel()

	a := newAllocator()
	idx := a.malloc()
	a.storage[idx].left = 7
	a.free(a.malloc())

	c := a.clone()
	require.Equal(t, a.used(), c.used())

	c.storage[idx].left = 9
	c.malloc()

	assert.Equal(t, uint32(7), a.storage[idx].left)
	assert.Equal(t, 1, a.used())
	assert.Equal(t, 2, c.used())
}
