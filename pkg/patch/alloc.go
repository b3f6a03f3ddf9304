package patch

import (
	"math"

	"github.com/Sumatoshi-tech/editcore/pkg/safeconv"
)

// nilNode is the reserved index standing for "no node".
const nilNode = 0

// allocator owns the nodes of one Patch. Index zero is reserved so that child
// and parent links can use it as nil. Released slots are recycled LIFO, which
// keeps allocation order deterministic.
type allocator struct {
	storage []node
	gaps    []uint32
}

func newAllocator() allocator {
	return allocator{storage: make([]node, 1)}
}

// used returns the number of live nodes.
func (a *allocator) used() int {
	return len(a.storage) - 1 - len(a.gaps)
}

func (a *allocator) malloc() uint32 {
	if n := len(a.gaps); n > 0 {
		idx := a.gaps[n-1]
		a.gaps = a.gaps[:n-1]

		return idx
	}

	if len(a.storage) == math.MaxUint32 {
		panic("patch: node allocator exhausted the uint32 index space")
	}

	a.storage = append(a.storage, node{})

	return safeconv.MustIntToUint32(len(a.storage) - 1)
}

func (a *allocator) free(idx uint32) {
	if idx == nilNode {
		panic("patch: node #0 is special and cannot be deallocated")
	}

	a.storage[idx] = node{}
	a.gaps = append(a.gaps, idx)
}

func (a *allocator) clone() allocator {
	storage := make([]node, len(a.storage), cap(a.storage))
	copy(storage, a.storage)

	return allocator{
		storage: storage,
		gaps:    append([]uint32(nil), a.gaps...),
	}
}

func doAssert(condition bool) {
	if !condition {
		panic("patch internal assertion failed")
	}
}
