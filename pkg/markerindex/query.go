package markerindex

import (
	"iter"

	"github.com/Sumatoshi-tech/editcore/pkg/point"
)

// FindIntersecting returns the markers whose range intersects [start, end],
// touching endpoints included.
func (idx *Index) FindIntersecting(start, end point.Point) Set {
	result := collector{}
	idx.findIntersecting(start, end, result)

	return setOf(result)
}

func (idx *Index) findIntersecting(start, end point.Point, result collector) {
	c := idx.cursor()
	if c.node == nilNode {
		return
	}

	for {
		n := idx.nd(c.node)

		if start.Less(c.pos) {
			if n.left == nilNode {
				break
			}

			c.checkIntersection(start, end, result)
			c.descendLeft()
		} else {
			if n.right == nilNode {
				break
			}

			c.checkIntersection(start, end, result)
			c.descendRight()
		}
	}

	for c.node != nilNode {
		c.checkIntersection(start, end, result)
		c.moveToSuccessor()

		if c.node == nilNode || end.Less(c.pos) {
			return
		}
	}
}

// FindContaining returns the markers whose range contains [start, end].
func (idx *Index) FindContaining(start, end point.Point) Set {
	containing := idx.FindIntersecting(start, start)
	if start == end {
		return containing
	}

	return containing.Intersect(idx.FindIntersecting(end, end))
}

// FindContainedIn returns the markers whose range lies within [start, end].
func (idx *Index) FindContainedIn(start, end point.Point) Set {
	result := collector{}
	started := collector{}

	c := idx.cursor()
	for ok := c.seek(start); ok && c.pos.LessEq(end); ok = c.node != nilNode {
		n := idx.nd(c.node)
		started.addAll(n.startIDs)

		for _, id := range n.endIDs {
			if _, found := started[id]; found {
				result[id] = struct{}{}
			}
		}

		c.moveToSuccessor()
	}

	return setOf(result)
}

// FindStartingIn returns the markers starting within [start, end].
func (idx *Index) FindStartingIn(start, end point.Point) Set {
	return idx.collectIn(start, end, func(n *node) idSet { return n.startIDs })
}

// FindStartingAt returns the markers starting at position.
func (idx *Index) FindStartingAt(position point.Point) Set {
	return idx.FindStartingIn(position, position)
}

// FindEndingIn returns the markers ending within [start, end].
func (idx *Index) FindEndingIn(start, end point.Point) Set {
	return idx.collectIn(start, end, func(n *node) idSet { return n.endIDs })
}

// FindEndingAt returns the markers ending at position.
func (idx *Index) FindEndingAt(position point.Point) Set {
	return idx.FindEndingIn(position, position)
}

func (idx *Index) collectIn(start, end point.Point, ids func(*node) idSet) Set {
	result := collector{}

	c := idx.cursor()
	for ok := c.seek(start); ok && c.pos.LessEq(end); ok = c.node != nilNode {
		result.addAll(ids(idx.nd(c.node)))
		c.moveToSuccessor()
	}

	return setOf(result)
}

// Boundary is a position where at least one marker starts or ends.
type Boundary struct {
	Position point.Point `json:"position"`
	Starting Set         `json:"starting"`
	Ending   Set         `json:"ending"`
}

// BoundaryQueryResult is the result of FindBoundariesAfter.
type BoundaryQueryResult struct {
	// ContainingStart holds the markers that start before the query position
	// and end at or after it.
	ContainingStart Set        `json:"containingStart"`
	Boundaries      []Boundary `json:"boundaries"`
}

// Boundaries yields every boundary at or after start in position order.
// Each call walks the tree afresh; the index must not be modified while the
// sequence is consumed.
func (idx *Index) Boundaries(start point.Point) iter.Seq[Boundary] {
	return func(yield func(Boundary) bool) {
		c := idx.cursor()

		for ok := c.seek(start); ok; ok = c.node != nilNode {
			n := idx.nd(c.node)

			if !yield(Boundary{Position: c.pos, Starting: n.startIDs.set(), Ending: n.endIDs.set()}) {
				return
			}

			c.moveToSuccessor()
		}
	}
}

// FindBoundariesAfter returns up to maxCount boundaries at or after start,
// along with the markers already open at start.
func (idx *Index) FindBoundariesAfter(start point.Point, maxCount int) BoundaryQueryResult {
	result := BoundaryQueryResult{
		ContainingStart: idx.FindIntersecting(start, start).Difference(idx.FindStartingAt(start)),
	}

	if maxCount <= 0 {
		return result
	}

	for boundary := range idx.Boundaries(start) {
		result.Boundaries = append(result.Boundaries, boundary)

		if len(result.Boundaries) == maxCount {
			break
		}
	}

	return result
}
