// Package markerindex tracks ranges ("markers") over a document so that they
// survive edits. Markers are stored as boundary nodes of a treap ordered by
// position. Each node stores its position relative to its nearest left
// ancestor, so shifting every boundary after an edit touches only the path
// to the edited region.
//
// Every node additionally carries the ids of the markers covering the
// intervals between it and its nearest ancestors on either side, which turns
// intersection and containment queries into a single descent.
package markerindex

import (
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/Sumatoshi-tech/editcore/pkg/point"
	"github.com/Sumatoshi-tech/editcore/pkg/safeconv"
)

const nilNode = 0

// unassigned marks a node whose priority has not been drawn yet.
const unassigned int32 = 0

type node struct {
	parent, left, right uint32

	// leftExtent is the distance from the nearest left ancestor's position,
	// or the absolute position for nodes without one.
	leftExtent point.Point
	priority   int32

	// leftIDs hold markers covering the interval from the left ancestor to
	// this node, rightIDs those covering the interval from this node to the
	// right ancestor.
	leftIDs, rightIDs idSet
	startIDs, endIDs  idSet
}

func (n *node) isEndpoint() bool {
	return len(n.startIDs) > 0 || len(n.endIDs) > 0
}

// Index is a set of markers. It is not safe for concurrent use.
type Index struct {
	nodes []node
	gaps  []uint32
	root  uint32

	pcg        *rand.PCG
	rng        *rand.Rand
	startNodes map[ID]uint32
	endNodes   map[ID]uint32
	exclusive  map[ID]struct{}
}

// New returns an empty index whose node priorities are drawn from a PCG
// source seeded with seed, so identical operation sequences build identical
// trees.
func New(seed uint64) *Index {
	pcg := rand.NewPCG(seed, seed)

	return &Index{
		nodes:      make([]node, 1),
		pcg:        pcg,
		rng:        rand.New(pcg),
		startNodes: map[ID]uint32{},
		endNodes:   map[ID]uint32{},
		exclusive:  map[ID]struct{}{},
	}
}

func (idx *Index) nd(i uint32) *node {
	return &idx.nodes[i]
}

func (idx *Index) newNode(parent uint32, leftExtent point.Point) uint32 {
	var i uint32

	if n := len(idx.gaps); n > 0 {
		i = idx.gaps[n-1]
		idx.gaps = idx.gaps[:n-1]
	} else {
		idx.nodes = append(idx.nodes, node{})
		i = safeconv.MustIntToUint32(len(idx.nodes) - 1)
	}

	idx.nodes[i] = node{parent: parent, leftExtent: leftExtent}

	return i
}

func (idx *Index) freeNode(i uint32) {
	idx.nodes[i] = node{}
	idx.gaps = append(idx.gaps, i)
}

func (idx *Index) randomPriority() int32 {
	return 1 + idx.rng.Int32N(math.MaxInt32-1)
}

// Len is the number of markers.
func (idx *Index) Len() int {
	return len(idx.startNodes)
}

// Has reports whether id is a marker in the index.
func (idx *Index) Has(id ID) bool {
	_, ok := idx.startNodes[id]

	return ok
}

// SetExclusive sets whether edits at the boundaries of id grow the marker.
// Insertions at an exclusive marker's boundaries land outside it.
func (idx *Index) SetExclusive(id ID, exclusive bool) {
	if exclusive {
		idx.exclusive[id] = struct{}{}
	} else {
		delete(idx.exclusive, id)
	}
}

// IsExclusive reports whether id was marked exclusive.
func (idx *Index) IsExclusive(id ID) bool {
	_, ok := idx.exclusive[id]

	return ok
}

// Insert adds a marker spanning [start, end], replacing the range of an
// existing marker with the same id. It panics when end precedes start.
func (idx *Index) Insert(id ID, start, end point.Point) {
	if end.Less(start) {
		panic(fmt.Sprintf("markerindex: marker %d has start %v after end %v", id, start, end))
	}

	if idx.Has(id) {
		idx.detach(id)
	}

	idx.attach(id, start, end)
}

func (idx *Index) attach(id ID, start, end point.Point) {
	c := idx.cursor()
	startNode := c.insertMarkerStart(id, start, end)
	endNode := c.insertMarkerEnd(id, start, end)

	idx.nd(startNode).startIDs.add(id)
	idx.nd(endNode).endIDs.add(id)
	idx.startNodes[id] = startNode
	idx.endNodes[id] = endNode

	for _, n := range []uint32{startNode, endNode} {
		if idx.nd(n).priority == unassigned {
			idx.nd(n).priority = idx.randomPriority()
			idx.bubbleUp(n)
		}
	}
}

// Remove deletes the marker id. Unknown ids are ignored.
func (idx *Index) Remove(id ID) {
	if !idx.Has(id) {
		return
	}

	idx.detach(id)
	delete(idx.exclusive, id)
}

// detach removes id from the tree, keeping its exclusive flag.
func (idx *Index) detach(id ID) {
	startNode, endNode := idx.startNodes[id], idx.endNodes[id]

	for n := startNode; n != nilNode; n = idx.nd(n).parent {
		idx.nd(n).rightIDs.remove(id)
	}

	for n := endNode; n != nilNode; n = idx.nd(n).parent {
		idx.nd(n).leftIDs.remove(id)
	}

	idx.nd(startNode).startIDs.remove(id)
	idx.nd(endNode).endIDs.remove(id)

	if !idx.nd(startNode).isEndpoint() {
		idx.deleteNode(startNode)
	}

	if endNode != startNode && !idx.nd(endNode).isEndpoint() {
		idx.deleteNode(endNode)
	}

	delete(idx.startNodes, id)
	delete(idx.endNodes, id)
}

func (idx *Index) mustNode(nodes map[ID]uint32, id ID) uint32 {
	n, ok := nodes[id]
	if !ok {
		panic(fmt.Sprintf("markerindex: unknown marker %d", id))
	}

	return n
}

// Start returns the start of id. It panics for unknown ids.
func (idx *Index) Start(id ID) point.Point {
	return idx.position(idx.mustNode(idx.startNodes, id))
}

// End returns the end of id. It panics for unknown ids.
func (idx *Index) End(id ID) point.Point {
	return idx.position(idx.mustNode(idx.endNodes, id))
}

// Range returns the range of id. It panics for unknown ids.
func (idx *Index) Range(id ID) point.Range {
	return point.Range{Start: idx.Start(id), End: idx.End(id)}
}

// Compare orders markers by start, then by end descending so that enclosing
// markers sort before the markers they enclose.
func (idx *Index) Compare(a, b ID) int {
	if c := idx.Start(a).Compare(idx.Start(b)); c != 0 {
		return c
	}

	return idx.End(b).Compare(idx.End(a))
}

// Dump returns the range of every marker.
func (idx *Index) Dump() map[ID]point.Range {
	result := make(map[ID]point.Range, idx.Len())

	c := idx.cursor()
	if !c.seek(point.Zero) {
		return result
	}

	for ; c.node != nilNode; c.moveToSuccessor() {
		n := idx.nd(c.node)

		for _, id := range n.startIDs {
			r := result[id]
			r.Start = c.pos
			result[id] = r
		}

		for _, id := range n.endIDs {
			r := result[id]
			r.End = c.pos
			result[id] = r
		}
	}

	return result
}

// Copy returns an independent index with the same markers, flags and
// random source state.
func (idx *Index) Copy() *Index {
	nodes := make([]node, len(idx.nodes))
	for i, n := range idx.nodes {
		n.leftIDs = slices.Clone(n.leftIDs)
		n.rightIDs = slices.Clone(n.rightIDs)
		n.startIDs = slices.Clone(n.startIDs)
		n.endIDs = slices.Clone(n.endIDs)
		nodes[i] = n
	}

	pcg := *idx.pcg

	return &Index{
		nodes:      nodes,
		gaps:       slices.Clone(idx.gaps),
		root:       idx.root,
		pcg:        &pcg,
		rng:        rand.New(&pcg),
		startNodes: maps.Clone(idx.startNodes),
		endNodes:   maps.Clone(idx.endNodes),
		exclusive:  maps.Clone(idx.exclusive),
	}
}

// position resolves the absolute position of a node by walking to the root.
func (idx *Index) position(n uint32) point.Point {
	pos := idx.nd(n).leftExtent

	for cur := n; ; {
		parent := idx.nd(cur).parent
		if parent == nilNode {
			return pos
		}

		if idx.nd(parent).right == cur {
			pos = idx.nd(parent).leftExtent.Traverse(pos)
		}

		cur = parent
	}
}
