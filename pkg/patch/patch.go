// Package patch implements Patch, an ordered and mergeable map from old
// document coordinates to new document coordinates.
//
// A Patch holds non-overlapping hunks ("changes") in a splay tree. Each node
// stores its start as a distance from the end of its nearest left ancestor, so
// shifting every hunk after an edit only touches the nodes on one path. The
// tree lives in an index-addressed arena; rotations and splaying are plain
// index manipulation.
package patch

import (
	"fmt"

	"github.com/Sumatoshi-tech/editcore/pkg/point"
	"github.com/Sumatoshi-tech/editcore/pkg/text"
)

// Coordinate spaces index the per-space arrays of a node.
const (
	oldSpace = 0
	newSpace = 1
)

// Change is one hunk of a Patch.
type Change struct {
	OldStart point.Point `json:"oldStart"`
	OldEnd   point.Point `json:"oldEnd"`
	NewStart point.Point `json:"newStart"`
	NewEnd   point.Point `json:"newEnd"`

	// OldText and NewText are nil when the payload is unknown.
	OldText *text.Text `json:"oldText"`
	NewText *text.Text `json:"newText"`

	// PrecedingOldTextSize and PrecedingNewTextSize sum the tracked text sizes
	// of every earlier hunk.
	PrecedingOldTextSize uint32 `json:"precedingOldTextSize"`
	PrecedingNewTextSize uint32 `json:"precedingNewTextSize"`

	// OldTextSize is the byte length of the replaced text, tracked even when
	// OldText itself is not retained.
	OldTextSize uint32 `json:"oldTextSize"`
}

// OldExtent is the traversal covered by the hunk in the old space.
func (c Change) OldExtent() point.Point {
	return c.OldEnd.Traversal(c.OldStart)
}

// NewExtent is the traversal covered by the hunk in the new space.
func (c Change) NewExtent() point.Point {
	return c.NewEnd.Traversal(c.NewStart)
}

// String formats c for debugging.
func (c Change) String() string {
	return fmt.Sprintf("old: %v - %v, new: %v - %v", c.OldStart, c.OldEnd, c.NewStart, c.NewEnd)
}

type node struct {
	parent, left, right uint32

	// distance runs from the end of the nearest left ancestor (or the origin)
	// to the start of this hunk.
	distance [2]point.Point
	extent   [2]point.Point

	text            [2]*text.Text
	textSize        [2]uint32
	subtreeTextSize [2]uint32
}

// Patch is a set of non-overlapping hunks ordered identically in both
// coordinate spaces. The zero value is not usable; call New.
//
// A Patch is not safe for concurrent use. Hand background readers a Copy.
type Patch struct {
	alloc                 allocator
	root                  uint32
	changeCount           int
	mergesAdjacentChanges bool
}

// Option configures a Patch.
type Option func(*Patch)

// WithMergeAdjacentChanges controls whether a splice that merely touches an
// existing hunk merges with it. It defaults to true. Display layers that keep
// folds and soft wraps as separate hunks turn it off.
func WithMergeAdjacentChanges(merge bool) Option {
	return func(p *Patch) {
		p.mergesAdjacentChanges = merge
	}
}

// New creates an empty Patch.
func New(opts ...Option) *Patch {
	p := &Patch{
		alloc:                 newAllocator(),
		mergesAdjacentChanges: true,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// MergesAdjacentChanges reports the merge mode chosen at construction.
func (p *Patch) MergesAdjacentChanges() bool {
	return p.mergesAdjacentChanges
}

// ChangeCount returns the number of hunks.
func (p *Patch) ChangeCount() int {
	return p.changeCount
}

// Clear removes every hunk.
func (p *Patch) Clear() {
	p.alloc = newAllocator()
	p.root = nilNode
	p.changeCount = 0
}

// Copy returns an independent Patch with the same hunks. Text payloads are
// immutable and shared.
func (p *Patch) Copy() *Patch {
	return &Patch{
		alloc:                 p.alloc.clone(),
		root:                  p.root,
		changeCount:           p.changeCount,
		mergesAdjacentChanges: p.mergesAdjacentChanges,
	}
}

// Invert returns the patch mapping new coordinates back to old ones.
func (p *Patch) Invert() *Patch {
	inverted := p.Copy()

	for idx := 1; idx < len(inverted.alloc.storage); idx++ {
		n := &inverted.alloc.storage[idx]
		n.distance[oldSpace], n.distance[newSpace] = n.distance[newSpace], n.distance[oldSpace]
		n.extent[oldSpace], n.extent[newSpace] = n.extent[newSpace], n.extent[oldSpace]
		n.text[oldSpace], n.text[newSpace] = n.text[newSpace], n.text[oldSpace]
		n.textSize[oldSpace], n.textSize[newSpace] = n.textSize[newSpace], n.textSize[oldSpace]
		n.subtreeTextSize[oldSpace], n.subtreeTextSize[newSpace] = n.subtreeTextSize[newSpace], n.subtreeTextSize[oldSpace]
	}

	return inverted
}

// Bounds returns a change spanning from the start of the first hunk to the end
// of the last one, without text. ok is false for an empty patch.
func (p *Patch) Bounds() (Change, bool) {
	if p.root == nilNode {
		return Change{}, false
	}

	first := p.root
	for p.nd(first).left != nilNode {
		first = p.nd(first).left
	}

	var anchor [2]point.Point

	last := p.root

	for {
		n := p.nd(last)
		if n.right == nilNode {
			break
		}

		for s := range anchor {
			anchor[s] = anchor[s].Traverse(n.distance[s]).Traverse(n.extent[s])
		}

		last = n.right
	}

	firstNode, lastNode := p.nd(first), p.nd(last)

	return Change{
		OldStart: firstNode.distance[oldSpace],
		NewStart: firstNode.distance[newSpace],
		OldEnd:   anchor[oldSpace].Traverse(lastNode.distance[oldSpace]).Traverse(lastNode.extent[oldSpace]),
		NewEnd:   anchor[newSpace].Traverse(lastNode.distance[newSpace]).Traverse(lastNode.extent[newSpace]),
	}, true
}

func (p *Patch) nd(idx uint32) *node {
	return &p.alloc.storage[idx]
}

func (p *Patch) updateSubtreeTextSize(idx uint32) {
	n := p.nd(idx)

	for s := range n.subtreeTextSize {
		size := n.textSize[s]

		if n.left != nilNode {
			size += p.alloc.storage[n.left].subtreeTextSize[s]
		}

		if n.right != nilNode {
			size += p.alloc.storage[n.right].subtreeTextSize[s]
		}

		n.subtreeTextSize[s] = size
	}
}

// located is a node together with its absolute coordinates.
type located struct {
	idx       uint32
	start     [2]point.Point
	end       [2]point.Point
	preceding [2]uint32
}

// locate resolves idx given the end of its left ancestor and the text size of
// every hunk before its subtree.
func (p *Patch) locate(idx uint32, anchor [2]point.Point, base [2]uint32) located {
	n := p.nd(idx)
	l := located{idx: idx}

	for s := range l.start {
		l.start[s] = anchor[s].Traverse(n.distance[s])
		l.end[s] = l.start[s].Traverse(n.extent[s])
		l.preceding[s] = base[s]

		if n.left != nilNode {
			l.preceding[s] += p.nd(n.left).subtreeTextSize[s]
		}
	}

	return l
}

// following returns the anchor and base for the right subtree of l.
func (p *Patch) following(l located) ([2]point.Point, [2]uint32) {
	n := p.nd(l.idx)

	var base [2]uint32
	for s := range base {
		base[s] = l.preceding[s] + n.textSize[s]
	}

	return l.end, base
}

// findLast returns the last node under from for which pred holds. pred must
// hold for a prefix of the in-order sequence.
func (p *Patch) findLast(from uint32, anchor [2]point.Point, pred func(located) bool) (located, bool) {
	var (
		best  located
		found bool
		base  [2]uint32
	)

	for cur := from; cur != nilNode; {
		l := p.locate(cur, anchor, base)
		if pred(l) {
			best, found = l, true
			anchor, base = p.following(l)
			cur = p.nd(cur).right
		} else {
			cur = p.nd(cur).left
		}
	}

	return best, found
}

// findFirst returns the first node under from for which pred holds. pred must
// hold for a suffix of the in-order sequence.
func (p *Patch) findFirst(from uint32, anchor [2]point.Point, pred func(located) bool) (located, bool) {
	var (
		best  located
		found bool
		base  [2]uint32
	)

	for cur := from; cur != nilNode; {
		l := p.locate(cur, anchor, base)
		if pred(l) {
			best, found = l, true
			cur = p.nd(cur).left
		} else {
			anchor, base = p.following(l)
			cur = p.nd(cur).right
		}
	}

	return best, found
}

func (p *Patch) change(l located) Change {
	n := p.nd(l.idx)

	return Change{
		OldStart:             l.start[oldSpace],
		OldEnd:               l.end[oldSpace],
		NewStart:             l.start[newSpace],
		NewEnd:               l.end[newSpace],
		OldText:              n.text[oldSpace],
		NewText:              n.text[newSpace],
		PrecedingOldTextSize: l.preceding[oldSpace],
		PrecedingNewTextSize: l.preceding[newSpace],
		OldTextSize:          n.textSize[oldSpace],
	}
}
