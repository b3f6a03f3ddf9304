package patch

import (
	"iter"

	"github.com/Sumatoshi-tech/editcore/pkg/point"
)

type frame struct {
	idx    uint32
	anchor [2]point.Point
	base   [2]uint32
}

// inorder walks the subtree rooted at from in position order. When keep is
// not nil the walk starts at the first node for which it holds; keep must
// hold for a suffix of the sequence.
func (p *Patch) inorder(from uint32, anchor [2]point.Point, base [2]uint32, keep func(located) bool) iter.Seq[located] {
	return func(yield func(located) bool) {
		var stack []frame

		for cur := from; cur != nilNode; {
			l := p.locate(cur, anchor, base)
			if keep == nil || keep(l) {
				stack = append(stack, frame{idx: cur, anchor: anchor, base: base})
				cur = p.nd(cur).left
			} else {
				anchor, base = p.following(l)
				cur = p.nd(cur).right
			}
		}

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			l := p.locate(top.idx, top.anchor, top.base)
			if !yield(l) {
				return
			}

			nextAnchor, nextBase := p.following(l)
			for cur := p.nd(top.idx).right; cur != nilNode; cur = p.nd(cur).left {
				stack = append(stack, frame{idx: cur, anchor: nextAnchor, base: nextBase})
			}
		}
	}
}

// All yields every hunk in position order. The sequence must not be
// interleaved with mutations of p.
func (p *Patch) All() iter.Seq[Change] {
	return func(yield func(Change) bool) {
		for l := range p.inorder(p.root, [2]point.Point{}, [2]uint32{}, nil) {
			if !yield(p.change(l)) {
				return
			}
		}
	}
}

// Changes returns every hunk in position order.
func (p *Patch) Changes() []Change {
	result := make([]Change, 0, p.changeCount)
	for change := range p.All() {
		result = append(result, change)
	}

	return result
}

// rangeScan yields the hunks whose range in space intersects [start, end].
// Exclusive scans require a shared interior; inclusive scans accept touching
// endpoints.
func (p *Patch) rangeScan(space int, start, end point.Point, inclusive bool) iter.Seq[located] {
	return func(yield func(located) bool) {
		keep := func(l located) bool {
			if inclusive {
				return start.LessEq(l.end[space])
			}

			return start.Less(l.end[space])
		}

		for l := range p.inorder(p.root, [2]point.Point{}, [2]uint32{}, keep) {
			if inclusive && end.Less(l.start[space]) || !inclusive && end.LessEq(l.start[space]) {
				return
			}

			if !yield(l) {
				return
			}
		}
	}
}

func (p *Patch) changesInRange(space int, start, end point.Point, inclusive bool) []located {
	var result []located
	for l := range p.rangeScan(space, start, end, inclusive) {
		result = append(result, l)
	}

	return result
}

func (p *Patch) changes(found []located) []Change {
	result := make([]Change, len(found))
	for i, l := range found {
		result[i] = p.change(l)
	}

	return result
}

// ChangesInOldRange returns the hunks whose old range overlaps the interior of [start, end].
func (p *Patch) ChangesInOldRange(start, end point.Point) []Change {
	return p.changes(p.changesInRange(oldSpace, start, end, false))
}

// ChangesInNewRange returns the hunks whose new range overlaps the interior of [start, end].
func (p *Patch) ChangesInNewRange(start, end point.Point) []Change {
	return p.changes(p.changesInRange(newSpace, start, end, false))
}

// GrabChangesInOldRange is ChangesInOldRange for repeated local access: the
// first and last matching hunks are splayed to the top of the tree.
// With inclusive set, hunks touching the range also match.
func (p *Patch) GrabChangesInOldRange(start, end point.Point, inclusive bool) []Change {
	return p.grab(p.changesInRange(oldSpace, start, end, inclusive))
}

// GrabChangesInNewRange is the new-space counterpart of GrabChangesInOldRange.
func (p *Patch) GrabChangesInNewRange(start, end point.Point, inclusive bool) []Change {
	return p.grab(p.changesInRange(newSpace, start, end, inclusive))
}

func (p *Patch) grab(found []located) []Change {
	result := p.changes(found)

	if len(found) > 0 {
		last := found[len(found)-1].idx
		p.splay(last, nilNode)

		if first := found[0].idx; first != last {
			p.splay(first, last)
		}
	}

	return result
}

func (p *Patch) startingBefore(space int, position point.Point) (located, bool) {
	return p.findLast(p.root, [2]point.Point{}, func(l located) bool {
		return l.start[space].LessEq(position)
	})
}

func (p *Patch) endingAfter(space int, position point.Point, exclusive bool) (located, bool) {
	return p.findFirst(p.root, [2]point.Point{}, func(l located) bool {
		if exclusive {
			return position.Less(l.end[space])
		}

		return position.LessEq(l.end[space])
	})
}

// ChangeStartingBeforeOldPosition returns the last hunk starting at or before position.
func (p *Patch) ChangeStartingBeforeOldPosition(position point.Point) (Change, bool) {
	return p.lookup(p.startingBefore(oldSpace, position))
}

// ChangeStartingBeforeNewPosition returns the last hunk starting at or before position.
func (p *Patch) ChangeStartingBeforeNewPosition(position point.Point) (Change, bool) {
	return p.lookup(p.startingBefore(newSpace, position))
}

// ChangeEndingAfterNewPosition returns the first hunk ending at or after position.
func (p *Patch) ChangeEndingAfterNewPosition(position point.Point) (Change, bool) {
	return p.lookup(p.endingAfter(newSpace, position, false))
}

// GrabChangeStartingBeforeOldPosition is ChangeStartingBeforeOldPosition,
// splaying the hunk found to the root.
func (p *Patch) GrabChangeStartingBeforeOldPosition(position point.Point) (Change, bool) {
	return p.grabOne(p.startingBefore(oldSpace, position))
}

// GrabChangeStartingBeforeNewPosition is ChangeStartingBeforeNewPosition,
// splaying the hunk found to the root.
func (p *Patch) GrabChangeStartingBeforeNewPosition(position point.Point) (Change, bool) {
	return p.grabOne(p.startingBefore(newSpace, position))
}

// GrabChangeEndingAfterNewPosition returns the first hunk ending after
// position, or at it unless exclusive is set, and splays it to the root.
func (p *Patch) GrabChangeEndingAfterNewPosition(position point.Point, exclusive bool) (Change, bool) {
	return p.grabOne(p.endingAfter(newSpace, position, exclusive))
}

func (p *Patch) lookup(l located, ok bool) (Change, bool) {
	if !ok {
		return Change{}, false
	}

	return p.change(l), true
}

func (p *Patch) grabOne(l located, ok bool) (Change, bool) {
	if !ok {
		return Change{}, false
	}

	change := p.change(l)
	p.splay(l.idx, nilNode)

	return change, true
}

// TranslateOldPosition maps a position of the old document into the new one.
// Positions inside a hunk map to the start of its new range.
func (p *Patch) TranslateOldPosition(position point.Point) point.Point {
	change, ok := p.ChangeStartingBeforeOldPosition(position)
	if !ok {
		return position
	}

	if position.Less(change.OldEnd) {
		return change.NewStart
	}

	return change.NewEnd.Traverse(position.Traversal(change.OldEnd))
}

// TranslateNewPosition maps a position of the new document into the old one.
// Positions inside a hunk map to the start of its old range.
func (p *Patch) TranslateNewPosition(position point.Point) point.Point {
	change, ok := p.ChangeStartingBeforeNewPosition(position)
	if !ok {
		return position
	}

	if position.Less(change.NewEnd) {
		return change.OldStart
	}

	return change.OldEnd.Traverse(position.Traversal(change.NewEnd))
}
