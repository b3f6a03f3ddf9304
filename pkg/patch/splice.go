package patch

import (
	"github.com/Sumatoshi-tech/editcore/pkg/point"
	"github.com/Sumatoshi-tech/editcore/pkg/text"
)

// Splice records that, at start in the new coordinate space, deletionExtent
// worth of content was replaced by insertionExtent worth of content.
//
// Hunks touched by the edited region are merged into a single hunk. Hunks
// after the region keep their old coordinates while their new coordinates
// shift with the edit. deletedText and insertedText may be nil when the caller
// does not retain text; deletedTextSize is then used to track the size of the
// replaced text.
//
// Splice returns false, without changing any hunk, when deletedText cannot be
// reconciled with the edited region.
func (p *Patch) Splice(
	start, deletionExtent, insertionExtent point.Point,
	deletedText, insertedText *text.Text,
	deletedTextSize uint32,
) bool {
	if deletionExtent.IsZero() && insertionExtent.IsZero() {
		return true
	}

	deletionEnd := start.Traverse(deletionExtent)
	insertionEnd := start.Traverse(insertionExtent)

	isolated := p.isolate(newSpace, start, deletionEnd, p.mergesAdjacentChanges)
	affected := p.collect(isolated.slot, isolated.anchor)

	merged := hunk{
		newStart: start,
		newEnd:   insertionEnd,
		oldStart: isolated.mapGap(start),
		oldEnd:   isolated.mapGap(deletionEnd),
	}
	regionEnd := deletionEnd

	if len(affected) > 0 {
		first, last := affected[0], affected[len(affected)-1]

		if first.start[newSpace].LessEq(start) {
			merged.newStart = first.start[newSpace]
			merged.oldStart = first.start[oldSpace]
		}

		if deletionEnd.LessEq(last.end[newSpace]) {
			merged.newEnd = insertionEnd.Traverse(last.end[newSpace].Traversal(deletionEnd))
			merged.oldEnd = last.end[oldSpace]
			regionEnd = last.end[newSpace]
		} else {
			merged.oldEnd = last.end[oldSpace].Traverse(deletionEnd.Traversal(last.end[newSpace]))
		}
	}

	oldText, ok := p.composeOldText(affected, start, deletionEnd, deletedText)
	if !ok {
		return false
	}

	merged.oldText = oldText
	merged.newText = p.composeNewText(affected, start, deletionEnd, insertedText)
	merged.oldTextSize = p.composeOldTextSize(affected, start, deletionEnd, oldText, deletedText, deletedTextSize)

	switch {
	case merged.newText != nil:
		merged.newTextSize = merged.newText.SizeUint32()
	case insertedText != nil:
		merged.newTextSize = insertedText.SizeUint32()
	}

	for _, l := range affected {
		p.alloc.free(l.idx)
	}

	p.changeCount -= len(affected)

	idx := p.attach(isolated, merged)

	if isolated.after != nilNode {
		shifted := merged.newEnd.Traverse(isolated.afterStart[newSpace].Traversal(regionEnd))
		p.nd(isolated.after).distance[newSpace] = shifted.Traversal(isolated.anchor[newSpace])
	}

	isolated.refresh(p)

	if idx != nilNode {
		p.splay(idx, nilNode)
	}

	return true
}

// SpliceOld rebases the patch onto an old document that was itself edited:
// at start in the old coordinate space, deletionExtent was replaced by
// insertionExtent. Hunks after the region shift in both spaces. Hunks that
// intersect the deleted region are discarded.
func (p *Patch) SpliceOld(start, deletionExtent, insertionExtent point.Point) {
	if deletionExtent.IsZero() && insertionExtent.IsZero() {
		return
	}

	deletionEnd := start.Traverse(deletionExtent)
	insertionEnd := start.Traverse(insertionExtent)

	isolated := p.isolate(oldSpace, start, deletionEnd, false)

	removed := p.collect(isolated.slot, isolated.anchor)
	for _, l := range removed {
		p.alloc.free(l.idx)
	}

	p.changeCount -= len(removed)
	p.attach(isolated, hunk{})

	if isolated.after != nilNode {
		shifted := insertionEnd.Traverse(isolated.afterStart[oldSpace].Traversal(deletionEnd))
		gap := shifted.Traversal(isolated.anchor[oldSpace])

		n := p.nd(isolated.after)
		n.distance[oldSpace] = gap
		n.distance[newSpace] = gap
	}

	isolated.refresh(p)
}

// region is the result of isolating the hunks that an edit interacts with:
// before is the root, after is its right child, and slot is the subtree
// holding exactly the affected hunks.
type region struct {
	before, after uint32
	slot          uint32

	// anchor is the end of before, the left ancestor of every affected hunk.
	anchor     [2]point.Point
	afterStart [2]point.Point
	space      int
}

// isolate splays the last hunk ending before [start, end] to the root and the
// first hunk starting after it beneath. With touching set, hunks that merely
// touch the range count as affected; ties otherwise resolve to "before".
func (p *Patch) isolate(space int, start, end point.Point, touching bool) region {
	r := region{space: space}

	before, hasBefore := p.findLast(p.root, r.anchor, func(l located) bool {
		if touching {
			return l.end[space].Less(start)
		}

		return l.end[space].LessEq(start)
	})

	from := p.root

	if hasBefore {
		p.splay(before.idx, nilNode)

		r.before = before.idx
		r.anchor = before.end
		from = p.nd(before.idx).right
	}

	after, hasAfter := p.findFirst(from, r.anchor, func(l located) bool {
		if touching {
			return end.Less(l.start[space])
		}

		return end.LessEq(l.start[space])
	})

	switch {
	case hasAfter:
		p.splay(after.idx, r.before)

		r.after = after.idx
		r.afterStart = after.start
		r.slot = p.nd(after.idx).left
	case hasBefore:
		r.slot = p.nd(before.idx).right
	default:
		r.slot = p.root
	}

	return r
}

// mapGap translates a position of the region's space lying in the unchanged
// text after before into the other space.
func (r region) mapGap(pos point.Point) point.Point {
	other := 1 - r.space

	return r.anchor[other].Traverse(pos.Traversal(r.anchor[r.space]))
}

// refresh recomputes subtree text sizes along the path above the slot.
func (r region) refresh(p *Patch) {
	if r.after != nilNode {
		p.updateSubtreeTextSize(r.after)
	}

	if r.before != nilNode {
		p.updateSubtreeTextSize(r.before)
	}
}

type hunk struct {
	oldStart, oldEnd point.Point
	newStart, newEnd point.Point

	oldText, newText         *text.Text
	oldTextSize, newTextSize uint32
}

// attach installs h in the region's slot and returns its index. A hunk with
// no extent in either space leaves the slot empty.
func (p *Patch) attach(r region, h hunk) uint32 {
	var idx uint32

	if h.oldStart != h.oldEnd || h.newStart != h.newEnd {
		idx = p.alloc.malloc()
		n := p.nd(idx)
		n.distance = [2]point.Point{
			h.oldStart.Traversal(r.anchor[oldSpace]),
			h.newStart.Traversal(r.anchor[newSpace]),
		}
		n.extent = [2]point.Point{h.oldEnd.Traversal(h.oldStart), h.newEnd.Traversal(h.newStart)}
		n.text = [2]*text.Text{h.oldText, h.newText}
		n.textSize = [2]uint32{h.oldTextSize, h.newTextSize}
		n.subtreeTextSize = n.textSize
		p.changeCount++
	}

	var parent uint32

	switch {
	case r.after != nilNode:
		parent = r.after
		p.nd(r.after).left = idx
	case r.before != nilNode:
		parent = r.before
		p.nd(r.before).right = idx
	default:
		p.root = idx
	}

	if idx != nilNode {
		p.nd(idx).parent = parent
	}

	return idx
}

// collect lists the hunks of a subtree in order.
func (p *Patch) collect(from uint32, anchor [2]point.Point) []located {
	var result []located

	for l := range p.inorder(from, anchor, [2]uint32{}, nil) {
		result = append(result, l)
	}

	return result
}

// composeOldText splices deletedText into the old texts of the affected hunks.
// The result is nil when any piece is unknown; ok is false when a gap between
// hunks cannot be addressed inside deletedText.
func (p *Patch) composeOldText(affected []located, start, end point.Point, deletedText *text.Text) (*text.Text, bool) {
	if deletedText == nil {
		return nil, true
	}

	if deletedText.Extent() != end.Traversal(start) {
		return nil, false
	}

	pieces := make([]*text.Text, 0, 2*len(affected)+1)
	known := true
	cursor := start

	for _, l := range affected {
		if cursor.Less(l.start[newSpace]) {
			gap, ok := deletedText.Slice(cursor.Traversal(start), l.start[newSpace].Traversal(start))
			if !ok {
				return nil, false
			}

			pieces = append(pieces, gap)
		}

		if old := p.nd(l.idx).text[oldSpace]; old != nil {
			pieces = append(pieces, old)
		} else {
			known = false
		}

		cursor = point.Max(cursor, l.end[newSpace])
	}

	if cursor.Less(end) {
		gap, ok := deletedText.Slice(cursor.Traversal(start), end.Traversal(start))
		if !ok {
			return nil, false
		}

		pieces = append(pieces, gap)
	}

	if !known {
		return nil, true
	}

	return text.Concat(pieces...), true
}

// composeNewText surrounds insertedText with the parts of the first and last
// affected hunks that lie outside the deleted range.
func (p *Patch) composeNewText(affected []located, start, end point.Point, insertedText *text.Text) *text.Text {
	if insertedText == nil {
		return nil
	}

	if len(affected) == 0 {
		return insertedText
	}

	pieces := []*text.Text{insertedText}

	first, last := affected[0], affected[len(affected)-1]

	if first.start[newSpace].Less(start) {
		current := p.nd(first.idx).text[newSpace]
		if current == nil {
			return nil
		}

		prefix, ok := current.Prefix(start.Traversal(first.start[newSpace]))
		if !ok {
			return nil
		}

		pieces = append([]*text.Text{prefix}, pieces...)
	}

	if end.Less(last.end[newSpace]) {
		current := p.nd(last.idx).text[newSpace]
		if current == nil {
			return nil
		}

		suffix, ok := current.Suffix(end.Traversal(last.start[newSpace]))
		if !ok {
			return nil
		}

		pieces = append(pieces, suffix)
	}

	return text.Concat(pieces...)
}

// composeOldTextSize estimates the size of the merged hunk's old text when the
// text itself is unknown: the deleted bytes, minus the bytes that earlier
// hunks inserted into the deleted range, plus what those hunks replaced.
func (p *Patch) composeOldTextSize(
	affected []located, start, end point.Point,
	oldText, deletedText *text.Text, deletedTextSize uint32,
) uint32 {
	if oldText != nil {
		return oldText.SizeUint32()
	}

	size := int64(deletedTextSize)
	if deletedText != nil {
		size = int64(deletedText.Size())
	}

	for _, l := range affected {
		n := p.nd(l.idx)
		size += int64(n.textSize[oldSpace])

		current := n.text[newSpace]
		if current == nil {
			continue
		}

		from := point.Max(start, l.start[newSpace]).Traversal(l.start[newSpace])
		to := point.Min(end, l.end[newSpace])

		if to.Less(l.start[newSpace]) {
			continue
		}

		toRel := to.Traversal(l.start[newSpace])
		if from.LessEq(toRel) {
			size -= int64(current.OffsetForPosition(toRel) - current.OffsetForPosition(from))
		}
	}

	return uint32(max(0, min(size, int64(^uint32(0)))))
}
