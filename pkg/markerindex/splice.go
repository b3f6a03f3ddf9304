package markerindex

import (
	"errors"
	"fmt"
	"math"

	"github.com/Sumatoshi-tech/editcore/pkg/point"
)

// Relation classifies how an edit related to a marker.
type Relation int

// Relations, from least to most specific.
const (
	Disjoint Relation = iota
	Touch
	Inside
	Overlap
	Surround
)

var relationNames = [...]string{"disjoint", "touch", "inside", "overlap", "surround"}

func (r Relation) String() string {
	if r < 0 || int(r) >= len(relationNames) {
		return fmt.Sprintf("Relation(%d)", int(r))
	}

	return relationNames[r]
}

// Strategy is an invalidation policy: the weakest relation that invalidates
// a marker.
type Strategy int

// Strategies, from most to least permissive.
const (
	InvalidateNever Strategy = iota
	InvalidateSurround
	InvalidateOverlap
	InvalidateInside
	InvalidateTouch
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognized names.
var ErrUnknownStrategy = errors.New("unknown invalidation strategy")

var strategyNames = [...]string{"never", "surround", "overlap", "inside", "touch"}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}

	return strategyNames[s]
}

// MarshalText encodes the strategy by name.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a strategy name.
func (s *Strategy) UnmarshalText(data []byte) error {
	parsed, err := ParseStrategy(string(data))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseStrategy converts a strategy name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for i, candidate := range strategyNames {
		if candidate == name {
			return Strategy(i), nil
		}
	}

	return InvalidateNever, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// SpliceResult holds the markers an edit related to, each in exactly one set.
type SpliceResult struct {
	Touch    Set `json:"touch"`
	Inside   Set `json:"inside"`
	Overlap  Set `json:"overlap"`
	Surround Set `json:"surround"`
}

// Relation returns how the edit related to id.
func (r SpliceResult) Relation(id ID) Relation {
	switch {
	case r.Surround.Contains(id):
		return Surround
	case r.Overlap.Contains(id):
		return Overlap
	case r.Inside.Contains(id):
		return Inside
	case r.Touch.Contains(id):
		return Touch
	default:
		return Disjoint
	}
}

// Invalidated returns the markers that strategy invalidates.
func (r SpliceResult) Invalidated(strategy Strategy) Set {
	var result Set

	if strategy >= InvalidateSurround {
		result = result.Union(r.Surround)
	}

	if strategy >= InvalidateOverlap {
		result = result.Union(r.Overlap)
	}

	if strategy >= InvalidateInside {
		result = result.Union(r.Inside)
	}

	if strategy >= InvalidateTouch {
		result = result.Union(r.Touch)
	}

	return result
}

// Len is the total number of markers the edit related to.
func (r SpliceResult) Len() int {
	return r.Touch.Len() + r.Inside.Len() + r.Overlap.Len() + r.Surround.Len()
}

// edit describes the replacement of [start, oldEnd] by content ending at newEnd.
type edit struct {
	start, oldEnd, newEnd point.Point
}

func (e edit) insertion() bool {
	return e.start == e.oldEnd
}

func (e edit) contains(p point.Point) bool {
	return e.start.LessEq(p) && p.LessEq(e.oldEnd)
}

func (e edit) strictlyInside(p point.Point) bool {
	return e.start.Less(p) && p.Less(e.oldEnd)
}

func (e edit) classify(r point.Range, exclusive bool) Relation {
	startInside, endInside := e.strictlyInside(r.Start), e.strictlyInside(r.End)

	switch {
	case startInside && endInside:
		return Surround
	case startInside || endInside:
		return Overlap
	case r.Start.LessEq(e.start) && e.oldEnd.LessEq(r.End) &&
		!(e.insertion() && exclusive && (r.Start == e.start || r.End == e.start)):
		return Inside
	default:
		return Touch
	}
}

// shift maps a position outside the edited region to its position after
// the edit.
func (e edit) shift(p point.Point) point.Point {
	if p.Less(e.start) {
		return p
	}

	return e.newEnd.Traverse(p.Traversal(e.oldEnd))
}

// relocate returns the range of a marker with an endpoint in [start, oldEnd]
// after the edit.
func (e edit) relocate(r point.Range, exclusive bool) point.Range {
	if e.insertion() {
		result := point.Range{Start: e.shift(r.Start), End: e.shift(r.End)}

		switch {
		case exclusive && r.Start == e.start && r.End == e.start:
			return point.Range{Start: e.newEnd, End: e.newEnd}
		case r.Start == e.start && exclusive:
			result.Start = e.newEnd
		case r.Start == e.start:
			result.Start = e.start
		}

		if r.End == e.start && exclusive {
			result.End = e.start
		}

		return result
	}

	return point.Range{Start: e.move(r.Start, exclusive), End: e.move(r.End, exclusive)}
}

func (e edit) move(p point.Point, exclusive bool) point.Point {
	switch {
	case p.LessEq(e.start):
		return p
	case e.oldEnd.LessEq(p):
		return e.shift(p)
	case exclusive:
		return e.start
	default:
		return e.newEnd
	}
}

// Splice updates the index for the replacement of oldExtent worth of
// content at start by newExtent worth of content and reports how the edit
// related to every marker it touched.
//
// Boundaries after the edited region shift with it. Markers with an endpoint
// inside the region are moved: exclusive markers collapse toward the start of
// the new content, inclusive ones toward its end.
func (idx *Index) Splice(start, oldExtent, newExtent point.Point) SpliceResult {
	var result SpliceResult

	if idx.root == nilNode || (oldExtent.IsZero() && newExtent.IsZero()) {
		return result
	}

	e := edit{start: start, oldEnd: start.Traverse(oldExtent), newEnd: start.Traverse(newExtent)}

	classes := map[Relation]collector{Touch: {}, Inside: {}, Overlap: {}, Surround: {}}

	type relocation struct {
		id ID
		r  point.Range
	}

	var moved []relocation

	for id := range idx.FindIntersecting(e.start, e.oldEnd).All() {
		r := idx.Range(id)
		exclusive := idx.IsExclusive(id)

		classes[e.classify(r, exclusive)][id] = struct{}{}

		if e.contains(r.Start) || e.contains(r.End) {
			moved = append(moved, relocation{id: id, r: e.relocate(r, exclusive)})
		}
	}

	result.Touch = setOf(classes[Touch])
	result.Inside = setOf(classes[Inside])
	result.Overlap = setOf(classes[Overlap])
	result.Surround = setOf(classes[Surround])

	for _, m := range moved {
		idx.detach(m.id)
	}

	idx.shiftAfter(e)

	for _, m := range moved {
		idx.attach(m.id, m.r.Start, m.r.End)
	}

	return result
}

// shiftAfter moves every boundary after the edited region. No boundary may
// lie inside the region. A temporary boundary at the old end of the region is
// raised to the root, where its absolute position can be rewritten, and then
// removed again.
func (idx *Index) shiftAfter(e edit) {
	if idx.root == nilNode || e.oldEnd == e.newEnd {
		return
	}

	boundary := idx.cursor().insertBoundary(e.oldEnd)
	doAssert(!idx.nd(boundary).isEndpoint())

	idx.nd(boundary).priority = math.MinInt32
	idx.bubbleUp(boundary)
	doAssert(idx.root == boundary)

	idx.nd(boundary).leftExtent = e.newEnd
	idx.deleteNode(boundary)
}

func doAssert(condition bool) {
	if !condition {
		panic("markerindex: internal invariant violated")
	}
}
