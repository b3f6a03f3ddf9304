// Package point provides row/column coordinates over line-oriented text and
// the traversal arithmetic used to compose position deltas across line breaks.
package point

import (
	"fmt"
	"math"
)

// Zero is the origin of every document.
var Zero = Point{}

// Infinity compares greater than every addressable position. It is a bound for
// comparisons only and must never be traversed.
var Infinity = Point{Row: math.MaxUint32, Column: math.MaxUint32}

// Point is a position in a document. Column is a byte offset within the row.
type Point struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

// New returns the point at row, column.
func New(row, column uint32) Point {
	return Point{Row: row, Column: column}
}

// Compare returns -1, 0 or +1 depending on whether p sorts before, at, or after other.
// Rows are compared first.
func (p Point) Compare(other Point) int {
	switch {
	case p.Row < other.Row:
		return -1
	case p.Row > other.Row:
		return 1
	case p.Column < other.Column:
		return -1
	case p.Column > other.Column:
		return 1
	default:
		return 0
	}
}

// Less reports whether p sorts strictly before other.
func (p Point) Less(other Point) bool {
	return p.Compare(other) < 0
}

// LessEq reports whether p sorts before or at other.
func (p Point) LessEq(other Point) bool {
	return p.Compare(other) <= 0
}

// IsZero reports whether p is the origin.
func (p Point) IsZero() bool {
	return p.Row == 0 && p.Column == 0
}

// Traverse moves p by delta. A delta spanning rows resets the column.
func (p Point) Traverse(delta Point) Point {
	if delta.Row == 0 {
		return Point{Row: p.Row, Column: p.Column + delta.Column}
	}

	return Point{Row: p.Row + delta.Row, Column: delta.Column}
}

// Traversal returns the delta that traverses start to p. It panics when p
// sorts before start.
func (p Point) Traversal(start Point) Point {
	if p.Less(start) {
		panic(fmt.Sprintf("point: traversal from %v to earlier point %v", start, p))
	}

	if p.Row == start.Row {
		return Point{Row: 0, Column: p.Column - start.Column}
	}

	return Point{Row: p.Row - start.Row, Column: p.Column}
}

// String formats p as (row, column).
func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.Row, p.Column)
}

// Min returns the earlier of a and b.
func Min(a, b Point) Point {
	if b.Less(a) {
		return b
	}

	return a
}

// Max returns the later of a and b.
func Max(a, b Point) Point {
	if a.Less(b) {
		return b
	}

	return a
}

// Range is a closed span of positions.
type Range struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// NewRange returns the range [start, end]. It panics when end sorts before start.
func NewRange(start, end Point) Range {
	if end.Less(start) {
		panic(fmt.Sprintf("point: malformed range %v-%v", start, end))
	}

	return Range{Start: start, End: end}
}

// Extent is the traversal covered by r.
func (r Range) Extent() Point {
	return r.End.Traversal(r.Start)
}

// IsEmpty reports whether r has zero extent.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Contains reports whether p lies within r, endpoints included.
func (r Range) Contains(p Point) bool {
	return r.Start.LessEq(p) && p.LessEq(r.End)
}

// Intersects reports whether r and other share at least one position.
func (r Range) Intersects(other Range) bool {
	return r.Start.LessEq(other.End) && other.Start.LessEq(r.End)
}

// String formats r as [start - end].
func (r Range) String() string {
	return fmt.Sprintf("[%v - %v]", r.Start, r.End)
}
