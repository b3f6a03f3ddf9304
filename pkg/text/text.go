// Package text provides the immutable text payloads carried by patches and
// edit sessions. A Text caches the byte offset of every line so that
// conversions between byte offsets and row/column points are logarithmic.
package text

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/editcore/pkg/point"
	"github.com/Sumatoshi-tech/editcore/pkg/safeconv"
)

// Text is an immutable string with a line index. The nil *Text represents an
// unknown payload; methods that return a *Text never return nil for known input.
type Text struct {
	content    string
	lineStarts []int
}

// New indexes s.
func New(s string) *Text {
	starts := make([]int, 1, strings.Count(s, "\n")+1)

	for idx := range len(s) {
		if s[idx] == '\n' {
			starts = append(starts, idx+1)
		}
	}

	return &Text{content: s, lineStarts: starts}
}

// String returns the content.
func (t *Text) String() string {
	return t.content
}

// Size is the length of the content in bytes.
func (t *Text) Size() int {
	return len(t.content)
}

// SizeUint32 is Size as the width patches track it with.
func (t *Text) SizeUint32() uint32 {
	return safeconv.MustIntToUint32(len(t.content))
}

// Extent is the point reached by traversing the whole content from the origin.
func (t *Text) Extent() point.Point {
	lastRow := len(t.lineStarts) - 1

	return point.Point{
		Row:    safeconv.MustIntToUint32(lastRow),
		Column: safeconv.MustIntToUint32(len(t.content) - t.lineStarts[lastRow]),
	}
}

// LineCount is the number of rows, which is one more than the number of newlines.
func (t *Text) LineCount() int {
	return len(t.lineStarts)
}

// LineLength is the length of row in bytes, excluding its newline.
func (t *Text) LineLength(row uint32) int {
	idx := int(row)
	if idx >= len(t.lineStarts) {
		return 0
	}

	end := len(t.content)
	if idx+1 < len(t.lineStarts) {
		end = t.lineStarts[idx+1] - 1
	}

	return end - t.lineStarts[idx]
}

// IsValidPosition reports whether p addresses a byte boundary inside the content.
func (t *Text) IsValidPosition(p point.Point) bool {
	if int(p.Row) >= len(t.lineStarts) {
		return false
	}

	return int(p.Column) <= t.LineLength(p.Row)
}

// OffsetForPosition converts p to a byte offset, clipping it to the content.
func (t *Text) OffsetForPosition(p point.Point) int {
	if int(p.Row) >= len(t.lineStarts) {
		return len(t.content)
	}

	return t.lineStarts[p.Row] + min(int(p.Column), t.LineLength(p.Row))
}

// PositionForOffset converts a byte offset to a point, clipping it to the content.
func (t *Text) PositionForOffset(offset int) point.Point {
	offset = max(0, min(offset, len(t.content)))
	row := sort.SearchInts(t.lineStarts, offset+1) - 1

	return point.Point{
		Row:    safeconv.MustIntToUint32(row),
		Column: safeconv.MustIntToUint32(offset - t.lineStarts[row]),
	}
}

// Slice returns the content between start and end. ok is false when either
// position is not valid or end precedes start.
func (t *Text) Slice(start, end point.Point) (*Text, bool) {
	if !t.IsValidPosition(start) || !t.IsValidPosition(end) || end.Less(start) {
		return nil, false
	}

	return New(t.content[t.OffsetForPosition(start):t.OffsetForPosition(end)]), true
}

// Prefix returns the content before p.
func (t *Text) Prefix(p point.Point) (*Text, bool) {
	return t.Slice(point.Zero, p)
}

// Suffix returns the content from p on.
func (t *Text) Suffix(p point.Point) (*Text, bool) {
	return t.Slice(p, t.Extent())
}

// Splice replaces deletionExtent worth of content at start with inserted.
func (t *Text) Splice(start, deletionExtent point.Point, inserted *Text) (*Text, bool) {
	end := start.Traverse(deletionExtent)
	if !t.IsValidPosition(start) || !t.IsValidPosition(end) {
		return nil, false
	}

	var sb strings.Builder

	sb.Grow(len(t.content) + inserted.Size())
	sb.WriteString(t.content[:t.OffsetForPosition(start)])
	sb.WriteString(inserted.content)
	sb.WriteString(t.content[t.OffsetForPosition(end):])

	return New(sb.String()), true
}

// Concat joins parts. It returns nil if any part is nil.
func Concat(parts ...*Text) *Text {
	var sb strings.Builder

	for _, part := range parts {
		if part == nil {
			return nil
		}

		sb.WriteString(part.content)
	}

	return New(sb.String())
}

// Equal reports whether a and b hold the same content. Two unknown payloads are equal.
func Equal(a, b *Text) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.content == b.content
}

// MarshalJSON encodes the content as a JSON string.
func (t *Text) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(t.content)
	if err != nil {
		return nil, fmt.Errorf("marshal text: %w", err)
	}

	return data, nil
}

// UnmarshalJSON decodes a JSON string and rebuilds the line index.
func (t *Text) UnmarshalJSON(data []byte) error {
	var content string

	err := json.Unmarshal(data, &content)
	if err != nil {
		return fmt.Errorf("unmarshal text: %w", err)
	}

	*t = *New(content)

	return nil
}
