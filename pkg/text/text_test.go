package text

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/editcore/pkg/point"
)

func TestExtentAndLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		extent point.Point
		lines  int
	}{
		{"empty", "", point.Zero, 1},
		{"single_line", "abc", point.New(0, 3), 1},
		{"trailing_newline", "abc\n", point.New(1, 0), 2},
		{"multi_line", "ab\ncde\nf", point.New(2, 1), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			txt := New(tt.input)
			assert.Equal(t, tt.extent, txt.Extent())
			assert.Equal(t, tt.lines, txt.LineCount())
			assert.Equal(t, len(tt.input), txt.Size())
		})
	}
}

func TestOffsetConversions(t *testing.T) {
	t.Parallel()

	txt := New("ab\ncde\nf")

	assert.Equal(t, 0, txt.OffsetForPosition(point.Zero))
	assert.Equal(t, 4, txt.OffsetForPosition(point.New(1, 1)))
	assert.Equal(t, 6, txt.OffsetForPosition(point.New(1, 99)), "column is clipped to the line")
	assert.Equal(t, 8, txt.OffsetForPosition(point.New(7, 0)), "row is clipped to the content")

	assert.Equal(t, point.New(0, 2), txt.PositionForOffset(2))
	assert.Equal(t, point.New(1, 0), txt.PositionForOffset(3))
	assert.Equal(t, point.New(2, 1), txt.PositionForOffset(100))

	for offset := range txt.Size() + 1 {
		assert.Equal(t, offset, txt.OffsetForPosition(txt.PositionForOffset(offset)))
	}
}

func TestValidity(t *testing.T) {
	t.Parallel()

	txt := New("  \n")

	assert.True(t, txt.IsValidPosition(point.New(0, 2)))
	assert.True(t, txt.IsValidPosition(point.New(1, 0)))
	assert.False(t, txt.IsValidPosition(point.New(0, 4)))
	assert.False(t, txt.IsValidPosition(point.New(1, 1)))
	assert.False(t, txt.IsValidPosition(point.New(2, 0)))
}

func TestSlicing(t *testing.T) {
	t.Parallel()

	txt := New("abc\ndef\nghi")

	mid, ok := txt.Slice(point.New(0, 1), point.New(1, 2))
	require.True(t, ok)
	assert.Equal(t, "bc\nde", mid.String())

	prefix, ok := txt.Prefix(point.New(1, 0))
	require.True(t, ok)
	assert.Equal(t, "abc\n", prefix.String())

	suffix, ok := txt.Suffix(point.New(2, 1))
	require.True(t, ok)
	assert.Equal(t, "hi", suffix.String())

	_, ok = txt.Slice(point.New(0, 1), point.New(0, 9))
	assert.False(t, ok)

	_, ok = txt.Slice(point.New(1, 0), point.New(0, 1))
	assert.False(t, ok)
}

func TestSpliceAndConcat(t *testing.T) {
	t.Parallel()

	txt := New("abcdef")

	spliced, ok := txt.Splice(point.New(0, 1), point.New(0, 1), New("XYZ"))
	require.True(t, ok)
	assert.Equal(t, "aXYZcdef", spliced.String())

	_, ok = txt.Splice(point.New(1, 0), point.Zero, New("x"))
	assert.False(t, ok)

	assert.Equal(t, "ab\nc", Concat(New("ab"), New("\n"), New("c")).String())
	assert.Nil(t, Concat(New("ab"), nil))

	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(New(""), nil))
	assert.True(t, Equal(New("x"), New("x")))
}

func TestJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(New("a\nb"))
	require.NoError(t, err)
	assert.JSONEq(t, `"a\nb"`, string(data))

	var decoded Text

	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, point.New(1, 1), decoded.Extent())
}
