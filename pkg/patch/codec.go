package patch

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/editcore/pkg/point"
	"github.com/Sumatoshi-tech/editcore/pkg/text"
)

var (
	// ErrCorrupted is returned when an encoded patch is malformed.
	ErrCorrupted = errors.New("corrupted patch encoding")
	// ErrUnsupportedVersion is returned for encodings written by an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported patch encoding version")
)

var magic = [4]byte{'E', 'P', 'C', 'H'}

const formatVersion byte = 1

// Header flags.
const (
	flagCompressed byte = 1 << iota
	flagMergesAdjacent
)

// Per-hunk text presence bits.
const (
	hasOldText uint32 = 1 << iota
	hasNewText
)

// maxEncodedChanges bounds the hunk count accepted from an encoding before
// any allocation happens.
const maxEncodedChanges = 1 << 26

// Hunks are stored column by column.
const (
	colOldStartRow = iota
	colOldStartColumn
	colOldEndRow
	colOldEndColumn
	colNewStartRow
	colNewStartColumn
	colNewEndRow
	colNewEndColumn
	colOldTextSize
	colTextFlags
	colOldTextLen
	colNewTextLen
	columnCount
)

// rowColumns hold non-decreasing values and are delta encoded.
var rowColumns = []int{colOldStartRow, colOldEndRow, colNewStartRow, colNewEndRow}

// Serialize encodes the ordered hunk list and its text payloads. Tree shape
// is not preserved. With compress set, every column and the text blob are
// stored as LZ4 blocks.
func (p *Patch) Serialize(compress bool) []byte {
	changes := p.Changes()

	var columns [columnCount][]uint32
	for c := range columns {
		columns[c] = make([]uint32, len(changes))
	}

	var blob []byte

	for i, change := range changes {
		columns[colOldStartRow][i] = change.OldStart.Row
		columns[colOldStartColumn][i] = change.OldStart.Column
		columns[colOldEndRow][i] = change.OldEnd.Row
		columns[colOldEndColumn][i] = change.OldEnd.Column
		columns[colNewStartRow][i] = change.NewStart.Row
		columns[colNewStartColumn][i] = change.NewStart.Column
		columns[colNewEndRow][i] = change.NewEnd.Row
		columns[colNewEndColumn][i] = change.NewEnd.Column
		columns[colOldTextSize][i] = change.OldTextSize

		var flags uint32

		if change.OldText != nil {
			flags |= hasOldText
			columns[colOldTextLen][i] = change.OldText.SizeUint32()
			blob = append(blob, change.OldText.String()...)
		}

		if change.NewText != nil {
			flags |= hasNewText
			columns[colNewTextLen][i] = change.NewText.SizeUint32()
			blob = append(blob, change.NewText.String()...)
		}

		columns[colTextFlags][i] = flags
	}

	for _, c := range rowColumns {
		deltaEncode(columns[c])
	}

	var header byte
	if compress {
		header |= flagCompressed
	}

	if p.mergesAdjacentChanges {
		header |= flagMergesAdjacent
	}

	buf := append([]byte(nil), magic[:]...)
	buf = append(buf, formatVersion, header)
	buf = binary.AppendUvarint(buf, uint64(len(changes)))

	for _, column := range columns {
		buf = appendBlock(buf, uint32sToBytes(column), compress)
	}

	return appendBlock(buf, blob, compress)
}

func appendBlock(buf, raw []byte, compress bool) []byte {
	mode, data := blockRaw, raw
	if compress {
		mode, data = compressBlock(raw)
	}

	buf = append(buf, mode)
	buf = binary.AppendUvarint(buf, uint64(len(data)))

	return append(buf, data...)
}

// Deserialize decodes a patch produced by Serialize.
func Deserialize(data []byte) (*Patch, error) {
	if len(data) < len(magic)+2 || !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, fmt.Errorf("%w: bad header", ErrCorrupted)
	}

	if version := data[len(magic)]; version != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	header := data[len(magic)+1]
	dec := decoder{rest: data[len(magic)+2:]}

	count, err := dec.uvarint()
	if err != nil {
		return nil, err
	}

	if count > maxEncodedChanges {
		return nil, fmt.Errorf("%w: %d hunks", ErrCorrupted, count)
	}

	n := int(count)

	var columns [columnCount][]uint32

	for c := range columns {
		raw, blockErr := dec.block(n * uint32ByteSize)
		if blockErr != nil {
			return nil, fmt.Errorf("column %d: %w", c, blockErr)
		}

		columns[c] = make([]uint32, n)
		bytesToUint32s(raw, columns[c])
	}

	for _, c := range rowColumns {
		deltaDecode(columns[c])
	}

	blobLen := 0
	for i := range n {
		blobLen += int(columns[colOldTextLen][i]) + int(columns[colNewTextLen][i])
	}

	blob, err := dec.block(blobLen)
	if err != nil {
		return nil, fmt.Errorf("text blob: %w", err)
	}

	changes, err := decodeChanges(columns, blob)
	if err != nil {
		return nil, err
	}

	p := New(WithMergeAdjacentChanges(header&flagMergesAdjacent != 0))
	p.root = p.build(changes, nilNode, [2]point.Point{})
	p.changeCount = len(changes)

	return p, nil
}

func decodeChanges(columns [columnCount][]uint32, blob []byte) ([]Change, error) {
	changes := make([]Change, len(columns[0]))
	offset := 0

	takeText := func(size uint32) *text.Text {
		t := text.New(string(blob[offset : offset+int(size)]))
		offset += int(size)

		return t
	}

	var prevOld, prevNew point.Point

	for i := range changes {
		change := Change{
			OldStart:    point.New(columns[colOldStartRow][i], columns[colOldStartColumn][i]),
			OldEnd:      point.New(columns[colOldEndRow][i], columns[colOldEndColumn][i]),
			NewStart:    point.New(columns[colNewStartRow][i], columns[colNewStartColumn][i]),
			NewEnd:      point.New(columns[colNewEndRow][i], columns[colNewEndColumn][i]),
			OldTextSize: columns[colOldTextSize][i],
		}

		if change.OldStart.Less(prevOld) || change.NewStart.Less(prevNew) ||
			change.OldEnd.Less(change.OldStart) || change.NewEnd.Less(change.NewStart) {
			return nil, fmt.Errorf("%w: hunk %d is out of order", ErrCorrupted, i)
		}

		flags := columns[colTextFlags][i]

		if flags&hasOldText != 0 {
			change.OldText = takeText(columns[colOldTextLen][i])
			if change.OldText.Extent() != change.OldExtent() {
				return nil, fmt.Errorf("%w: hunk %d old text does not span its range", ErrCorrupted, i)
			}
		}

		if flags&hasNewText != 0 {
			change.NewText = takeText(columns[colNewTextLen][i])
			if change.NewText.Extent() != change.NewExtent() {
				return nil, fmt.Errorf("%w: hunk %d new text does not span its range", ErrCorrupted, i)
			}
		}

		prevOld, prevNew = change.OldEnd, change.NewEnd
		changes[i] = change
	}

	return changes, nil
}

// build turns an ordered hunk list into a balanced subtree whose nearest left
// ancestor ends at anchor.
func (p *Patch) build(changes []Change, parent uint32, anchor [2]point.Point) uint32 {
	if len(changes) == 0 {
		return nilNode
	}

	mid := len(changes) / 2
	change := changes[mid]
	idx := p.alloc.malloc()

	left := p.build(changes[:mid], idx, anchor)
	right := p.build(changes[mid+1:], idx, [2]point.Point{change.OldEnd, change.NewEnd})

	var newTextSize uint32
	if change.NewText != nil {
		newTextSize = change.NewText.SizeUint32()
	}

	n := p.nd(idx)
	n.parent, n.left, n.right = parent, left, right
	n.distance = [2]point.Point{change.OldStart.Traversal(anchor[oldSpace]), change.NewStart.Traversal(anchor[newSpace])}
	n.extent = [2]point.Point{change.OldExtent(), change.NewExtent()}
	n.text = [2]*text.Text{change.OldText, change.NewText}
	n.textSize = [2]uint32{change.OldTextSize, newTextSize}
	p.updateSubtreeTextSize(idx)

	return idx
}

type decoder struct {
	rest []byte
}

func (dec *decoder) uvarint() (uint64, error) {
	v, n := binary.Uvarint(dec.rest)
	if n <= 0 {
		return 0, fmt.Errorf("%w: truncated varint", ErrCorrupted)
	}

	dec.rest = dec.rest[n:]

	return v, nil
}

func (dec *decoder) block(rawLen int) ([]byte, error) {
	if len(dec.rest) == 0 {
		return nil, fmt.Errorf("%w: missing block", ErrCorrupted)
	}

	mode := dec.rest[0]
	dec.rest = dec.rest[1:]

	size, err := dec.uvarint()
	if err != nil {
		return nil, err
	}

	if size > uint64(len(dec.rest)) {
		return nil, fmt.Errorf("%w: block of %d bytes exceeds input", ErrCorrupted, size)
	}

	data := dec.rest[:size]
	dec.rest = dec.rest[size:]

	return decompressBlock(mode, data, rawLen)
}

// MarshalBinary implements encoding.BinaryMarshaler with compression enabled.
func (p *Patch) MarshalBinary() ([]byte, error) {
	return p.Serialize(true), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Patch) UnmarshalBinary(data []byte) error {
	decoded, err := Deserialize(data)
	if err != nil {
		return err
	}

	*p = *decoded

	return nil
}

// WriteTo writes the compressed encoding of p to w.
func (p *Patch) WriteTo(w io.Writer) (int64, error) {
	written, err := w.Write(p.Serialize(true))
	if err != nil {
		return int64(written), fmt.Errorf("write patch: %w", err)
	}

	return int64(written), nil
}

// ReadFrom replaces p with the patch encoded in r.
func (p *Patch) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("read patch: %w", err)
	}

	return int64(len(data)), p.UnmarshalBinary(data)
}
