package patch

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// uint32ByteSize is the number of bytes in a uint32.
const uint32ByteSize = 4

// maxCompressionRatio bounds how far an LZ4 block can inflate. LZ4 cannot
// exceed about 255:1, so a larger declared size marks a corrupted header.
const maxCompressionRatio = 255

// Block encodings.
const (
	blockRaw byte = iota
	blockLZ4
)

// compressBlock compresses raw with LZ4, falling back to storing it verbatim
// when LZ4 cannot shrink it.
func compressBlock(raw []byte) (byte, []byte) {
	if len(raw) == 0 {
		return blockRaw, raw
	}

	compressed := make([]byte, lz4.CompressBlockBound(len(raw)))

	written, err := lz4.CompressBlock(raw, compressed, nil)
	if err != nil || written == 0 || written >= len(raw) {
		return blockRaw, raw
	}

	return blockLZ4, compressed[:written]
}

// decompressBlock restores a block of rawLen bytes.
func decompressBlock(mode byte, data []byte, rawLen int) ([]byte, error) {
	switch mode {
	case blockRaw:
		if len(data) != rawLen {
			return nil, fmt.Errorf("%w: raw block of %d bytes, expected %d", ErrCorrupted, len(data), rawLen)
		}

		return data, nil
	case blockLZ4:
		if rawLen/maxCompressionRatio > len(data) {
			return nil, fmt.Errorf("%w: %d byte block cannot inflate to %d bytes", ErrCorrupted, len(data), rawLen)
		}

		decompressed := make([]byte, rawLen)

		read, err := lz4.UncompressBlock(data, decompressed)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupted, err)
		}

		if read != rawLen {
			return nil, fmt.Errorf("%w: block inflated to %d bytes, expected %d", ErrCorrupted, read, rawLen)
		}

		return decompressed, nil
	default:
		return nil, fmt.Errorf("%w: unknown block encoding %d", ErrCorrupted, mode)
	}
}

func uint32sToBytes(data []uint32) []byte {
	buf := make([]byte, 0, len(data)*uint32ByteSize)
	for _, v := range data {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}

	return buf
}

func bytesToUint32s(buf []byte, result []uint32) {
	for i := range result {
		result[i] = binary.LittleEndian.Uint32(buf[i*uint32ByteSize:])
	}
}

// deltaEncode replaces each element with the difference from its
// predecessor, in place. Sorted columns turn into small repetitive values
// that compress better.
func deltaEncode(data []uint32) {
	for i := len(data) - 1; i > 0; i-- {
		data[i] -= data[i-1]
	}
}

// deltaDecode reverses deltaEncode in place.
func deltaDecode(data []uint32) {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}
}
