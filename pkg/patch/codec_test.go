package patch //nolint:testpackage // Tests check tree internals.

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePatch(t *testing.T) (*Patch, string, string) {
	t.Helper()

	rng := rand.New(rand.NewPCG(3, 5))
	base := strings.Repeat("lorem ipsum dolor\n", 40)
	p := New()

	return p, base, randomEdits(t, rng, p, base, 60)
}

func TestSerializeRoundTrip(t *testing.T) {
	t.Parallel()

	p, base, current := samplePatch(t)

	for _, compress := range []bool{true, false} {
		decoded, err := Deserialize(p.Serialize(compress))
		require.NoError(t, err)

		assert.Equal(t, p.Changes(), decoded.Changes())
		assert.Equal(t, p.MergesAdjacentChanges(), decoded.MergesAdjacentChanges())
		assert.Equal(t, current, apply(t, base, decoded.Changes()))
		checkIntegrity(t, decoded)
	}
}

func TestSerializeWithoutText(t *testing.T) {
	t.Parallel()

	p := New(WithMergeAdjacentChanges(false))
	require.True(t, p.Splice(pt(1, 2), pt(0, 3), pt(2, 0), nil, nil, 3))

	decoded, err := Deserialize(p.Serialize(true))
	require.NoError(t, err)

	changes := decoded.Changes()
	require.Len(t, changes, 1)
	assert.Nil(t, changes[0].OldText)
	assert.Nil(t, changes[0].NewText)
	assert.Equal(t, uint32(3), changes[0].OldTextSize)
	assert.Equal(t, pt(3, 0), changes[0].NewEnd)
	assert.False(t, decoded.MergesAdjacentChanges())
}

func TestSerializeCompresses(t *testing.T) {
	t.Parallel()

	p := New()
	current := strings.Repeat("abcdefgh", 200)

	for i := range 100 {
		current = edit(t, p, current, 20*i, 20*i+2, "replacement")
	}

	assert.Less(t, len(p.Serialize(true)), len(p.Serialize(false)))
}

func TestSerializeEmpty(t *testing.T) {
	t.Parallel()

	decoded, err := Deserialize(New().Serialize(true))
	require.NoError(t, err)
	assert.Equal(t, 0, decoded.ChangeCount())
}

func TestDeserializeErrors(t *testing.T) {
	t.Parallel()

	p, _, _ := samplePatch(t)
	valid := p.Serialize(true)

	wrongVersion := bytes.Clone(valid)
	wrongVersion[len(magic)] = formatVersion + 1

	_, err := Deserialize(wrongVersion)
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	for name, data := range map[string][]byte{
		"empty":     nil,
		"bad_magic": append([]byte("NOPE"), valid[4:]...),
		"truncated": valid[:len(valid)/2],
		"no_blocks": valid[:len(magic)+3],
	} {
		_, err = Deserialize(data)
		require.ErrorIs(t, err, ErrCorrupted, name)
	}
}

func TestBinaryMarshalers(t *testing.T) {
	t.Parallel()

	p, _, _ := samplePatch(t)

	var buf bytes.Buffer

	written, err := p.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), written)

	var decoded Patch

	read, err := decoded.ReadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, written, read)
	assert.Equal(t, p.Changes(), decoded.Changes())

	data, err := p.MarshalBinary()
	require.NoError(t, err)

	var again Patch

	require.NoError(t, again.UnmarshalBinary(data))
	assert.Equal(t, p.ChangeCount(), again.ChangeCount())
}

func TestDeltaEncoding(t *testing.T) {
	t.Parallel()

	data := []uint32{3, 3, 7, 20, 20}
	deltaEncode(data)
	assert.Equal(t, []uint32{3, 0, 4, 13, 0}, data)

	deltaDecode(data)
	assert.Equal(t, []uint32{3, 3, 7, 20, 20}, data)

	out := make([]uint32, len(data))
	bytesToUint32s(uint32sToBytes(data), out)
	assert.Equal(t, data, out)
}

func TestDeserializeRejectsImplausibleBlockSize(t *testing.T) {
	t.Parallel()

	data := append([]byte{}, magic[:]...)
	data = append(data, formatVersion, flagMergesAdjacent)
	data = binary.AppendUvarint(data, maxEncodedChanges)
	data = append(data, blockLZ4)
	data = binary.AppendUvarint(data, 1)
	data = append(data, 0)

	_, err := Deserialize(data)
	require.ErrorIs(t, err, ErrCorrupted)
	assert.Contains(t, err.Error(), "cannot inflate")
}
