package ibc

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridIndices(n int) ([]uint16, int) {
	var indices []uint16
	stride := n + 1
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			a := uint16(y*stride + x)
			b := a + 1
			c := a + uint16(stride)
			d := c + 1
			indices = append(indices, a, b, c, b, d, c)
		}
	}
	return indices, stride * stride
}

// vertexBuffer gives every vertex a 4-byte payload equal to its original index.
func vertexBuffer(n int) []byte {
	buf := make([]byte, n*4)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(i))
	}
	return buf
}

func payload(buf []byte, idx uint16) uint32 {
	return binary.LittleEndian.Uint32(buf[int(idx)*4:])
}

func roundTrip(t *testing.T, indices []uint16, numVertices int) ([]byte, []uint32) {
	t.Helper()

	enc := NewEncoder()
	stream, remap, err := enc.Encode(indices, numVertices)
	require.NoError(t, err)
	require.Len(t, remap, numVertices)

	vertices := vertexBuffer(numVertices)
	enc.Reorder(vertices, 4)

	decoded, err := Decode(stream, len(indices))
	require.NoError(t, err)
	require.Len(t, decoded, len(indices))

	// Each decoded corner must reference the same original vertex payload.
	for i := range indices {
		assert.Equal(t, uint32(indices[i]), payload(vertices, decoded[i]), "corner %d", i)
	}

	remapped := append([]uint16(nil), indices...)
	RemapIndices(remapped, remap)
	assert.Equal(t, remapped, decoded)

	return append([]byte(nil), stream...), append([]uint32(nil), remap...)
}

func TestRoundTripGrid(t *testing.T) {
	indices, numVertices := gridIndices(16)
	stream, _ := roundTrip(t, indices, numVertices)

	raw := len(indices) * 2
	t.Logf("raw %d bytes, compressed %d bytes, ratio %.2f%%", raw, len(stream), Ratio(raw, len(stream)))
	assert.Less(t, len(stream), raw)
}

func TestRoundTripShuffled(t *testing.T) {
	indices, numVertices := gridIndices(20)
	rng := rand.New(rand.NewSource(99))
	rng.Shuffle(len(indices)/3, func(i, j int) {
		for c := 0; c < 3; c++ {
			indices[i*3+c], indices[j*3+c] = indices[j*3+c], indices[i*3+c]
		}
	})
	roundTrip(t, indices, numVertices)
}

func TestRoundTripRandomTriangles(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	const numVertices = 300
	indices := make([]uint16, 3*500)
	for i := range indices {
		indices[i] = uint16(rng.Intn(numVertices))
	}
	roundTrip(t, indices, numVertices)
}

func TestRoundTripDegenerateTriangles(t *testing.T) {
	indices := []uint16{0, 0, 1, 1, 1, 1, 2, 0, 2}
	roundTrip(t, indices, 3)
}

func TestRemapIsPermutation(t *testing.T) {
	// Vertices 1 and 4 are never referenced.
	indices := []uint16{3, 0, 2, 2, 0, 5}
	_, remap := roundTrip(t, indices, 6)

	assert.Equal(t, []uint32{1, 4, 2, 0, 5, 3}, remap)

	seen := make(map[uint32]bool)
	for _, r := range remap {
		assert.False(t, seen[r], "slot %d assigned twice", r)
		seen[r] = true
	}
}

func TestEncodeEmpty(t *testing.T) {
	enc := NewEncoder()
	stream, remap, err := enc.Encode(nil, 3)
	require.NoError(t, err)
	assert.Empty(t, stream)
	assert.Equal(t, []uint32{0, 1, 2}, remap)

	decoded, err := Decode(stream, 0)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestEncoderReuse(t *testing.T) {
	a, na := gridIndices(6)
	b, nb := gridIndices(3)

	enc := NewEncoder()
	first, _, err := enc.Encode(a, na)
	require.NoError(t, err)
	first = append([]byte(nil), first...)

	_, _, err = enc.Encode(b, nb)
	require.NoError(t, err)

	again, _, err := enc.Encode(a, na)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestEncodeErrors(t *testing.T) {
	enc := NewEncoder()

	_, _, err := enc.Encode([]uint16{0, 1}, 3)
	assert.ErrorIs(t, err, ErrIndexCount)

	_, _, err = enc.Encode([]uint16{0, 1, 7}, 3)
	assert.ErrorIs(t, err, ErrVertexRange)
}

func TestDecodeErrors(t *testing.T) {
	indices, numVertices := gridIndices(4)
	enc := NewEncoder()
	stream, _, err := enc.Encode(indices, numVertices)
	require.NoError(t, err)

	_, err = Decode(stream[:len(stream)/2], len(indices))
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Decode(stream, 4)
	assert.ErrorIs(t, err, ErrIndexCount)

	// A cached reference before anything was cached is corrupt.
	_, err = Decode([]byte{0x02, 0x00}, 3)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestExpGolomb(t *testing.T) {
	values := []uint32{0, 1, 2, 3, 7, 8, 255, 65535, 1 << 20}

	var w bitWriter
	for _, v := range values {
		w.writeExpGolomb(v)
	}
	r := bitReader{data: w.finish()}
	for _, want := range values {
		got, err := r.readExpGolomb()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, float32(75), Ratio(400, 100))
	assert.Equal(t, float32(0), Ratio(0, 10))
}
