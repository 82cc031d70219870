package vcache

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridIndices builds an n x n quad grid as a triangle list.
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

func shuffleTriangles(indices []uint16, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	n := len(indices) / 3
	rng.Shuffle(n, func(i, j int) {
		for c := 0; c < 3; c++ {
			indices[i*3+c], indices[j*3+c] = indices[j*3+c], indices[i*3+c]
		}
	})
}

func triangleSet(indices []uint16) []string {
	var tris []string
	for i := 0; i+2 < len(indices); i += 3 {
		tris = append(tris, string(rune(indices[i]))+string(rune(indices[i+1]))+string(rune(indices[i+2])))
	}
	sort.Strings(tris)
	return tris
}

func TestOptimizePreservesTrianglesAndWinding(t *testing.T) {
	indices, numVertices := gridIndices(12)
	shuffleTriangles(indices, 7)

	out := Optimize(indices, numVertices, DefaultCacheSize)
	require.Len(t, out, len(indices))

	// Triangles are compared as exact corner sequences, so any rotation or
	// flip would show up as a difference.
	assert.Equal(t, triangleSet(indices), triangleSet(out))
}

func TestOptimizeIsDeterministic(t *testing.T) {
	indices, numVertices := gridIndices(10)
	shuffleTriangles(indices, 3)

	a := Optimize(indices, numVertices, DefaultCacheSize)
	b := Optimize(indices, numVertices, DefaultCacheSize)
	assert.Equal(t, a, b)
}

func TestOptimizeImprovesCacheReuse(t *testing.T) {
	indices, numVertices := gridIndices(24)
	shuffleTriangles(indices, 42)

	before := ACMR(indices, DefaultCacheSize)
	out := Optimize(indices, numVertices, DefaultCacheSize)
	after := ACMR(out, DefaultCacheSize)

	t.Logf("ACMR before %.3f after %.3f", before, after)
	assert.Less(t, after, before)
}

func TestOptimizeSmallInputs(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint16
	}{
		{"empty", nil},
		{"single triangle", []uint16{0, 2, 1}},
		{"trailing partial triangle", []uint16{0, 1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Optimize(tt.indices, 5, DefaultCacheSize)
			assert.Equal(t, len(tt.indices), len(out))
			for i := range out {
				assert.Equal(t, tt.indices[i], out[i])
			}
		})
	}
}

func TestOptimizeClampsCacheSize(t *testing.T) {
	indices, numVertices := gridIndices(4)
	for _, size := range []int{0, 2, 1000} {
		out := Optimize(indices, numVertices, size)
		assert.Equal(t, triangleSet(indices), triangleSet(out), "cache size %d", size)
	}
}

func TestOptimizeToleratesUnderstatedVertexCount(t *testing.T) {
	indices := []uint16{0, 1, 2, 2, 1, 3}
	out := Optimize(indices, 2, DefaultCacheSize)
	assert.Equal(t, triangleSet(indices), triangleSet(out))
}

func TestACMR(t *testing.T) {
	// Two triangles sharing an edge: 4 misses over 2 triangles.
	assert.Equal(t, float32(2), ACMR([]uint16{0, 1, 2, 2, 1, 3}, 32))
	assert.Equal(t, float32(0), ACMR(nil, 32))
}
