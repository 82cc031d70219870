package vertex

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func tangentLayout() *Layout {
	var l Layout
	l.Add(Position, 3, Float, false, false)
	l.Add(TexCoord0, 2, Float, false, false)
	l.Add(Normal, 3, Float, false, false)
	l.Add(Tangent, 4, Float, false, false)
	return &l
}

func fillTriangle(l *Layout, uvs [3][2]float32) []byte {
	positions := [3][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	data := make([]byte, 3*l.Stride())
	for i := 0; i < 3; i++ {
		p := positions[i]
		l.Pack(data, i, Position, [4]float32{p[0], p[1], p[2]}, false)
		l.Pack(data, i, TexCoord0, [4]float32{uvs[i][0], uvs[i][1]}, false)
		l.Pack(data, i, Normal, [4]float32{0, 0, 1}, true)
	}
	return data
}

func TestCalcTangents(t *testing.T) {
	tests := []struct {
		name    string
		uvs     [3][2]float32
		tangent [4]float32
	}{
		{
			name:    "uv aligned with xy",
			uvs:     [3][2]float32{{0, 0}, {1, 0}, {0, 1}},
			tangent: [4]float32{1, 0, 0, 1},
		},
		{
			name:    "mirrored u",
			uvs:     [3][2]float32{{0, 0}, {-1, 0}, {0, 1}},
			tangent: [4]float32{-1, 0, 0, -1},
		},
		{
			name:    "degenerate uv falls back to perpendicular",
			uvs:     [3][2]float32{{0.5, 0.5}, {0.5, 0.5}, {0.5, 0.5}},
			tangent: [4]float32{1, 0, 0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tangentLayout()
			data := fillTriangle(l, tt.uvs)

			CalcTangents(data, 3, l, []uint16{0, 1, 2})

			for i := 0; i < 3; i++ {
				got := l.Unpack(data, i, Tangent)
				for c := 0; c < 4; c++ {
					assert.False(t, math32.IsNaN(got[c]), "vertex %d component %d is NaN", i, c)
					assert.InDelta(t, tt.tangent[c], got[c], 1e-5, "vertex %d component %d", i, c)
				}
			}
		})
	}
}

func TestCalcTangentsWithoutTangentAttribute(t *testing.T) {
	var l Layout
	l.Add(Position, 3, Float, false, false)
	data := make([]byte, 3*l.Stride())
	before := append([]byte(nil), data...)

	CalcTangents(data, 3, &l, []uint16{0, 1, 2})
	assert.Equal(t, before, data)
}
