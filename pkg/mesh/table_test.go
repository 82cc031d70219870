package mesh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name               string
		pos, tex, nrm, tag int32
	}{
		{"position only", 0, -1, -1, 0},
		{"all attributes", 4, 3, 2, 1},
		{"normal without texcoord", 7, -1, 5, 2},
		{"field maximum", MaxAttributeIndex, MaxAttributeIndex, MaxAttributeIndex, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := PackKey(tt.pos, tt.tex, tt.nrm, tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.pos, key.Position())
			assert.Equal(t, tt.tex, key.Texcoord())
			assert.Equal(t, tt.nrm, key.Normal())
			assert.Equal(t, tt.tag, key.Tag())
		})
	}
}

func TestPackKeyDistinguishesAbsentFromZero(t *testing.T) {
	absent, err := PackKey(0, -1, -1, 0)
	require.NoError(t, err)
	zero, err := PackKey(0, 0, 0, 0)
	require.NoError(t, err)
	assert.NotEqual(t, absent, zero)
}

func TestPackKeyRejectsOverflow(t *testing.T) {
	_, err := PackKey(MaxAttributeIndex+1, -1, -1, 0)
	assert.ErrorIs(t, err, ErrIndexRange)

	_, err = PackKey(0, -2, -1, 0)
	assert.ErrorIs(t, err, ErrIndexRange)

	_, err = PackKey(0, -1, -1, 3)
	assert.Error(t, err)
}

func TestVertexTableDeduplicates(t *testing.T) {
	table := NewVertexTable()

	k1, err := table.Insert(Vertex{Position: 0, Texcoord: 1, Normal: -1})
	require.NoError(t, err)
	k2, err := table.Insert(Vertex{Position: 0, Texcoord: 1, Normal: -1})
	require.NoError(t, err)
	k3, err := table.Insert(Vertex{Position: 0, Texcoord: 1, Normal: -1, Tag: 1})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []VertexKey{k1, k3}, table.Keys())

	v, ok := table.Get(k1)
	require.True(t, ok)
	assert.Equal(t, Unassigned, v.Slot)
}

func TestVertexTableIntegrityFault(t *testing.T) {
	table := NewVertexTable()
	key, err := table.Insert(Vertex{Position: 1, Texcoord: -1, Normal: -1})
	require.NoError(t, err)

	// Force a second tuple onto the same key.
	err = table.insertKey(key, Vertex{Position: 2, Texcoord: -1, Normal: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIntegrity))

	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, int32(1), ie.Existing.Position)
	assert.Equal(t, int32(2), ie.Incoming.Position)
}

func TestVertexTableResetSlots(t *testing.T) {
	table := NewVertexTable()
	key, err := table.Insert(Vertex{Position: 3, Texcoord: -1, Normal: -1})
	require.NoError(t, err)

	v, _ := table.Get(key)
	v.Slot = 42
	table.ResetSlots()

	v, _ = table.Get(key)
	assert.Equal(t, Unassigned, v.Slot)
}

func TestVertexTableFillMissing(t *testing.T) {
	tests := []struct {
		name          string
		verts         []Vertex
		wantTex       bool
		wantNormal    bool
		wantTexcoords []int32
	}{
		{
			name:          "no attributes",
			verts:         []Vertex{{Position: 0, Texcoord: -1, Normal: -1}},
			wantTexcoords: []int32{-1},
		},
		{
			name: "mixed texcoords fill with first",
			verts: []Vertex{
				{Position: 0, Texcoord: -1, Normal: -1},
				{Position: 1, Texcoord: 4, Normal: -1},
			},
			wantTex:       true,
			wantTexcoords: []int32{0, 4},
		},
		{
			name: "normals only",
			verts: []Vertex{
				{Position: 0, Texcoord: -1, Normal: 2},
			},
			wantNormal:    true,
			wantTexcoords: []int32{-1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewVertexTable()
			for _, v := range tt.verts {
				_, err := table.Insert(v)
				require.NoError(t, err)
			}

			hasTex, hasNormal := table.FillMissing()
			assert.Equal(t, tt.wantTex, hasTex)
			assert.Equal(t, tt.wantNormal, hasNormal)

			for i, key := range table.Keys() {
				v, _ := table.Get(key)
				assert.Equal(t, tt.wantTexcoords[i], v.Texcoord)
				if hasNormal {
					assert.GreaterOrEqual(t, v.Normal, int32(0))
				}
			}
		})
	}
}
