// Package mesh holds the intermediate representation shared by the OBJ parser
// and the compiler: packed vertex keys, the deduplication table, triangles,
// material groups and draw primitives.
package mesh

import (
	"errors"
	"fmt"
)

// Key field layout. Each attribute index is stored biased by one so that
// "absent" (-1) packs to zero.
const (
	fieldBits = 20
	fieldMask = 1<<fieldBits - 1
	tagShift  = 60
	tagMask   = 0xf

	// MaxAttributeIndex is the largest attribute index a key can hold.
	MaxAttributeIndex = fieldMask - 1
)

// Unassigned marks a vertex not yet written into the current output unit.
const Unassigned int32 = -1

// ErrIndexRange is returned when an attribute index does not fit a key field.
var ErrIndexRange = errors.New("attribute index exceeds 20-bit key field")

// VertexKey identifies one logical vertex: position, texcoord, normal and
// barycentric corner tag packed at fixed widths (20/20/20/4 bits).
type VertexKey uint64

// PackKey builds a key from attribute indices. tex and nrm may be -1.
func PackKey(pos, tex, nrm, tag int32) (VertexKey, error) {
	if pos < 0 || pos > MaxAttributeIndex || tex < -1 || tex > MaxAttributeIndex ||
		nrm < -1 || nrm > MaxAttributeIndex {
		return 0, fmt.Errorf("%w: position %d, texcoord %d, normal %d", ErrIndexRange, pos, tex, nrm)
	}
	if tag < 0 || tag > 2 {
		return 0, fmt.Errorf("invalid corner tag %d", tag)
	}
	return VertexKey(uint64(pos+1)&fieldMask |
		(uint64(tex+1)&fieldMask)<<fieldBits |
		(uint64(nrm+1)&fieldMask)<<(2*fieldBits) |
		(uint64(tag)&tagMask)<<tagShift), nil
}

// Position returns the position index stored in the key.
func (k VertexKey) Position() int32 {
	return int32(uint64(k)&fieldMask) - 1
}

// Texcoord returns the texcoord index stored in the key, or -1.
func (k VertexKey) Texcoord() int32 {
	return int32(uint64(k)>>fieldBits&fieldMask) - 1
}

// Normal returns the normal index stored in the key, or -1.
func (k VertexKey) Normal() int32 {
	return int32(uint64(k)>>(2*fieldBits)&fieldMask) - 1
}

// Tag returns the barycentric corner tag.
func (k VertexKey) Tag() int32 {
	return int32(uint64(k) >> tagShift & tagMask)
}

// String formats the key for diagnostics.
func (k VertexKey) String() string {
	return fmt.Sprintf("%d/%d/%d#%d", k.Position(), k.Texcoord(), k.Normal(), k.Tag())
}

// Triangle is one face of the triangulated mesh, corners in winding order.
type Triangle [3]VertexKey

// Group is a contiguous run of triangles sharing a group name and material.
type Group struct {
	Name          string
	Material      string
	StartTriangle int
	NumTriangles  int
}

// Primitive is one draw range inside an output unit. Index values are local
// to the unit's vertex buffer.
type Primitive struct {
	Name        string
	StartIndex  uint32
	NumIndices  uint32
	StartVertex uint32
	NumVertices uint32
}
