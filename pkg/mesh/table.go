package mesh

import (
	"errors"
	"fmt"
)

// ErrIntegrity reports two distinct attribute tuples sharing one packed key.
// It is an internal fault, not a user input error.
var ErrIntegrity = errors.New("vertex key integrity fault")

// IntegrityError carries both sides of a key collision.
type IntegrityError struct {
	Key      VertexKey
	Existing Vertex
	Incoming Vertex
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: key %#016x maps to %d/%d/%d and %d/%d/%d",
		ErrIntegrity, uint64(e.Key),
		e.Existing.Position, e.Existing.Texcoord, e.Existing.Normal,
		e.Incoming.Position, e.Incoming.Texcoord, e.Incoming.Normal)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

// Vertex is the canonical record for one distinct corner tuple.
type Vertex struct {
	Position int32
	Texcoord int32 // -1 if absent
	Normal   int32 // -1 if absent
	Tag      int32 // barycentric corner tag 0..2

	// Slot is the vertex index inside the unit being emitted, or Unassigned.
	Slot int32
}

func (v Vertex) sameIdentity(o Vertex) bool {
	return v.Position == o.Position && v.Texcoord == o.Texcoord &&
		v.Normal == o.Normal && v.Tag == o.Tag
}

// VertexTable deduplicates corners by packed key. Iteration follows insertion
// order so output is reproducible.
type VertexTable struct {
	entries map[VertexKey]int
	verts   []Vertex
	keys    []VertexKey
}

// NewVertexTable returns an empty table.
func NewVertexTable() *VertexTable {
	return &VertexTable{entries: make(map[VertexKey]int)}
}

// Insert packs v into a key and records it on first sight. A repeated key must
// describe the same attribute tuple; otherwise an *IntegrityError is returned.
func (t *VertexTable) Insert(v Vertex) (VertexKey, error) {
	key, err := PackKey(v.Position, v.Texcoord, v.Normal, v.Tag)
	if err != nil {
		return 0, err
	}
	return key, t.insertKey(key, v)
}

func (t *VertexTable) insertKey(key VertexKey, v Vertex) error {
	if idx, ok := t.entries[key]; ok {
		if !t.verts[idx].sameIdentity(v) {
			return &IntegrityError{Key: key, Existing: t.verts[idx], Incoming: v}
		}
		return nil
	}
	v.Slot = Unassigned
	t.entries[key] = len(t.verts)
	t.verts = append(t.verts, v)
	t.keys = append(t.keys, key)
	return nil
}

// Len returns the number of canonical vertices.
func (t *VertexTable) Len() int {
	return len(t.verts)
}

// Get returns the canonical vertex for key.
func (t *VertexTable) Get(key VertexKey) (*Vertex, bool) {
	idx, ok := t.entries[key]
	if !ok {
		return nil, false
	}
	return &t.verts[idx], true
}

// Keys returns all keys in insertion order.
func (t *VertexTable) Keys() []VertexKey {
	return t.keys
}

// ResetSlots marks every vertex as not yet emitted.
func (t *VertexTable) ResetSlots() {
	for i := range t.verts {
		t.verts[i].Slot = Unassigned
	}
}

// FillMissing applies the mixed-attribute policy: if any vertex has a
// texcoord (normal), vertices without one are pointed at index 0. It reports
// which attributes are present.
func (t *VertexTable) FillMissing() (hasTexcoord, hasNormal bool) {
	for i := range t.verts {
		hasTexcoord = hasTexcoord || t.verts[i].Texcoord >= 0
		hasNormal = hasNormal || t.verts[i].Normal >= 0
	}
	for i := range t.verts {
		if hasTexcoord && t.verts[i].Texcoord < 0 {
			t.verts[i].Texcoord = 0
		}
		if hasNormal && t.verts[i].Normal < 0 {
			t.verts[i].Normal = 0
		}
	}
	return hasTexcoord, hasNormal
}
