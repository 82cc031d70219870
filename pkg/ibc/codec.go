// Package ibc implements a lossless compressed encoding for 16-bit triangle
// index buffers.
//
// Vertices are renumbered in order of first use, so a vertex seen for the
// first time costs a single bit. Triangles that share an edge with a recent
// triangle reference that edge through a small FIFO, and recently used
// vertices are referenced through a second FIFO. The encoder returns the
// vertex remap that the companion vertex buffer must be reordered with.
package ibc

import (
	"errors"
	"fmt"
)

const (
	fifoBits = 5
	fifoSize = 1 << fifoBits
	rotBits  = 2
)

// Unmapped marks a vertex that no triangle referenced while encoding.
const Unmapped = ^uint32(0)

// Codec errors.
var (
	ErrIndexCount  = errors.New("index count is not a multiple of 3")
	ErrVertexRange = errors.New("index exceeds vertex count")
	ErrTruncated   = errors.New("compressed index stream truncated")
	ErrCorrupt     = errors.New("compressed index stream corrupt")
)

type edge struct {
	a, b uint32
}

type edgeFIFO struct {
	items [fifoSize]edge
	head  int
	count int
}

func (f *edgeFIFO) reset() {
	f.head = 0
	f.count = 0
}

func (f *edgeFIFO) push(a, b uint32) {
	f.items[f.head] = edge{a, b}
	f.head = (f.head + 1) % fifoSize
	if f.count < fifoSize {
		f.count++
	}
}

// at returns the entry pushed offset pushes ago (0 is the newest).
func (f *edgeFIFO) at(offset int) edge {
	return f.items[(f.head-1-offset+2*fifoSize)%fifoSize]
}

func (f *edgeFIFO) find(a, b uint32) int {
	for off := 0; off < f.count; off++ {
		if e := f.at(off); e.a == a && e.b == b {
			return off
		}
	}
	return -1
}

type vertexFIFO struct {
	items [fifoSize]uint32
	head  int
	count int
}

func (f *vertexFIFO) reset() {
	f.head = 0
	f.count = 0
}

func (f *vertexFIFO) push(v uint32) {
	f.items[f.head] = v
	f.head = (f.head + 1) % fifoSize
	if f.count < fifoSize {
		f.count++
	}
}

func (f *vertexFIFO) at(offset int) uint32 {
	return f.items[(f.head-1-offset+2*fifoSize)%fifoSize]
}

func (f *vertexFIFO) find(v uint32) int {
	for off := 0; off < f.count; off++ {
		if f.at(off) == v {
			return off
		}
	}
	return -1
}

// Vertex code prefixes: 0 new, 10 cached, 11 free back-reference.
const (
	codeNew    = 0
	codeCached = 1
	codeFree   = 3
)

// Encoder compresses index buffers. Its scratch memory is reused across
// calls; the stream and remap returned by Encode stay valid until the next
// call to Encode or Reset.
type Encoder struct {
	w       bitWriter
	edges   edgeFIFO
	verts   vertexFIFO
	remap   []uint32
	scratch []byte
	nextNew uint32
}

// NewEncoder returns an encoder with empty scratch buffers.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Reset clears the encoder state while keeping its allocations.
func (e *Encoder) Reset() {
	e.w.reset()
	e.edges.reset()
	e.verts.reset()
	e.remap = e.remap[:0]
	e.nextNew = 0
}

// Encode compresses indices, a triangle list over numVertices vertices. It
// returns the bitstream and the remap: remap[old] is the new vertex index.
// Every vertex receives a new index; vertices not referenced by any triangle
// take the remaining slots in ascending order.
func (e *Encoder) Encode(indices []uint16, numVertices int) ([]byte, []uint32, error) {
	if len(indices)%3 != 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrIndexCount, len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= numVertices {
			return nil, nil, fmt.Errorf("%w: %d >= %d", ErrVertexRange, idx, numVertices)
		}
	}

	e.Reset()
	if cap(e.remap) < numVertices {
		e.remap = make([]uint32, numVertices)
	}
	e.remap = e.remap[:numVertices]
	for i := range e.remap {
		e.remap[i] = Unmapped
	}

	for t := 0; t+2 < len(indices); t += 3 {
		tri := [3]uint16{indices[t], indices[t+1], indices[t+2]}

		rot, slot := e.findEdge(tri)
		if slot >= 0 {
			x := e.remap[tri[rot]]
			y := e.remap[tri[(rot+1)%3]]
			e.w.writeBit(true)
			e.w.write(uint32(rot), rotBits)
			e.w.write(uint32(slot), fifoBits)
			z := e.encodeVertex(tri[(rot+2)%3])
			e.edges.push(z, y)
			e.edges.push(x, z)
			continue
		}

		e.w.writeBit(false)
		a := e.encodeVertex(tri[0])
		b := e.encodeVertex(tri[1])
		c := e.encodeVertex(tri[2])
		e.edges.push(b, a)
		e.edges.push(c, b)
		e.edges.push(a, c)
	}

	for i := range e.remap {
		if e.remap[i] == Unmapped {
			e.remap[i] = e.nextNew
			e.nextNew++
		}
	}

	return e.w.finish(), e.remap, nil
}

// findEdge looks for a rotation of tri whose leading edge is in the edge FIFO.
func (e *Encoder) findEdge(tri [3]uint16) (rot, slot int) {
	for rot = 0; rot < 3; rot++ {
		x := e.remap[tri[rot]]
		y := e.remap[tri[(rot+1)%3]]
		if x == Unmapped || y == Unmapped {
			continue
		}
		if slot = e.edges.find(x, y); slot >= 0 {
			return rot, slot
		}
	}
	return 0, -1
}

func (e *Encoder) encodeVertex(v uint16) uint32 {
	id := e.remap[v]
	if id == Unmapped {
		id = e.nextNew
		e.nextNew++
		e.remap[v] = id
		e.w.write(codeNew, 1)
		e.verts.push(id)
		return id
	}

	if slot := e.verts.find(id); slot >= 0 {
		e.w.write(codeCached, 2)
		e.w.write(uint32(slot), fifoBits)
		return id
	}

	e.w.write(codeFree, 2)
	e.w.writeExpGolomb(e.nextNew - 1 - id)
	e.verts.push(id)
	return id
}

// Decode expands a stream produced by Encode into numIndices indices, in the
// remapped vertex numbering.
func Decode(stream []byte, numIndices int) ([]uint16, error) {
	if numIndices%3 != 0 {
		return nil, fmt.Errorf("%w: %d", ErrIndexCount, numIndices)
	}

	d := decoder{r: bitReader{data: stream}}
	out := make([]uint16, numIndices)

	for t := 0; t < numIndices; t += 3 {
		hit, err := d.r.readBit()
		if err != nil {
			return nil, err
		}

		if hit {
			rot, err := d.r.read(rotBits)
			if err != nil {
				return nil, err
			}
			slot, err := d.r.read(fifoBits)
			if err != nil {
				return nil, err
			}
			if rot > 2 || int(slot) >= d.edges.count {
				return nil, ErrCorrupt
			}
			e := d.edges.at(int(slot))
			z, err := d.vertex()
			if err != nil {
				return nil, err
			}
			out[t+int(rot)] = uint16(e.a)
			out[t+(int(rot)+1)%3] = uint16(e.b)
			out[t+(int(rot)+2)%3] = uint16(z)
			d.edges.push(z, e.b)
			d.edges.push(e.a, z)
			continue
		}

		var tri [3]uint32
		for c := range tri {
			if tri[c], err = d.vertex(); err != nil {
				return nil, err
			}
			out[t+c] = uint16(tri[c])
		}
		d.edges.push(tri[1], tri[0])
		d.edges.push(tri[2], tri[1])
		d.edges.push(tri[0], tri[2])
	}
	return out, nil
}

type decoder struct {
	r       bitReader
	edges   edgeFIFO
	verts   vertexFIFO
	nextNew uint32
}

func (d *decoder) vertex() (uint32, error) {
	cached, err := d.r.readBit()
	if err != nil {
		return 0, err
	}
	if !cached {
		id := d.nextNew
		if id > 0xffff {
			return 0, ErrCorrupt
		}
		d.nextNew++
		d.verts.push(id)
		return id, nil
	}

	free, err := d.r.readBit()
	if err != nil {
		return 0, err
	}
	if !free {
		slot, err := d.r.read(fifoBits)
		if err != nil {
			return 0, err
		}
		if int(slot) >= d.verts.count {
			return 0, ErrCorrupt
		}
		return d.verts.at(int(slot)), nil
	}

	back, err := d.r.readExpGolomb()
	if err != nil {
		return 0, err
	}
	if back >= d.nextNew {
		return 0, ErrCorrupt
	}
	id := d.nextNew - 1 - back
	d.verts.push(id)
	return id, nil
}
