package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Faultbox/geometryc/pkg/bounds"
	"github.com/Faultbox/geometryc/pkg/ibc"
	"github.com/Faultbox/geometryc/pkg/math"
	"github.com/Faultbox/geometryc/pkg/mesh"
	"github.com/Faultbox/geometryc/pkg/vertex"
)

// ChunkTag identifies a chunk of the geometry format. Tags are four bytes
// stored little-endian, the last byte being the chunk version.
type ChunkTag uint32

// Geometry chunk tags.
const (
	ChunkVertexBuffer      ChunkTag = 'V' | 'B'<<8 | ' '<<16 | 0x1<<24
	ChunkIndexBuffer       ChunkTag = 'I' | 'B'<<8 | ' '<<16 | 0x0<<24
	ChunkCompressedIndices ChunkTag = 'I' | 'B'<<8 | 'C'<<16 | 0x0<<24
	ChunkPrimitives        ChunkTag = 'P' | 'R'<<8 | 'I'<<16 | 0x0<<24
)

// String returns the printable part of the tag followed by its version.
func (t ChunkTag) String() string {
	b := [4]byte{byte(t), byte(t >> 8), byte(t >> 16), byte(t >> 24)}
	return fmt.Sprintf("%s%d", bytes.TrimRight(b[:3], " "), b[3])
}

// Geometry format errors.
var (
	ErrTruncatedGeom   = errors.New("truncated geometry data")
	ErrUnknownChunk    = errors.New("unknown geometry chunk")
	ErrUnexpectedChunk = errors.New("chunk out of order")
	ErrNameTooLong     = errors.New("name exceeds 65535 bytes")
)

// GeomWriter serializes compiled units: a vertex buffer, its raw or
// compressed indices and the primitive table. Bounding volumes are computed
// from the vertex positions as they are written.
type GeomWriter struct {
	w        io.Writer
	obbSteps int
	written  int64
	buf      []byte
	points   []math.Vec3
}

// NewGeomWriter returns a writer that samples obbSteps rotations per axis
// when fitting oriented boxes.
func NewGeomWriter(w io.Writer, obbSteps int) *GeomWriter {
	return &GeomWriter{w: w, obbSteps: obbSteps}
}

// Written returns the number of bytes written so far.
func (g *GeomWriter) Written() int64 {
	return g.written
}

func (g *GeomWriter) flush() error {
	n, err := g.w.Write(g.buf)
	g.written += int64(n)
	g.buf = g.buf[:0]
	return err
}

func (g *GeomWriter) tag(t ChunkTag) {
	g.buf = binary.LittleEndian.AppendUint32(g.buf[:0], uint32(t))
}

func (g *GeomWriter) volumes(layout *vertex.Layout, data []byte, start, count int) bounds.Volumes {
	g.points = g.points[:0]
	for i := start; i < start+count; i++ {
		p := layout.Unpack(data, i, vertex.Position)
		g.points = append(g.points, math.Vec3{X: p[0], Y: p[1], Z: p[2]})
	}
	return bounds.Calc(g.points, g.obbSteps)
}

func (g *GeomWriter) appendVolumes(v bounds.Volumes) {
	var b bytes.Buffer
	v.WriteTo(&b)
	g.buf = append(g.buf, b.Bytes()...)
}

func (g *GeomWriter) appendName(name string) error {
	if len(name) > 0xffff {
		return fmt.Errorf("%w: %d", ErrNameTooLong, len(name))
	}
	g.buf = binary.LittleEndian.AppendUint16(g.buf, uint16(len(name)))
	g.buf = append(g.buf, name...)
	return nil
}

// WriteVertexBuffer writes a VB chunk: bounds, layout, vertex count and the
// first numVertices vertices of data.
func (g *GeomWriter) WriteVertexBuffer(layout *vertex.Layout, data []byte, numVertices int) error {
	if numVertices > 0xffff {
		return fmt.Errorf("vertex count %d exceeds 16 bits", numVertices)
	}

	g.tag(ChunkVertexBuffer)
	g.appendVolumes(g.volumes(layout, data, 0, numVertices))

	var lb bytes.Buffer
	layout.WriteTo(&lb)
	g.buf = append(g.buf, lb.Bytes()...)

	g.buf = binary.LittleEndian.AppendUint16(g.buf, uint16(numVertices))
	g.buf = append(g.buf, data[:numVertices*layout.Stride()]...)
	return g.flush()
}

// WriteIndexBuffer writes an IB chunk.
func (g *GeomWriter) WriteIndexBuffer(indices []uint16) error {
	g.tag(ChunkIndexBuffer)
	g.buf = binary.LittleEndian.AppendUint32(g.buf, uint32(len(indices)))
	for _, idx := range indices {
		g.buf = binary.LittleEndian.AppendUint16(g.buf, idx)
	}
	return g.flush()
}

// WriteCompressedIndices writes an IBC chunk holding the encoded stream of
// numIndices indices.
func (g *GeomWriter) WriteCompressedIndices(numIndices int, stream []byte) error {
	g.tag(ChunkCompressedIndices)
	g.buf = binary.LittleEndian.AppendUint32(g.buf, uint32(numIndices))
	g.buf = binary.LittleEndian.AppendUint32(g.buf, uint32(len(stream)))
	g.buf = append(g.buf, stream...)
	return g.flush()
}

// WritePrimitives writes a PRI chunk. Each primitive is followed by the
// bounds of its vertex range in data.
func (g *GeomWriter) WritePrimitives(material string, prims []mesh.Primitive, layout *vertex.Layout, data []byte) error {
	if len(prims) > 0xffff {
		return fmt.Errorf("primitive count %d exceeds 16 bits", len(prims))
	}

	g.tag(ChunkPrimitives)
	if err := g.appendName(material); err != nil {
		return err
	}
	g.buf = binary.LittleEndian.AppendUint16(g.buf, uint16(len(prims)))

	for _, prim := range prims {
		if err := g.appendName(prim.Name); err != nil {
			return err
		}
		g.buf = binary.LittleEndian.AppendUint32(g.buf, prim.StartIndex)
		g.buf = binary.LittleEndian.AppendUint32(g.buf, prim.NumIndices)
		g.buf = binary.LittleEndian.AppendUint32(g.buf, prim.StartVertex)
		g.buf = binary.LittleEndian.AppendUint32(g.buf, prim.NumVertices)
		g.appendVolumes(g.volumes(layout, data, int(prim.StartVertex), int(prim.NumVertices)))
	}
	return g.flush()
}

// GeomPrimitive is a primitive read back from a PRI chunk.
type GeomPrimitive struct {
	mesh.Primitive
	Bounds bounds.Volumes
}

// GeomUnit is one VB chunk with its index and primitive chunks.
type GeomUnit struct {
	Bounds      bounds.Volumes
	Layout      vertex.Layout
	NumVertices int
	Vertices    []byte

	// Indices are decoded when the unit was stored compressed.
	Indices        []uint16
	Compressed     bool
	CompressedSize int

	Material   string
	Primitives []GeomPrimitive
}

// Geom is a parsed geometry file.
type Geom struct {
	Units []GeomUnit
}

// NumIndices returns the total index count over all units.
func (g *Geom) NumIndices() int {
	n := 0
	for _, u := range g.Units {
		n += len(u.Indices)
	}
	return n
}

// NumVertices returns the total vertex count over all units.
func (g *Geom) NumVertices() int {
	n := 0
	for _, u := range g.Units {
		n += u.NumVertices
	}
	return n
}

// ParseGeom parses a geometry file from raw bytes.
func ParseGeom(data []byte) (*Geom, error) {
	r := bytes.NewReader(data)
	geom := &Geom{}
	var unit *GeomUnit

	for r.Len() > 0 {
		var tag ChunkTag
		if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
			return nil, fmt.Errorf("%w: reading chunk tag", ErrTruncatedGeom)
		}

		switch tag {
		case ChunkVertexBuffer:
			if unit != nil {
				return nil, fmt.Errorf("%w: %s before %s", ErrUnexpectedChunk, tag, ChunkPrimitives)
			}
			u, err := readVertexBuffer(r)
			if err != nil {
				return nil, err
			}
			unit = u

		case ChunkIndexBuffer, ChunkCompressedIndices:
			if unit == nil || unit.Indices != nil {
				return nil, fmt.Errorf("%w: %s", ErrUnexpectedChunk, tag)
			}
			var err error
			if tag == ChunkIndexBuffer {
				err = readIndexBuffer(r, unit)
			} else {
				err = readCompressedIndices(r, unit)
			}
			if err != nil {
				return nil, err
			}

		case ChunkPrimitives:
			if unit == nil || unit.Indices == nil {
				return nil, fmt.Errorf("%w: %s", ErrUnexpectedChunk, tag)
			}
			if err := readPrimitives(r, unit); err != nil {
				return nil, err
			}
			geom.Units = append(geom.Units, *unit)
			unit = nil

		default:
			return nil, fmt.Errorf("%w: %#08x", ErrUnknownChunk, uint32(tag))
		}
	}

	if unit != nil {
		return nil, fmt.Errorf("%w: unit without %s", ErrTruncatedGeom, ChunkPrimitives)
	}
	return geom, nil
}

func readVertexBuffer(r *bytes.Reader) (*GeomUnit, error) {
	u := &GeomUnit{}
	var err error
	if u.Bounds, err = bounds.ReadVolumes(r); err != nil {
		return nil, fmt.Errorf("%w: vertex buffer bounds", ErrTruncatedGeom)
	}
	if u.Layout, err = vertex.ReadLayout(r); err != nil {
		return nil, err
	}

	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: vertex count", ErrTruncatedGeom)
	}
	u.NumVertices = int(count)
	u.Vertices = make([]byte, u.NumVertices*u.Layout.Stride())
	if _, err := io.ReadFull(r, u.Vertices); err != nil {
		return nil, fmt.Errorf("%w: vertex data", ErrTruncatedGeom)
	}
	return u, nil
}

func readIndexBuffer(r *bytes.Reader, u *GeomUnit) error {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: index count", ErrTruncatedGeom)
	}
	if int64(count)*2 > int64(r.Len()) {
		return fmt.Errorf("%w: %d indices", ErrTruncatedGeom, count)
	}
	u.Indices = make([]uint16, count)
	return binary.Read(r, binary.LittleEndian, u.Indices)
}

func readCompressedIndices(r *bytes.Reader, u *GeomUnit) error {
	var header struct {
		NumIndices uint32
		Size       uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("%w: compressed index header", ErrTruncatedGeom)
	}
	if int64(header.Size) > int64(r.Len()) {
		return fmt.Errorf("%w: %d compressed bytes", ErrTruncatedGeom, header.Size)
	}
	stream := make([]byte, header.Size)
	if _, err := io.ReadFull(r, stream); err != nil {
		return fmt.Errorf("%w: compressed indices", ErrTruncatedGeom)
	}

	indices, err := ibc.Decode(stream, int(header.NumIndices))
	if err != nil {
		return fmt.Errorf("decoding indices: %w", err)
	}
	if indices == nil {
		indices = []uint16{}
	}
	u.Indices = indices
	u.Compressed = true
	u.CompressedSize = int(header.Size)
	return nil
}

func readName(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("%w: name length", ErrTruncatedGeom)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("%w: name", ErrTruncatedGeom)
	}
	return string(b), nil
}

func readPrimitives(r *bytes.Reader, u *GeomUnit) error {
	var err error
	if u.Material, err = readName(r); err != nil {
		return err
	}

	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: primitive count", ErrTruncatedGeom)
	}

	u.Primitives = make([]GeomPrimitive, count)
	for i := range u.Primitives {
		prim := &u.Primitives[i]
		if prim.Name, err = readName(r); err != nil {
			return err
		}
		var ranges [4]uint32
		if err := binary.Read(r, binary.LittleEndian, &ranges); err != nil {
			return fmt.Errorf("%w: primitive %d ranges", ErrTruncatedGeom, i)
		}
		prim.StartIndex = ranges[0]
		prim.NumIndices = ranges[1]
		prim.StartVertex = ranges[2]
		prim.NumVertices = ranges[3]

		if prim.Bounds, err = bounds.ReadVolumes(r); err != nil {
			return fmt.Errorf("%w: primitive %d bounds", ErrTruncatedGeom, i)
		}
	}
	return nil
}
