package compiler

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/geometryc/pkg/formats"
	"github.com/Faultbox/geometryc/pkg/ibc"
	"github.com/Faultbox/geometryc/pkg/mesh"
	"github.com/Faultbox/geometryc/pkg/vcache"
	"github.com/Faultbox/geometryc/pkg/vertex"
)

// builder partitions sorted groups into units of at most MaxVertices
// vertices sharing one material, and writes each unit when it closes.
type builder struct {
	s       Settings
	log     *zap.Logger
	obj     *formats.OBJ
	layout  *vertex.Layout
	tangent bool
	w       *formats.GeomWriter
	enc     *ibc.Encoder
	stats   *Stats

	vertices    []byte
	indices     []uint16
	numVertices int
	material    string
	prims       []mesh.Primitive
	primIndex   int
	primVertex  int
}

func newBuilder(obj *formats.OBJ, layout *vertex.Layout, tangent bool, w *formats.GeomWriter, s Settings, stats *Stats) *builder {
	numCorners := len(obj.Triangles) * 3
	b := &builder{
		s:        s,
		log:      s.Logger,
		obj:      obj,
		layout:   layout,
		tangent:  tangent,
		w:        w,
		stats:    stats,
		vertices: make([]byte, min(numCorners, s.MaxVertices)*layout.Stride()),
		indices:  make([]uint16, 0, numCorners),
	}
	if s.Compress {
		b.enc = ibc.NewEncoder()
	}
	return b
}

func (b *builder) build(groups []mesh.Group) error {
	if len(groups) == 0 {
		return nil
	}
	b.material = groups[0].Material

	for _, g := range groups {
		for t := g.StartTriangle; t < g.StartTriangle+g.NumTriangles; t++ {
			if g.Material != b.material || b.numVertices+3 > b.s.MaxVertices {
				b.closePrimitive(g.Name)
				if err := b.flush(); err != nil {
					return err
				}
				b.material = g.Material
			}
			if err := b.emit(b.obj.Triangles[t]); err != nil {
				return err
			}
		}
		b.closePrimitive(g.Name)
	}
	return b.flush()
}

// emit appends one triangle, writing corners not yet seen in this unit.
func (b *builder) emit(tri mesh.Triangle) error {
	for _, key := range tri {
		v, ok := b.obj.Table.Get(key)
		if !ok {
			return fmt.Errorf("triangle references unknown vertex %v", key)
		}
		if v.Slot == mesh.Unassigned {
			v.Slot = int32(b.numVertices)
			b.writeVertex(b.numVertices, v)
			b.numVertices++
		}
		b.indices = append(b.indices, uint16(v.Slot))
	}
	return nil
}

func (b *builder) writeVertex(slot int, v *mesh.Vertex) {
	l := b.layout
	p := b.obj.Positions[v.Position]
	l.Pack(b.vertices, slot, vertex.Position, [4]float32{p.X, p.Y, p.Z}, false)

	if l.Has(vertex.Color1) {
		var bc [4]float32
		bc[v.Tag] = 1
		l.Pack(b.vertices, slot, vertex.Color1, bc, true)
	}

	if l.Has(vertex.TexCoord0) {
		uv := b.obj.Texcoords[v.Texcoord]
		if b.s.FlipV {
			uv.Y = -uv.Y
		}
		l.Pack(b.vertices, slot, vertex.TexCoord0, [4]float32{uv.X, uv.Y}, true)
	}

	if l.Has(vertex.Normal) {
		n := b.obj.Normals[v.Normal].Normalize()
		l.Pack(b.vertices, slot, vertex.Normal, [4]float32{n.X, n.Y, n.Z}, true)
	}
}

// closePrimitive ends the open primitive. Primitives without indices are
// dropped.
func (b *builder) closePrimitive(name string) {
	numIndices := len(b.indices) - b.primIndex
	if numIndices == 0 {
		return
	}
	b.prims = append(b.prims, mesh.Primitive{
		Name:        name,
		StartIndex:  uint32(b.primIndex),
		NumIndices:  uint32(numIndices),
		StartVertex: uint32(b.primVertex),
		NumVertices: uint32(b.numVertices - b.primVertex),
	})
	b.primIndex = len(b.indices)
	b.primVertex = b.numVertices
}

// flush finishes the open unit: tangents, triangle reorder, optional
// compression, then the VB, IB or IBC, and PRI chunks.
func (b *builder) flush() error {
	if len(b.prims) == 0 {
		b.reset()
		return nil
	}

	stride := b.layout.Stride()
	vertices := b.vertices[:b.numVertices*stride]
	indices := b.indices

	if b.tangent {
		vertex.CalcTangents(vertices, b.numVertices, b.layout, indices)
	}

	start := time.Now()
	for _, prim := range b.prims {
		seg := indices[prim.StartIndex : prim.StartIndex+prim.NumIndices]
		before := vcache.ACMR(seg, b.s.CacheSize)
		vcache.OptimizeInPlace(seg, b.numVertices, b.s.CacheSize)
		b.log.Debug("triangle reorder",
			zap.String("primitive", prim.Name),
			zap.Float32("acmr_before", before),
			zap.Float32("acmr_after", vcache.ACMR(seg, b.s.CacheSize)))
	}

	var stream []byte
	if b.enc != nil {
		var err error
		if stream, _, err = b.enc.Encode(indices, b.numVertices); err != nil {
			return fmt.Errorf("compressing indices: %w", err)
		}
		b.enc.Reorder(vertices, stride)

		raw := len(indices) * 2
		b.stats.CompressedBytes += len(stream)
		b.log.Debug("index compression",
			zap.String("material", b.material),
			zap.Int("raw", raw),
			zap.Int("compressed", len(stream)),
			zap.Float32("ratio", ibc.Ratio(raw, len(stream))))
	}
	b.stats.OptimizeTime += time.Since(start)

	if err := b.w.WriteVertexBuffer(b.layout, vertices, b.numVertices); err != nil {
		return fmt.Errorf("writing vertex buffer: %w", err)
	}
	if b.enc != nil {
		if err := b.w.WriteCompressedIndices(len(indices), stream); err != nil {
			return fmt.Errorf("writing compressed indices: %w", err)
		}
	} else if err := b.w.WriteIndexBuffer(indices); err != nil {
		return fmt.Errorf("writing index buffer: %w", err)
	}
	if err := b.w.WritePrimitives(b.material, b.prims, b.layout, vertices); err != nil {
		return fmt.Errorf("writing primitives: %w", err)
	}

	b.stats.Units++
	b.stats.Primitives += len(b.prims)
	b.stats.Vertices += b.numVertices
	b.stats.Indices += len(indices)
	b.stats.RawIndexBytes += len(indices) * 2

	b.reset()
	return nil
}

func (b *builder) reset() {
	b.obj.Table.ResetSlots()
	b.indices = b.indices[:0]
	b.numVertices = 0
	b.prims = b.prims[:0]
	b.primIndex = 0
	b.primVertex = 0
}
