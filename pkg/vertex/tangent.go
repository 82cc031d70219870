package vertex

import (
	"github.com/chewxy/math32"

	m "github.com/Faultbox/geometryc/pkg/math"
)

// Determinants below this are treated as degenerate UV mappings.
const uvEpsilon = 1e-12

// CalcTangents derives per-vertex tangents from positions, texture coordinates
// and normals of the indexed triangle list, and packs them into the Tangent
// attribute. The tangent's w holds the bitangent handedness (+1 or -1).
//
// Triangles with a degenerate UV mapping contribute nothing; vertices left
// without a usable tangent get one perpendicular to their normal.
func CalcTangents(data []byte, numVertices int, l *Layout, indices []uint16) {
	if !l.Has(Tangent) || numVertices == 0 {
		return
	}

	tangents := make([]m.Vec3, numVertices)
	bitangents := make([]m.Vec3, numVertices)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := int(indices[i]), int(indices[i+1]), int(indices[i+2])

		p0, uv0 := l.positionUV(data, i0)
		p1, uv1 := l.positionUV(data, i1)
		p2, uv2 := l.positionUV(data, i2)

		ba := p1.Sub(p0)
		ca := p2.Sub(p0)
		dba := uv1.Sub(uv0)
		dca := uv2.Sub(uv0)

		det := dba.Cross(dca)
		if math32.Abs(det) < uvEpsilon {
			continue
		}
		invDet := 1 / det

		t := ba.Scale(dca.Y).Sub(ca.Scale(dba.Y)).Scale(invDet)
		b := ca.Scale(dba.X).Sub(ba.Scale(dca.X)).Scale(invDet)
		if !t.IsFinite() || !b.IsFinite() {
			continue
		}

		for _, idx := range [3]int{i0, i1, i2} {
			tangents[idx] = tangents[idx].Add(t)
			bitangents[idx] = bitangents[idx].Add(b)
		}
	}

	for i := 0; i < numVertices; i++ {
		n4 := l.Unpack(data, i, Normal)
		normal := m.Vec3{X: n4[0], Y: n4[1], Z: n4[2]}

		tanu := tangents[i]
		tanv := bitangents[i]

		// Gram-Schmidt against the normal.
		t := tanu.Sub(normal.Scale(normal.Dot(tanu)))
		if t.LengthSqr() < uvEpsilon || !t.IsFinite() {
			t = perpendicular(normal)
		}
		t = t.Normalize()

		w := float32(1)
		if normal.Cross(tanu).Dot(tanv) < 0 {
			w = -1
		}

		l.Pack(data, i, Tangent, [4]float32{t.X, t.Y, t.Z, w}, true)
	}
}

func (l *Layout) positionUV(data []byte, index int) (m.Vec3, m.Vec2) {
	p := l.Unpack(data, index, Position)
	uv := l.Unpack(data, index, TexCoord0)
	return m.Vec3{X: p[0], Y: p[1], Z: p[2]}, m.Vec2{X: uv[0], Y: uv[1]}
}

// perpendicular returns some unit vector orthogonal to n.
func perpendicular(n m.Vec3) m.Vec3 {
	if math32.Abs(n.X) < 0.9 {
		return m.Vec3{X: 1}.Sub(n.Scale(n.X)).Normalize()
	}
	return m.Vec3{Y: 1}.Sub(n.Scale(n.Y)).Normalize()
}
