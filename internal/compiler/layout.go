package compiler

import "github.com/Faultbox/geometryc/pkg/vertex"

// deriveLayout builds the single vertex layout used by every unit of the
// output. Tangents need both texcoords and normals and are dropped otherwise.
func deriveLayout(hasTexcoord, hasNormal bool, s Settings) (layout *vertex.Layout, tangent bool) {
	layout = &vertex.Layout{}
	layout.Add(vertex.Position, 3, vertex.Float, false, false)

	if s.Barycentric {
		layout.Add(vertex.Color1, 4, vertex.Uint8, true, false)
	}

	if hasTexcoord {
		if s.PackUV {
			layout.Add(vertex.TexCoord0, 2, vertex.Half, false, false)
		} else {
			layout.Add(vertex.TexCoord0, 2, vertex.Float, false, false)
		}
	}

	if hasNormal {
		tangent = s.Tangent && hasTexcoord
		if s.PackNormal {
			layout.Add(vertex.Normal, 4, vertex.Uint8, true, true)
			if tangent {
				layout.Add(vertex.Tangent, 4, vertex.Uint8, true, true)
			}
		} else {
			layout.Add(vertex.Normal, 3, vertex.Float, false, false)
			if tangent {
				layout.Add(vertex.Tangent, 4, vertex.Float, false, false)
			}
		}
	}

	return layout, tangent
}
