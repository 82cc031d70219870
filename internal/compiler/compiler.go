package compiler

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/geometryc/pkg/formats"
	"github.com/Faultbox/geometryc/pkg/mesh"
)

// ErrNoGeometry is returned when the input holds no triangles.
var ErrNoGeometry = errors.New("no triangles in input")

// Stats summarizes one compilation.
type Stats struct {
	Lines      int
	Groups     int
	Triangles  int
	Units      int
	Primitives int
	Vertices   int
	Indices    int

	RawIndexBytes   int
	CompressedBytes int
	OutputBytes     int64

	ParseTime    time.Duration
	OptimizeTime time.Duration
	ConvertTime  time.Duration
}

// Fields returns the stats as log fields.
func (s Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("lines", s.Lines),
		zap.Int("groups", s.Groups),
		zap.Int("triangles", s.Triangles),
		zap.Int("units", s.Units),
		zap.Int("primitives", s.Primitives),
		zap.Int("vertices", s.Vertices),
		zap.Int("indices", s.Indices),
		zap.Int64("size", s.OutputBytes),
		zap.Duration("parse", s.ParseTime),
		zap.Duration("reorder", s.OptimizeTime),
		zap.Duration("convert", s.ConvertTime),
	}
}

// Compile parses OBJ source and writes the compiled geometry to w.
func Compile(src []byte, w io.Writer, s Settings) (Stats, error) {
	s = s.normalized()
	var stats Stats

	start := time.Now()
	obj, err := formats.ParseOBJ(src, formats.ParseOptions{
		Scale:       s.Scale,
		CCW:         s.CCW,
		Barycentric: s.Barycentric,
		Strict:      s.Strict,
		Logger:      s.Logger.Named("obj"),
		Names:       s.Names,
	})
	if err != nil {
		return stats, errors.Wrap(err, "parsing")
	}
	stats.ParseTime = time.Since(start)
	stats.Lines = obj.Lines
	stats.Groups = len(obj.Groups)
	stats.Triangles = len(obj.Triangles)

	if len(obj.Triangles) == 0 {
		return stats, errors.WithStack(ErrNoGeometry)
	}

	start = time.Now()
	hasTexcoord, hasNormal := obj.Table.FillMissing()
	layout, tangent := deriveLayout(hasTexcoord, hasNormal, s)
	if s.Tangent && !tangent {
		s.Logger.Debug("tangents disabled, mesh lacks texcoords or normals")
	}

	groups := SortGroups(obj.Groups)

	gw := formats.NewGeomWriter(w, s.OBBSteps)
	b := newBuilder(obj, layout, tangent, gw, s, &stats)
	if err := b.build(groups); err != nil {
		return stats, errors.Wrap(err, "building")
	}

	stats.OutputBytes = gw.Written()
	stats.ConvertTime = time.Since(start) - stats.OptimizeTime
	return stats, nil
}

// SortGroups returns the groups ordered by material name. Groups with equal
// materials keep their source order.
func SortGroups(groups []mesh.Group) []mesh.Group {
	sorted := slices.Clone(groups)
	slices.SortStableFunc(sorted, func(a, b mesh.Group) int {
		return strings.Compare(a.Material, b.Material)
	})
	return sorted
}
