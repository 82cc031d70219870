package formats

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/geometryc/pkg/encoding"
	"github.com/Faultbox/geometryc/pkg/math"
	"github.com/Faultbox/geometryc/pkg/mesh"
)

// OBJ format errors.
var (
	ErrMalformedNumber = errors.New("malformed number")
	ErrIndexOutOfRange = errors.New("face references missing attribute")
)

// ParseOptions controls how OBJ text is turned into triangles.
type ParseOptions struct {
	Scale       float32 // position scale, 0 means 1
	CCW         bool    // counter-clockwise winding
	Barycentric bool    // tag corners 0,1,2 for wireframe rendering
	Strict      bool    // fail on malformed numbers instead of reading 0

	Logger *zap.Logger
	Names  *encoding.NameDecoder
}

// OBJ is a parsed Wavefront OBJ mesh.
type OBJ struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	Texcoords []math.Vec3 // u, v, w; missing components are 0

	Table     *mesh.VertexTable
	Triangles []mesh.Triangle
	Groups    []mesh.Group

	Lines int
}

type objParser struct {
	opts ParseOptions
	log  *zap.Logger
	obj  *OBJ

	line       int
	name       string
	material   string
	groupStart int

	warned map[string]bool
}

// ParseOBJ parses OBJ text. Unsupported record kinds are skipped with a
// single warning per kind.
func ParseOBJ(data []byte, opts ParseOptions) (*OBJ, error) {
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	p := &objParser{
		opts:   opts,
		log:    log,
		obj:    &OBJ{Table: mesh.NewVertexTable()},
		warned: make(map[string]bool),
	}

	for len(data) > 0 {
		var line []byte
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			line, data = data, nil
		}
		p.line++

		if i := bytes.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(string(line))
		if len(fields) == 0 {
			continue
		}
		if err := p.record(fields[0], fields[1:]); err != nil {
			return nil, err
		}
	}
	p.flushGroup()

	p.obj.Lines = p.line
	return p.obj, nil
}

func (p *objParser) record(kind string, args []string) error {
	switch kind {
	case "v":
		p.flushGroup()
		return p.parsePosition(args)
	case "vn":
		p.flushGroup()
		n, err := p.parseVec3(kind, args, 3)
		if err != nil {
			return err
		}
		p.obj.Normals = append(p.obj.Normals, n)
	case "vt":
		p.flushGroup()
		t, err := p.parseVec3(kind, args, 1)
		if err != nil {
			return err
		}
		p.obj.Texcoords = append(p.obj.Texcoords, t)
	case "vp":
		p.flushGroup()
		p.warnOnce(kind, "parameter space vertices are unsupported")
	case "f":
		return p.parseFace(args)
	case "g":
		p.name = p.opts.Names.Decode(arg(args, 0))
	case "usemtl":
		material := p.opts.Names.Decode(arg(args, 0))
		if material != p.material {
			p.flushGroup()
			p.material = material
		}
	case "o", "s", "mtllib":
	default:
		p.warnOnce(kind, "unsupported record kind")
	}
	return nil
}

// flushGroup closes the triangle run accumulated since the last boundary.
func (p *objParser) flushGroup() {
	n := len(p.obj.Triangles) - p.groupStart
	if n == 0 {
		return
	}
	p.obj.Groups = append(p.obj.Groups, mesh.Group{
		Name:          p.name,
		Material:      p.material,
		StartTriangle: p.groupStart,
		NumTriangles:  n,
	})
	p.groupStart = len(p.obj.Triangles)
}

func (p *objParser) parsePosition(args []string) error {
	var xyzw [4]float32
	for i := range xyzw {
		if i == 3 && len(args) < 4 {
			xyzw[3] = 1
			break
		}
		f, err := p.number("v", arg(args, i))
		if err != nil {
			return err
		}
		xyzw[i] = f
	}
	if xyzw[3] == 0 {
		if err := p.malformed("v", "0"); err != nil {
			return err
		}
		xyzw[3] = 1
	}

	s := p.opts.Scale / xyzw[3]
	p.obj.Positions = append(p.obj.Positions, math.Vec3{X: xyzw[0] * s, Y: xyzw[1] * s, Z: xyzw[2] * s})
	return nil
}

// parseVec3 reads up to three components; components past required default to 0.
func (p *objParser) parseVec3(kind string, args []string, required int) (math.Vec3, error) {
	var v [3]float32
	for i := range v {
		if i >= required && i >= len(args) {
			break
		}
		f, err := p.number(kind, arg(args, i))
		if err != nil {
			return math.Vec3{}, err
		}
		v[i] = f
	}
	return math.V3(v), nil
}

func (p *objParser) parseFace(args []string) error {
	if len(args) < 3 {
		p.warnOnce("f<3", "faces with fewer than 3 corners are skipped")
		return nil
	}

	numPos := len(p.obj.Positions)
	numTex := len(p.obj.Texcoords)
	numNrm := len(p.obj.Normals)

	var tri mesh.Triangle
	for k, corner := range args {
		v, err := p.parseCorner(corner, numPos, numTex, numNrm)
		if err != nil {
			return err
		}
		if p.opts.Barycentric {
			v.Tag = cornerTag(k)
		}

		key, err := p.obj.Table.Insert(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", p.line, err)
		}

		switch {
		case k < 2:
			tri[k] = key
			continue
		case k == 2:
			tri[2] = key
			if p.opts.CCW {
				tri[1], tri[2] = tri[2], tri[1]
			}
		case p.opts.CCW:
			tri[2] = tri[1]
			tri[1] = key
		default:
			tri[1] = tri[2]
			tri[2] = key
		}
		p.obj.Triangles = append(p.obj.Triangles, tri)
	}
	return nil
}

// cornerTag cycles 1,2 after the first triangle so every fan triangle
// carries three distinct tags.
func cornerTag(k int) int32 {
	if k < 3 {
		return int32(k)
	}
	return int32(1 + (k+1)%2)
}

// parseCorner reads "p", "p/t", "p//n" or "p/t/n".
func (p *objParser) parseCorner(corner string, numPos, numTex, numNrm int) (mesh.Vertex, error) {
	v := mesh.Vertex{Texcoord: -1, Normal: -1}
	parts := strings.SplitN(corner, "/", 3)

	var err error
	if v.Position, err = p.index("position", parts[0], numPos); err != nil {
		return v, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if v.Texcoord, err = p.index("texcoord", parts[1], numTex); err != nil {
			return v, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if v.Normal, err = p.index("normal", parts[2], numNrm); err != nil {
			return v, err
		}
	}
	return v, nil
}

// index resolves a 1-based or negative relative reference against count.
func (p *objParser) index(attr, tok string, count int) (int32, error) {
	n, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		if err := p.malformed("f", tok); err != nil {
			return 0, err
		}
		n = 0
	}

	idx := n - 1
	if n < 0 {
		idx = int64(count) + n
	}
	if idx < 0 || idx >= int64(count) {
		return 0, fmt.Errorf("%w: line %d: %s %s of %d", ErrIndexOutOfRange, p.line, attr, tok, count)
	}
	return int32(idx), nil
}

func (p *objParser) number(kind, tok string) (float32, error) {
	f, err := strconv.ParseFloat(tok, 32)
	if err != nil {
		return 0, p.malformed(kind, tok)
	}
	return float32(f), nil
}

// malformed applies the malformed-number policy: an error in strict mode,
// otherwise a one-time warning per record kind.
func (p *objParser) malformed(kind, tok string) error {
	if p.opts.Strict {
		return fmt.Errorf("%w: line %d: %s %q", ErrMalformedNumber, p.line, kind, tok)
	}
	p.warnOnce("number:"+kind, "malformed number read as 0", zap.String("token", tok))
	return nil
}

func (p *objParser) warnOnce(key, msg string, fields ...zap.Field) {
	if p.warned[key] {
		return
	}
	p.warned[key] = true
	p.log.Warn(msg, append(fields, zap.Int("line", p.line), zap.String("kind", key))...)
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
