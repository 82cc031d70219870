// Package bounds computes the bounding volumes stored with every vertex
// buffer: an axis-aligned box, a bounding sphere and an oriented box.
package bounds

import (
	"encoding/binary"
	"io"

	"github.com/chewxy/math32"

	"github.com/Faultbox/geometryc/pkg/math"
)

// OBB search resolution limits.
const (
	DefaultOBBSteps = 17
	MaxOBBSteps     = 90
)

// Serialized sizes in bytes.
const (
	SphereSize  = 16
	AABBSize    = 24
	OBBSize     = 64
	VolumesSize = SphereSize + AABBSize + OBBSize
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max math.Vec3
}

// Center returns the box center.
func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extents returns the box size along each axis.
func (b AABB) Extents() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center math.Vec3
	Radius float32
}

// OBB is an oriented bounding box stored as the matrix that maps the unit
// cube [-1,1]^3 onto the box.
type OBB struct {
	Matrix math.Mat4
}

// Volumes groups the three bounding volumes in serialization order.
type Volumes struct {
	Sphere Sphere
	AABB   AABB
	OBB    OBB
}

// CalcAABB returns the bounding box of points. An empty set yields a zero box.
func CalcAABB(points []math.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	box := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box.Min = box.Min.Min(p)
		box.Max = box.Max.Max(p)
	}
	return box
}

// CalcMaxSphere returns the sphere centered on the bounding box center that
// encloses every point.
func CalcMaxSphere(points []math.Vec3) Sphere {
	center := CalcAABB(points).Center()
	var maxSq float32
	for _, p := range points {
		if d := p.Sub(center).LengthSqr(); d > maxSq {
			maxSq = d
		}
	}
	return Sphere{Center: center, Radius: math32.Sqrt(maxSq)}
}

// CalcMinSphere returns an approximately minimal enclosing sphere using
// Ritter's method: seed from the two most distant points found by two
// farthest-point passes, then grow to cover the outliers.
func CalcMinSphere(points []math.Vec3) Sphere {
	if len(points) == 0 {
		return Sphere{}
	}

	a := farthest(points, points[0])
	b := farthest(points, a)

	s := Sphere{
		Center: a.Add(b).Scale(0.5),
		Radius: a.Distance(b) * 0.5,
	}

	for _, p := range points {
		d := p.Distance(s.Center)
		if d <= s.Radius {
			continue
		}
		r := (s.Radius + d) * 0.5
		s.Center = s.Center.Add(p.Sub(s.Center).Scale((r - s.Radius) / d))
		s.Radius = r
	}

	// Float drift in the grow step can leave a point a hair outside.
	for _, p := range points {
		if d := p.Distance(s.Center); d > s.Radius {
			s.Radius = d
		}
	}
	return s
}

func farthest(points []math.Vec3, from math.Vec3) math.Vec3 {
	best := from
	var bestSq float32 = -1
	for _, p := range points {
		if d := p.Sub(from).LengthSqr(); d > bestSq {
			bestSq = d
			best = p
		}
	}
	return best
}

// CalcSphere returns the smaller of the max and min spheres.
func CalcSphere(points []math.Vec3) Sphere {
	maxSphere := CalcMaxSphere(points)
	minSphere := CalcMinSphere(points)
	if minSphere.Radius > maxSphere.Radius {
		return maxSphere
	}
	return minSphere
}

// CalcOBB searches steps^3 rotations about X, Y and Z in increments of
// pi/2/steps and returns the rotated box with the smallest volume. Surface
// area breaks ties. steps is clamped to [1, MaxOBBSteps].
func CalcOBB(points []math.Vec3, steps int) OBB {
	steps = max(1, min(steps, MaxOBBSteps))

	box := CalcAABB(points)
	best := OBB{Matrix: boxMatrix(box, math.Identity())}
	bestVolume, bestArea := volumeArea(box)

	if len(points) == 0 {
		return best
	}

	delta := math32.Pi / 2 / float32(steps)
	local := make([]math.Vec3, len(points))

	for ix := 0; ix < steps; ix++ {
		ax := float32(ix) * delta
		for iy := 0; iy < steps; iy++ {
			ay := float32(iy) * delta
			for iz := 0; iz < steps; iz++ {
				az := float32(iz) * delta

				rot := math.RotateXYZ(ax, ay, az)
				inv := rot.Transpose()
				for i, p := range points {
					local[i] = inv.TransformPoint(p)
				}

				lbox := CalcAABB(local)
				vol, area := volumeArea(lbox)
				if vol < bestVolume || (vol == bestVolume && area < bestArea) {
					bestVolume = vol
					bestArea = area
					best.Matrix = boxMatrix(lbox, rot)
				}
			}
		}
	}
	return best
}

func volumeArea(b AABB) (volume, area float32) {
	e := b.Extents()
	return e.X * e.Y * e.Z, 2 * (e.X*e.Y + e.Y*e.Z + e.Z*e.X)
}

// boxMatrix maps [-1,1]^3 onto box expressed in the frame rot.
func boxMatrix(box AABB, rot math.Mat4) math.Mat4 {
	c := box.Center()
	h := box.Extents().Scale(0.5)
	return rot.Mul(math.Translate(c.X, c.Y, c.Z)).Mul(math.Scale(h.X, h.Y, h.Z))
}

// Calc computes all volumes of points.
func Calc(points []math.Vec3, obbSteps int) Volumes {
	return Volumes{
		Sphere: CalcSphere(points),
		AABB:   CalcAABB(points),
		OBB:    CalcOBB(points, obbSteps),
	}
}

// WriteTo writes sphere, box and oriented box as little-endian floats.
func (v Volumes) WriteTo(w io.Writer) (int64, error) {
	var buf [VolumesSize]byte
	off := 0
	put := func(f float32) {
		binary.LittleEndian.PutUint32(buf[off:], math32.Float32bits(f))
		off += 4
	}

	put(v.Sphere.Center.X)
	put(v.Sphere.Center.Y)
	put(v.Sphere.Center.Z)
	put(v.Sphere.Radius)
	for _, f := range v.AABB.Min.Array() {
		put(f)
	}
	for _, f := range v.AABB.Max.Array() {
		put(f)
	}
	for _, f := range v.OBB.Matrix {
		put(f)
	}

	n, err := w.Write(buf[:])
	return int64(n), err
}

// ReadVolumes decodes the layout produced by WriteTo.
func ReadVolumes(r io.Reader) (Volumes, error) {
	var buf [VolumesSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Volumes{}, err
	}
	off := 0
	get := func() float32 {
		f := math32.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
		return f
	}

	var v Volumes
	v.Sphere.Center = math.Vec3{X: get(), Y: get(), Z: get()}
	v.Sphere.Radius = get()
	v.AABB.Min = math.Vec3{X: get(), Y: get(), Z: get()}
	v.AABB.Max = math.Vec3{X: get(), Y: get(), Z: get()}
	for i := range v.OBB.Matrix {
		v.OBB.Matrix[i] = get()
	}
	return v, nil
}
