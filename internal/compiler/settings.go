// Package compiler turns parsed OBJ meshes into the chunked geometry format.
package compiler

import (
	"go.uber.org/zap"

	"github.com/Faultbox/geometryc/pkg/bounds"
	"github.com/Faultbox/geometryc/pkg/encoding"
	"github.com/Faultbox/geometryc/pkg/vcache"
)

// MaxVertices is the largest vertex count of one output unit, kept below the
// 16-bit index ceiling.
const MaxVertices = 65533

// Settings is the immutable configuration of one compilation.
type Settings struct {
	Scale       float32
	CCW         bool
	FlipV       bool
	OBBSteps    int
	PackNormal  bool
	PackUV      bool
	Tangent     bool
	Barycentric bool
	Compress    bool
	CacheSize   int
	MaxVertices int
	Strict      bool

	Names  *encoding.NameDecoder
	Logger *zap.Logger
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Scale:       1,
		OBBSteps:    bounds.DefaultOBBSteps,
		CacheSize:   vcache.DefaultCacheSize,
		MaxVertices: MaxVertices,
	}
}

// normalized fills zero values and clamps ranges.
func (s Settings) normalized() Settings {
	if s.Scale == 0 {
		s.Scale = 1
	}
	if s.OBBSteps == 0 {
		s.OBBSteps = bounds.DefaultOBBSteps
	}
	s.OBBSteps = max(1, min(s.OBBSteps, bounds.MaxOBBSteps))
	if s.CacheSize == 0 {
		s.CacheSize = vcache.DefaultCacheSize
	}
	if s.MaxVertices <= 0 || s.MaxVertices > MaxVertices {
		s.MaxVertices = MaxVertices
	}
	s.MaxVertices = max(s.MaxVertices, 3)
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	return s
}
