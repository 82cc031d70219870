// Package config handles compiler configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/geometryc/internal/compiler"
	"github.com/Faultbox/geometryc/pkg/bounds"
	"github.com/Faultbox/geometryc/pkg/encoding"
	"github.com/Faultbox/geometryc/pkg/vcache"
)

// Config holds all compiler settings.
type Config struct {
	Compile CompileConfig `yaml:"compile"`
	Logging LoggingConfig `yaml:"logging"`
}

// CompileConfig holds mesh conversion settings.
type CompileConfig struct {
	Scale        float32 `yaml:"scale"`
	CCW          bool    `yaml:"ccw"`
	FlipV        bool    `yaml:"flip_v"`
	OBBSteps     int     `yaml:"obb_steps"`
	PackNormal   bool    `yaml:"pack_normal"`
	PackUV       bool    `yaml:"pack_uv"`
	Tangent      bool    `yaml:"tangent"`
	Barycentric  bool    `yaml:"barycentric"`
	Compress     bool    `yaml:"compress"`
	CacheSize    int     `yaml:"cache_size"`
	MaxVertices  int     `yaml:"max_vertices"`
	Strict       bool    `yaml:"strict"`
	NameEncoding string  `yaml:"name_encoding"` // charset of group/material names
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Compile: CompileConfig{
			Scale:       1,
			OBBSteps:    bounds.DefaultOBBSteps,
			CacheSize:   vcache.DefaultCacheSize,
			MaxVertices: compiler.MaxVertices,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	cc := c.Compile
	if cc.Scale == 0 {
		return fmt.Errorf("compile.scale must not be 0")
	}
	if cc.OBBSteps < 1 || cc.OBBSteps > bounds.MaxOBBSteps {
		return fmt.Errorf("compile.obb_steps %d out of range [1,%d]", cc.OBBSteps, bounds.MaxOBBSteps)
	}
	if cc.CacheSize < 4 || cc.CacheSize > vcache.MaxCacheSize {
		return fmt.Errorf("compile.cache_size %d out of range [4,%d]", cc.CacheSize, vcache.MaxCacheSize)
	}
	if cc.MaxVertices < 3 || cc.MaxVertices > compiler.MaxVertices {
		return fmt.Errorf("compile.max_vertices %d out of range [3,%d]", cc.MaxVertices, compiler.MaxVertices)
	}
	return nil
}

// Settings converts the compile section into compiler settings.
func (c CompileConfig) Settings() (compiler.Settings, error) {
	names, err := encoding.NewNameDecoder(c.NameEncoding)
	if err != nil {
		return compiler.Settings{}, err
	}
	return compiler.Settings{
		Scale:       c.Scale,
		CCW:         c.CCW,
		FlipV:       c.FlipV,
		OBBSteps:    c.OBBSteps,
		PackNormal:  c.PackNormal,
		PackUV:      c.PackUV,
		Tangent:     c.Tangent,
		Barycentric: c.Barycentric,
		Compress:    c.Compress,
		CacheSize:   c.CacheSize,
		MaxVertices: c.MaxVertices,
		Strict:      c.Strict,
		Names:       names,
	}, nil
}
