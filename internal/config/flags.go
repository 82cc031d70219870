package config

import "flag"

// Flags are the command-line overrides of the config file. Only flags that
// were set on the command line take effect.
type Flags struct {
	fs *flag.FlagSet

	config      *string
	debug       *bool
	scale       *float64
	ccw         *bool
	flipV       *bool
	obbSteps    *int
	packNormal  *int
	packUV      *int
	tangent     *bool
	barycentric *bool
	compress    *bool
	strict      *bool
	encoding    *string
}

// RegisterFlags defines the config flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:          fs,
		config:      fs.String("config", "", "Path to config file"),
		debug:       fs.Bool("debug", false, "Enable debug logging"),
		scale:       fs.Float64("scale", 1, "Scale factor for all positions"),
		ccw:         fs.Bool("ccw", false, "Counter-clockwise winding order"),
		flipV:       fs.Bool("flipv", false, "Flip texture coordinate V"),
		obbSteps:    fs.Int("obb", 17, "Number of steps for oriented bounding box (1-90)"),
		packNormal:  fs.Int("packnormal", 0, "Normal packing (0 unpacked, 1 packed)"),
		packUV:      fs.Int("packuv", 0, "Texture coordinate packing (0 unpacked, 1 packed)"),
		tangent:     fs.Bool("tangent", false, "Calculate tangent vectors"),
		barycentric: fs.Bool("barycentric", false, "Add barycentric vertex attribute"),
		compress:    fs.Bool("compress", false, "Compress index buffer"),
		strict:      fs.Bool("strict", false, "Fail on malformed numbers"),
		encoding:    fs.String("encoding", "", "Charset of group and material names"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}

	f.fs.Visit(func(fl *flag.Flag) {
		c := &cfg.Compile
		switch fl.Name {
		case "debug":
			if *f.debug {
				cfg.Logging.Level = "debug"
			}
		case "scale":
			c.Scale = float32(*f.scale)
		case "ccw":
			c.CCW = *f.ccw
		case "flipv":
			c.FlipV = *f.flipV
		case "obb":
			c.OBBSteps = *f.obbSteps
		case "packnormal":
			c.PackNormal = *f.packNormal != 0
		case "packuv":
			c.PackUV = *f.packUV != 0
		case "tangent":
			c.Tangent = *f.tangent
		case "barycentric":
			c.Barycentric = *f.barycentric
		case "compress":
			c.Compress = *f.compress
		case "strict":
			c.Strict = *f.strict
		case "encoding":
			c.NameEncoding = *f.encoding
		}
	})
}
