// geometryc compiles Wavefront OBJ meshes into the chunked geometry format.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/geometryc/internal/compiler"
	"github.com/Faultbox/geometryc/internal/config"
	"github.com/Faultbox/geometryc/internal/logger"
	"github.com/Faultbox/geometryc/pkg/formats"
	"github.com/Faultbox/geometryc/pkg/mesh"
	"github.com/Faultbox/geometryc/pkg/vertex"
)

var version = "dev"

// errUsage marks invocation errors that should print usage.
var errUsage = errors.New("usage")

func main() {
	args := os.Args[1:]
	command := "compile"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "compile":
		err = runCompile(args, os.Stdout)
	case "info":
		err = runInfo(args, os.Stdout)
	case "version":
		fmt.Printf("geometryc %s\n", version)
	case "help":
		printUsage(os.Stdout)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, command)
	}

	logger.Sync()
	if err == nil {
		return
	}

	if errors.Is(err, errUsage) {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	// Integrity faults are internal bugs; keep the stack trace.
	var integrity *mesh.IntegrityError
	if errors.As(err, &integrity) {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `geometryc %s - OBJ to geometry compiler

Usage:
  geometryc [compile] -f <in.obj> -o <out.bin> [options]
  geometryc info <file.bin>
  geometryc version

Options:
  -f <file path>       Input OBJ file
  -o <file path>       Output geometry file
  -scale <num>         Scale factor for all positions
  -ccw                 Counter-clockwise winding order
  -flipv               Flip texture coordinate V
  -obb <num>           Number of steps for oriented bounding box (1-90, default 17)
  -packnormal <num>    Normal packing (0 unpacked, 1 packed)
  -packuv <num>        Texture coordinate packing (0 unpacked, 1 packed)
  -tangent             Calculate tangent vectors
  -barycentric         Add barycentric vertex attribute
  -compress            Compress index buffer
  -strict              Fail on malformed numbers
  -encoding <charset>  Charset of group and material names (e.g. euc-kr)
  -config <file path>  Config file (default ./geometryc.yaml)
  -write-config <path> Write the effective config to path and exit
  -debug               Enable debug logging

Examples:
  geometryc -f bunny.obj -o bunny.bin
  geometryc compile -f level.obj -o level.bin -compress -tangent
  geometryc info bunny.bin
`, version)
}

func runCompile(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	input := fs.String("f", "", "Input OBJ file")
	output := fs.String("o", "", "Output geometry file")
	writeConfig := fs.String("write-config", "", "Write the effective config to path")
	flags := config.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if *writeConfig != "" {
		if err := cfg.SaveTo(*writeConfig); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Fprintf(stdout, "config written to %s\n", *writeConfig)
		return nil
	}

	if *input == "" {
		return fmt.Errorf("%w: input file must be specified", errUsage)
	}
	if *output == "" {
		return fmt.Errorf("%w: output file must be specified", errUsage)
	}

	settings, err := cfg.Compile.Settings()
	if err != nil {
		return err
	}
	settings.Logger = logger.Named("compiler")

	src, err := os.ReadFile(*input)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	stats, err := compileTo(*output, src, settings)
	if err != nil {
		return err
	}

	logger.Info("compiled", append([]zap.Field{
		zap.String("input", *input),
		zap.String("output", *output),
	}, stats.Fields()...)...)
	if stats.CompressedBytes > 0 {
		logger.Info("index compression",
			zap.Int("raw", stats.RawIndexBytes),
			zap.Int("compressed", stats.CompressedBytes))
	}
	return nil
}

// compileTo writes the compiled mesh to path. The file is removed when
// compilation or writing fails.
func compileTo(path string, src []byte, s compiler.Settings) (stats compiler.Stats, err error) {
	f, err := os.Create(path)
	if err != nil {
		return stats, fmt.Errorf("creating output: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, os.Remove(path))
		}
	}()

	w := bufio.NewWriter(f)
	stats, err = compiler.Compile(src, w, s)
	if err != nil {
		return stats, multierr.Append(err, f.Close())
	}

	if err = multierr.Combine(w.Flush(), f.Close()); err != nil {
		return stats, pkgerrors.Wrap(err, "writing output")
	}
	return stats, nil
}

func runInfo(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: info requires a geometry file", errUsage)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	geom, err := formats.ParseGeom(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	fmt.Fprintf(stdout, "File:       %s\n", args[0])
	fmt.Fprintf(stdout, "Size:       %d bytes\n", len(data))
	fmt.Fprintf(stdout, "Units:      %d\n", len(geom.Units))
	fmt.Fprintf(stdout, "Vertices:   %d\n", geom.NumVertices())
	fmt.Fprintf(stdout, "Triangles:  %d\n", geom.NumIndices()/3)

	for i, u := range geom.Units {
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "Unit %d: material %q\n", i, u.Material)
		fmt.Fprintf(stdout, "  Layout:   %s (stride %d)\n", describeLayout(&u.Layout), u.Layout.Stride())
		fmt.Fprintf(stdout, "  Vertices: %d\n", u.NumVertices)
		if u.Compressed {
			fmt.Fprintf(stdout, "  Indices:  %d (compressed %d bytes)\n", len(u.Indices), u.CompressedSize)
		} else {
			fmt.Fprintf(stdout, "  Indices:  %d\n", len(u.Indices))
		}
		s := u.Bounds.Sphere
		fmt.Fprintf(stdout, "  Sphere:   (%.3f, %.3f, %.3f) r=%.3f\n", s.Center.X, s.Center.Y, s.Center.Z, s.Radius)

		for _, p := range u.Primitives {
			fmt.Fprintf(stdout, "  %-20q indices %d+%d vertices %d+%d\n",
				p.Name, p.StartIndex, p.NumIndices, p.StartVertex, p.NumVertices)
		}
	}
	return nil
}

func describeLayout(l *vertex.Layout) string {
	var parts []string
	for a := vertex.Attrib(0); a < vertex.AttribCount; a++ {
		if !l.Has(a) {
			continue
		}
		num, typ, _, _ := l.Decode(a)
		parts = append(parts, fmt.Sprintf("%s:%dx%s", a, num, typ))
	}
	return strings.Join(parts, " ")
}
