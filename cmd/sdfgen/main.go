// Command sdfgen converts closed oriented triangle meshes (OBJ, STL) into
// grid-based signed distance fields.
//
// The grid is sized by cell size (-dx), by the cell count along the
// longest mesh axis (-nx), or by explicit dimensions (-nx -ny -nz), with
// optional padding cells on every side.
// GPU acceleration is used automatically when a device is available; force
// a backend with -backend.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/sdfgen"
	"github.com/gogpu/sdfgen/meshio"

	// Enable GPU acceleration when a device is present.
	_ "github.com/gogpu/sdfgen/gpu"
)

// config mirrors the command-line flags for file-based invocation.
// Explicit flags take precedence over config file values.
type config struct {
	Dx      float64 `yaml:"dx"`
	NX      int     `yaml:"nx"`
	NY      int     `yaml:"ny"`
	NZ      int     `yaml:"nz"`
	Padding int     `yaml:"padding"`
	Band    int     `yaml:"band"`
	Backend string  `yaml:"backend"`
	Threads int     `yaml:"threads"`
	Output  string  `yaml:"output"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	var (
		dx         = flag.Float64("dx", 0, "grid cell size (mutually exclusive with -nx)")
		nx         = flag.Int("nx", 0, "cell count along the longest mesh axis (mutually exclusive with -dx)")
		ny         = flag.Int("ny", 0, "explicit y cell count; requires -nx and -nz")
		nz         = flag.Int("nz", 0, "explicit z cell count; requires -nx and -ny")
		padding    = flag.Int("padding", 1, "padding cells around the mesh on every side")
		band       = flag.Int("band", 0, "exact narrow-band width in cells (0 = default)")
		backend    = flag.String("backend", "auto", "execution backend: auto, cpu or gpu")
		threads    = flag.Int("threads", 0, "CPU worker count (0 = all cores)")
		output     = flag.String("o", "", "output file (default: input name with .sdf extension)")
		configPath = flag.String("config", "", "YAML config file with the same options")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [flags] <mesh.obj|mesh.stl>\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	input := flag.Arg(0)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	sdfgen.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config{Padding: 1, Backend: "auto"}
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			log.Fatalf("config: %v", err)
		}
		if cfg.Backend == "" {
			cfg.Backend = "auto"
		}
	}
	// Flags set on the command line override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dx":
			cfg.Dx = *dx
		case "nx":
			cfg.NX = *nx
		case "ny":
			cfg.NY = *ny
		case "nz":
			cfg.NZ = *nz
		case "padding":
			cfg.Padding = *padding
		case "band":
			cfg.Band = *band
		case "backend":
			cfg.Backend = *backend
		case "threads":
			cfg.Threads = *threads
		case "o":
			cfg.Output = *output
		}
	})
	if cfg.Output == "" {
		cfg.Output = strings.TrimSuffix(input, filepath.Ext(input)) + ".sdf"
	}

	be, err := sdfgen.ParseBackend(cfg.Backend)
	if err != nil {
		log.Fatal(err)
	}

	start := time.Now()
	res, err := meshio.GenerateFromFile(input,
		sdfgen.GridOptions{Dx: float32(cfg.Dx), NX: cfg.NX, NY: cfg.NY, NZ: cfg.NZ, Padding: cfg.Padding},
		sdfgen.Options{ExactBand: cfg.Band, Backend: be, NumThreads: cfg.Threads})
	if err != nil {
		log.Fatal(err)
	}
	elapsed := time.Since(start)

	if err := sdfgen.WriteFieldFile(cfg.Output, res.Field); err != nil {
		log.Fatal(err)
	}

	f := res.Field
	lo, hi := f.MinMax()
	fmt.Printf("wrote %s\n", cfg.Output)
	fmt.Printf("  grid:    %dx%dx%d, dx=%g\n", f.Nx, f.Ny, f.Nz, f.Dx)
	fmt.Printf("  bounds:  (%g, %g, %g) .. (%g, %g, %g)\n",
		res.MeshBounds.Min.X, res.MeshBounds.Min.Y, res.MeshBounds.Min.Z,
		res.MeshBounds.Max.X, res.MeshBounds.Max.Y, res.MeshBounds.Max.Z)
	fmt.Printf("  range:   [%g, %g]\n", lo, hi)
	fmt.Printf("  inside:  %d of %d samples\n", f.InsideCount(), len(f.Values))
	fmt.Printf("  backend: %s, %s\n", res.Backend, elapsed.Round(time.Millisecond))
}
