// Package meshio loads triangle meshes from Wavefront OBJ and STL files
// and provides the file-to-field convenience entry point of the engine.
//
// Both loaders produce triangle soup suitable for level-set generation:
// normals, texture coordinates and material data are discarded, quads and
// larger OBJ faces are fan-triangulated, and STL triangles keep their three
// per-facet vertices without deduplication.
package meshio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gogpu/sdfgen"
	"github.com/gogpu/sdfgen/geom"
)

var (
	// ErrParse indicates a mesh file that could not be parsed: malformed
	// lines, truncated binary records, or a file with no usable geometry.
	ErrParse = errors.New("meshio: malformed mesh file")

	// ErrUnsupportedFormat indicates a file extension outside the supported
	// set (.obj, .stl).
	ErrUnsupportedFormat = errors.New("meshio: unsupported mesh format")
)

// Load reads a triangle mesh from the named file, dispatching on the
// lowercased file extension. Missing files surface the underlying fs error;
// malformed content fails with ErrParse.
func Load(path string) (*sdfgen.Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return LoadOBJ(path)
	case ".stl":
		return LoadSTL(path)
	default:
		return nil, fmt.Errorf("%w: %q (supported: .obj, .stl)",
			ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Result is the outcome of a file-to-field generation run.
type Result struct {
	Field *sdfgen.Field

	// MeshBounds is the tight bounding box of the loaded mesh, before
	// padding was applied.
	MeshBounds geom.Box

	// Backend is the execution backend that produced the field.
	Backend sdfgen.Backend
}

// GenerateFromFile loads a mesh file, sizes a grid around it, and computes
// its signed distance field in one call. It is the programmatic equivalent
// of the command-line tool.
func GenerateFromFile(path string, grid sdfgen.GridOptions, opts sdfgen.Options) (*Result, error) {
	mesh, err := Load(path)
	if err != nil {
		return nil, err
	}
	bounds := mesh.Bounds()
	spec, err := sdfgen.ResolveGrid(bounds, grid)
	if err != nil {
		return nil, err
	}
	sdfgen.Logger().Info("generating level set",
		"path", path, "triangles", len(mesh.Triangles),
		"dims", fmt.Sprintf("%dx%dx%d", spec.Nx, spec.Ny, spec.Nz), "dx", spec.Dx)
	field, err := sdfgen.MakeLevelSet(mesh, spec, opts)
	if err != nil {
		return nil, err
	}
	return &Result{
		Field:      field,
		MeshBounds: bounds,
		Backend:    sdfgen.ActiveBackend(),
	}, nil
}
