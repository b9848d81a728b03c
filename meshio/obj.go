package meshio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/sdfgen"
	"github.com/gogpu/sdfgen/geom"
)

// LoadOBJ reads a Wavefront OBJ file. Only vertex positions and faces are
// used; normals, texture coordinates, materials and groups are skipped.
// Faces with more than three vertices are fan-triangulated.
func LoadOBJ(path string) (*sdfgen.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: open %s: %w", path, err)
	}
	defer f.Close()
	mesh, err := DecodeOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mesh, nil
}

// DecodeOBJ parses OBJ data from r.
func DecodeOBJ(r io.Reader) (*sdfgen.Mesh, error) {
	mesh := &sdfgen.Mesh{}
	ignored := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			ignored++
		case strings.HasPrefix(line, "v ") || strings.HasPrefix(line, "v\t"):
			fields := strings.Fields(line)
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrParse, lineNo)
			}
			var v geom.Vec3
			for i, dst := range []*float32{&v.X, &v.Y, &v.Z} {
				x, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: bad coordinate %q", ErrParse, lineNo, fields[i+1])
				}
				*dst = float32(x)
			}
			mesh.Vertices = append(mesh.Vertices, v)
		case strings.HasPrefix(line, "f ") || strings.HasPrefix(line, "f\t"):
			fields := strings.Fields(line)[1:]
			if len(fields) < 3 {
				return nil, fmt.Errorf("%w: line %d: face needs at least 3 vertices", ErrParse, lineNo)
			}
			idx := make([]uint32, len(fields))
			for i, fld := range fields {
				// v, v/vt, v/vt/vn and v//vn all start with the position index.
				if slash := strings.IndexByte(fld, '/'); slash >= 0 {
					fld = fld[:slash]
				}
				n, err := strconv.Atoi(fld)
				if err != nil || n == 0 {
					return nil, fmt.Errorf("%w: line %d: bad vertex index %q", ErrParse, lineNo, fld)
				}
				if n < 0 {
					// Relative index, counted back from the vertices read so far.
					n = len(mesh.Vertices) + n + 1
				}
				if n < 1 || n > len(mesh.Vertices) {
					return nil, fmt.Errorf("%w: line %d: vertex index %d out of range", ErrParse, lineNo, n)
				}
				idx[i] = uint32(n - 1)
			}
			// Fan triangulation handles quads and larger polygons.
			for i := 1; i+1 < len(idx); i++ {
				mesh.Triangles = append(mesh.Triangles, [3]uint32{idx[0], idx[i], idx[i+1]})
			}
		default:
			ignored++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("meshio: read obj: %w", err)
	}

	if len(mesh.Vertices) == 0 || len(mesh.Triangles) == 0 {
		return nil, fmt.Errorf("%w: no usable geometry", ErrParse)
	}
	sdfgen.Logger().Debug("obj loaded",
		"vertices", len(mesh.Vertices), "triangles", len(mesh.Triangles), "ignoredLines", ignored)
	return mesh, nil
}
