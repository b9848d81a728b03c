package meshio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/sdfgen"
	"github.com/gogpu/sdfgen/geom"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50 // normal (12) + 3 vertices (36) + attribute (2)
)

// LoadSTL reads an STL file, detecting binary versus ASCII automatically.
// Triangles are kept as independent vertex triples; no deduplication is
// attempted.
func LoadSTL(path string) (*sdfgen.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("meshio: open %s: %w", path, err)
	}
	mesh, err := DecodeSTL(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mesh, nil
}

// DecodeSTL parses STL data, dispatching on the detected format.
func DecodeSTL(data []byte) (*sdfgen.Mesh, error) {
	if stlIsBinary(data) {
		return decodeBinarySTL(data)
	}
	return decodeASCIISTL(data)
}

// stlIsBinary applies the detection heuristic of the reference tools: data
// not starting with "solid" is binary; data that does start with "solid"
// may still be binary (some exporters write it into the 80-byte header), so
// the declared triangle count is checked against the actual file size.
func stlIsBinary(data []byte) bool {
	if len(data) < 5 {
		return true
	}
	head := strings.ToLower(string(data[:min(len(data), stlHeaderSize)]))
	if !strings.HasPrefix(head, "solid") {
		return true
	}
	if len(data) < stlHeaderSize+4 {
		return false
	}
	ntris := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	expected := stlHeaderSize + 4 + int64(ntris)*stlTriangleSize
	return int64(len(data)) == expected
}

func decodeBinarySTL(data []byte) (*sdfgen.Mesh, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, fmt.Errorf("%w: binary stl shorter than header", ErrParse)
	}
	ntris := int(binary.LittleEndian.Uint32(data[stlHeaderSize:]))
	body := data[stlHeaderSize+4:]
	if len(body) < ntris*stlTriangleSize {
		return nil, fmt.Errorf("%w: binary stl truncated: %d triangles declared, %d bytes of data",
			ErrParse, ntris, len(body))
	}

	mesh := &sdfgen.Mesh{
		Vertices:  make([]geom.Vec3, 0, 3*ntris),
		Triangles: make([][3]uint32, 0, ntris),
	}
	for i := 0; i < ntris; i++ {
		rec := body[i*stlTriangleSize:]
		base := uint32(len(mesh.Vertices))
		for j := 0; j < 3; j++ {
			// Normal occupies the first 12 bytes of the record and is skipped.
			off := 12 + j*12
			mesh.Vertices = append(mesh.Vertices, geom.Vec3{
				X: math.Float32frombits(binary.LittleEndian.Uint32(rec[off:])),
				Y: math.Float32frombits(binary.LittleEndian.Uint32(rec[off+4:])),
				Z: math.Float32frombits(binary.LittleEndian.Uint32(rec[off+8:])),
			})
		}
		mesh.Triangles = append(mesh.Triangles, [3]uint32{base, base + 1, base + 2})
	}
	if len(mesh.Triangles) == 0 {
		return nil, fmt.Errorf("%w: binary stl has no triangles", ErrParse)
	}
	sdfgen.Logger().Debug("binary stl loaded", "triangles", len(mesh.Triangles))
	return mesh, nil
}

func decodeASCIISTL(data []byte) (*sdfgen.Mesh, error) {
	mesh := &sdfgen.Mesh{}
	inSolid, inFacet, inLoop := false, false, false
	vertexInFacet := 0
	var facetStart uint32

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 256), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "endsolid"):
			inSolid = false
		case strings.HasPrefix(lower, "solid"):
			inSolid = true
		case strings.HasPrefix(lower, "endfacet"):
			if vertexInFacet != 3 {
				return nil, fmt.Errorf("%w: line %d: facet has %d vertices", ErrParse, lineNo, vertexInFacet)
			}
			inFacet = false
			mesh.Triangles = append(mesh.Triangles, [3]uint32{facetStart, facetStart + 1, facetStart + 2})
		case strings.HasPrefix(lower, "facet"):
			if !inSolid {
				return nil, fmt.Errorf("%w: line %d: facet outside solid block", ErrParse, lineNo)
			}
			inFacet = true
			vertexInFacet = 0
			facetStart = uint32(len(mesh.Vertices))
		case strings.HasPrefix(lower, "outer loop"):
			inLoop = true
		case strings.HasPrefix(lower, "endloop"):
			inLoop = false
		case strings.HasPrefix(lower, "vertex"):
			if !inFacet || !inLoop {
				return nil, fmt.Errorf("%w: line %d: vertex outside facet loop", ErrParse, lineNo)
			}
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
			vertexInFacet++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("meshio: read stl: %w", err)
	}

	if len(mesh.Vertices) == 0 || len(mesh.Triangles) == 0 {
		return nil, fmt.Errorf("%w: no usable geometry", ErrParse)
	}
	sdfgen.Logger().Debug("ascii stl loaded", "triangles", len(mesh.Triangles))
	return mesh, nil
}
