package meshio

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/sdfgen"
	"github.com/gogpu/sdfgen/geom"
)

const cubeOBJ = `# unit cube
v -0.5 -0.5 -0.5
v  0.5 -0.5 -0.5
v  0.5  0.5 -0.5
v -0.5  0.5 -0.5
v -0.5 -0.5  0.5
v  0.5 -0.5  0.5
v  0.5  0.5  0.5
v -0.5  0.5  0.5
f 1 2 3
f 1 3 4
f 5 7 6
f 5 8 7
f 1 2 6
f 1 6 5
f 4 3 7
f 4 7 8
f 1 5 8
f 1 8 4
f 2 3 7
f 2 7 6
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOBJCube(t *testing.T) {
	mesh, err := LoadOBJ(writeTemp(t, "cube.obj", cubeOBJ))
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Vertices) != 8 || len(mesh.Triangles) != 12 {
		t.Errorf("got %d vertices, %d triangles, want 8, 12",
			len(mesh.Vertices), len(mesh.Triangles))
	}
	if err := mesh.Validate(); err != nil {
		t.Errorf("loaded mesh invalid: %v", err)
	}
	b := mesh.Bounds()
	if b.Min != geom.V3(-0.5, -0.5, -0.5) || b.Max != geom.V3(0.5, 0.5, 0.5) {
		t.Errorf("bounds = %v..%v", b.Min, b.Max)
	}
}

func TestDecodeOBJFaceForms(t *testing.T) {
	// Slash forms all reduce to the position index; a quad fans into two
	// triangles; negative indices count back from the vertices read so far.
	src := `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1/10 2/11/20 3//30
f -4 -2 -1
f 1 2 3 4
`
	mesh, err := DecodeOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	want := [][3]uint32{{0, 1, 2}, {0, 2, 3}, {0, 1, 2}, {0, 2, 3}}
	if len(mesh.Triangles) != len(want) {
		t.Fatalf("got %d triangles, want %d", len(mesh.Triangles), len(want))
	}
	for i, tri := range want {
		if mesh.Triangles[i] != tri {
			t.Errorf("triangle %d = %v, want %v", i, mesh.Triangles[i], tri)
		}
	}
}

func TestDecodeOBJErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"index out of range", "v 0 0 0\nf 1 2 3\n"},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n"},
		{"bad coordinate", "v 0 zero 0\n"},
		{"no geometry", "# only comments\n"},
		{"short face", "v 0 0 0\nv 1 0 0\nf 1 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeOBJ(strings.NewReader(tt.src)); !errors.Is(err, ErrParse) {
				t.Errorf("err = %v, want ErrParse", err)
			}
		})
	}
}

const triangleSTL = `solid tri
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid tri
`

func TestDecodeSTLASCII(t *testing.T) {
	mesh, err := DecodeSTL([]byte(triangleSTL))
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Triangles) != 1 || len(mesh.Vertices) != 3 {
		t.Fatalf("got %d triangles, %d vertices, want 1, 3", len(mesh.Triangles), len(mesh.Vertices))
	}
	if mesh.Vertices[1] != geom.V3(1, 0, 0) {
		t.Errorf("vertex 1 = %v, want (1,0,0)", mesh.Vertices[1])
	}
}

func TestDecodeSTLASCIIErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"facet outside solid", "facet normal 0 0 1\n"},
		{"short facet", "solid s\nfacet\nouter loop\nvertex 0 0 0\nendloop\nendfacet\nendsolid\n"},
		{"vertex outside loop", "solid s\nvertex 0 0 0\nendsolid\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeASCIISTL([]byte(tt.src)); !errors.Is(err, ErrParse) {
				t.Errorf("err = %v, want ErrParse", err)
			}
		})
	}
}

// binarySTL builds a binary STL stream from triangles given as 9 floats each.
func binarySTL(header string, tris [][9]float32) []byte {
	buf := make([]byte, stlHeaderSize)
	copy(buf, header)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tris)))
	for _, tri := range tris {
		buf = append(buf, make([]byte, 12)...) // normal, ignored
		for _, f := range tri {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
		buf = append(buf, 0, 0) // attribute bytes
	}
	return buf
}

func TestDecodeSTLBinary(t *testing.T) {
	data := binarySTL("binary mesh", [][9]float32{
		{0, 0, 0, 1, 0, 0, 0, 1, 0},
		{0, 0, 1, 1, 0, 1, 0, 1, 1},
	})
	mesh, err := DecodeSTL(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Triangles) != 2 || len(mesh.Vertices) != 6 {
		t.Fatalf("got %d triangles, %d vertices, want 2, 6", len(mesh.Triangles), len(mesh.Vertices))
	}
	if mesh.Vertices[4] != geom.V3(1, 0, 1) {
		t.Errorf("vertex 4 = %v, want (1,0,1)", mesh.Vertices[4])
	}

	// Truncating the payload is a parse error.
	if _, err := DecodeSTL(data[:len(data)-10]); !errors.Is(err, ErrParse) {
		t.Errorf("truncated: err = %v, want ErrParse", err)
	}
}

func TestDecodeSTLSolidHeaderBinary(t *testing.T) {
	// Some exporters write "solid" into the binary header; size matching
	// must still detect the file as binary.
	data := binarySTL("solid exported-by-cad", [][9]float32{
		{0, 0, 0, 1, 0, 0, 0, 1, 0},
	})
	mesh, err := DecodeSTL(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Triangles) != 1 {
		t.Errorf("got %d triangles, want 1", len(mesh.Triangles))
	}
}

func TestLoadDispatch(t *testing.T) {
	if _, err := Load(writeTemp(t, "mesh.ply", "x")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.obj")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}

	mesh, err := Load(writeTemp(t, "tri.stl", triangleSTL))
	if err != nil {
		t.Fatal(err)
	}
	if len(mesh.Triangles) != 1 {
		t.Errorf("got %d triangles, want 1", len(mesh.Triangles))
	}
}

func TestGenerateFromFile(t *testing.T) {
	path := writeTemp(t, "cube.obj", cubeOBJ)
	res, err := GenerateFromFile(path,
		sdfgen.GridOptions{Dx: 0.1, Padding: 2},
		sdfgen.Options{Backend: sdfgen.BackendCPU})
	if err != nil {
		t.Fatal(err)
	}
	if res.Backend != sdfgen.BackendCPU {
		t.Errorf("backend = %v, want cpu", res.Backend)
	}
	if res.MeshBounds.Min != geom.V3(-0.5, -0.5, -0.5) {
		t.Errorf("mesh bounds min = %v", res.MeshBounds.Min)
	}
	f := res.Field
	// The cube encloses a negative region around the grid center.
	if got := f.At(f.Nx/2, f.Ny/2, f.Nz/2); got >= 0 {
		t.Errorf("center value = %v, want negative", got)
	}
	if got := f.At(0, 0, 0); got <= 0 {
		t.Errorf("corner value = %v, want positive", got)
	}

	if _, err := GenerateFromFile(path, sdfgen.GridOptions{}, sdfgen.Options{}); !errors.Is(err, sdfgen.ErrInvalidParameter) {
		t.Errorf("missing sizing: err = %v, want ErrInvalidParameter", err)
	}
}
