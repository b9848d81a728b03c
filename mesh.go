package sdfgen

import (
	"fmt"

	"github.com/gogpu/sdfgen/geom"
)

// Mesh is an immutable triangulated surface: a vertex list and a list of
// triangles indexing into it. Meshes are produced by the meshio package or
// constructed directly; the engine never mutates them.
//
// Sign resolution assumes the surface is closed and consistently wound.
// Triangle soups and open surfaces still produce correct absolute distances,
// but their inside/outside signs are unreliable.
type Mesh struct {
	Vertices  []geom.Vec3
	Triangles [][3]uint32
}

// Bounds returns the axis-aligned bounding box of the mesh vertices.
// An empty vertex list yields the inverted empty box.
func (m *Mesh) Bounds() geom.Box {
	box := geom.EmptyBox()
	for _, v := range m.Vertices {
		box.Expand(v)
	}
	return box
}

// Validate checks the structural invariants the engine relies on: at least
// one triangle, every triangle index strictly below the vertex count, and
// finite vertex coordinates.
//
// Out-of-range indices are rejected here rather than producing undefined
// geometry downstream.
func (m *Mesh) Validate() error {
	if len(m.Triangles) == 0 {
		return fmt.Errorf("%w: mesh has no triangles", ErrEmptyMesh)
	}
	nv := uint32(len(m.Vertices))
	for ti, tri := range m.Triangles {
		for c := 0; c < 3; c++ {
			if tri[c] >= nv {
				return fmt.Errorf("%w: triangle %d references vertex %d, have %d vertices",
					ErrInvalidMesh, ti, tri[c], nv)
			}
		}
	}
	for vi, v := range m.Vertices {
		if !v.IsFinite() {
			return fmt.Errorf("%w: vertex %d has non-finite coordinates", ErrInvalidMesh, vi)
		}
	}
	return nil
}
