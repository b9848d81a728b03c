package sdfgen

import (
	"fmt"
	"math"

	"github.com/gogpu/sdfgen/geom"
)

// GridSpec describes a regular voxel grid: the world-space position of
// sample (0,0,0), a uniform cell size, and the cell count per axis.
// Sample (i,j,k) lies at Origin + (i,j,k)*Dx.
type GridSpec struct {
	Origin     geom.Vec3
	Dx         float32
	Nx, Ny, Nz int
}

// Validate reports whether the spec describes a usable grid.
func (g GridSpec) Validate() error {
	if !(g.Dx > 0) {
		return fmt.Errorf("%w: dx must be positive, got %v", ErrInvalidParameter, g.Dx)
	}
	if g.Nx < 1 || g.Ny < 1 || g.Nz < 1 {
		return fmt.Errorf("%w: dimensions must be at least 1, got %dx%dx%d",
			ErrInvalidParameter, g.Nx, g.Ny, g.Nz)
	}
	return nil
}

// Cells returns the total voxel count.
func (g GridSpec) Cells() int {
	return g.Nx * g.Ny * g.Nz
}

// Sample returns the world-space position of sample (i,j,k).
func (g GridSpec) Sample(i, j, k int) geom.Vec3 {
	return geom.Vec3{
		X: g.Origin.X + float32(i)*g.Dx,
		Y: g.Origin.Y + float32(j)*g.Dx,
		Z: g.Origin.Z + float32(k)*g.Dx,
	}
}

// GridOptions selects how ResolveGrid sizes the grid around a bounding box.
// Exactly one of Dx or NX must be set.
type GridOptions struct {
	// Dx fixes the cell size directly; cell counts are derived by dividing
	// each bounding-box extent by Dx and rounding up.
	Dx float32

	// NX fixes the interior cell count along the longest bounding-box axis;
	// the cell size follows from it and the other two axes are sized
	// proportionally, keeping voxels cubic.
	NX int

	// NY and NZ, together with NX, fix the total cell count of every axis
	// directly. The cell size becomes the largest per-axis extent divided
	// by that axis's interior count, so the mesh fits on all three axes.
	// Both must be set or unset as a pair with NX driving the mode.
	NY, NZ int

	// Padding is the number of empty cells appended on every side of every
	// axis. It may be zero.
	Padding int
}

// ResolveGrid turns mesh bounds and sizing options into a concrete GridSpec.
//
// With Dx set, the interior cell count per axis is ceil(extent/dx); with NX
// set alone, dx = longestExtent/NX and the other two interior counts are the
// rounded proportional extents. In both modes 2*Padding cells are added per
// axis and the origin is placed at bounds.Min - Padding*dx.
//
// With NX, NY, and NZ all set, the counts are the total grid dimensions as
// given, padding included, and dx is the largest per-axis extent divided by
// that axis's interior count so the mesh fits on every axis. Each dimension
// must exceed 2*Padding.
func ResolveGrid(bounds geom.Box, opts GridOptions) (GridSpec, error) {
	if opts.Padding < 0 {
		return GridSpec{}, fmt.Errorf("%w: padding must be non-negative, got %d",
			ErrInvalidParameter, opts.Padding)
	}
	ext := bounds.Extent()
	if !(ext.X > 0) && !(ext.Y > 0) && !(ext.Z > 0) {
		return GridSpec{}, fmt.Errorf("%w: bounding box has zero extent on all axes",
			ErrInvalidParameter)
	}

	var dx float64
	var inx, iny, inz int
	switch {
	case opts.Dx != 0 && opts.NX != 0:
		return GridSpec{}, fmt.Errorf("%w: dx and nx are mutually exclusive", ErrInvalidParameter)
	case (opts.NY != 0 || opts.NZ != 0) && (opts.NX == 0 || opts.NY == 0 || opts.NZ == 0):
		return GridSpec{}, fmt.Errorf("%w: explicit dimensions need nx, ny, and nz together",
			ErrInvalidParameter)
	case opts.NY != 0:
		if opts.NX < 0 || opts.NY < 0 || opts.NZ < 0 {
			return GridSpec{}, fmt.Errorf("%w: dimensions must be positive, got %dx%dx%d",
				ErrInvalidParameter, opts.NX, opts.NY, opts.NZ)
		}
		inx = opts.NX - 2*opts.Padding
		iny = opts.NY - 2*opts.Padding
		inz = opts.NZ - 2*opts.Padding
		if inx < 1 || iny < 1 || inz < 1 {
			return GridSpec{}, fmt.Errorf("%w: dimensions %dx%dx%d leave no interior cells after %d padding",
				ErrInvalidParameter, opts.NX, opts.NY, opts.NZ, opts.Padding)
		}
		// The largest per-axis spacing fits the mesh on all three axes.
		dx = math.Max(float64(ext.X)/float64(inx),
			math.Max(float64(ext.Y)/float64(iny), float64(ext.Z)/float64(inz)))
	case opts.Dx != 0:
		if !(opts.Dx > 0) {
			return GridSpec{}, fmt.Errorf("%w: dx must be positive, got %v",
				ErrInvalidParameter, opts.Dx)
		}
		dx = float64(opts.Dx)
		inx = interiorCells(float64(ext.X), dx)
		iny = interiorCells(float64(ext.Y), dx)
		inz = interiorCells(float64(ext.Z), dx)
	case opts.NX != 0:
		if opts.NX < 0 {
			return GridSpec{}, fmt.Errorf("%w: nx must be positive, got %d",
				ErrInvalidParameter, opts.NX)
		}
		longest := math.Max(float64(ext.X), math.Max(float64(ext.Y), float64(ext.Z)))
		dx = longest / float64(opts.NX)
		inx = proportionalCells(float64(ext.X), longest, opts.NX)
		iny = proportionalCells(float64(ext.Y), longest, opts.NX)
		inz = proportionalCells(float64(ext.Z), longest, opts.NX)
	default:
		return GridSpec{}, fmt.Errorf("%w: either dx or nx must be supplied", ErrInvalidParameter)
	}

	p := opts.Padding
	spec := GridSpec{
		Origin: geom.Vec3{
			X: bounds.Min.X - float32(p)*float32(dx),
			Y: bounds.Min.Y - float32(p)*float32(dx),
			Z: bounds.Min.Z - float32(p)*float32(dx),
		},
		Dx: float32(dx),
		Nx: inx + 2*p,
		Ny: iny + 2*p,
		Nz: inz + 2*p,
	}
	if err := spec.Validate(); err != nil {
		return GridSpec{}, err
	}
	return spec, nil
}

// interiorCells returns ceil(extent/dx), at least 1 so a flat axis still
// gets one sample row.
func interiorCells(extent, dx float64) int {
	n := int(math.Ceil(extent / dx))
	if n < 1 {
		n = 1
	}
	return n
}

// proportionalCells sizes a derived axis so its voxels stay cubic: the
// longest axis gets exactly nx cells, the others their rounded share.
func proportionalCells(extent, longest float64, nx int) int {
	if extent == longest {
		return nx
	}
	n := int(math.Round(extent / longest * float64(nx)))
	if n < 1 {
		n = 1
	}
	return n
}
