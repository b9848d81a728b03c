package sdfgen

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/sdfgen/geom"
)

func TestResolveGridDxMode(t *testing.T) {
	bounds := geom.Box{Min: geom.V3(0, 0, 0), Max: geom.V3(1, 0.5, 0.3)}
	spec, err := ResolveGrid(bounds, GridOptions{Dx: 0.25, Padding: 1})
	if err != nil {
		t.Fatal(err)
	}
	if spec.Dx != 0.25 {
		t.Errorf("dx = %v, want 0.25", spec.Dx)
	}
	// Interior counts are ceil(extent/dx): 4, 2, 2; plus one padding cell
	// on each side.
	if spec.Nx != 6 || spec.Ny != 4 || spec.Nz != 4 {
		t.Errorf("dims = %dx%dx%d, want 6x4x4", spec.Nx, spec.Ny, spec.Nz)
	}
	want := geom.V3(-0.25, -0.25, -0.25)
	if spec.Origin != want {
		t.Errorf("origin = %v, want %v", spec.Origin, want)
	}
}

func TestResolveGridNXMode(t *testing.T) {
	bounds := geom.Box{Min: geom.V3(0, 0, 0), Max: geom.V3(2, 1, 0.5)}
	spec, err := ResolveGrid(bounds, GridOptions{NX: 20, Padding: 2})
	if err != nil {
		t.Fatal(err)
	}
	if spec.Dx != 0.1 {
		t.Errorf("dx = %v, want 0.1", spec.Dx)
	}
	// Longest axis gets 20 interior cells, the others 10 and 5, all plus
	// two padding cells per side.
	if spec.Nx != 24 || spec.Ny != 14 || spec.Nz != 9 {
		t.Errorf("dims = %dx%dx%d, want 24x14x9", spec.Nx, spec.Ny, spec.Nz)
	}
	if math.Abs(float64(spec.Origin.X)+0.2) > 1e-6 {
		t.Errorf("origin.X = %v, want -0.2", spec.Origin.X)
	}
}

func TestResolveGridExplicitDims(t *testing.T) {
	bounds := geom.Box{Min: geom.V3(0, 0, 0), Max: geom.V3(2, 1, 0.5)}

	// Matching aspect ratio: every axis needs the same spacing.
	spec, err := ResolveGrid(bounds, GridOptions{NX: 24, NY: 14, NZ: 9, Padding: 2})
	if err != nil {
		t.Fatal(err)
	}
	if spec.Nx != 24 || spec.Ny != 14 || spec.Nz != 9 {
		t.Errorf("dims = %dx%dx%d, want the requested 24x14x9", spec.Nx, spec.Ny, spec.Nz)
	}
	if spec.Dx != 0.1 {
		t.Errorf("dx = %v, want 0.1", spec.Dx)
	}
	if math.Abs(float64(spec.Origin.X)+0.2) > 1e-6 {
		t.Errorf("origin.X = %v, want -0.2", spec.Origin.X)
	}

	// Mismatched aspect ratio: the tightest axis dictates the spacing so
	// the mesh fits everywhere.
	spec, err = ResolveGrid(bounds, GridOptions{NX: 12, NY: 12, NZ: 12, Padding: 1})
	if err != nil {
		t.Fatal(err)
	}
	if spec.Nx != 12 || spec.Ny != 12 || spec.Nz != 12 {
		t.Errorf("dims = %dx%dx%d, want 12x12x12", spec.Nx, spec.Ny, spec.Nz)
	}
	if spec.Dx != 0.2 {
		t.Errorf("dx = %v, want 0.2 from the x axis", spec.Dx)
	}
}

func TestResolveGridFlatAxis(t *testing.T) {
	// A planar mesh has zero extent on one axis; that axis still gets one
	// sample row.
	bounds := geom.Box{Min: geom.V3(0, 0, 0), Max: geom.V3(1, 1, 0)}
	spec, err := ResolveGrid(bounds, GridOptions{Dx: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if spec.Nz != 1 {
		t.Errorf("nz = %d, want 1", spec.Nz)
	}
}

func TestResolveGridErrors(t *testing.T) {
	bounds := geom.Box{Min: geom.V3(0, 0, 0), Max: geom.V3(1, 1, 1)}
	tests := []struct {
		name   string
		bounds geom.Box
		opts   GridOptions
	}{
		{"both dx and nx", bounds, GridOptions{Dx: 0.1, NX: 20}},
		{"neither dx nor nx", bounds, GridOptions{}},
		{"negative dx", bounds, GridOptions{Dx: -0.1}},
		{"negative nx", bounds, GridOptions{NX: -5}},
		{"negative padding", bounds, GridOptions{Dx: 0.1, Padding: -1}},
		{"ny without nz", bounds, GridOptions{NX: 10, NY: 10}},
		{"ny and nz without nx", bounds, GridOptions{NY: 10, NZ: 10}},
		{"dims consumed by padding", bounds, GridOptions{NX: 4, NY: 4, NZ: 4, Padding: 2}},
		{"point bounds", geom.Box{Min: geom.V3(1, 2, 3), Max: geom.V3(1, 2, 3)}, GridOptions{Dx: 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveGrid(tt.bounds, tt.opts)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestGridSpecValidate(t *testing.T) {
	good := GridSpec{Dx: 0.1, Nx: 4, Ny: 4, Nz: 4}
	if err := good.Validate(); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
	for _, bad := range []GridSpec{
		{Dx: 0, Nx: 4, Ny: 4, Nz: 4},
		{Dx: -1, Nx: 4, Ny: 4, Nz: 4},
		{Dx: 0.1, Nx: 0, Ny: 4, Nz: 4},
		{Dx: 0.1, Nx: 4, Ny: -2, Nz: 4},
	} {
		if err := bad.Validate(); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidParameter", bad, err)
		}
	}
}

func TestGridSpecSample(t *testing.T) {
	spec := GridSpec{Origin: geom.V3(-1, 0, 2), Dx: 0.5, Nx: 4, Ny: 4, Nz: 4}
	got := spec.Sample(2, 0, 3)
	want := geom.V3(0, 0, 3.5)
	if got != want {
		t.Errorf("Sample(2,0,3) = %v, want %v", got, want)
	}
}
