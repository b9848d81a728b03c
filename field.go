package sdfgen

import (
	"fmt"

	"github.com/x448/float16"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/gogpu/sdfgen/geom"
)

// Default tolerances for cross-backend agreement. The GPU pipeline is
// permitted to differ from the CPU pipeline in floating-point rounding and
// sweep scheduling; these bounds are what the project tests against. They
// are deliberately conservative rather than a tight empirical fit.
const (
	// BackendRelTolerance is the default relative tolerance between CPU and
	// GPU field values.
	BackendRelTolerance = 1e-3

	// BackendAbsTolerance is the default absolute tolerance between CPU and
	// GPU field values, in world units per unit of cell size: the effective
	// absolute bound for a grid is BackendAbsTolerance*dx.
	BackendAbsTolerance = 1e-3
)

// Field is a dense signed distance field over a regular voxel grid.
// Values are indexed with i as the outermost (slowest) axis and k as the
// innermost, matching the (nx, ny, nz) shape convention: the linear index of
// (i,j,k) is (i*Ny+j)*Nz+k. Value magnitude approximates the distance to the
// mesh surface in world units; the sign encodes containment, negative inside.
type Field struct {
	Values     []float32
	Nx, Ny, Nz int
	Origin     geom.Vec3
	Dx         float32
}

// NewField allocates a zero-valued field with the geometry of spec.
func NewField(spec GridSpec) *Field {
	return &Field{
		Values: make([]float32, spec.Cells()),
		Nx:     spec.Nx,
		Ny:     spec.Ny,
		Nz:     spec.Nz,
		Origin: spec.Origin,
		Dx:     spec.Dx,
	}
}

// Index returns the linear index of sample (i,j,k).
func (f *Field) Index(i, j, k int) int {
	return (i*f.Ny+j)*f.Nz + k
}

// At returns the field value at sample (i,j,k).
func (f *Field) At(i, j, k int) float32 {
	return f.Values[f.Index(i, j, k)]
}

// Set stores the field value at sample (i,j,k).
func (f *Field) Set(i, j, k int, v float32) {
	f.Values[f.Index(i, j, k)] = v
}

// Spec returns the grid geometry of the field.
func (f *Field) Spec() GridSpec {
	return GridSpec{Origin: f.Origin, Dx: f.Dx, Nx: f.Nx, Ny: f.Ny, Nz: f.Nz}
}

// Bounds returns the world-space box spanned by the grid, derived from the
// origin, dimensions and cell size.
func (f *Field) Bounds() geom.Box {
	return geom.Box{
		Min: f.Origin,
		Max: geom.Vec3{
			X: f.Origin.X + float32(f.Nx)*f.Dx,
			Y: f.Origin.Y + float32(f.Ny)*f.Dx,
			Z: f.Origin.Z + float32(f.Nz)*f.Dx,
		},
	}
}

// InsideCount returns the number of samples with negative distance.
func (f *Field) InsideCount() int {
	n := 0
	for _, v := range f.Values {
		if v < 0 {
			n++
		}
	}
	return n
}

// MinMax returns the smallest and largest values in the field.
// Both are zero for an empty value slice.
func (f *Field) MinMax() (lo, hi float32) {
	if len(f.Values) == 0 {
		return 0, 0
	}
	lo, hi = f.Values[0], f.Values[0]
	for _, v := range f.Values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Half packs the field values into IEEE 754 half-precision bit patterns,
// round-to-nearest-even. The coercion is lossy but deterministic; it exists
// for memory-constrained consumers such as GPU f16 texture uploads.
func (f *Field) Half() []uint16 {
	out := make([]uint16, len(f.Values))
	for i, v := range f.Values {
		out[i] = float16.Fromfloat32(v).Bits()
	}
	return out
}

// FieldFromHalf expands half-precision bit patterns produced by Half back
// into a field with the geometry of spec. The payload length must match the
// grid size.
func FieldFromHalf(spec GridSpec, bits []uint16) (*Field, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(bits) != spec.Cells() {
		return nil, fmt.Errorf("%w: payload has %d values, grid needs %d",
			ErrInvalidParameter, len(bits), spec.Cells())
	}
	f := NewField(spec)
	for i, b := range bits {
		f.Values[i] = float16.Frombits(b).Float32()
	}
	return f, nil
}

// FieldFromFloat64 builds a field from double-precision values, coercing
// them to the canonical 32-bit representation. The conversion is the usual
// (lossy but deterministic) float64-to-float32 rounding.
func FieldFromFloat64(spec GridSpec, values []float64) (*Field, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(values) != spec.Cells() {
		return nil, fmt.Errorf("%w: payload has %d values, grid needs %d",
			ErrInvalidParameter, len(values), spec.Cells())
	}
	f := NewField(spec)
	for i, v := range values {
		f.Values[i] = float32(v)
	}
	return f, nil
}

// FieldsWithinTolerance reports whether two fields share the same grid
// geometry and every pair of values agrees within the given relative or
// absolute tolerance. The absolute tolerance is scaled by the cell size, so
// the comparison is resolution-independent. Pass BackendRelTolerance and
// BackendAbsTolerance for the documented cross-backend bound.
func FieldsWithinTolerance(a, b *Field, relTol, absTol float64) bool {
	if a.Nx != b.Nx || a.Ny != b.Ny || a.Nz != b.Nz ||
		a.Origin != b.Origin || a.Dx != b.Dx || len(a.Values) != len(b.Values) {
		return false
	}
	abs := absTol * float64(a.Dx)
	for i := range a.Values {
		if !scalar.EqualWithinAbsOrRel(float64(a.Values[i]), float64(b.Values[i]), abs, relTol) {
			return false
		}
	}
	return true
}
