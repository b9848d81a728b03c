package sdfgen

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/sdfgen/geom"
)

func testSpec() GridSpec {
	return GridSpec{Origin: geom.V3(-1, -1, -1), Dx: 0.5, Nx: 3, Ny: 4, Nz: 5}
}

func TestFieldIndexing(t *testing.T) {
	f := NewField(testSpec())
	if len(f.Values) != 60 {
		t.Fatalf("len(Values) = %d, want 60", len(f.Values))
	}
	f.Set(2, 3, 4, -1.5)
	if got := f.At(2, 3, 4); got != -1.5 {
		t.Errorf("At(2,3,4) = %v, want -1.5", got)
	}
	// k is the innermost axis.
	if f.Index(0, 0, 1) != 1 || f.Index(0, 1, 0) != 5 || f.Index(1, 0, 0) != 20 {
		t.Errorf("index strides = %d,%d,%d, want 1,5,20",
			f.Index(0, 0, 1), f.Index(0, 1, 0), f.Index(1, 0, 0))
	}
}

func TestFieldSpecRoundTrip(t *testing.T) {
	spec := testSpec()
	if got := NewField(spec).Spec(); got != spec {
		t.Errorf("Spec() = %+v, want %+v", got, spec)
	}
}

func TestFieldInsideCountMinMax(t *testing.T) {
	f := NewField(GridSpec{Dx: 1, Nx: 1, Ny: 1, Nz: 4})
	copy(f.Values, []float32{-2, 0.5, -0.25, 3})
	if got := f.InsideCount(); got != 2 {
		t.Errorf("InsideCount() = %d, want 2", got)
	}
	lo, hi := f.MinMax()
	if lo != -2 || hi != 3 {
		t.Errorf("MinMax() = %v, %v, want -2, 3", lo, hi)
	}
}

func TestFieldHalfRoundTrip(t *testing.T) {
	spec := GridSpec{Dx: 1, Nx: 1, Ny: 2, Nz: 3}
	f := NewField(spec)
	copy(f.Values, []float32{0, -1, 0.5, 1024, -3.14159, 1e-4})

	got, err := FieldFromHalf(spec, f.Half())
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range f.Values {
		// Half precision carries about 3 decimal digits.
		rel := math.Abs(float64(got.Values[i]-v)) / math.Max(math.Abs(float64(v)), 1e-6)
		if v != 0 && rel > 1e-3 {
			t.Errorf("value %d: %v round-trips to %v", i, v, got.Values[i])
		}
	}

	if _, err := FieldFromHalf(spec, make([]uint16, 5)); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("short payload: err = %v, want ErrInvalidParameter", err)
	}
}

func TestFieldFromFloat64(t *testing.T) {
	spec := GridSpec{Dx: 1, Nx: 2, Ny: 1, Nz: 1}
	f, err := FieldFromFloat64(spec, []float64{0.1, -2.5})
	if err != nil {
		t.Fatal(err)
	}
	if f.Values[0] != float32(0.1) || f.Values[1] != -2.5 {
		t.Errorf("values = %v", f.Values)
	}
	if _, err := FieldFromFloat64(spec, []float64{1}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("short payload: err = %v, want ErrInvalidParameter", err)
	}
}

func TestFieldsWithinTolerance(t *testing.T) {
	spec := testSpec()
	a := NewField(spec)
	for i := range a.Values {
		a.Values[i] = float32(i) - 30
	}

	b := NewField(spec)
	copy(b.Values, a.Values)
	if !FieldsWithinTolerance(a, b, BackendRelTolerance, BackendAbsTolerance) {
		t.Error("identical fields reported out of tolerance")
	}

	// A perturbation below the scaled absolute bound passes.
	b.Values[7] += float32(0.5 * BackendAbsTolerance * float64(spec.Dx))
	if !FieldsWithinTolerance(a, b, BackendRelTolerance, BackendAbsTolerance) {
		t.Error("tiny perturbation reported out of tolerance")
	}

	// A gross one fails.
	b.Values[7] += 1
	if FieldsWithinTolerance(a, b, BackendRelTolerance, BackendAbsTolerance) {
		t.Error("gross perturbation reported within tolerance")
	}

	// Mismatched geometry never compares equal.
	c := NewField(GridSpec{Origin: geom.V3(0, 0, 0), Dx: 0.5, Nx: 3, Ny: 4, Nz: 5})
	copy(c.Values, a.Values)
	if FieldsWithinTolerance(a, c, BackendRelTolerance, BackendAbsTolerance) {
		t.Error("fields with different origins reported within tolerance")
	}
}
