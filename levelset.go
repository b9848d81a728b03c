package sdfgen

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/sdfgen/internal/cpu"
)

// Backend selects the execution substrate for a generation call.
type Backend int

const (
	// BackendAuto tries the GPU first and falls back to the CPU only when no
	// usable accelerator is present.
	BackendAuto Backend = iota

	// BackendCPU forces the multi-threaded CPU pipeline.
	BackendCPU

	// BackendGPU requires a registered, available accelerator and fails with
	// ErrBackendUnavailable otherwise.
	BackendGPU
)

// String returns the lowercase backend name.
func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendCPU:
		return "cpu"
	case BackendGPU:
		return "gpu"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// ParseBackend converts a backend name to its Backend value. Recognized
// names are "auto", "cpu" and "gpu"; anything else is ErrInvalidParameter.
func ParseBackend(name string) (Backend, error) {
	switch name {
	case "auto":
		return BackendAuto, nil
	case "cpu":
		return BackendCPU, nil
	case "gpu":
		return BackendGPU, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized backend %q (must be auto, cpu or gpu)",
			ErrInvalidParameter, name)
	}
}

// DefaultExactBand is the narrow-band width, in cells, used when Options
// leaves ExactBand unset.
const DefaultExactBand = 1

// Options controls a generation call.
type Options struct {
	// ExactBand is the narrow-band width in cells. Zero means
	// DefaultExactBand; negative values are rejected. Band zero is expressed
	// as -1 for callers that really want no expansion beyond each triangle's
	// own bounding box.
	ExactBand int

	// Backend selects the execution substrate; the zero value is BackendAuto.
	Backend Backend

	// NumThreads is the CPU worker count. Zero selects a hardware-determined
	// default, one forces strictly sequential execution, any other positive
	// value pins the exact count.
	NumThreads int
}

// activeBackend records which concrete backend executed the most recent
// generation call, for introspection after auto resolution.
var activeBackend atomic.Int32

// ActiveBackend returns the backend that actually executed the most recent
// MakeLevelSet call. Before any call it reports BackendCPU.
func ActiveBackend() Backend {
	return Backend(activeBackend.Load())
}

// MakeLevelSet computes the signed distance field of mesh over the grid
// described by spec. It blocks until the field is fully resolved and returns
// the completed field; there are no partial results.
//
// The call validates the mesh (ErrEmptyMesh, ErrInvalidMesh) and the grid
// (ErrInvalidParameter) before any computation. With Options.Backend set to
// BackendGPU the call fails with ErrBackendUnavailable when no usable
// accelerator is registered; with BackendAuto a missing accelerator selects
// the CPU silently, but a present accelerator that fails is a hard error.
//
// On the CPU backend the result is bit-for-bit reproducible for identical
// inputs, independent of thread count and scheduling.
func MakeLevelSet(mesh *Mesh, spec GridSpec, opts Options) (*Field, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	band := opts.ExactBand
	switch {
	case band == 0:
		band = DefaultExactBand
	case band == -1:
		band = 0
	case band < -1:
		return nil, fmt.Errorf("%w: exact band must be non-negative, got %d",
			ErrInvalidParameter, band)
	}
	if opts.NumThreads < 0 {
		return nil, fmt.Errorf("%w: thread count must be non-negative, got %d",
			ErrInvalidParameter, opts.NumThreads)
	}

	backend := opts.Backend
	if backend == BackendAuto {
		if IsGPUAvailable() {
			backend = BackendGPU
		} else {
			backend = BackendCPU
		}
	}

	var values []float32
	switch backend {
	case BackendCPU:
		values = cpu.MakeLevelSet(&cpu.Request{
			Vertices:   mesh.Vertices,
			Triangles:  mesh.Triangles,
			Origin:     spec.Origin,
			Dx:         spec.Dx,
			Nx:         spec.Nx,
			Ny:         spec.Ny,
			Nz:         spec.Nz,
			ExactBand:  band,
			NumThreads: opts.NumThreads,
			Logger:     Logger(),
		})
	case BackendGPU:
		a := RegisteredAccelerator()
		if a == nil {
			return nil, fmt.Errorf("%w: no accelerator registered (import the gpu package)",
				ErrBackendUnavailable)
		}
		if !a.Available() {
			return nil, fmt.Errorf("%w: accelerator %q found no usable device",
				ErrBackendUnavailable, a.Name())
		}
		var err error
		values, err = a.MakeLevelSet(&LevelSetRequest{
			Vertices:  mesh.Vertices,
			Triangles: mesh.Triangles,
			Origin:    spec.Origin,
			Dx:        spec.Dx,
			Nx:        spec.Nx,
			Ny:        spec.Ny,
			Nz:        spec.Nz,
			ExactBand: band,
		})
		if err != nil {
			return nil, fmt.Errorf("sdfgen: accelerator %q: %w", a.Name(), err)
		}
	default:
		return nil, fmt.Errorf("%w: unrecognized backend %d", ErrInvalidParameter, int(backend))
	}
	activeBackend.Store(int32(backend))

	f := NewField(spec)
	f.Values = values
	return f, nil
}

