package sdfgen

import (
	"errors"
	"sync"

	"github.com/gogpu/sdfgen/geom"
)

// LevelSetRequest is the data contract between the engine front end and an
// execution backend. Vertices and triangles are flat copies of the mesh,
// already validated; Dist must be filled with nx*ny*nz signed distances in
// i-outermost order.
type LevelSetRequest struct {
	Vertices  []geom.Vec3
	Triangles [][3]uint32

	Origin     geom.Vec3
	Dx         float32
	Nx, Ny, Nz int

	// ExactBand is the narrow-band width in cells.
	ExactBand int
}

// Accelerator is an optional GPU execution provider for the level-set
// pipeline.
//
// When registered via RegisterAccelerator, MakeLevelSet can dispatch to it
// for the gpu and auto backends. A registered accelerator whose Available
// method returns false behaves as if no accelerator were installed; an
// available accelerator that then fails mid-computation is a hard error,
// never a silent CPU fallback, because a silent correctness or performance
// regression is worse than an explicit failure.
//
// Implementations are provided by accelerator packages; users opt in via
// blank import:
//
//	import _ "github.com/gogpu/sdfgen/gpu" // enables GPU acceleration
type Accelerator interface {
	// Name returns the accelerator name (e.g., "wgpu").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// Available reports whether a usable GPU device is present.
	Available() bool

	// MakeLevelSet runs the narrow-band and sign phases for the request and
	// returns the completed signed distance values.
	MakeLevelSet(req *LevelSetRequest) ([]float32, error)
}

var (
	accelMu sync.RWMutex
	accel   Accelerator
)

// RegisterAccelerator registers a GPU accelerator for optional GPU execution.
//
// Only one accelerator can be registered; subsequent calls replace the
// previous one. The accelerator's Init() method is called during
// registration and its error, if any, is returned without registering.
//
// Typical usage via init() in accelerator packages:
//
//	func init() {
//	    sdfgen.RegisterAccelerator(NewAccelerator())
//	}
func RegisterAccelerator(a Accelerator) error {
	if a == nil {
		return errors.New("sdfgen: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// RegisteredAccelerator returns the currently registered accelerator, or nil
// if none.
func RegisteredAccelerator() Accelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// IsGPUAvailable reports whether an accelerator is registered and a usable
// GPU device is present. It is false when the gpu package has not been
// imported, and false when it has but no adapter could be opened.
func IsGPUAvailable() bool {
	a := RegisteredAccelerator()
	return a != nil && a.Available()
}
