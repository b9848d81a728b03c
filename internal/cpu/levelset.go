package cpu

import (
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/gogpu/sdfgen/geom"
)

// Request carries one level-set computation. All fields are read-only during
// the call; the voxel arrays allocated for it are exclusively owned by the
// in-flight computation and discarded afterwards.
type Request struct {
	Vertices  []geom.Vec3
	Triangles [][3]uint32

	Origin     geom.Vec3
	Dx         float32
	Nx, Ny, Nz int

	// ExactBand is the narrow-band width in cells. Zero still evaluates the
	// voxels overlapping each triangle's own bounding box.
	ExactBand int

	// NumThreads is the worker count; 0 selects GOMAXPROCS, 1 is sequential.
	NumThreads int

	// Logger receives debug and warning records; nil disables logging.
	Logger *slog.Logger
}

func (r *Request) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// MakeLevelSet computes signed distances for the request on CPU worker
// threads and returns nx*ny*nz values in i-outermost order.
//
// The result is deterministic: every concurrent write goes through a
// commutative reduction (minimum for distances, addition for crossing
// counts), and the sweep phases use a wavefront schedule whose data
// dependencies reproduce the sequential Gauss-Seidel ordering exactly, so
// the output is bit-identical for any thread count.
func MakeLevelSet(req *Request) []float32 {
	nx, ny, nz := req.Nx, req.Ny, req.Nz
	cells := nx * ny * nz
	upper := float32(nx+ny+nz) * req.Dx

	logHost(req.logger())
	pool := newWorkerPool(req.NumThreads)
	defer pool.close()

	// Working state: distance estimates as float bit patterns (for the
	// atomic minimum), and ray-crossing counts per voxel.
	distBits := make([]uint32, cells)
	upperBits := math.Float32bits(upper)
	for i := range distBits {
		distBits[i] = upperBits
	}
	cross := make([]uint32, cells)

	// Narrow-band pass: stamp exact distances and crossing counts per
	// triangle bucket. Both reductions are commutative, so the bucketing is
	// only a load-balancing choice.
	st := &stamper{req: req, distBits: distBits, cross: cross, upper: upper}
	spans := splitRange(len(req.Triangles), pool.workers*4)
	work := make([]func(), len(spans))
	for wi, span := range spans {
		work[wi] = func() { st.stampTriangles(span[0], span[1]) }
	}
	pool.executeAll(work)

	// Unpack the bit patterns; a voxel the narrow band touched is exact and
	// must never be overwritten by the propagator.
	dist := make([]float32, cells)
	closed := make([]bool, cells)
	spans = splitRange(cells, pool.workers)
	work = work[:0]
	for _, span := range spans {
		work = append(work, func() {
			for i := span[0]; i < span[1]; i++ {
				d := math.Float32frombits(distBits[i])
				dist[i] = d
				closed[i] = d < upper
			}
		})
	}
	pool.executeAll(work)

	sweepPool(dist, closed, nx, ny, nz, float64(req.Dx), pool, req.logger())

	applySigns(dist, cross, nx, ny, nz, pool, req.logger())

	return dist
}

// atomicMinFloat lowers the float stored at bits to v if v is smaller.
// Distances are non-negative, so the typed comparison and the CAS loop
// implement a commutative, order-independent minimum.
func atomicMinFloat(bits *uint32, v float32) {
	nb := math.Float32bits(v)
	for {
		ob := atomic.LoadUint32(bits)
		if math.Float32frombits(ob) <= v {
			return
		}
		if atomic.CompareAndSwapUint32(bits, ob, nb) {
			return
		}
	}
}
