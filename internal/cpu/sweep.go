package cpu

import (
	"log/slog"
	"math"
)

// Sweep convergence control. The cycle cap guards against pathological
// non-convergence; typical grids settle in two or three cycles.
const (
	maxSweepCycles = 16
	sweepTolFactor = 1e-5 // threshold = sweepTolFactor * dx
)

// Sweep propagates unsigned distances from the exact narrow band to the rest
// of the grid by fast sweeping: Gauss-Seidel passes in the 8 axis-aligned
// octant orders, each applying the first-order upwind Eikonal update to
// every non-exact voxel. Voxels flagged in closed hold authoritative values
// and are never overwritten.
//
// Sweeping repeats the 8-direction cycle until the maximum per-voxel change
// drops below sweepTolFactor*dx or maxSweepCycles is reached.
//
// The GPU backend reuses this propagator on its readback; see the gpu
// package.
func Sweep(dist []float32, closed []bool, nx, ny, nz int, dx float64, numThreads int, logger *slog.Logger) {
	pool := newWorkerPool(numThreads)
	defer pool.close()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	sweepPool(dist, closed, nx, ny, nz, dx, pool, logger)
}

func sweepPool(dist []float32, closed []bool, nx, ny, nz int, dx float64, pool *workerPool, logger *slog.Logger) {
	tol := sweepTolFactor * dx
	dirs := [8][3]int{
		{1, 1, 1}, {-1, 1, 1}, {1, -1, 1}, {-1, -1, 1},
		{1, 1, -1}, {-1, 1, -1}, {1, -1, -1}, {-1, -1, -1},
	}
	for cycle := 0; cycle < maxSweepCycles; cycle++ {
		maxChange := 0.0
		for _, d := range dirs {
			// Full barrier between directions: each traversal order depends
			// on the previous one's fully materialized result.
			c := sweepDirection(dist, closed, nx, ny, nz, dx, d[0], d[1], d[2], pool)
			if c > maxChange {
				maxChange = c
			}
		}
		logger.Debug("sweep cycle finished", "cycle", cycle, "maxChange", maxChange)
		if maxChange < tol {
			return
		}
	}
	logger.Debug("sweep reached cycle cap", "cycles", maxSweepCycles)
}

// sweepDirection runs one Gauss-Seidel pass in the (sx, sy, sz) octant order
// and returns the largest value change it made.
//
// Parallelism uses the wavefront schedule: in traversal coordinates, every
// voxel on anti-diagonal level L = ti+tj+tk depends only on level L-1, so
// all voxels of a level can run concurrently with a barrier per level. The
// data dependencies match the sequential traversal exactly, which keeps the
// result bit-identical for any worker count.
func sweepDirection(dist []float32, closed []bool, nx, ny, nz int, dx float64, sx, sy, sz int, pool *workerPool) float64 {
	maxLevel := nx + ny + nz - 3
	changes := make([]float64, pool.workers)

	for level := 0; level <= maxLevel; level++ {
		tiLo := level - (ny - 1) - (nz - 1)
		if tiLo < 0 {
			tiLo = 0
		}
		tiHi := level
		if tiHi > nx-1 {
			tiHi = nx - 1
		}
		if tiLo > tiHi {
			continue
		}
		spans := splitRange(tiHi-tiLo+1, pool.workers)
		work := make([]func(), len(spans))
		for wi, span := range spans {
			work[wi] = func() {
				change := sweepLevelSpan(dist, closed, nx, ny, nz, dx,
					sx, sy, sz, level, tiLo+span[0], tiLo+span[1])
				if change > changes[wi] {
					changes[wi] = change
				}
			}
		}
		pool.executeAll(work)
	}

	maxChange := 0.0
	for _, c := range changes {
		if c > maxChange {
			maxChange = c
		}
	}
	return maxChange
}

// sweepLevelSpan updates the voxels of one wavefront level whose traversal-i
// coordinate lies in [tiLo, tiHi).
func sweepLevelSpan(dist []float32, closed []bool, nx, ny, nz int, dx float64, sx, sy, sz, level, tiLo, tiHi int) float64 {
	maxChange := 0.0
	for ti := tiLo; ti < tiHi; ti++ {
		rem := level - ti
		tjLo := rem - (nz - 1)
		if tjLo < 0 {
			tjLo = 0
		}
		tjHi := rem
		if tjHi > ny-1 {
			tjHi = ny - 1
		}
		for tj := tjLo; tj <= tjHi; tj++ {
			tk := rem - tj

			// Traversal coordinates to grid coordinates.
			i, j, k := ti, tj, tk
			if sx < 0 {
				i = nx - 1 - ti
			}
			if sy < 0 {
				j = ny - 1 - tj
			}
			if sz < 0 {
				k = nz - 1 - tk
			}

			idx := (i*ny+j)*nz + k
			if closed[idx] {
				continue
			}

			inf := math.Inf(1)
			a := inf
			if i > 0 {
				a = float64(dist[idx-ny*nz])
			}
			if i < nx-1 {
				a = math.Min(a, float64(dist[idx+ny*nz]))
			}
			b := inf
			if j > 0 {
				b = float64(dist[idx-nz])
			}
			if j < ny-1 {
				b = math.Min(b, float64(dist[idx+nz]))
			}
			c := inf
			if k > 0 {
				c = float64(dist[idx-1])
			}
			if k < nz-1 {
				c = math.Min(c, float64(dist[idx+1]))
			}

			v := eikonalUpdate(a, b, c, dx)
			old := float64(dist[idx])
			if v < old {
				dist[idx] = float32(v)
				if old-v > maxChange {
					maxChange = old - v
				}
			}
		}
	}
	return maxChange
}

// eikonalUpdate solves the first-order upwind discretization of
// |grad phi| = 1 at a voxel whose face-neighbor minima per axis are a, b, c
// (any of them may be +Inf at grid borders with no narrow band upstream).
func eikonalUpdate(a, b, c, dx float64) float64 {
	// Sort ascending so the one-, two- and three-term solutions nest.
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}

	x := a + dx
	if x <= b {
		return x
	}
	// Two-term update on the a and b axes.
	disc := 2*dx*dx - (a-b)*(a-b)
	if disc > 0 {
		x = 0.5 * (a + b + math.Sqrt(disc))
		if x <= c {
			return x
		}
	}
	// Three-term update using all axes.
	sum := a + b + c
	disc = sum*sum - 3*(a*a+b*b+c*c-dx*dx)
	if disc > 0 {
		return (sum + math.Sqrt(disc)) / 3
	}
	// Degenerate spread between neighbors: fall back to the smallest
	// single-axis candidate.
	return x
}
