package cpu

import "log/slog"

// applySigns resolves inside/outside per grid column from the accumulated
// ray-crossing counts and folds the sign into dist. A column along z shares
// (i,j); walking it in order toggles parity at every binned crossing, and a
// voxel is inside when the count of crossings at or before it is odd.
//
// A column whose total crossing count is odd does not return to "outside"
// at the far end: the surface is open or inconsistently wound there. The
// mesh is accepted as-is, but the condition is reported once per call.
func applySigns(dist []float32, cross []uint32, nx, ny, nz int, pool *workerPool, logger *slog.Logger) {
	cols := nx * ny
	spans := splitRange(cols, pool.workers)
	oddCols := make([]int, len(spans))
	work := make([]func(), len(spans))
	for wi, span := range spans {
		work[wi] = func() {
			for col := span[0]; col < span[1]; col++ {
				base := col * nz
				total := uint32(0)
				for k := 0; k < nz; k++ {
					idx := base + k
					total += cross[idx]
					if total&1 == 1 {
						dist[idx] = -dist[idx]
					}
				}
				if total&1 == 1 {
					oddCols[wi]++
				}
			}
		}
	}
	pool.executeAll(work)

	odd := 0
	for _, n := range oddCols {
		odd += n
	}
	if odd > 0 {
		logger.Warn("columns with odd crossing parity; mesh may be open or non-manifold",
			"columns", odd)
	}
}
