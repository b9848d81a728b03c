package cpu

import (
	"math"
	"sync/atomic"

	"github.com/gogpu/sdfgen/geom"
)

// stamper performs the combined narrow-band pass: for every triangle it
// writes exact unsigned distances into the voxels near the triangle and
// increments ray-crossing counts for the parity sign resolution.
type stamper struct {
	req      *Request
	distBits []uint32
	cross    []uint32
	upper    float32
}

func (s *stamper) idx(i, j, k int) int {
	return (i*s.req.Ny+j)*s.req.Nz + k
}

// stampTriangles processes triangles [lo, hi). Writes use atomic commutative
// reductions only, so buckets may run concurrently in any order.
func (s *stamper) stampTriangles(lo, hi int) {
	req := s.req
	nx, ny, nz := req.Nx, req.Ny, req.Nz
	ox := float64(req.Origin.X)
	oy := float64(req.Origin.Y)
	oz := float64(req.Origin.Z)
	dx := float64(req.Dx)
	invDx := 1 / dx
	band := float64(req.ExactBand)

	for t := lo; t < hi; t++ {
		tri := req.Triangles[t]
		p := req.Vertices[tri[0]]
		q := req.Vertices[tri[1]]
		r := req.Vertices[tri[2]]

		// Triangle vertices in grid coordinates.
		fip := (float64(p.X) - ox) * invDx
		fjp := (float64(p.Y) - oy) * invDx
		fkp := (float64(p.Z) - oz) * invDx
		fiq := (float64(q.X) - ox) * invDx
		fjq := (float64(q.Y) - oy) * invDx
		fkq := (float64(q.Z) - oz) * invDx
		fir := (float64(r.X) - ox) * invDx
		fjr := (float64(r.Y) - oy) * invDx
		fkr := (float64(r.Z) - oz) * invDx

		// Exact distances for voxels within the expanded triangle box.
		i0 := clampGrid(int(math.Floor(min3(fip, fiq, fir)-band)), nx)
		i1 := clampGrid(int(math.Ceil(max3(fip, fiq, fir)+band)), nx)
		j0 := clampGrid(int(math.Floor(min3(fjp, fjq, fjr)-band)), ny)
		j1 := clampGrid(int(math.Ceil(max3(fjp, fjq, fjr)+band)), ny)
		k0 := clampGrid(int(math.Floor(min3(fkp, fkq, fkr)-band)), nz)
		k1 := clampGrid(int(math.Ceil(max3(fkp, fkq, fkr)+band)), nz)
		for i := i0; i <= i1; i++ {
			for j := j0; j <= j1; j++ {
				for k := k0; k <= k1; k++ {
					gp := geom.Vec3{
						X: req.Origin.X + float32(i)*req.Dx,
						Y: req.Origin.Y + float32(j)*req.Dx,
						Z: req.Origin.Z + float32(k)*req.Dx,
					}
					d := float32(geom.PointTriangleDistance(gp, p, q, r))
					if d < s.upper {
						atomicMinFloat(&s.distBits[s.idx(i, j, k)], d)
					}
				}
			}
		}

		// Crossing counts: intersect the +z ray of every (i,j) column with
		// the triangle's projection onto the xy plane. A crossing at
		// fractional coordinate fk is binned to the first sample at or
		// beyond it, so a column walk accumulating bins yields the parity
		// at each sample. Projecting onto xy keeps triangles lying in a
		// z = const plane countable; their projection stays non-degenerate.
		i0 = clampGrid(int(math.Ceil(min3(fip, fiq, fir))), nx)
		i1 = clampGrid(int(math.Floor(max3(fip, fiq, fir))), nx)
		j0 = clampGrid(int(math.Ceil(min3(fjp, fjq, fjr))), ny)
		j1 = clampGrid(int(math.Floor(max3(fjp, fjq, fjr))), ny)
		for i := i0; i <= i1; i++ {
			for j := j0; j <= j1; j++ {
				a, b, c, inside := geom.PointInTriangle2D(
					float64(i), float64(j), fip, fjp, fiq, fjq, fir, fjr)
				if !inside {
					continue
				}
				// One division instead of per-weight normalization, so a
				// triangle lying exactly on a sample plane reconstructs its
				// plane coordinate without drifting past the ceil boundary.
				fk := (a*fkp + b*fkq + c*fkr) / (a + b + c)
				kv := int(math.Ceil(fk))
				switch {
				case kv < 0:
					// Crossing before the grid: the whole column starts inside.
					atomicAdd(&s.cross[s.idx(i, j, 0)])
				case kv < nz:
					atomicAdd(&s.cross[s.idx(i, j, kv)])
					// Crossings beyond the last sample cannot flip any voxel.
				}
			}
		}
	}
}

func atomicAdd(p *uint32) { atomic.AddUint32(p, 1) }

func clampGrid(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n-1 {
		return n - 1
	}
	return v
}

func min3(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }
func max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }
