package geom

import "math"

// PointSegmentDistance returns the shortest distance from point p to the
// segment [a, b]. A zero-length segment degrades to point distance.
func PointSegmentDistance(p, a, b Vec3) float64 {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	dz := float64(b.Z - a.Z)
	m2 := dx*dx + dy*dy + dz*dz
	if m2 == 0 {
		return p.Dist(a)
	}
	// Parameter of the projection of p onto the segment, clamped to [0,1].
	t := (float64(p.X-a.X)*dx + float64(p.Y-a.Y)*dy + float64(p.Z-a.Z)*dz) / m2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx := float64(a.X) + t*dx - float64(p.X)
	cy := float64(a.Y) + t*dy - float64(p.Y)
	cz := float64(a.Z) + t*dz - float64(p.Z)
	return math.Sqrt(cx*cx + cy*cy + cz*cz)
}

// PointTriangleDistance returns the shortest distance from point p to the
// triangle (a, b, c), covering every Voronoi region: the interior face, the
// three edges, and the three vertices. The region test is performed with
// barycentric weights from the normal equations; when the projection falls
// outside the face, the result reduces to the minimum over the two candidate
// edges, which makes ties between adjacent regions resolve to the
// lowest-indexed edge in the fixed (ab, ac, bc) enumeration.
//
// Degenerate triangles (zero area, coincident vertices) are valid input and
// degrade to segment or point distance.
func PointTriangleDistance(p, a, b, c Vec3) float64 {
	// Everything relative to c, following the two-edge parameterization.
	acX := float64(a.X - c.X)
	acY := float64(a.Y - c.Y)
	acZ := float64(a.Z - c.Z)
	bcX := float64(b.X - c.X)
	bcY := float64(b.Y - c.Y)
	bcZ := float64(b.Z - c.Z)
	pcX := float64(p.X - c.X)
	pcY := float64(p.Y - c.Y)
	pcZ := float64(p.Z - c.Z)

	m13 := acX*acX + acY*acY + acZ*acZ
	m23 := bcX*bcX + bcY*bcY + bcZ*bcZ
	d := acX*bcX + acY*bcY + acZ*bcZ

	det := m13*m23 - d*d
	if det < 1e-30 {
		// Zero-area triangle: degrade to the minimum over the edge segments,
		// which itself degrades to point distance for coincident vertices.
		return math.Min(PointSegmentDistance(p, a, b),
			math.Min(PointSegmentDistance(p, a, c), PointSegmentDistance(p, b, c)))
	}
	invDet := 1 / det
	da := acX*pcX + acY*pcY + acZ*pcZ
	db := bcX*pcX + bcY*pcY + bcZ*pcZ

	// Barycentric weights of the projection: wa on vertex a, wb on b, wc on c.
	wa := invDet * (m23*da - d*db)
	wb := invDet * (m13*db - d*da)
	wc := 1 - wa - wb

	if wa >= 0 && wb >= 0 && wc >= 0 {
		// Projection falls inside the face.
		qx := wa*float64(a.X) + wb*float64(b.X) + wc*float64(c.X) - float64(p.X)
		qy := wa*float64(a.Y) + wb*float64(b.Y) + wc*float64(c.Y) - float64(p.Y)
		qz := wa*float64(a.Z) + wb*float64(b.Z) + wc*float64(c.Z) - float64(p.Z)
		return math.Sqrt(qx*qx + qy*qy + qz*qz)
	}

	switch {
	case wa > 0:
		// Positive weight on a rules out the bc edge.
		return math.Min(PointSegmentDistance(p, a, b), PointSegmentDistance(p, a, c))
	case wb > 0:
		// Positive weight on b rules out the ac edge.
		return math.Min(PointSegmentDistance(p, a, b), PointSegmentDistance(p, b, c))
	default:
		// Remaining weight on c rules out the ab edge.
		return math.Min(PointSegmentDistance(p, a, c), PointSegmentDistance(p, b, c))
	}
}

// Orientation computes twice the signed area of the 2D triangle
// ((0,0), (x1,y1), (x2,y2)) and returns its sign. Exact zeros are broken by
// lexicographic comparison of the two points so that rays grazing a shared
// edge are counted exactly once by the two incident triangles. The returned
// sign is 0 only when both points coincide.
func Orientation(x1, y1, x2, y2 float64) (sign int, twiceSignedArea float64) {
	twiceSignedArea = y1*x2 - x1*y2
	switch {
	case twiceSignedArea > 0:
		return 1, twiceSignedArea
	case twiceSignedArea < 0:
		return -1, twiceSignedArea
	case y2 > y1:
		return 1, twiceSignedArea
	case y2 < y1:
		return -1, twiceSignedArea
	case x1 > x2:
		return 1, twiceSignedArea
	case x1 < x2:
		return -1, twiceSignedArea
	default:
		return 0, twiceSignedArea
	}
}

// PointInTriangle2D reports whether the 2D point (x0, y0) lies inside the
// triangle ((x1,y1), (x2,y2), (x3,y3)) using the consistent edge rule of
// Orientation. On success it also returns the raw barycentric weights of
// the point, proportional to the opposite subtriangle areas. They are left
// unnormalized so a caller interpolating a vertex attribute can divide once
// by their sum; when the attribute is constant across the triangle that
// single division reproduces the constant without drift.
func PointInTriangle2D(x0, y0, x1, y1, x2, y2, x3, y3 float64) (a, b, c float64, inside bool) {
	x1 -= x0
	x2 -= x0
	x3 -= x0
	y1 -= y0
	y2 -= y0
	y3 -= y0
	signA, a := Orientation(x2, y2, x3, y3)
	if signA == 0 {
		return 0, 0, 0, false
	}
	signB, b := Orientation(x3, y3, x1, y1)
	if signB != signA {
		return 0, 0, 0, false
	}
	signC, c := Orientation(x1, y1, x2, y2)
	if signC != signA {
		return 0, 0, 0, false
	}
	return a, b, c, true
}
