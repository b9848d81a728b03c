package geom

import "math"

// Vec3 represents a 3D point or displacement in world space.
// Components are float32 to match mesh file formats and GPU buffer layouts;
// intermediate arithmetic that is precision-sensitive is done in float64.
type Vec3 struct {
	X, Y, Z float32
}

// V3 is a convenience function to create a Vec3.
func V3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns the sum of two vectors.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{X: v.X + w.X, Y: v.Y + w.Y, Z: v.Z + w.Z}
}

// Sub returns the difference of two vectors.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{X: v.X - w.X, Y: v.Y - w.Y, Z: v.Z - w.Z}
}

// Mul returns the vector scaled by a scalar.
func (v Vec3) Mul(s float32) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(w Vec3) float64 {
	return float64(v.X)*float64(w.X) + float64(v.Y)*float64(w.Y) + float64(v.Z)*float64(w.Z)
}

// Length returns the length (magnitude) of the vector.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.LengthSq())
}

// LengthSq returns the squared length of the vector.
// This is faster than Length() when you only need to compare magnitudes.
func (v Vec3) LengthSq() float64 {
	return v.Dot(v)
}

// Dist returns the Euclidean distance between two points.
func (v Vec3) Dist(w Vec3) float64 {
	return v.Sub(w).Length()
}

// Min returns the component-wise minimum of two vectors.
func (v Vec3) Min(w Vec3) Vec3 {
	return Vec3{
		X: min(v.X, w.X),
		Y: min(v.Y, w.Y),
		Z: min(v.Z, w.Z),
	}
}

// Max returns the component-wise maximum of two vectors.
func (v Vec3) Max(w Vec3) Vec3 {
	return Vec3{
		X: max(v.X, w.X),
		Y: max(v.Y, w.Y),
		Z: max(v.Z, w.Z),
	}
}

// IsFinite reports whether all three components are finite numbers.
func (v Vec3) IsFinite() bool {
	return !math.IsNaN(float64(v.X)) && !math.IsInf(float64(v.X), 0) &&
		!math.IsNaN(float64(v.Y)) && !math.IsInf(float64(v.Y), 0) &&
		!math.IsNaN(float64(v.Z)) && !math.IsInf(float64(v.Z), 0)
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vec3
}

// EmptyBox returns a box positioned so that any Expand call resets it.
// Min starts at +inf and Max at -inf on every axis.
func EmptyBox() Box {
	inf := float32(math.Inf(1))
	return Box{
		Min: Vec3{X: inf, Y: inf, Z: inf},
		Max: Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// Expand grows the box to contain the point p.
func (b *Box) Expand(p Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Extent returns the box size on each axis.
func (b Box) Extent() Vec3 {
	return b.Max.Sub(b.Min)
}

// Contains reports whether p lies inside or on the boundary of the box.
func (b Box) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Dist returns the Euclidean distance from p to the box, zero if p is inside.
func (b Box) Dist(p Vec3) float64 {
	dx := axisDist(p.X, b.Min.X, b.Max.X)
	dy := axisDist(p.Y, b.Min.Y, b.Max.Y)
	dz := axisDist(p.Z, b.Min.Z, b.Max.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func axisDist(v, lo, hi float32) float64 {
	if v < lo {
		return float64(lo - v)
	}
	if v > hi {
		return float64(v - hi)
	}
	return 0
}
