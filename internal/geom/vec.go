// Package geom holds the 2D math shared by the solver, grid and renderers.
//
// Vectors are mgl32.Vec2 values so that host slices of positions can be
// handed to a device buffer without conversion.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon guards divisions by distances that collapse under dense packing.
const Epsilon = 1e-5

type Vec2 = mgl32.Vec2

func V(x, y float32) Vec2 { return Vec2{x, y} }

// Cross returns the z component of the 3D cross product of a and b.
func Cross(a, b Vec2) float32 {
	return a[0]*b[1] - a[1]*b[0]
}

func LenSq(v Vec2) float32 {
	return v.Dot(v)
}

func DistSq(a, b Vec2) float32 {
	d := a.Sub(b)
	return d.Dot(d)
}

// SafeNormalize returns the unit vector of v, or the zero vector when v is
// shorter than Epsilon.
func SafeNormalize(v Vec2) Vec2 {
	l := v.Len()
	if l < Epsilon {
		return Vec2{}
	}
	return v.Mul(1 / l)
}

func Floor(v Vec2) Vec2 {
	return Vec2{float32(math.Floor(float64(v[0]))), float32(math.Floor(float64(v[1])))}
}

// Clamp limits each component of v to [lo, hi].
func Clamp(v, lo, hi Vec2) Vec2 {
	return Vec2{mgl32.Clamp(v[0], lo[0], hi[0]), mgl32.Clamp(v[1], lo[1], hi[1])}
}

func Midpoint(a, b Vec2) Vec2 {
	return a.Add(b).Mul(0.5)
}

func IsFinite(v Vec2) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
