// Package pick maps pointer input back to placed buildings.
//
// A pointer position becomes a [Ray] (see [Camera.Ray] and [TopDown]), the
// ray is tested against the building volumes of an immutable [Snapshot], and
// the nearest hit drives the hover/select [Machine]. Visual consequences of a
// transition are computed separately by [DiffVisuals], so renderers never
// hold their own hover state.
package pick

import (
	"math"

	"github.com/matzehuels/codecity/pkg/city/layout"
)

// Vec3 is a point or direction in world space. Y is up.
type Vec3 struct{ X, Y, Z float64 }

func (a Vec3) Add(b Vec3) Vec3         { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3         { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3    { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64      { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Len() float64            { return math.Sqrt(a.Dot(a)) }
func (a Vec3) component(i int) float64 { return [3]float64{a.X, a.Y, a.Z}[i] }

// Cross returns the cross product a × b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}

// Norm returns the unit vector; the zero vector is returned unchanged.
func (a Vec3) Norm() Vec3 {
	l := a.Len()
	if l == 0 {
		return a
	}
	return a.Scale(1 / l)
}

// Ray is a half-line. Dir should be normalized so hit distances compare.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) Vec3 { return r.Origin.Add(r.Dir.Scale(t)) }

// Box is an axis-aligned bounding box.
type Box struct{ Min, Max Vec3 }

// BoxOf returns the volume of a building standing on the ground plane.
func BoxOf(b layout.Building) Box {
	hw, hd := b.Dimensions.Width/2, b.Dimensions.Depth/2
	return Box{
		Min: Vec3{b.Position.X - hw, 0, b.Position.Z - hd},
		Max: Vec3{b.Position.X + hw, b.Dimensions.Height, b.Position.Z + hd},
	}
}

// Union returns the smallest box containing a and b.
func (a Box) Union(b Box) Box {
	return Box{
		Min: Vec3{math.Min(a.Min.X, b.Min.X), math.Min(a.Min.Y, b.Min.Y), math.Min(a.Min.Z, b.Min.Z)},
		Max: Vec3{math.Max(a.Max.X, b.Max.X), math.Max(a.Max.Y, b.Max.Y), math.Max(a.Max.Z, b.Max.Z)},
	}
}

// Center returns the midpoint of the box.
func (a Box) Center() Vec3 { return a.Min.Add(a.Max).Scale(0.5) }

// Size returns the extent along each axis.
func (a Box) Size() Vec3 { return a.Max.Sub(a.Min) }

// Intersect returns the distance along r at which it enters b, using the
// slab method. A ray starting inside the box hits at its exit distance.
// Boxes entirely behind the origin are missed.
func Intersect(r Ray, b Box) (float64, bool) {
	const eps = 1e-12
	tmin, tmax := math.Inf(-1), math.Inf(1)

	for i := 0; i < 3; i++ {
		o, d := r.Origin.component(i), r.Dir.component(i)
		lo, hi := b.Min.component(i), b.Max.component(i)
		if math.Abs(d) < eps {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1, t2 := (lo-o)/d, (hi-o)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}

	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
