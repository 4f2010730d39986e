package pick

import (
	"math"

	"github.com/matzehuels/codecity/pkg/city/layout"
)

// DefaultFOV is the vertical field of view in degrees.
const DefaultFOV = 60

// Camera is a perspective viewpoint looking at Target.
type Camera struct {
	Position Vec3    `json:"position"`
	Target   Vec3    `json:"target"`
	FOV      float64 `json:"fov"`
}

// DefaultCamera is used before anything has been placed.
var DefaultCamera = Camera{
	Position: Vec3{X: 50, Y: 50, Z: 50},
	FOV:      DefaultFOV,
}

// Bounds returns the volume covering all buildings and whether any exist.
func Bounds(buildings []layout.Building) (Box, bool) {
	if len(buildings) == 0 {
		return Box{}, false
	}
	box := BoxOf(buildings[0])
	for _, b := range buildings[1:] {
		box = box.Union(BoxOf(b))
	}
	return box, true
}

// Fit aims a camera at the center of the buildings from a distance of twice
// their largest extent, so every building is in view after a recompute.
func Fit(buildings []layout.Building) Camera {
	box, ok := Bounds(buildings)
	if !ok {
		return DefaultCamera
	}
	center := box.Center()
	size := box.Size()
	d := 2 * math.Max(size.X, math.Max(size.Y, size.Z))
	return Camera{
		Position: Vec3{X: center.X + d, Y: d * 0.8, Z: center.Z + d},
		Target:   center,
		FOV:      DefaultFOV,
	}
}

// Ray unprojects a screen point (pixels, origin top-left) into a world ray.
func (c Camera) Ray(sx, sy, width, height float64) Ray {
	if width <= 0 || height <= 0 {
		return Ray{Origin: c.Position, Dir: c.Target.Sub(c.Position).Norm()}
	}
	fov := c.FOV
	if fov <= 0 {
		fov = DefaultFOV
	}

	forward := c.Target.Sub(c.Position).Norm()
	worldUp := Vec3{Y: 1}
	if math.Abs(forward.Dot(worldUp)) > 0.999 {
		worldUp = Vec3{Z: -1}
	}
	right := forward.Cross(worldUp).Norm()
	up := right.Cross(forward)

	nx := 2*sx/width - 1
	ny := 1 - 2*sy/height
	tanHalf := math.Tan(fov * math.Pi / 360)
	aspect := width / height

	dir := forward.
		Add(right.Scale(nx * tanHalf * aspect)).
		Add(up.Scale(ny * tanHalf))
	return Ray{Origin: c.Position, Dir: dir.Norm()}
}

// TopDown returns a ray pointing straight down at ground point (x, z),
// for plan views with an orthographic projection.
func TopDown(x, z float64) Ray {
	return Ray{Origin: Vec3{X: x, Y: 1e4, Z: z}, Dir: Vec3{Y: -1}}
}
