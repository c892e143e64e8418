// Package region implements the axis-aligned boxes scripts are sandboxed to.
package region

import "fmt"

// Region is an axis-aligned 3D box in a single world. Min is componentwise
// less than or equal to Max.
type Region struct {
	World string
	Min   Point
	Max   Point
}

type Point struct {
	X, Y, Z float64
}

// New builds a normalized region from two opposite corners.
func New(x1, y1, z1, x2, y2, z2 float64, world string) Region {
	return Region{
		World: world,
		Min:   Point{min(x1, x2), min(y1, y2), min(z1, z2)},
		Max:   Point{max(x1, x2), max(y1, y2), max(z1, z2)},
	}
}

// FromBounds builds a region from x1, y1, z1, x2, y2, z2.
func FromBounds(b [6]float64, world string) Region {
	return New(b[0], b[1], b[2], b[3], b[4], b[5], world)
}

// Bounds returns the corners as x1, y1, z1, x2, y2, z2.
func (r Region) Bounds() [6]float64 {
	return [6]float64{r.Min.X, r.Min.Y, r.Min.Z, r.Max.X, r.Max.Y, r.Max.Z}
}

// Contains reports whether the point lies inside r. Bounds are inclusive.
func (r Region) Contains(world string, x, y, z float64) bool {
	if world != r.World {
		return false
	}
	return x >= r.Min.X && x <= r.Max.X &&
		y >= r.Min.Y && y <= r.Max.Y &&
		z >= r.Min.Z && z <= r.Max.Z
}

// ContainsRegion reports whether other lies entirely inside r.
func (r Region) ContainsRegion(other Region) bool {
	return r.Contains(other.World, other.Min.X, other.Min.Y, other.Min.Z) &&
		r.Contains(other.World, other.Max.X, other.Max.Y, other.Max.Z)
}

// Overlaps reports whether r and other share at least one point.
func (r Region) Overlaps(other Region) bool {
	if r.World != other.World {
		return false
	}
	return r.Min.X <= other.Max.X && other.Min.X <= r.Max.X &&
		r.Min.Y <= other.Max.Y && other.Min.Y <= r.Max.Y &&
		r.Min.Z <= other.Max.Z && other.Min.Z <= r.Max.Z
}

func (r Region) String() string {
	return fmt.Sprintf("%s[%g, %g, %g -> %g, %g, %g]",
		r.World, r.Min.X, r.Min.Y, r.Min.Z, r.Max.X, r.Max.Y, r.Max.Z)
}
