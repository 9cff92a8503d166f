package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/components"
)

// Box helpers

// boundsBox converts hitbox edges to an r2.Box.
func boundsBox(b components.Bounds) r2.Box {
	return r2.Box{Min: r2.Vec{X: b.Left, Y: b.Bottom}, Max: r2.Vec{X: b.Right, Y: b.Top}}
}

// unionBox returns the smallest box containing a and b.
func unionBox(a, b r2.Box) r2.Box {
	return r2.Box{
		Min: r2.Vec{X: math.Min(a.Min.X, b.Min.X), Y: math.Min(a.Min.Y, b.Min.Y)},
		Max: r2.Vec{X: math.Max(a.Max.X, b.Max.X), Y: math.Max(a.Max.Y, b.Max.Y)},
	}
}

// boxesTouch is true unless the boxes are strictly apart. Touching boxes are
// kept because touching triangles collide.
func boxesTouch(a, b r2.Box) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y
}
