package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/geom"
)

// DefaultIterations is the number of binary-search steps per reading,
// giving a resolution of 1/256 of the sensor length.
const DefaultIterations = 8

// IsDetected reports whether either triangle of the sensor wedge collides with
// either triangle of any seeable obstacle.
func IsDetected(sb components.SeeBox, origin r2.Vec, obstacles []ObstacleShape) bool {
	if sb.Size.X <= 0 {
		return false
	}
	s1, s2 := sb.Triangles(origin)
	box := unionBox(s1.Bounds(), s2.Bounds())

	for i := range obstacles {
		o := &obstacles[i]
		if !o.Seeable || !boxesTouch(box, o.Box()) {
			continue
		}
		o1, o2 := o.Triangles()
		if s1.CollidesWith(o1) || s1.CollidesWith(o2) || s2.CollidesWith(o1) || s2.CollidesWith(o2) {
			return true
		}
	}
	return false
}

// ComputeReading range-finds with DefaultIterations steps.
func ComputeReading(sb components.SeeBox, origin r2.Vec, obstacles []ObstacleShape) components.Reading {
	return ComputeReadingN(sb, origin, obstacles, DefaultIterations)
}

// ComputeReadingN returns no detection if nothing is visible at full length.
// Otherwise it binary-searches the scale at which something first becomes
// visible and reports the final midpoint. Relies on a shrunk wedge never
// seeing more than a longer one.
func ComputeReadingN(sb components.SeeBox, origin r2.Vec, obstacles []ObstacleShape, iterations int) components.Reading {
	if !IsDetected(sb, origin, obstacles) {
		return components.Reading{}
	}

	lo, hi := 0.0, 1.0
	var mid float64
	for i := 0; i < iterations; i++ {
		mid = (lo + hi) / 2
		if IsDetected(sb.ToScale(mid), origin, obstacles) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return components.Hit(mid)
}

// WedgeBox returns the bounding box of the full sensor wedge. Any obstacle a
// scaled copy of the wedge can see touches this box.
func WedgeBox(sb components.SeeBox, origin r2.Vec) r2.Box {
	s1, s2 := sb.Triangles(origin)
	return unionBox(s1.Bounds(), s2.Bounds())
}

// NearestBoundaryDistance returns the shortest distance from p to any edge of
// any seeable obstacle. ok is false when there are none.
func NearestBoundaryDistance(p r2.Vec, obstacles []ObstacleShape) (dist float64, ok bool) {
	dist = math.Inf(1)
	for i := range obstacles {
		if !obstacles[i].Seeable {
			continue
		}
		for _, s := range obstacles[i].Hitbox.Segments(obstacles[i].Pos) {
			dist = math.Min(dist, geom.DistancePointToSegment(p, s))
			ok = true
		}
	}
	return dist, ok
}
