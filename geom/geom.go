// Package geom provides the triangle and segment primitives used for
// obstacle collision and sensor intersection.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// VerticalEpsilon is the |dx| below which a segment is treated as vertical
// when computing point-to-line distance.
const VerticalEpsilon = 0.001

// sideThreshold is the signed-sum magnitude at which all three points are
// considered to be on one side of an edge. Points exactly on the edge count
// zero, so boundary contact never produces a separating axis.
const sideThreshold = 2.9

// Triangle is three ordered points. Degenerate triangles are allowed but give
// undefined collision results.
type Triangle struct {
	A, B, C r2.Vec
}

// Points returns the vertices in order.
func (t Triangle) Points() [3]r2.Vec {
	return [3]r2.Vec{t.A, t.B, t.C}
}

// Edges returns the edges as (start, end, opposite vertex) triples.
func (t Triangle) Edges() [3][3]r2.Vec {
	return [3][3]r2.Vec{
		{t.A, t.B, t.C},
		{t.B, t.C, t.A},
		{t.C, t.A, t.B},
	}
}

// CollidesWith reports whether t and other overlap, including containment.
func (t Triangle) CollidesWith(other Triangle) bool {
	return TrianglesColliding(t, other)
}

// Bounds returns the axis-aligned bounding box of the triangle.
func (t Triangle) Bounds() r2.Box {
	return r2.Box{
		Min: r2.Vec{
			X: math.Min(t.A.X, math.Min(t.B.X, t.C.X)),
			Y: math.Min(t.A.Y, math.Min(t.B.Y, t.C.Y)),
		},
		Max: r2.Vec{
			X: math.Max(t.A.X, math.Max(t.B.X, t.C.X)),
			Y: math.Max(t.A.Y, math.Max(t.B.Y, t.C.Y)),
		},
	}
}

func (t Triangle) String() string {
	return fmt.Sprintf("(%v, %v, %v)", t.A, t.B, t.C)
}

// Segment is a line segment between two endpoints.
type Segment struct {
	A, B r2.Vec
}

// Rotate rotates v counter-clockwise by angle radians around the origin.
func Rotate(v r2.Vec, angle float64) r2.Vec {
	sin, cos := math.Sincos(angle)
	return r2.Vec{
		X: v.X*cos - v.Y*sin,
		Y: v.X*sin + v.Y*cos,
	}
}

// DistancePointToSegment returns the shortest distance from p to s.
func DistancePointToSegment(p r2.Vec, s Segment) float64 {
	a, b := s.A, s.B
	d1 := r2.Dot(r2.Sub(b, a), r2.Sub(p, a))
	d2 := r2.Dot(r2.Sub(a, b), r2.Sub(p, b))
	if d1 <= 0 || d2 <= 0 {
		// Projection falls on or outside an endpoint; also covers a == b
		return math.Min(r2.Norm(r2.Sub(p, a)), r2.Norm(r2.Sub(p, b)))
	}

	if math.Abs(a.X-b.X) <= VerticalEpsilon {
		return math.Abs(p.X - a.X)
	}

	// Line y = f*x + h written as f*x - y + h = 0
	f := (b.Y - a.Y) / (b.X - a.X)
	h := a.Y - f*a.X
	return math.Abs(f*p.X-p.Y+h) / math.Sqrt(f*f+1)
}

// TrianglesColliding reports whether t1 and t2 overlap by searching for a
// separating edge among the six edges of both triangles. Touching counts as
// colliding.
func TrianglesColliding(t1, t2 Triangle) bool {
	return !separates(t1, t2) && !separates(t2, t1)
}

// separates reports whether some edge of ref has every point of other strictly
// on the side opposite ref's own third vertex.
func separates(ref, other Triangle) bool {
	points := other.Points()
	for _, e := range ref.Edges() {
		a, b, c := e[0], e[1], e[2]
		edge := r2.Sub(b, a)

		var sum float64
		for _, p := range points {
			cross := r2.Cross(edge, r2.Sub(p, a))
			if cross > 0 {
				sum++
			} else if cross < 0 {
				sum--
			}
		}
		if math.Abs(sum) < sideThreshold {
			continue
		}

		if r2.Cross(edge, r2.Sub(c, a))*sum < 0 {
			return true
		}
	}
	return false
}
