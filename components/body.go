// Package components defines ECS components for the simulation.
package components

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/geom"
)

// Hitbox is an axis-aligned rectangle attached to a body.
// Pos is relative to the body's Position; the rectangle is centered on Position+Pos.
type Hitbox struct {
	Pos  r2.Vec
	Size r2.Vec
}

// Bounds holds the world-space edges of a hitbox.
type Bounds struct {
	Left, Right, Top, Bottom float64
}

// Center returns the world-space center of the hitbox for a body at origin.
func (h Hitbox) Center(origin r2.Vec) r2.Vec {
	return r2.Add(origin, h.Pos)
}

// Bounds returns the world-space edges of the hitbox for a body at origin.
func (h Hitbox) Bounds(origin r2.Vec) Bounds {
	c := h.Center(origin)
	left := c.X - h.Size.X/2
	top := c.Y + h.Size.Y/2
	return Bounds{
		Left:   left,
		Right:  left + h.Size.X,
		Top:    top,
		Bottom: top - h.Size.Y,
	}
}

// Triangles splits the world-space rectangle along its top-right to
// bottom-left diagonal.
func (h Hitbox) Triangles(origin r2.Vec) (geom.Triangle, geom.Triangle) {
	b := h.Bounds(origin)
	topRight := r2.Vec{X: b.Right, Y: b.Top}
	topLeft := r2.Vec{X: b.Left, Y: b.Top}
	botLeft := r2.Vec{X: b.Left, Y: b.Bottom}
	botRight := r2.Vec{X: b.Right, Y: b.Bottom}
	return geom.Triangle{A: topRight, B: topLeft, C: botLeft},
		geom.Triangle{A: topRight, B: botLeft, C: botRight}
}

// Segments returns the four boundary edges of the world-space rectangle.
func (h Hitbox) Segments(origin r2.Vec) [4]geom.Segment {
	b := h.Bounds(origin)
	botLeft := r2.Vec{X: b.Left, Y: b.Bottom}
	topLeft := r2.Vec{X: b.Left, Y: b.Top}
	topRight := r2.Vec{X: b.Right, Y: b.Top}
	botRight := r2.Vec{X: b.Right, Y: b.Bottom}
	return [4]geom.Segment{
		{A: botLeft, B: topLeft},
		{A: topLeft, B: topRight},
		{A: topRight, B: botRight},
		{A: botRight, B: botLeft},
	}
}

// Moveable marks a body that integrates velocity and feels gravity.
// Inert bodies are frozen in place after leaving the world bounds.
type Moveable struct {
	Inert bool
}

// Static marks an immovable obstacle. Bodies are resolved against
// obstacles in ascending Seq.
type Static struct {
	Seq uint32
}

// Seeable tags a body that blocks sensors.
type Seeable struct{}

// Agent tags a body that owns sensors and a Senses vector.
type Agent struct {
	ID uint32
}
