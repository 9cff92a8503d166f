package components

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/geom"
)

// Eye links a sensor entity back to the agent that owns it.
// Index is the sensor's slot in the owner's Senses.
type Eye struct {
	Owner ecs.Entity
	Index int
}

// SeeBox is a sensor volume: a rectangle Size.X long and Size.Y wide that
// extends from the owner's position in the direction given by Angle.
// Only InvertX changes after creation.
type SeeBox struct {
	Pos     r2.Vec
	Size    r2.Vec
	Angle   float64
	InvertX bool
}

// EffectiveAngle returns the rotation applied to the local wedge, which is
// built pointing along -X. Facing right turns it around; facing left mirrors
// the base angle.
func (sb SeeBox) EffectiveAngle() float64 {
	if sb.InvertX {
		return -sb.Angle
	}
	return math.Pi + sb.Angle
}

// Origin returns the world-space point the wedge extends from.
func (sb SeeBox) Origin(owner r2.Vec) r2.Vec {
	off := sb.Pos
	if sb.InvertX {
		off.X = -off.X
	}
	return r2.Add(owner, off)
}

// Direction returns the unit vector the wedge points along.
func (sb SeeBox) Direction() r2.Vec {
	return geom.Rotate(r2.Vec{X: -1}, sb.EffectiveAngle())
}

// ToScale returns a copy with Size scaled by s, clamped to [0, 1].
// Length and width shrink together, so the scaled wedge is always contained
// in the original one.
func (sb SeeBox) ToScale(s float64) SeeBox {
	s = math.Max(0, math.Min(1, s))
	out := sb
	out.Size = r2.Scale(s, sb.Size)
	return out
}

// Triangles returns the two world-space triangles covering the wedge for an
// owner at the given position.
func (sb SeeBox) Triangles(owner r2.Vec) (geom.Triangle, geom.Triangle) {
	half := sb.Size.Y / 2
	angle := sb.EffectiveAngle()
	origin := sb.Origin(owner)
	world := func(x, y float64) r2.Vec {
		return r2.Add(origin, geom.Rotate(r2.Vec{X: x, Y: y}, angle))
	}

	farTop := world(-sb.Size.X, half)
	nearTop := world(0, half)
	nearBot := world(0, -half)
	farBot := world(-sb.Size.X, -half)
	return geom.Triangle{A: farTop, B: nearTop, C: nearBot},
		geom.Triangle{A: farTop, B: nearBot, C: farBot}
}
