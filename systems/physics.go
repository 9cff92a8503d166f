// Package systems contains the per-tick simulation steps: gravity, movement,
// static collision resolution, perception, control and bounds.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/config"
	"github.com/pthm-cable/pupil/geom"
)

// Defaults used when no config is loaded.
const (
	Gravity          = 980.0
	NominalFrameTime = 1.0 / 60.0
	Restitution      = 0.4
	VelocitySnap     = 0.001
)

// PhysicsParams holds the integration and resolution constants.
type PhysicsParams struct {
	Gravity      float64
	MaxGravityDT float64
	Restitution  float64
	VelocitySnap float64
}

// DefaultPhysics returns the built-in constants.
func DefaultPhysics() PhysicsParams {
	return PhysicsParams{
		Gravity:      Gravity,
		MaxGravityDT: 3 * NominalFrameTime,
		Restitution:  Restitution,
		VelocitySnap: VelocitySnap,
	}
}

// PhysicsFromConfig reads PhysicsParams from a loaded config.
func PhysicsFromConfig(cfg *config.Config) PhysicsParams {
	return PhysicsParams{
		Gravity:      cfg.Physics.Gravity,
		MaxGravityDT: cfg.Derived.MaxGravityDT,
		Restitution:  cfg.Physics.Restitution,
		VelocitySnap: cfg.Physics.VelocitySnap,
	}
}

// ApplyGravity pulls vel down. Long frames are clamped so a hitch cannot
// impart a huge impulse.
func ApplyGravity(vel *components.Velocity, dt float64, p PhysicsParams) {
	vel.Y -= p.Gravity * math.Min(dt, p.MaxGravityDT)
}

// IntegratePosition advances pos by vel*dt. No bounds are enforced here.
func IntegratePosition(pos *components.Position, vel components.Velocity, dt float64) {
	pos.X += vel.X * dt
	pos.Y += vel.Y * dt
}

// ObstacleShape is a read-only view of a static obstacle, built once per tick.
type ObstacleShape struct {
	Entity  ecs.Entity
	Pos     r2.Vec
	Hitbox  components.Hitbox
	Seeable bool
}

// Bounds returns the obstacle's world-space edges.
func (o ObstacleShape) Bounds() components.Bounds {
	return o.Hitbox.Bounds(o.Pos)
}

// Triangles returns the obstacle's world-space triangle pair.
func (o ObstacleShape) Triangles() (geom.Triangle, geom.Triangle) {
	return o.Hitbox.Triangles(o.Pos)
}

// Box returns the obstacle's bounds as an r2.Box.
func (o ObstacleShape) Box() r2.Box {
	return boundsBox(o.Bounds())
}

// Overlaps reports whether two rectangles share interior area.
// Rectangles that only touch along an edge do not overlap.
func Overlaps(a, b components.Bounds) bool {
	return !(a.Bottom >= b.Top || a.Top <= b.Bottom || a.Right <= b.Left || a.Left >= b.Right)
}

// PushDir is the direction a body was pushed to leave an obstacle.
type PushDir uint8

const (
	PushNone PushDir = iota
	PushLeft
	PushRight
	PushUp
	PushDown
)

func (d PushDir) String() string {
	switch d {
	case PushLeft:
		return "left"
	case PushRight:
		return "right"
	case PushUp:
		return "up"
	case PushDown:
		return "down"
	default:
		return "none"
	}
}

// Contact describes one resolved overlap.
type Contact struct {
	Obstacle ecs.Entity
	Dir      PushDir
	Depth    float64
	Bounced  bool // velocity pointed into the obstacle and was reflected
}

// ResolveStatic pushes a body out of one obstacle along the single axis with
// the smallest translation. Velocity on that axis is reflected and damped if
// it points into the obstacle. Returns a Contact with Dir == PushNone when the
// two do not overlap, in which case nothing is modified.
func ResolveStatic(pos *components.Position, vel *components.Velocity, hb components.Hitbox, obs ObstacleShape, p PhysicsParams) Contact {
	m := hb.Bounds(pos.Vec())
	o := obs.Bounds()
	if !Overlaps(m, o) {
		return Contact{}
	}

	left, right, up, down := math.Inf(1), math.Inf(1), math.Inf(1), math.Inf(1)
	if m.Right > o.Left {
		left = m.Right - o.Left
	}
	if m.Left < o.Right {
		right = o.Right - m.Left
	}
	if m.Bottom < o.Top {
		up = o.Top - m.Bottom
	}
	if m.Top > o.Bottom {
		down = m.Top - o.Bottom
	}

	c := Contact{Obstacle: obs.Entity, Dir: PushLeft, Depth: left}
	if right < c.Depth {
		c.Dir, c.Depth = PushRight, right
	}
	if up < c.Depth {
		c.Dir, c.Depth = PushUp, up
	}
	if down < c.Depth {
		c.Dir, c.Depth = PushDown, down
	}

	switch c.Dir {
	case PushLeft:
		pos.X -= c.Depth
		if vel.X > 0 {
			vel.X *= -p.Restitution
			c.Bounced = true
		}
	case PushRight:
		pos.X += c.Depth
		if vel.X < 0 {
			vel.X *= -p.Restitution
			c.Bounced = true
		}
	case PushUp:
		pos.Y += c.Depth
		if vel.Y < 0 {
			vel.Y *= -p.Restitution
			c.Bounced = true
		}
	case PushDown:
		pos.Y -= c.Depth
		if vel.Y > 0 {
			vel.Y *= -p.Restitution
			c.Bounced = true
		}
	}

	if math.Abs(vel.X) < p.VelocitySnap {
		vel.X = 0
	}
	if math.Abs(vel.Y) < p.VelocitySnap {
		vel.Y = 0
	}
	return c
}

// ResolveAll resolves a body against every obstacle in order. With passes > 1
// the sweep repeats until a pass finds no overlap or the pass budget runs out.
// Resolved contacts are appended to dst.
func ResolveAll(dst []Contact, pos *components.Position, vel *components.Velocity, hb components.Hitbox, obstacles []ObstacleShape, passes int, p PhysicsParams) []Contact {
	for pass := 0; pass < max(1, passes); pass++ {
		found := false
		for i := range obstacles {
			c := ResolveStatic(pos, vel, hb, obstacles[i], p)
			if c.Dir == PushNone {
				continue
			}
			dst = append(dst, c)
			found = true
		}
		if !found {
			break
		}
	}
	return dst
}
