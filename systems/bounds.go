package systems

import (
	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/config"
)

// WorldBounds is the region movable bodies simulate inside.
type WorldBounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoundsFromConfig reads WorldBounds from a loaded config.
func BoundsFromConfig(cfg *config.Config) WorldBounds {
	b := cfg.World.Bounds
	return WorldBounds{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}

// OutOfBounds reports whether pos lies outside b. The edges are inside.
func OutOfBounds(pos components.Position, b WorldBounds) bool {
	return pos.X < b.MinX || pos.X > b.MaxX || pos.Y < b.MinY || pos.Y > b.MaxY
}

// Freeze stops a body for good: velocity is zeroed and the body is marked
// inert so gravity and integration skip it. Returns false if it was already inert.
func Freeze(vel *components.Velocity, mv *components.Moveable) bool {
	if mv.Inert {
		return false
	}
	*vel = components.Velocity{}
	mv.Inert = true
	return true
}
