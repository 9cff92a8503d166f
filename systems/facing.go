package systems

import (
	"math"

	"github.com/pthm-cable/pupil/components"
)

// UpdateFacing turns an agent toward its horizontal motion. Below threshold
// the previous facing is kept.
func UpdateFacing(f *components.Facing, vel components.Velocity, threshold float64) {
	if math.Abs(vel.X) <= threshold {
		return
	}
	if vel.X > 0 {
		f.Dir = components.DirRight
	} else {
		f.Dir = components.DirLeft
	}
}

// MotionState is a coarse description of what a body is doing, for display
// and readouts.
type MotionState uint8

const (
	Idle MotionState = iota
	Walking
	InAir
)

// airborneSpeed is the |vy| above which a body is treated as off the ground.
const airborneSpeed = 15.0

func (s MotionState) String() string {
	switch s {
	case Walking:
		return "walking"
	case InAir:
		return "in_air"
	default:
		return "idle"
	}
}

func (s MotionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ClassifyMotion maps a velocity to a MotionState. Walking needs at least
// half of maxXSpeed.
func ClassifyMotion(vel components.Velocity, maxXSpeed float64) MotionState {
	switch {
	case math.Abs(vel.Y) > airborneSpeed:
		return InAir
	case math.Abs(vel.X) > maxXSpeed*0.5:
		return Walking
	default:
		return Idle
	}
}
