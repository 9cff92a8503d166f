package systems

import (
	"math"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/config"
)

// Input is what a controller asks of an agent for one tick.
type Input struct {
	Direction float64 // -1 left .. 1 right, 0 for no input
	Jump      bool
}

// ControlParams holds the drive contract controllers must honor.
type ControlParams struct {
	XAcceleration float64
	MaxXSpeed     float64
	Decay         float64
	StopThreshold float64
	JumpSpeed     float64
}

// ControlFromConfig reads ControlParams from a loaded config.
// A jump launches at half of gravity.
func ControlFromConfig(cfg *config.Config) ControlParams {
	return ControlParams{
		XAcceleration: cfg.Control.XAcceleration,
		MaxXSpeed:     cfg.Control.MaxXSpeed,
		Decay:         cfg.Control.Decay,
		StopThreshold: cfg.Control.StopThreshold,
		JumpSpeed:     cfg.Physics.Gravity / 2,
	}
}

// ApplyControl accelerates vel toward the input direction, or decays it when
// there is none, then caps the speed and snaps crawling bodies to rest.
func ApplyControl(vel *components.Velocity, in Input, p ControlParams) {
	dir := math.Max(-1, math.Min(1, in.Direction))
	if dir != 0 {
		vel.X += dir * p.XAcceleration
	} else {
		vel.X *= p.Decay
	}

	if math.Abs(vel.X) > p.MaxXSpeed {
		vel.X = math.Copysign(p.MaxXSpeed, vel.X)
	}
	if math.Abs(vel.X) < p.StopThreshold {
		vel.X = 0
	}

	if in.Jump {
		vel.Y = p.JumpSpeed
	}
}
