package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pupil/game"
	"github.com/pthm-cable/pupil/systems"
)

// KeyboardController drives an agent from the keyboard: A/D to walk and W to
// jump.
type KeyboardController struct{}

// KeyboardFactory registers the keyboard controller under "keyboard".
func KeyboardFactory(*game.Game) game.Controller {
	return KeyboardController{}
}

func (KeyboardController) Name() string { return "keyboard" }

func (KeyboardController) Control(r game.Readout) systems.Input {
	return keyboardInput(rl.IsKeyDown(rl.KeyA), rl.IsKeyDown(rl.KeyD), rl.IsKeyDown(rl.KeyW), r.Motion)
}

// keyboardInput maps key state to an input. Opposite keys cancel; a jump
// only fires when the agent is not in the air.
func keyboardInput(left, right, jump bool, motion systems.MotionState) systems.Input {
	var in systems.Input
	if left {
		in.Direction--
	}
	if right {
		in.Direction++
	}
	in.Jump = jump && motion != systems.InAir
	return in
}
