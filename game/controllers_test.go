package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/systems"
)

func TestScriptedControllerHoldsDirection(t *testing.T) {
	a := NewScriptedController(7, 5, 0)
	b := NewScriptedController(7, 5, 0)

	var first []float64
	for i := 0; i < 20; i++ {
		in := a.Control(Readout{})
		assert.Equal(t, in, b.Control(Readout{}), "same seed, same inputs")
		assert.False(t, in.Jump)
		first = append(first, in.Direction)
	}

	for i := 0; i < 20; i += 5 {
		for j := i; j < i+5; j++ {
			assert.Equal(t, first[i], first[j])
		}
	}
}

func TestScriptedControllerJumpsOnlyWhenGrounded(t *testing.T) {
	c := NewScriptedController(1, 1, 1)
	assert.True(t, c.Control(Readout{Motion: systems.Idle}).Jump)
	assert.False(t, c.Control(Readout{Motion: systems.InAir}).Jump)
}

func TestSenseController(t *testing.T) {
	near := Readout{Facing: components.DirLeft, Senses: []components.Reading{components.Hit(0.1)}}
	far := Readout{Facing: components.DirLeft, Senses: []components.Reading{components.Hit(0.9)}}

	c := NewSenseController(0.35)
	in := c.Control(far)
	assert.Equal(t, -1.0, in.Direction, "starts walking the way it faces")
	assert.False(t, in.Jump)

	in = c.Control(near)
	assert.True(t, in.Jump)

	airborne := near
	airborne.Motion = systems.InAir
	assert.False(t, c.Control(airborne).Jump)

	// Stuck against a wall long enough turns it around.
	for i := 0; i < blockedTicks; i++ {
		in = c.Control(near)
	}
	assert.Equal(t, 1.0, in.Direction)

	assert.Equal(t, systems.Input{Direction: 1}, c.Control(Readout{}))
}
