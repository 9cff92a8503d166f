package game

import (
	"math/rand"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/systems"
)

// Controller drives one agent. Control is called once per tick, before
// gravity, with the agent's readout from the end of the previous tick.
type Controller interface {
	Name() string
	Control(r Readout) systems.Input
}

// ControllerFactory builds a controller for a newly loaded agent.
type ControllerFactory func(g *Game) Controller

// ScriptedController is a seeded random walk: it holds a direction for a
// fixed number of ticks, then picks a new one and maybe jumps.
type ScriptedController struct {
	rng      *rand.Rand
	hold     int
	jumpProb float64

	dir       float64
	remaining int
}

// NewScriptedController creates a random walker. hold is the number of ticks
// a direction is kept; jumpProb is the chance to jump at each decision.
func NewScriptedController(seed int64, hold int, jumpProb float64) *ScriptedController {
	return &ScriptedController{
		rng:      rand.New(rand.NewSource(seed)),
		hold:     max(1, hold),
		jumpProb: jumpProb,
	}
}

func (c *ScriptedController) Name() string { return "scripted" }

func (c *ScriptedController) Control(r Readout) systems.Input {
	var in systems.Input
	if c.remaining <= 0 {
		c.dir = float64(c.rng.Intn(3) - 1)
		c.remaining = c.hold
		in.Jump = r.Motion != systems.InAir && c.rng.Float64() < c.jumpProb
	}
	c.remaining--
	in.Direction = c.dir
	return in
}

// SenseController walks the way the agent faces and jumps when its first
// sensor reports an obstacle closer than a threshold. An agent that stays
// blocked after landing turns around.
type SenseController struct {
	jumpBelow float64
	dir       float64
	blocked   int
}

// blockedTicks is how long an agent may press into a wall before turning.
const blockedTicks = 30

// NewSenseController creates a controller that jumps on forward readings below jumpBelow.
func NewSenseController(jumpBelow float64) *SenseController {
	return &SenseController{jumpBelow: jumpBelow}
}

func (c *SenseController) Name() string { return "sense" }

func (c *SenseController) Control(r Readout) systems.Input {
	if c.dir == 0 {
		c.dir = facingSign(r.Facing)
	}
	in := systems.Input{Direction: c.dir}
	if len(r.Senses) == 0 {
		return in
	}

	forward := r.Senses[0]
	if !forward.Detected || forward.Distance >= c.jumpBelow {
		c.blocked = 0
		return in
	}

	if r.Motion != systems.InAir {
		in.Jump = true
		c.blocked++
	}
	if c.blocked > blockedTicks {
		c.dir = -c.dir
		c.blocked = 0
		in.Direction = c.dir
	}
	return in
}

// facingSign returns +1 facing right and -1 facing left.
func facingSign(d components.Dir) float64 {
	if d == components.DirLeft {
		return -1
	}
	return 1
}
