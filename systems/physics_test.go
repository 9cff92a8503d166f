package systems

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/components"
)

func obstacle(x, y, w, h float64) ObstacleShape {
	return ObstacleShape{
		Pos:     r2.Vec{X: x, Y: y},
		Hitbox:  components.Hitbox{Size: r2.Vec{X: w, Y: h}},
		Seeable: true,
	}
}

func box20() components.Hitbox {
	return components.Hitbox{Size: r2.Vec{X: 20, Y: 20}}
}

const eps = 1e-9

func TestApplyGravity(t *testing.T) {
	p := DefaultPhysics()

	vel := components.Velocity{}
	ApplyGravity(&vel, NominalFrameTime, p)
	assert.InDelta(t, -Gravity/60, vel.Y, eps, "one frame")

	clamped := components.Velocity{}
	ApplyGravity(&clamped, 3*NominalFrameTime, p)
	stalled := components.Velocity{}
	ApplyGravity(&stalled, 10*NominalFrameTime, p)
	assert.GreaterOrEqual(t, stalled.Y, clamped.Y-eps, "stalled frame applies no more than the clamp")
	assert.InDelta(t, -Gravity*3*NominalFrameTime, stalled.Y, eps)
}

func TestIntegratePosition(t *testing.T) {
	pos := components.Position{X: 1, Y: 2}
	IntegratePosition(&pos, components.Velocity{X: 60, Y: -120}, 0.5)
	assert.Equal(t, components.Position{X: 31, Y: -58}, pos)
}

func TestOverlaps(t *testing.T) {
	base := components.Bounds{Left: 0, Right: 10, Top: 10, Bottom: 0}
	tests := []struct {
		name string
		b    components.Bounds
		want bool
	}{
		{"same", base, true},
		{"inside", components.Bounds{Left: 2, Right: 4, Top: 4, Bottom: 2}, true},
		{"partial", components.Bounds{Left: 5, Right: 15, Top: 15, Bottom: 5}, true},
		{"touching right edge", components.Bounds{Left: 10, Right: 20, Top: 10, Bottom: 0}, false},
		{"touching top edge", components.Bounds{Left: 0, Right: 10, Top: 20, Bottom: 10}, false},
		{"apart", components.Bounds{Left: 30, Right: 40, Top: 10, Bottom: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(base, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, base))
		})
	}
}

// A body falling onto a slab lands on top with its velocity reflected and damped.
func TestBodyLandsOnSlab(t *testing.T) {
	p := DefaultPhysics()
	slab := obstacle(0, 0, 100, 20)

	pos := components.Position{X: 0, Y: 50}
	vel := components.Velocity{X: 0, Y: -500}
	IntegratePosition(&pos, vel, 0.09)
	require.InDelta(t, 5, pos.Y, eps, "after move")

	c := ResolveStatic(&pos, &vel, box20(), slab, p)
	assert.Equal(t, PushUp, c.Dir)
	assert.True(t, c.Bounced)
	assert.InDelta(t, 20, pos.Y, eps)
	assert.InDelta(t, 200, vel.Y, eps)
}

func TestResolveStaticDirections(t *testing.T) {
	p := DefaultPhysics()
	slab := obstacle(0, 0, 100, 20)

	tests := []struct {
		name    string
		pos     components.Position
		vel     components.Velocity
		wantDir PushDir
		wantPos components.Position
		wantVel components.Velocity
		bounced bool
	}{
		{"from left", components.Position{X: -55}, components.Velocity{X: 100},
			PushLeft, components.Position{X: -60}, components.Velocity{X: -40}, true},
		{"from right", components.Position{X: 55}, components.Velocity{X: -100},
			PushRight, components.Position{X: 60}, components.Velocity{X: 40}, true},
		{"from below", components.Position{Y: -15}, components.Velocity{Y: 100},
			PushDown, components.Position{Y: -20}, components.Velocity{Y: -40}, true},
		{"moving away", components.Position{Y: 15}, components.Velocity{Y: 50},
			PushUp, components.Position{Y: 20}, components.Velocity{Y: 50}, false},
		{"micro bounce snaps", components.Position{Y: 15}, components.Velocity{X: 0.0005, Y: -0.002},
			PushUp, components.Position{Y: 20}, components.Velocity{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, vel := tt.pos, tt.vel
			c := ResolveStatic(&pos, &vel, box20(), slab, p)
			assert.Equal(t, tt.wantDir, c.Dir)
			assert.Equal(t, tt.bounced, c.Bounced)
			assert.InDelta(t, tt.wantPos.X, pos.X, eps)
			assert.InDelta(t, tt.wantPos.Y, pos.Y, eps)
			assert.InDelta(t, tt.wantVel.X, vel.X, eps)
			assert.InDelta(t, tt.wantVel.Y, vel.Y, eps)
		})
	}
}

func TestResolveIdempotent(t *testing.T) {
	p := DefaultPhysics()
	rng := rand.New(rand.NewSource(3))
	obstacles := []ObstacleShape{
		obstacle(0, -200, 1000, 100),
		obstacle(250, -125, 50, 50),
		obstacle(-320, -100, 80, 100),
	}

	// Resting exactly on the ground counts as clear.
	resting := components.Position{X: 0, Y: -140}
	restingVel := components.Velocity{X: 3, Y: -0.0001}
	assert.Empty(t, ResolveAll(nil, &resting, &restingVel, box20(), obstacles, 3, p), "resting body")

	checked := 0
	for i := 0; i < 2000; i++ {
		pos := components.Position{X: rng.Float64()*1200 - 600, Y: rng.Float64()*600 - 300}
		vel := components.Velocity{X: rng.Float64()*200 - 100, Y: rng.Float64()*200 - 100}

		free := true
		for _, o := range obstacles {
			if Overlaps(box20().Bounds(pos.Vec()), o.Bounds()) {
				free = false
				break
			}
		}
		if !free {
			continue
		}

		gotPos, gotVel := pos, vel
		contacts := ResolveAll(nil, &gotPos, &gotVel, box20(), obstacles, 3, p)
		require.Empty(t, contacts, "clear body at %+v", pos)
		require.Equal(t, pos, gotPos)
		require.Equal(t, vel, gotVel)
		checked++
	}
	assert.GreaterOrEqual(t, checked, 1000, "clear samples")
}

func TestResolveAllPasses(t *testing.T) {
	p := DefaultPhysics()
	// The step is checked first and is clear; the wall then pushes the body
	// into the step, which only a second pass catches.
	obstacles := []ObstacleShape{
		obstacle(-31, -15, 18, 20),
		obstacle(5, 0, 20, 200),
	}

	single := components.Position{X: -10, Y: 4}
	vel := components.Velocity{}
	contacts := ResolveAll(nil, &single, &vel, box20(), obstacles, 1, p)
	require.Len(t, contacts, 1)
	assert.Equal(t, PushLeft, contacts[0].Dir)
	assert.InDelta(t, -15, single.X, eps)
	assert.InDelta(t, 4, single.Y, eps)
	assert.True(t, Overlaps(box20().Bounds(single.Vec()), obstacles[0].Bounds()),
		"single pass leaves the step overlap unresolved")

	relaxed := components.Position{X: -10, Y: 4}
	vel = components.Velocity{}
	contacts = ResolveAll(nil, &relaxed, &vel, box20(), obstacles, 3, p)
	require.Len(t, contacts, 2)
	assert.Equal(t, PushUp, contacts[1].Dir)
	assert.InDelta(t, -15, relaxed.X, eps)
	assert.InDelta(t, 5, relaxed.Y, eps)
	for i, o := range obstacles {
		assert.False(t, Overlaps(box20().Bounds(relaxed.Vec()), o.Bounds()), "obstacle %d", i)
	}
}

func TestPushDirString(t *testing.T) {
	names := map[PushDir]string{PushNone: "none", PushLeft: "left", PushRight: "right", PushUp: "up", PushDown: "down"}
	for d, want := range names {
		assert.Equal(t, want, d.String())
	}
}
