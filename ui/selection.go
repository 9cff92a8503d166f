package ui

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/pupil/game"
)

// pickMargin is extra world units around a body that still count as a hit.
const pickMargin = 4.0

// AgentAt returns the agent whose body contains the world point, preferring
// the one whose center is closest.
func AgentAt(readouts []game.Readout, wx, wy float64) (ecs.Entity, bool) {
	var closest ecs.Entity
	closestDist := math.Inf(1)
	found := false

	for _, r := range readouts {
		dx := math.Abs(wx - r.X)
		dy := math.Abs(wy - r.Y)
		if dx > r.W/2+pickMargin || dy > r.H/2+pickMargin {
			continue
		}
		if d := math.Hypot(dx, dy); d < closestDist {
			closestDist = d
			closest = r.Entity
			found = true
		}
	}

	return closest, found
}
