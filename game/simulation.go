package game

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/systems"
	"github.com/pthm-cable/pupil/telemetry"
)

// Step advances the simulation by one tick of dt seconds.
//
// Order matters: bodies move, then are pushed out of obstacles, and only then
// do sensors look, so readings always describe resolved positions.
func (g *Game) Step(dt float64) {
	g.perfCollector.StartTick()

	g.perfCollector.StartPhase(telemetry.PhaseControl)
	g.applyControllers()

	g.perfCollector.StartPhase(telemetry.PhaseGravity)
	g.applyGravity(dt)

	g.perfCollector.StartPhase(telemetry.PhaseMove)
	g.integrate(dt)

	g.perfCollector.StartPhase(telemetry.PhaseSnapshot)
	g.buildObstacleSnapshot()

	g.perfCollector.StartPhase(telemetry.PhaseResolve)
	g.resolveCollisions()

	g.perfCollector.StartPhase(telemetry.PhaseBounds)
	g.enforceBounds()

	g.perfCollector.StartPhase(telemetry.PhaseFacing)
	g.updateFacing()

	g.perfCollector.StartPhase(telemetry.PhasePerceive)
	g.updatePerception()

	g.tick++

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.recordTick()
	g.flushTelemetry()

	g.perfCollector.EndTick()
}

// applyControllers asks each controller for input and applies it.
// Inputs are gathered before any velocity changes.
func (g *Game) applyControllers() {
	if len(g.controllers) == 0 {
		return
	}

	type pending struct {
		vel *components.Velocity
		in  systems.Input
	}
	var inputs []pending

	query := g.agentFilter.Query()
	for query.Next() {
		e := query.Entity()
		c, ok := g.controllers[e]
		if !ok {
			continue
		}
		pos, vel, hb, mv, facing, agent, senses := query.Get()
		if mv.Inert {
			continue
		}
		inputs = append(inputs, pending{vel: vel, in: c.Control(g.readout(e, pos, vel, hb, mv, facing, agent, senses))})
	}

	for _, p := range inputs {
		systems.ApplyControl(p.vel, p.in, g.control)
	}
}

func (g *Game) applyGravity(dt float64) {
	query := g.agentFilter.Query()
	for query.Next() {
		_, vel, _, mv, _, _, _ := query.Get()
		if mv.Inert {
			continue
		}
		systems.ApplyGravity(vel, dt, g.physics)
	}
}

func (g *Game) integrate(dt float64) {
	query := g.agentFilter.Query()
	for query.Next() {
		pos, vel, _, mv, _, _, _ := query.Get()
		if mv.Inert {
			continue
		}
		systems.IntegratePosition(pos, *vel, dt)
	}
}

// buildObstacleSnapshot collects every static obstacle once per tick and
// reindexes them. Nothing writes obstacles during the rest of the tick.
func (g *Game) buildObstacleSnapshot() {
	g.obstacles = g.obstacles[:0]
	g.obstacleSeq = g.obstacleSeq[:0]

	query := g.obstacleFilter.Query()
	for query.Next() {
		e := query.Entity()
		pos, hb, static := query.Get()
		g.obstacles = append(g.obstacles, systems.ObstacleShape{
			Entity:  e,
			Pos:     pos.Vec(),
			Hitbox:  *hb,
			Seeable: g.seeableMap.Has(e),
		})
		g.obstacleSeq = append(g.obstacleSeq, static.Seq)
	}

	// Archetype iteration order shifts when obstacles are spawned or removed.
	sortByKeys(g.obstacles, g.obstacleSeq)
	g.grid.Rebuild(g.obstacles)
}

// resolveCollisions pushes every movable body out of the obstacle snapshot.
func (g *Game) resolveCollisions() {
	passes := g.cfg.Physics.ResolvePasses

	query := g.agentFilter.Query()
	for query.Next() {
		pos, vel, hb, mv, _, agent, _ := query.Get()
		if mv.Inert {
			continue
		}

		g.contacts = systems.ResolveAll(g.contacts[:0], pos, vel, *hb, g.obstacles, passes, g.physics)
		for _, c := range g.contacts {
			g.collector.Record(telemetry.Event{Type: telemetry.EventContact, Tick: g.tick, EntityID: agent.ID})
			if c.Bounced {
				g.collector.Record(telemetry.Event{Type: telemetry.EventBounce, Tick: g.tick, EntityID: agent.ID})
			}
		}
	}
}

// enforceBounds freezes bodies that left the world.
func (g *Game) enforceBounds() {
	query := g.agentFilter.Query()
	for query.Next() {
		pos, vel, _, mv, _, agent, _ := query.Get()
		if !systems.OutOfBounds(*pos, g.bounds) {
			continue
		}
		if systems.Freeze(vel, mv) {
			g.collector.Record(telemetry.Event{Type: telemetry.EventFreeze, Tick: g.tick, EntityID: agent.ID})
			slog.Debug("agent frozen", "id", agent.ID, "x", pos.X, "y", pos.Y, "tick", g.tick)
		}
	}
}

// updateFacing turns agents toward their horizontal motion. Eyes pick the
// facing up when perception runs.
func (g *Game) updateFacing() {
	threshold := g.cfg.Control.FacingThreshold

	query := g.agentFilter.Query()
	for query.Next() {
		_, vel, _, _, facing, _, _ := query.Get()
		systems.UpdateFacing(facing, *vel, threshold)
	}
}

// AgentByID finds a live agent by its agent id.
func (g *Game) AgentByID(id uint32) (ecs.Entity, bool) {
	query := g.agentFilter.Query()
	for query.Next() {
		_, _, _, _, _, agent, _ := query.Get()
		if agent.ID == id {
			e := query.Entity()
			query.Close()
			return e, true
		}
	}
	return ecs.Entity{}, false
}
