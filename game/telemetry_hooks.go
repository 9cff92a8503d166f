package game

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sort"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/telemetry"
)

// recordTick writes per-tick readouts and streams a frame when due.
func (g *Game) recordTick() {
	if g.cfg.Telemetry.Readouts && g.outputManager != nil {
		if err := g.outputManager.WriteReadouts(readoutRows(g.tick, g.Readouts())); err != nil {
			slog.Error("failed to write readouts", "error", err)
		}
	}

	if g.publisher != nil && g.tick%int32(g.cfg.Stream.Every) == 0 {
		if err := g.publisher.Publish(g.Frame()); err != nil {
			slog.Error("failed to publish frame", "error", err)
		}
	}
}

// flushTelemetry checks if the stats window should be flushed.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.sampleWorld())
	perfStats := g.perfCollector.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
		g.logWorldState()
	}

	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}

// sampleWorld measures the world at the end of a stats window.
func (g *Game) sampleWorld() telemetry.Sample {
	s := telemetry.Sample{Obstacles: len(g.obstacles)}

	query := g.agentFilter.Query()
	for query.Next() {
		_, vel, _, mv, _, _, senses := query.Get()
		s.Agents++
		if mv.Inert {
			s.Inert++
		}
		s.Speeds = append(s.Speeds, math.Hypot(vel.X, vel.Y))

		s.SensorSlots += len(senses.Readings)
		for _, r := range senses.Readings {
			if r.Detected {
				s.Distances = append(s.Distances, r.Distance)
			}
		}
	}
	return s
}

// SaveSnapshot writes the current scene to dir and returns the file path.
func (g *Game) SaveSnapshot(dir string) (string, error) {
	return telemetry.SaveSnapshot(g.Snapshot(), dir)
}

// Snapshot captures the current scene.
func (g *Game) Snapshot() *telemetry.Snapshot {
	snapshot := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Seed:    g.rngSeed,
		Tick:    g.tick,
	}

	// Obstacles keep spawn order so a restored scene resolves identically.
	var seq []uint32
	oq := g.obstacleFilter.Query()
	for oq.Next() {
		pos, hb, static := oq.Get()
		seq = append(seq, static.Seq)
		snapshot.Obstacles = append(snapshot.Obstacles, telemetry.ObstacleState{
			X:       pos.X + hb.Pos.X,
			Y:       pos.Y + hb.Pos.Y,
			W:       hb.Size.X,
			H:       hb.Size.Y,
			Seeable: g.seeableMap.Has(oq.Entity()),
		})
	}
	sortByKeys(snapshot.Obstacles, seq)

	sensors := make(map[ecs.Entity][]telemetry.SensorState)
	eq := g.eyeFilter.Query()
	for eq.Next() {
		eye, sb := eq.Get()
		list := sensors[eye.Owner]
		for len(list) <= eye.Index {
			list = append(list, telemetry.SensorState{})
		}
		list[eye.Index] = telemetry.SensorState{
			X:      sb.Pos.X,
			Y:      sb.Pos.Y,
			Length: sb.Size.X,
			Width:  sb.Size.Y,
			Angle:  sb.Angle,
		}
		sensors[eye.Owner] = list
	}

	aq := g.agentFilter.Query()
	for aq.Next() {
		e := aq.Entity()
		pos, vel, hb, mv, facing, agent, senses := aq.Get()

		state := telemetry.AgentState{
			ID:      agent.ID,
			X:       pos.X,
			Y:       pos.Y,
			W:       hb.Size.X,
			H:       hb.Size.Y,
			VelX:    vel.X,
			VelY:    vel.Y,
			Facing:  facing.Dir,
			Inert:   mv.Inert,
			Sensors: sensors[e],
			Senses:  append([]components.Reading(nil), senses.Readings...),
		}
		if c := g.controllers[e]; c != nil {
			state.Controller = c.Name()
		}
		snapshot.Agents = append(snapshot.Agents, state)
	}

	slices.SortFunc(snapshot.Agents, func(a, b telemetry.AgentState) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return snapshot
}

// sortByKeys sorts items by the parallel keys slice, which is sorted too.
func sortByKeys[T any](items []T, keys []uint32) {
	sort.Sort(byKeys[T]{items, keys})
}

type byKeys[T any] struct {
	items []T
	keys  []uint32
}

func (b byKeys[T]) Len() int           { return len(b.items) }
func (b byKeys[T]) Less(i, j int) bool { return b.keys[i] < b.keys[j] }
func (b byKeys[T]) Swap(i, j int) {
	b.items[i], b.items[j] = b.items[j], b.items[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

// Restore replaces the scene with a snapshot. Agent ids, velocities, facing,
// inert flags and last readings are carried over; controllers are rebuilt by name.
// The snapshot is validated first; on error the current scene is untouched.
func (g *Game) Restore(s *telemetry.Snapshot) error {
	if s.Version != telemetry.SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", s.Version, telemetry.SnapshotVersion)
	}

	obstacles := make([]ObstacleSpec, len(s.Obstacles))
	for i, o := range s.Obstacles {
		obstacles[i] = ObstacleSpec{X: o.X, Y: o.Y, W: o.W, H: o.H, Hidden: !o.Seeable}
		if err := obstacles[i].validate(); err != nil {
			return fmt.Errorf("obstacle %d: %w", i, err)
		}
	}

	agents := make([]AgentSpec, len(s.Agents))
	for i, a := range s.Agents {
		spec := AgentSpec{X: a.X, Y: a.Y, W: a.W, H: a.H}
		for _, sn := range a.Sensors {
			spec.Sensors = append(spec.Sensors, SensorSpec(sn))
		}
		if err := spec.validate(); err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		if err := g.checkController(a.Controller); err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		agents[i] = spec
	}

	g.clearWorld()

	for _, spec := range obstacles {
		if _, err := g.SpawnObstacle(spec); err != nil {
			return err
		}
	}

	var maxID uint32
	for i, a := range s.Agents {
		e, err := g.SpawnAgent(agents[i])
		if err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}

		_, vel, _, mv, facing, agent, senses := g.agentMapper.Get(e)
		*vel = components.Velocity{X: a.VelX, Y: a.VelY}
		mv.Inert = a.Inert
		facing.Dir = a.Facing
		agent.ID = a.ID
		copy(senses.Readings, a.Senses)
		maxID = max(maxID, a.ID)

		c, err := g.newController(a.Controller)
		if err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		if c != nil {
			g.controllers[e] = c
		}
	}

	g.nextID = maxID + 1
	g.tick = s.Tick
	g.buildObstacleSnapshot()
	return nil
}

// Teleport moves an agent and stops it. Mostly for tests and the viewer.
func (g *Game) Teleport(e ecs.Entity, p r2.Vec) error {
	if !g.world.Alive(e) {
		return ErrStaleEntity
	}
	if !g.agentMap.Has(e) {
		return ErrNoAgent
	}
	*g.posMap.Get(e) = components.Position{X: p.X, Y: p.Y}
	*g.velMap.Get(e) = components.Velocity{}
	return nil
}
