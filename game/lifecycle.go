package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/config"
	"github.com/pthm-cable/pupil/telemetry"
)

var (
	ErrInvalidSize       = errors.New("invalid size")
	ErrInvalidSensor     = errors.New("invalid sensor")
	ErrStaleEntity       = errors.New("stale entity")
	ErrUnknownController = errors.New("unknown controller")
)

// SensorSpec describes one sensor wedge relative to its agent, authored
// facing right. Angle is in radians; positive tilts the wedge up.
type SensorSpec struct {
	X, Y   float64
	Length float64
	Width  float64
	Angle  float64
}

// AgentSpec describes an agent to spawn. Sensor i fills Senses slot i.
type AgentSpec struct {
	X, Y    float64
	W, H    float64
	Sensors []SensorSpec
}

// ObstacleSpec describes a static rectangle centered at (X, Y).
// Hidden obstacles still collide but are invisible to sensors.
type ObstacleSpec struct {
	X, Y   float64
	W, H   float64
	Hidden bool
}

func badSize(vs ...float64) bool {
	for _, v := range vs {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

func (s AgentSpec) validate() error {
	if badSize(s.W, s.H) {
		return fmt.Errorf("%w: agent body %gx%g", ErrInvalidSize, s.W, s.H)
	}
	for i, sn := range s.Sensors {
		if badSize(sn.Length, sn.Width) || math.IsNaN(sn.Angle) || math.IsNaN(sn.X) || math.IsNaN(sn.Y) {
			return fmt.Errorf("%w: sensor %d", ErrInvalidSensor, i)
		}
	}
	return nil
}

func (s ObstacleSpec) validate() error {
	if badSize(s.W, s.H) || math.IsNaN(s.X) || math.IsNaN(s.Y) {
		return fmt.Errorf("%w: obstacle %gx%g", ErrInvalidSize, s.W, s.H)
	}
	return nil
}

// SpawnAgent creates an agent with one eye per sensor spec.
func (g *Game) SpawnAgent(spec AgentSpec) (ecs.Entity, error) {
	if err := spec.validate(); err != nil {
		return ecs.Entity{}, err
	}

	id := g.nextID
	g.nextID++

	pos := components.Position{X: spec.X, Y: spec.Y}
	vel := components.Velocity{}
	hb := components.Hitbox{Size: r2.Vec{X: spec.W, Y: spec.H}}
	mv := components.Moveable{}
	facing := components.Facing{Dir: components.DirRight}
	agent := components.Agent{ID: id}
	senses := components.Senses{Readings: make([]components.Reading, len(spec.Sensors))}

	entity := g.agentMapper.NewEntity(&pos, &vel, &hb, &mv, &facing, &agent, &senses)

	for i, sn := range spec.Sensors {
		eye := components.Eye{Owner: entity, Index: i}
		sb := components.SeeBox{
			Pos:   r2.Vec{X: sn.X, Y: sn.Y},
			Size:  r2.Vec{X: sn.Length, Y: sn.Width},
			Angle: sn.Angle,
		}
		g.eyeMapper.NewEntity(&eye, &sb)
	}

	g.collector.Record(telemetry.Event{Type: telemetry.EventSpawn, Tick: g.tick, EntityID: id})
	return entity, nil
}

// SpawnObstacle creates a static obstacle.
func (g *Game) SpawnObstacle(spec ObstacleSpec) (ecs.Entity, error) {
	if err := spec.validate(); err != nil {
		return ecs.Entity{}, err
	}

	pos := components.Position{X: spec.X, Y: spec.Y}
	hb := components.Hitbox{Size: r2.Vec{X: spec.W, Y: spec.H}}
	static := components.Static{Seq: g.nextSeq}
	g.nextSeq++
	entity := g.obstacleMapper.NewEntity(&pos, &hb, &static)
	if !spec.Hidden {
		g.seeableMap.Add(entity, &components.Seeable{})
	}
	return entity, nil
}

// Despawn removes an agent together with its eyes, or an obstacle.
// Returns ErrStaleEntity if e was already removed.
func (g *Game) Despawn(e ecs.Entity) error {
	if !g.world.Alive(e) {
		return ErrStaleEntity
	}

	switch {
	case g.agentMap.Has(e):
		id := g.agentMap.Get(e).ID

		// Collect first: the world is locked while the query runs.
		var eyes []ecs.Entity
		query := g.eyeFilter.Query()
		for query.Next() {
			eye, _ := query.Get()
			if eye.Owner == e {
				eyes = append(eyes, query.Entity())
			}
		}
		for _, eye := range eyes {
			g.world.RemoveEntity(eye)
		}

		g.world.RemoveEntity(e)
		delete(g.controllers, e)
		g.collector.Record(telemetry.Event{Type: telemetry.EventDespawn, Tick: g.tick, EntityID: id})

	case g.eyeMap.Has(e):
		return fmt.Errorf("eye %d: eyes are removed with their owner", e.ID())

	default:
		g.world.RemoveEntity(e)
	}
	return nil
}

// loadLevel spawns the configured obstacles and agents.
func (g *Game) loadLevel() error {
	for i, o := range g.cfg.World.Obstacles {
		if _, err := g.SpawnObstacle(obstacleSpecFromConfig(o)); err != nil {
			return fmt.Errorf("obstacle %d: %w", i, err)
		}
	}

	for i, a := range g.cfg.World.Agents {
		e, err := g.SpawnAgent(agentSpecFromConfig(a))
		if err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		c, err := g.newController(a.Controller)
		if err != nil {
			return fmt.Errorf("agent %d: %w", i, err)
		}
		if c != nil {
			g.controllers[e] = c
		}
	}

	slog.Debug("level loaded",
		"obstacles", len(g.cfg.World.Obstacles),
		"agents", len(g.cfg.World.Agents),
	)
	return nil
}

// newController builds a controller by name. Empty and "none" mean no controller.
func (g *Game) newController(name string) (Controller, error) {
	if err := g.checkController(name); err != nil || name == "" || name == "none" {
		return nil, err
	}
	return g.factories[name](g), nil
}

// checkController reports whether newController would accept name.
func (g *Game) checkController(name string) error {
	if name == "" || name == "none" {
		return nil
	}
	if _, ok := g.factories[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownController, name)
	}
	return nil
}

// clearWorld removes every agent, eye and obstacle.
func (g *Game) clearWorld() {
	var all []ecs.Entity

	aq := g.agentFilter.Query()
	for aq.Next() {
		all = append(all, aq.Entity())
	}
	eq := g.eyeFilter.Query()
	for eq.Next() {
		all = append(all, eq.Entity())
	}
	oq := g.obstacleFilter.Query()
	for oq.Next() {
		all = append(all, oq.Entity())
	}

	for _, e := range all {
		g.world.RemoveEntity(e)
	}
	clear(g.controllers)
	g.obstacles = g.obstacles[:0]
}

func agentSpecFromConfig(a config.AgentConfig) AgentSpec {
	spec := AgentSpec{X: a.X, Y: a.Y, W: a.W, H: a.H}
	for _, s := range a.Sensors {
		spec.Sensors = append(spec.Sensors, SensorSpec{X: s.X, Y: s.Y, Length: s.Length, Width: s.Width, Angle: s.Angle})
	}
	return spec
}

func obstacleSpecFromConfig(o config.ObstacleConfig) ObstacleSpec {
	return ObstacleSpec{X: o.X, Y: o.Y, W: o.W, H: o.H, Hidden: o.Hidden}
}
