package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/config"
	"github.com/pthm-cable/pupil/systems"
	"github.com/pthm-cable/pupil/telemetry"
)

// gridCellSize is the obstacle grid cell size in world units.
const gridCellSize = 128.0

// parallelThreshold is the minimum sensor count to fan perception out.
// Below this, single-threaded is faster due to goroutine overhead.
const parallelThreshold = 64

// Publisher receives a Frame every stream.every ticks.
type Publisher interface {
	Publish(v any) error
	Close() error
}

// Options configures a new Game.
type Options struct {
	Config         *config.Config // nil uses config.Cfg()
	Seed           int64
	LogStats       bool
	StatsWindowSec float64 // 0 uses telemetry.stats_window
	SnapshotDir    string  // final snapshot is saved here on Unload
	OutputDir      string
	Headless       bool
	StepsPerUpdate int
	Publisher      Publisher // nil disables frame streaming

	// Controllers adds controller factories by name on top of the built-in
	// "scripted" and "sense". Agents configured with an unknown name fail to load.
	Controllers map[string]ControllerFactory
}

// Game holds the complete simulation state.
type Game struct {
	world *ecs.World
	cfg   *config.Config
	rng   *rand.Rand

	rngSeed int64

	physics systems.PhysicsParams
	control systems.ControlParams
	bounds  systems.WorldBounds

	// Entity mappers
	agentMapper *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Hitbox,
		components.Moveable,
		components.Facing,
		components.Agent,
		components.Senses,
	]
	obstacleMapper *ecs.Map3[components.Position, components.Hitbox, components.Static]
	eyeMapper      *ecs.Map2[components.Eye, components.SeeBox]

	agentFilter *ecs.Filter7[
		components.Position,
		components.Velocity,
		components.Hitbox,
		components.Moveable,
		components.Facing,
		components.Agent,
		components.Senses,
	]
	obstacleFilter *ecs.Filter3[components.Position, components.Hitbox, components.Static]
	eyeFilter      *ecs.Filter2[components.Eye, components.SeeBox]

	// Individual component mappers for lookups
	posMap     *ecs.Map[components.Position]
	velMap     *ecs.Map[components.Velocity]
	hitboxMap  *ecs.Map[components.Hitbox]
	facingMap  *ecs.Map[components.Facing]
	sensesMap  *ecs.Map[components.Senses]
	agentMap   *ecs.Map[components.Agent]
	moveMap    *ecs.Map[components.Moveable]
	staticMap  *ecs.Map[components.Static]
	seeableMap *ecs.Map[components.Seeable]
	eyeMap     *ecs.Map[components.Eye]

	controllers map[ecs.Entity]Controller
	factories   map[string]ControllerFactory

	// Per-tick obstacle snapshot and its index
	obstacles   []systems.ObstacleShape
	obstacleSeq []uint32
	grid        *systems.ObstacleGrid
	contacts    []systems.Contact

	perception *perceptionState

	// State
	tick           int32
	paused         bool
	nextID         uint32
	nextSeq        uint32 // obstacle spawn order
	stepsPerUpdate int

	// Telemetry
	collector      *telemetry.Collector
	perfCollector  *telemetry.PerfCollector
	outputManager  *telemetry.OutputManager
	publisher      Publisher
	statsCallback  func(telemetry.WindowStats)
	logStats       bool
	snapshotDir    string
	systemRegistry *systems.SystemRegistry
}

// NewGameWithOptions creates a game and loads the configured level.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	world := ecs.NewWorld()

	g := &Game{
		world:          world,
		cfg:            cfg,
		rng:            rand.New(rand.NewSource(opts.Seed)),
		rngSeed:        opts.Seed,
		physics:        systems.PhysicsFromConfig(cfg),
		control:        systems.ControlFromConfig(cfg),
		bounds:         systems.BoundsFromConfig(cfg),
		stepsPerUpdate: max(1, opts.StepsPerUpdate),
		nextID:         1,
		controllers:    make(map[ecs.Entity]Controller),
		perception:     newPerceptionState(cfg.Perception.Workers),
		logStats:       opts.LogStats,
		snapshotDir:    opts.SnapshotDir,
		publisher:      opts.Publisher,
		systemRegistry: systems.NewSystemRegistry(),

		agentMapper: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.Hitbox,
			components.Moveable,
			components.Facing,
			components.Agent,
			components.Senses,
		](world),
		obstacleMapper: ecs.NewMap3[components.Position, components.Hitbox, components.Static](world),
		eyeMapper:      ecs.NewMap2[components.Eye, components.SeeBox](world),

		agentFilter: ecs.NewFilter7[
			components.Position,
			components.Velocity,
			components.Hitbox,
			components.Moveable,
			components.Facing,
			components.Agent,
			components.Senses,
		](world),
		obstacleFilter: ecs.NewFilter3[components.Position, components.Hitbox, components.Static](world),
		eyeFilter:      ecs.NewFilter2[components.Eye, components.SeeBox](world),

		posMap:     ecs.NewMap[components.Position](world),
		velMap:     ecs.NewMap[components.Velocity](world),
		hitboxMap:  ecs.NewMap[components.Hitbox](world),
		facingMap:  ecs.NewMap[components.Facing](world),
		sensesMap:  ecs.NewMap[components.Senses](world),
		agentMap:   ecs.NewMap[components.Agent](world),
		moveMap:    ecs.NewMap[components.Moveable](world),
		staticMap:  ecs.NewMap[components.Static](world),
		seeableMap: ecs.NewMap[components.Seeable](world),
		eyeMap:     ecs.NewMap[components.Eye](world),
	}

	b := g.bounds
	g.grid = systems.NewObstacleGrid(r2.Box{
		Min: r2.Vec{X: b.MinX, Y: b.MinY},
		Max: r2.Vec{X: b.MaxX, Y: b.MaxY},
	}, gridCellSize)

	g.factories = map[string]ControllerFactory{
		"scripted": func(g *Game) Controller {
			return NewScriptedController(g.rng.Int63(), g.cfg.Control.ScriptedHold, g.cfg.Control.ScriptedJump)
		},
		"sense": func(g *Game) Controller {
			return NewSenseController(g.cfg.Control.SenseJumpBelow)
		},
	}
	for name, f := range opts.Controllers {
		g.factories[name] = f
	}

	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}
	g.collector = telemetry.NewCollector(statsWindow, cfg.Physics.DT)
	g.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)

	if err := g.loadLevel(); err != nil {
		return nil, fmt.Errorf("loading level: %w", err)
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir, cfg.Telemetry.Readouts)
	if err != nil {
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	g.outputManager = om
	if om != nil {
		if err := om.WriteConfig(cfg); err != nil {
			slog.Error("failed to write config", "error", err)
		}
		if err := om.WriteRunMeta(telemetry.NewRunMeta(cfg, opts.Seed)); err != nil {
			slog.Error("failed to write run meta", "error", err)
		}
	}

	return g, nil
}

// Update runs one graphical frame with the wall-clock frame time.
func (g *Game) Update(frameTime float64) {
	if g.paused {
		return
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.Step(frameTime)
	}
}

// UpdateHeadless runs stepsPerUpdate fixed-dt ticks.
func (g *Game) UpdateHeadless() {
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.Step(g.cfg.Physics.DT)
	}
}

// StepOnce advances a single fixed-dt tick, paused or not.
func (g *Game) StepOnce() {
	g.Step(g.cfg.Physics.DT)
}

// Unload saves the final snapshot if configured and closes outputs.
func (g *Game) Unload() {
	if g.snapshotDir != "" {
		if path, err := g.SaveSnapshot(g.snapshotDir); err != nil {
			slog.Error("failed to save snapshot", "error", err)
		} else {
			slog.Info("snapshot saved", "path", path, "tick", g.tick)
		}
	}
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
	g.outputManager = nil
	if g.publisher != nil {
		if err := g.publisher.Close(); err != nil {
			slog.Error("failed to close publisher", "error", err)
		}
		g.publisher = nil
	}
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 {
	return g.tick
}

// Config returns the configuration the game was built with.
func (g *Game) Config() *config.Config {
	return g.cfg
}

// Paused reports whether Update is suspended.
func (g *Game) Paused() bool {
	return g.paused
}

// SetPaused suspends or resumes Update.
func (g *Game) SetPaused(p bool) {
	g.paused = p
}

// StepsPerUpdate returns the number of ticks run per Update call.
func (g *Game) StepsPerUpdate() int {
	return g.stepsPerUpdate
}

// SetStepsPerUpdate sets the ticks per Update, clamped to [1, 10].
func (g *Game) SetStepsPerUpdate(n int) {
	g.stepsPerUpdate = max(1, min(10, n))
}

// SetStatsCallback registers fn to receive every flushed stats window.
func (g *Game) SetStatsCallback(fn func(telemetry.WindowStats)) {
	g.statsCallback = fn
}

// RecordFrame marks a rendered frame for FPS tracking.
func (g *Game) RecordFrame() {
	g.perfCollector.RecordFrame()
}

// PerfStats returns the rolling per-phase timing.
func (g *Game) PerfStats() telemetry.PerfStats {
	return g.perfCollector.Stats()
}

// Systems returns the pipeline phase registry.
func (g *Game) Systems() *systems.SystemRegistry {
	return g.systemRegistry
}

// Obstacles returns this tick's obstacle snapshot. The slice is reused by
// the next Step and must not be modified.
func (g *Game) Obstacles() []systems.ObstacleShape {
	return g.obstacles
}

// EyeView is a sensor wedge as last perceived.
type EyeView struct {
	Owner   ecs.Entity
	Index   int
	SeeBox  components.SeeBox
	Origin  r2.Vec // owner position
	Reading components.Reading
}

// Eyes returns every sensor whose owner is alive, with its current reading.
func (g *Game) Eyes() []EyeView {
	var out []EyeView
	query := g.eyeFilter.Query()
	for query.Next() {
		eye, sb := query.Get()
		if !g.ownerAlive(eye.Owner) {
			continue
		}
		v := EyeView{Owner: eye.Owner, Index: eye.Index, SeeBox: *sb, Origin: g.posMap.Get(eye.Owner).Vec()}
		if senses := g.sensesMap.Get(eye.Owner); eye.Index < len(senses.Readings) {
			v.Reading = senses.Readings[eye.Index]
		}
		out = append(out, v)
	}
	return out
}

// ErrNoAgent is returned when an entity is not a live agent.
var ErrNoAgent = errors.New("not an agent")

// SetController attaches c to agent e. A nil c detaches the current controller.
func (g *Game) SetController(e ecs.Entity, c Controller) error {
	if !g.world.Alive(e) {
		return ErrStaleEntity
	}
	if !g.agentMap.Has(e) {
		return ErrNoAgent
	}
	if c == nil {
		delete(g.controllers, e)
		return nil
	}
	g.controllers[e] = c
	return nil
}

// ControllerOf returns the controller attached to e, or nil.
func (g *Game) ControllerOf(e ecs.Entity) Controller {
	return g.controllers[e]
}

func (g *Game) ownerAlive(e ecs.Entity) bool {
	return g.world.Alive(e) && g.agentMap.Has(e)
}
