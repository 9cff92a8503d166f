package game

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/config"
	"github.com/pthm-cable/pupil/systems"
	"github.com/pthm-cable/pupil/telemetry"
)

// emptyConfig returns the defaults with no level loaded.
func emptyConfig() *config.Config {
	cfg := config.Default()
	cfg.World.Obstacles = nil
	cfg.World.Agents = nil
	return cfg
}

func newTestGame(t *testing.T, cfg *config.Config) *Game {
	t.Helper()
	g, err := NewGameWithOptions(Options{Config: cfg, Seed: 1})
	require.NoError(t, err)
	t.Cleanup(g.Unload)
	return g
}

func forward(length float64) []SensorSpec {
	return []SensorSpec{{Length: length, Width: 10}}
}

// fixedController always returns the same input.
type fixedController struct{ in systems.Input }

func (c fixedController) Name() string                 { return "fixed" }
func (c fixedController) Control(Readout) systems.Input { return c.in }

func TestSpawnValidation(t *testing.T) {
	g := newTestGame(t, emptyConfig())

	_, err := g.SpawnAgent(AgentSpec{W: -1, H: 10})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = g.SpawnAgent(AgentSpec{W: 10, H: math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = g.SpawnAgent(AgentSpec{W: 10, H: 10, Sensors: []SensorSpec{{Length: -5, Width: 10}}})
	assert.ErrorIs(t, err, ErrInvalidSensor)

	_, err = g.SpawnObstacle(ObstacleSpec{W: 10, H: math.Inf(1)})
	assert.ErrorIs(t, err, ErrInvalidSize)

	assert.Empty(t, g.Readouts())
}

func TestUnknownController(t *testing.T) {
	cfg := emptyConfig()
	cfg.World.Agents = []config.AgentConfig{{W: 10, H: 10, Controller: "bogus"}}

	_, err := NewGameWithOptions(Options{Config: cfg})
	assert.ErrorIs(t, err, ErrUnknownController)
}

func TestCustomControllerFactory(t *testing.T) {
	cfg := emptyConfig()
	cfg.Physics.Gravity = 0
	cfg.World.Agents = []config.AgentConfig{{W: 10, H: 10, Controller: "right"}}

	g, err := NewGameWithOptions(Options{
		Config: cfg,
		Controllers: map[string]ControllerFactory{
			"right": func(*Game) Controller { return fixedController{systems.Input{Direction: 1}} },
		},
	})
	require.NoError(t, err)
	defer g.Unload()

	g.StepOnce()
	rs := g.Readouts()
	require.Len(t, rs, 1)
	assert.Equal(t, cfg.Control.XAcceleration, rs[0].VelX)
	assert.Equal(t, "fixed", g.ControllerOf(rs[0].Entity).Name())
}

func TestSensorReadingInWorld(t *testing.T) {
	cfg := emptyConfig()
	cfg.Physics.Gravity = 0
	g := newTestGame(t, cfg)

	obstacle, err := g.SpawnObstacle(ObstacleSpec{X: 90, W: 50, H: 50})
	require.NoError(t, err)
	_, err = g.SpawnAgent(AgentSpec{W: 10, H: 10, Sensors: forward(100)})
	require.NoError(t, err)

	g.StepOnce()
	r := g.Readouts()[0]
	require.True(t, r.Senses[0].Detected)
	assert.Equal(t, 0.65234375, r.Senses[0].Distance)
	require.NotNil(t, r.Nearest)
	assert.InDelta(t, 65, *r.Nearest, 1e-9)

	// Removal is visible on the next tick.
	require.NoError(t, g.Despawn(obstacle))
	g.StepOnce()
	r = g.Readouts()[0]
	assert.False(t, r.Senses[0].Detected)
	assert.Nil(t, r.Nearest)
}

func TestHiddenObstacleCollidesButIsNotSeen(t *testing.T) {
	cfg := emptyConfig()
	g := newTestGame(t, cfg)

	_, err := g.SpawnObstacle(ObstacleSpec{Y: -200, W: 1000, H: 100, Hidden: true})
	require.NoError(t, err)
	// Looks straight down.
	_, err = g.SpawnAgent(AgentSpec{W: 20, H: 40, Sensors: []SensorSpec{{Length: 200, Width: 10, Angle: -math.Pi / 2}}})
	require.NoError(t, err)

	for i := 0; i < 120; i++ {
		g.StepOnce()
	}
	r := g.Readouts()[0]
	assert.InDelta(t, -130, r.Y, 1e-9)
	assert.False(t, r.Senses[0].Detected)
}

func TestFacingLeftMirrorsSensors(t *testing.T) {
	cfg := emptyConfig()
	cfg.Physics.Gravity = 0
	g := newTestGame(t, cfg)

	_, err := g.SpawnObstacle(ObstacleSpec{X: -90, W: 50, H: 50})
	require.NoError(t, err)
	e, err := g.SpawnAgent(AgentSpec{W: 10, H: 10, Sensors: forward(100)})
	require.NoError(t, err)

	g.StepOnce()
	assert.False(t, g.Readouts()[0].Senses[0].Detected, "facing right sees nothing behind")

	require.NoError(t, g.SetController(e, fixedController{systems.Input{Direction: -1}}))
	g.StepOnce()

	r := g.Readouts()[0]
	assert.Equal(t, components.DirLeft, r.Facing)
	require.True(t, r.Senses[0].Detected)
	// The agent moved 40/60 units toward the obstacle before looking.
	want := (65 - 40*cfg.Physics.DT) / 100
	assert.InDelta(t, want, r.Senses[0].Distance, 1.0/256)
}

func TestLandsOnSlab(t *testing.T) {
	cfg := emptyConfig()
	g := newTestGame(t, cfg)

	_, err := g.SpawnObstacle(ObstacleSpec{Y: -200, W: 1000, H: 100})
	require.NoError(t, err)
	_, err = g.SpawnAgent(AgentSpec{W: 20, H: 40, Sensors: []SensorSpec{{Length: 100, Width: 10, Angle: -math.Pi / 2}}})
	require.NoError(t, err)

	for i := 0; i < 300; i++ {
		g.StepOnce()
	}

	r := g.Readouts()[0]
	assert.InDelta(t, -130, r.Y, 1e-9)
	assert.InDelta(t, 0, r.X, 1e-9)
	assert.False(t, r.Inert)

	// Perception runs after resolution: the downward sensor starts at the
	// agent center, 20 units above the slab.
	require.True(t, r.Senses[0].Detected)
	assert.InDelta(t, 0.2, r.Senses[0].Distance, 1.0/256)
}

func TestFreezeOutOfBounds(t *testing.T) {
	cfg := emptyConfig()
	cfg.World.Bounds.MinY = -100
	g := newTestGame(t, cfg)

	var frozen int
	g.SetStatsCallback(func(s telemetry.WindowStats) { frozen += s.Freezes })

	_, err := g.SpawnAgent(AgentSpec{W: 10, H: 10})
	require.NoError(t, err)

	for i := 0; i < 60; i++ {
		g.StepOnce()
	}
	r := g.Readouts()[0]
	require.True(t, r.Inert)
	assert.Zero(t, r.VelX)
	assert.Zero(t, r.VelY)
	assert.Less(t, r.Y, -100.0)

	for i := 0; i < 10; i++ {
		g.StepOnce()
	}
	assert.Equal(t, r.Y, g.Readouts()[0].Y, "frozen bodies do not move")

	// Flush the window and check the freeze was counted once.
	for int(g.Tick()) < int(g.collector.WindowDurationTicks()) {
		g.StepOnce()
	}
	assert.Equal(t, 1, frozen)
}

func TestDespawn(t *testing.T) {
	g := newTestGame(t, emptyConfig())

	e, err := g.SpawnAgent(AgentSpec{W: 10, H: 10, Sensors: []SensorSpec{{Length: 50, Width: 5}, {Length: 80, Width: 5}}})
	require.NoError(t, err)
	require.Len(t, g.Eyes(), 2)

	require.NoError(t, g.Despawn(e))
	assert.Empty(t, g.Eyes())
	assert.Empty(t, g.Readouts())
	assert.ErrorIs(t, g.Despawn(e), ErrStaleEntity)

	_, err = g.Readout(e)
	assert.ErrorIs(t, err, ErrStaleEntity)
	assert.ErrorIs(t, g.SetController(e, nil), ErrStaleEntity)
}

func TestDespawnEyeDirectlyFails(t *testing.T) {
	g := newTestGame(t, emptyConfig())

	_, err := g.SpawnAgent(AgentSpec{W: 10, H: 10, Sensors: forward(50)})
	require.NoError(t, err)

	query := g.eyeFilter.Query()
	require.True(t, query.Next())
	e := query.Entity()
	query.Close()

	assert.Error(t, g.Despawn(e))
	assert.Len(t, g.Eyes(), 1)
}

func TestOrphanEyesAreSkipped(t *testing.T) {
	g := newTestGame(t, emptyConfig())

	e, err := g.SpawnAgent(AgentSpec{W: 10, H: 10, Sensors: []SensorSpec{{Length: 50, Width: 5}, {Length: 80, Width: 5}}})
	require.NoError(t, err)

	// Bypass Despawn so the eyes outlive their owner.
	g.world.RemoveEntity(e)

	assert.NotPanics(t, g.StepOnce)
	assert.Equal(t, 2, g.collector.Count(telemetry.EventOrphanEye))
	assert.Empty(t, g.Eyes())
}

func TestReadoutJSON(t *testing.T) {
	cfg := emptyConfig()
	cfg.Physics.Gravity = 0
	g := newTestGame(t, cfg)

	_, err := g.SpawnAgent(AgentSpec{W: 10, H: 10, Sensors: forward(100)})
	require.NoError(t, err)
	g.StepOnce()

	data, err := json.Marshal(g.Readouts()[0])
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, `"senses":[null]`)
	assert.Contains(t, s, `"facing":"right"`)
	assert.Contains(t, s, `"motion":"idle"`)
	assert.NotContains(t, s, "nearest")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	cfg := config.Default()
	g := newTestGame(t, cfg)
	for i := 0; i < 120; i++ {
		g.StepOnce()
	}
	snap := g.Snapshot()
	require.Len(t, snap.Agents, len(cfg.World.Agents))
	require.Len(t, snap.Obstacles, len(cfg.World.Obstacles))
	assert.Equal(t, "scripted", snap.Agents[0].Controller)

	g2 := newTestGame(t, emptyConfig())
	require.NoError(t, g2.Restore(snap))
	assert.Equal(t, snap, g2.Snapshot())
	assert.Equal(t, snap.Tick, g2.Tick())

	// New agents continue after the highest restored id.
	e, err := g2.SpawnAgent(AgentSpec{W: 10, H: 10})
	require.NoError(t, err)
	r, err := g2.Readout(e)
	require.NoError(t, err)
	assert.Equal(t, snap.Agents[len(snap.Agents)-1].ID+1, r.ID)
}

func TestRestoreRejectsVersion(t *testing.T) {
	g := newTestGame(t, emptyConfig())
	err := g.Restore(&telemetry.Snapshot{Version: telemetry.SnapshotVersion + 1})
	assert.Error(t, err)
}

func TestRestoreInvalidKeepsScene(t *testing.T) {
	g := newTestGame(t, config.Default())
	for i := 0; i < 30; i++ {
		g.StepOnce()
	}
	before := g.Snapshot()
	require.NotEmpty(t, before.Agents)
	require.NotEmpty(t, before.Obstacles)

	tests := []struct {
		name   string
		mutate func(s *telemetry.Snapshot)
		want   error
	}{
		{"bad obstacle", func(s *telemetry.Snapshot) { s.Obstacles[len(s.Obstacles)-1].W = -1 }, ErrInvalidSize},
		{"bad agent", func(s *telemetry.Snapshot) { s.Agents[len(s.Agents)-1].H = math.NaN() }, ErrInvalidSize},
		{"bad sensor", func(s *telemetry.Snapshot) {
			s.Agents[0].Sensors = append(s.Agents[0].Sensors, telemetry.SensorState{Length: -5})
		}, ErrInvalidSensor},
		{"unknown controller", func(s *telemetry.Snapshot) { s.Agents[len(s.Agents)-1].Controller = "nope" }, ErrUnknownController},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := *before
			bad.Tick = before.Tick + 500
			bad.Obstacles = slices.Clone(before.Obstacles)
			bad.Agents = slices.Clone(before.Agents)
			bad.Agents[0].Sensors = slices.Clone(before.Agents[0].Sensors)
			tt.mutate(&bad)

			assert.ErrorIs(t, g.Restore(&bad), tt.want)
			assert.Equal(t, before, g.Snapshot())
			assert.Equal(t, before.Tick, g.Tick())
		})
	}
}

// crowdConfig builds a level with enough sensors to fan perception out.
func crowdConfig(workers int) *config.Config {
	cfg := config.Default()
	cfg.Perception.Workers = workers
	cfg.World.Agents = nil
	for i := 0; i < 30; i++ {
		cfg.World.Agents = append(cfg.World.Agents, config.AgentConfig{
			X: -450 + float64(i)*30, Y: float64(i%5) * 20, W: 10, H: 20,
			Controller: "scripted",
			Sensors: []config.SensorConfig{
				{Length: 150, Width: 10},
				{Length: 100, Width: 10, Angle: -math.Pi / 4},
				{Length: 120, Width: 10, Angle: 0.5},
			},
		})
	}
	return cfg
}

func TestParallelPerceptionMatchesSerial(t *testing.T) {
	serial := newTestGame(t, crowdConfig(1))
	parallel := newTestGame(t, crowdConfig(4))
	require.GreaterOrEqual(t, len(parallel.Eyes()), parallelThreshold)

	for i := 0; i < 180; i++ {
		serial.StepOnce()
		parallel.StepOnce()
	}
	assert.Equal(t, serial.Readouts(), parallel.Readouts())
}

type fakePublisher struct {
	frames []Frame
	closed bool
}

func (p *fakePublisher) Publish(v any) error {
	p.frames = append(p.frames, v.(Frame))
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func TestFramePublishing(t *testing.T) {
	cfg := config.Default()
	cfg.Stream.Every = 2
	pub := &fakePublisher{}

	g, err := NewGameWithOptions(Options{Config: cfg, Seed: 3, Publisher: pub})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		g.StepOnce()
	}
	require.Len(t, pub.frames, 2)
	assert.Equal(t, int32(2), pub.frames[0].Tick)
	assert.Equal(t, int32(4), pub.frames[1].Tick)
	assert.Len(t, pub.frames[1].Agents, len(cfg.World.Agents))
	assert.Len(t, pub.frames[1].Obstacles, len(cfg.World.Obstacles))

	g.Unload()
	assert.True(t, pub.closed)
}

func TestOutputFiles(t *testing.T) {
	dir := t.TempDir()
	snapDir := t.TempDir()
	cfg := config.Default()
	cfg.Telemetry.Readouts = true

	g, err := NewGameWithOptions(Options{
		Config:         cfg,
		Seed:           5,
		StatsWindowSec: 0.1,
		OutputDir:      dir,
		SnapshotDir:    snapDir,
	})
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		g.StepOnce()
	}
	g.Unload()

	for _, name := range []string{"config.yaml", "run.yaml", "perf.csv"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3, "header plus two windows")

	sensors := 0
	for _, a := range cfg.World.Agents {
		sensors += len(a.Sensors)
	}
	data, err = os.ReadFile(filepath.Join(dir, "readouts.csv"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 1+12*sensors)

	s, err := telemetry.LoadSnapshot(filepath.Join(snapDir, "snapshot_12.json"))
	require.NoError(t, err)
	assert.Equal(t, int32(12), s.Tick)
}

func TestTeleport(t *testing.T) {
	g := newTestGame(t, emptyConfig())
	e, err := g.SpawnAgent(AgentSpec{W: 10, H: 10})
	require.NoError(t, err)

	require.NoError(t, g.Teleport(e, r2.Vec{X: 40, Y: 50}))
	r, err := g.Readout(e)
	require.NoError(t, err)
	assert.Equal(t, 40.0, r.X)
	assert.Equal(t, 50.0, r.Y)

	found, ok := g.AgentByID(r.ID)
	assert.True(t, ok)
	assert.Equal(t, e, found)
}

func TestUpdateRespectsPauseAndSpeed(t *testing.T) {
	g := newTestGame(t, emptyConfig())

	g.SetStepsPerUpdate(50)
	assert.Equal(t, 10, g.StepsPerUpdate())

	g.SetStepsPerUpdate(3)
	g.Update(g.Config().Physics.DT)
	assert.Equal(t, int32(3), g.Tick())

	g.SetPaused(true)
	g.Update(g.Config().Physics.DT)
	assert.Equal(t, int32(3), g.Tick())

	g.StepOnce()
	assert.Equal(t, int32(4), g.Tick())
}
