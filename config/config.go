// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned by Load when a loaded configuration cannot drive a simulation.
var ErrInvalid = errors.New("invalid config")

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Control    ControlConfig    `yaml:"control"`
	Perception PerceptionConfig `yaml:"perception"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Stream     StreamConfig     `yaml:"stream"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the level layout. Coordinates are y-up world units.
type WorldConfig struct {
	Bounds    BoundsConfig     `yaml:"bounds"`
	Obstacles []ObstacleConfig `yaml:"obstacles"`
	Agents    []AgentConfig    `yaml:"agents"`
}

// BoundsConfig is the rectangle a movable body must stay inside to keep simulating.
type BoundsConfig struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

// ObstacleConfig is a static rectangle centered at (X, Y).
type ObstacleConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	W      float64 `yaml:"w"`
	H      float64 `yaml:"h"`
	Hidden bool    `yaml:"hidden,omitempty"` // collides but sensors ignore it
}

// AgentConfig is an agent spawned when the level loads.
type AgentConfig struct {
	X          float64        `yaml:"x"`
	Y          float64        `yaml:"y"`
	W          float64        `yaml:"w"`
	H          float64        `yaml:"h"`
	Controller string         `yaml:"controller"` // none, scripted, sense, keyboard
	Sensors    []SensorConfig `yaml:"sensors"`
}

// SensorConfig describes one sensor wedge relative to its agent.
type SensorConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Length float64 `yaml:"length"`
	Width  float64 `yaml:"width"`
	Angle  float64 `yaml:"angle"` // radians, positive is up when facing right
}

// PhysicsConfig holds integration and collision parameters.
type PhysicsConfig struct {
	DT               float64 `yaml:"dt"` // fixed step for headless mode
	Gravity          float64 `yaml:"gravity"`
	NominalFrameTime float64 `yaml:"nominal_frame_time"`
	MaxDTFrames      float64 `yaml:"max_dt_frames"` // gravity dt clamp, in nominal frames
	Restitution      float64 `yaml:"restitution"`
	VelocitySnap     float64 `yaml:"velocity_snap"`
	ResolvePasses    int     `yaml:"resolve_passes"`
}

// ControlConfig holds the horizontal drive and jump contract for controllers.
type ControlConfig struct {
	XAcceleration   float64 `yaml:"x_acceleration"` // per tick
	MaxXSpeed       float64 `yaml:"max_x_speed"`
	Decay           float64 `yaml:"decay"` // per tick with no input
	StopThreshold   float64 `yaml:"stop_threshold"`
	FacingThreshold float64 `yaml:"facing_threshold"`
	ScriptedHold    int     `yaml:"scripted_hold"`    // ticks a scripted direction is held
	ScriptedJump    float64 `yaml:"scripted_jump"`    // jump probability per decision
	SenseJumpBelow  float64 `yaml:"sense_jump_below"` // forward reading that triggers a jump
}

// PerceptionConfig holds range-finding parameters.
type PerceptionConfig struct {
	Iterations int `yaml:"iterations"`
	Workers    int `yaml:"workers"` // 1 = serial
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
	Readouts            bool    `yaml:"readouts"` // write per-sensor readouts.csv
}

// StreamConfig holds the readout websocket settings.
type StreamConfig struct {
	Addr  string `yaml:"addr"` // empty disables the server
	Every int    `yaml:"every"`
}

// DerivedConfig holds values computed from other config values.
type DerivedConfig struct {
	MaxGravityDT     float64 // NominalFrameTime * MaxDTFrames
	StatsWindowTicks int     // StatsWindow / DT, at least 1
	ScreenW32        float32
	ScreenH32        float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file; lists replace wholesale.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

func (c *Config) validate() error {
	b := c.World.Bounds
	switch {
	case b.MinX >= b.MaxX || b.MinY >= b.MaxY:
		return fmt.Errorf("%w: world bounds are empty", ErrInvalid)
	case !finite(b.MinX, b.MinY, b.MaxX, b.MaxY):
		return fmt.Errorf("%w: world bounds must be finite", ErrInvalid)
	case c.Physics.DT <= 0:
		return fmt.Errorf("%w: physics.dt must be positive", ErrInvalid)
	case c.Physics.ResolvePasses < 1:
		return fmt.Errorf("%w: physics.resolve_passes must be at least 1", ErrInvalid)
	case c.Perception.Iterations < 1:
		return fmt.Errorf("%w: perception.iterations must be at least 1", ErrInvalid)
	case c.Control.Decay < 0 || c.Control.Decay > 1:
		return fmt.Errorf("%w: control.decay must be in [0, 1]", ErrInvalid)
	}
	for i, o := range c.World.Obstacles {
		if o.W < 0 || o.H < 0 {
			return fmt.Errorf("%w: obstacle %d has negative size", ErrInvalid, i)
		}
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.MaxGravityDT = c.Physics.NominalFrameTime * c.Physics.MaxDTFrames
	c.Derived.StatsWindowTicks = max(1, int(math.Round(c.Telemetry.StatsWindow/c.Physics.DT)))
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	if c.Perception.Workers < 1 {
		c.Perception.Workers = 1
	}
	if c.Stream.Every < 1 {
		c.Stream.Every = 1
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
