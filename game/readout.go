package game

import (
	"cmp"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/systems"
	"github.com/pthm-cable/pupil/telemetry"
)

// Readout is an agent's externally visible state.
type Readout struct {
	Entity ecs.Entity          `json:"-"`
	ID     uint32              `json:"id"`
	X      float64             `json:"x"`
	Y      float64             `json:"y"`
	W      float64             `json:"w"`
	H      float64             `json:"h"`
	VelX   float64             `json:"vel_x"`
	VelY   float64             `json:"vel_y"`
	Facing components.Dir      `json:"facing"`
	Motion systems.MotionState `json:"motion"`
	Inert  bool                `json:"inert"`

	// Senses is a copy; index i is sensor i. Undetected slots marshal as null.
	Senses []components.Reading `json:"senses"`

	// Nearest is the distance from the agent's position to the closest
	// obstacle edge, or nil when there are no obstacles.
	Nearest *float64 `json:"nearest,omitempty"`
}

// ObstacleView is a static obstacle as streamed to clients.
type ObstacleView struct {
	ID      uint32  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	W       float64 `json:"w"`
	H       float64 `json:"h"`
	Seeable bool    `json:"seeable"`
}

// Frame is one streamed view of the world.
type Frame struct {
	Tick      int32          `json:"tick"`
	Agents    []Readout      `json:"agents"`
	Obstacles []ObstacleView `json:"obstacles"`
}

func (g *Game) readout(
	e ecs.Entity,
	pos *components.Position,
	vel *components.Velocity,
	hb *components.Hitbox,
	mv *components.Moveable,
	facing *components.Facing,
	agent *components.Agent,
	senses *components.Senses,
) Readout {
	r := Readout{
		Entity: e,
		ID:     agent.ID,
		X:      pos.X,
		Y:      pos.Y,
		W:      hb.Size.X,
		H:      hb.Size.Y,
		VelX:   vel.X,
		VelY:   vel.Y,
		Facing: facing.Dir,
		Motion: systems.ClassifyMotion(*vel, g.control.MaxXSpeed),
		Inert:  mv.Inert,
		Senses: append([]components.Reading(nil), senses.Readings...),
	}
	if d, ok := systems.NearestBoundaryDistance(pos.Vec(), g.obstacles); ok {
		r.Nearest = &d
	}
	return r
}

// Readouts returns every agent's readout, ordered by agent id.
func (g *Game) Readouts() []Readout {
	var out []Readout
	query := g.agentFilter.Query()
	for query.Next() {
		pos, vel, hb, mv, facing, agent, senses := query.Get()
		out = append(out, g.readout(query.Entity(), pos, vel, hb, mv, facing, agent, senses))
	}
	sortReadouts(out)
	return out
}

// Readout returns one agent's readout.
func (g *Game) Readout(e ecs.Entity) (Readout, error) {
	if !g.world.Alive(e) {
		return Readout{}, ErrStaleEntity
	}
	if !g.agentMap.Has(e) {
		return Readout{}, ErrNoAgent
	}
	pos, vel, hb, mv, facing, agent, senses := g.agentMapper.Get(e)
	return g.readout(e, pos, vel, hb, mv, facing, agent, senses), nil
}

// Frame builds the streamed view of the current tick.
func (g *Game) Frame() Frame {
	f := Frame{
		Tick:      g.tick,
		Agents:    g.Readouts(),
		Obstacles: make([]ObstacleView, 0, len(g.obstacles)),
	}
	for _, o := range g.obstacles {
		f.Obstacles = append(f.Obstacles, ObstacleView{
			ID:      o.Entity.ID(),
			X:       o.Pos.X + o.Hitbox.Pos.X,
			Y:       o.Pos.Y + o.Hitbox.Pos.Y,
			W:       o.Hitbox.Size.X,
			H:       o.Hitbox.Size.Y,
			Seeable: o.Seeable,
		})
	}
	return f
}

// readoutRows flattens readouts into per-sensor CSV rows.
func readoutRows(tick int32, readouts []Readout) []telemetry.ReadoutRow {
	var rows []telemetry.ReadoutRow
	for _, r := range readouts {
		for i, s := range r.Senses {
			rows = append(rows, telemetry.ReadoutRow{
				Tick:     tick,
				Agent:    r.ID,
				Sensor:   i,
				Detected: s.Detected,
				Distance: s.Distance,
			})
		}
	}
	return rows
}

func sortReadouts(rs []Readout) {
	slices.SortFunc(rs, func(a, b Readout) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
