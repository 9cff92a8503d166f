package game

import (
	"context"
	"log/slog"
	"math"
)

// logWorldState logs every agent at debug level and a one-line summary at info.
func (g *Game) logWorldState() {
	var agents, inert, detected, slots int

	debug := slog.Default().Enabled(context.Background(), slog.LevelDebug)

	query := g.agentFilter.Query()
	for query.Next() {
		pos, vel, _, mv, facing, agent, senses := query.Get()
		agents++
		if mv.Inert {
			inert++
		}
		slots += len(senses.Readings)
		for _, r := range senses.Readings {
			if r.Detected {
				detected++
			}
		}

		if debug {
			readings := make([]string, len(senses.Readings))
			for i, r := range senses.Readings {
				readings[i] = r.String()
			}
			slog.Debug("agent",
				"id", agent.ID,
				"x", pos.X,
				"y", pos.Y,
				"vx", vel.X,
				"vy", vel.Y,
				"speed", math.Hypot(vel.X, vel.Y),
				"facing", facing.Dir.String(),
				"inert", mv.Inert,
				"senses", readings,
			)
		}
	}

	slog.Info("world",
		"tick", g.tick,
		"agents", agents,
		"inert", inert,
		"obstacles", len(g.obstacles),
		"detected", detected,
		"sensors", slots,
		"controllers", len(g.controllers),
	)
}
