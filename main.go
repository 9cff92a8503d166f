package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pupil/config"
	"github.com/pthm-cable/pupil/game"
	"github.com/pthm-cable/pupil/stream"
	"github.com/pthm-cable/pupil/telemetry"
	"github.com/pthm-cable/pupil/ui"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	restore := flag.String("restore", "", "Snapshot file to resume from")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	serve := flag.String("serve", "", "Stream readouts over websocket on this address (overrides stream.addr)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster headless runs)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := game.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
		Headless:       *headless,
		StepsPerUpdate: *stepsPerUpdate,
		Controllers: map[string]game.ControllerFactory{
			"keyboard": ui.KeyboardFactory,
		},
	}

	addr := cfg.Stream.Addr
	if *serve != "" {
		addr = *serve
	}
	if addr != "" {
		srv := stream.NewServer(addr)
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("stream server stopped", "error", err)
			}
		}()
		opts.Publisher = srv
	}

	if *headless {
		g := mustGame(opts, *restore)
		defer g.Unload()

		slog.Info("starting headless simulation",
			"seed", rngSeed,
			"stats_window", *statsWindow,
			"max_ticks", *maxTicks,
			"steps_per_update", *stepsPerUpdate,
			"stream", addr,
		)

		for ctx.Err() == nil {
			g.UpdateHeadless()

			if *maxTicks > 0 && int(g.Tick()) >= *maxTicks {
				slog.Info("max ticks reached", "tick", g.Tick())
				return
			}
		}
		slog.Info("interrupted", "tick", g.Tick())
		return
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "pupil")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g := mustGame(opts, *restore)
	defer g.Unload()

	viewer := ui.NewViewer(g, *snapshotDir)

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		viewer.Update()
		viewer.Draw()

		if *maxTicks > 0 && int(g.Tick()) >= *maxTicks {
			break
		}
	}
}

// mustGame builds the game and optionally resumes it from a snapshot file.
func mustGame(opts game.Options, restorePath string) *game.Game {
	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	if restorePath == "" {
		return g
	}

	snap, err := telemetry.LoadSnapshot(restorePath)
	if err == nil {
		err = g.Restore(snap)
	}
	if err != nil {
		slog.Error("failed to restore snapshot", "path", restorePath, "error", err)
		g.Unload()
		os.Exit(1)
	}
	slog.Info("restored snapshot", "path", restorePath, "tick", g.Tick())
	return g
}
