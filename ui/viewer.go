package ui

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/pupil/camera"
	"github.com/pthm-cable/pupil/game"
	"github.com/pthm-cable/pupil/renderer"
	"github.com/pthm-cable/pupil/systems"
)

const controlsLegend = "[Space] Pause  [N] Step  [</>] Speed  [A/D/W] Drive selected  [K] Take control  [F] Follow  [F5] Save  [Tab] Panel  [Arrows/RMB] Pan  [Wheel] Zoom"

// gridSpacing is the world-unit spacing of background grid lines.
const gridSpacing = 100

// Viewer is the interactive window around a Game: it reads input, steps the
// game and draws it.
type Viewer struct {
	g           *game.Game
	cam         *camera.Camera
	world       *renderer.WorldRenderer
	bounds      systems.WorldBounds
	overlays    *OverlayRegistry
	hud         *HUD
	controls    *ControlsPanel
	inspector   *Inspector
	perf        *PerfPanel
	snapshotDir string

	screenW, screenH float32

	selected ecs.Entity
	follow   bool

	// previous controller of the agent under keyboard control
	driven     ecs.Entity
	drivenPrev game.Controller
}

// NewViewer creates a viewer for g. The raylib window must already be open.
func NewViewer(g *game.Game, snapshotDir string) *Viewer {
	cfg := g.Config()
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	b := systems.BoundsFromConfig(cfg)

	cam := camera.New(w, h, float32(b.MinX), float32(b.MinY), float32(b.MaxX), float32(b.MaxY))

	return &Viewer{
		g:           g,
		cam:         cam,
		world:       renderer.NewWorldRenderer(cam),
		bounds:      b,
		overlays:    NewOverlayRegistry(),
		hud:         NewHUD(),
		controls:    NewControlsPanel(10, 100, 220),
		inspector:   NewInspector(int32(w)-250, 10, 240, float32(cfg.Control.MaxXSpeed)),
		perf:        NewPerfPanel(int32(w)-250, int32(h)-200),
		snapshotDir: snapshotDir,
		screenW:     w,
		screenH:     h,
	}
}

// Update handles input and advances the game by one frame.
func (v *Viewer) Update() {
	v.handleInput()
	v.g.Update(float64(rl.GetFrameTime()))

	if v.follow && v.hasSelection() {
		if r, err := v.g.Readout(v.selected); err == nil {
			v.cam.CenterOn(float32(r.X), float32(r.Y))
		} else {
			v.follow = false
		}
	}
}

func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		v.g.SetPaused(!v.g.Paused())
	}
	if rl.IsKeyPressed(rl.KeyN) && v.g.Paused() {
		v.g.StepOnce()
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) {
		v.g.SetStepsPerUpdate(v.g.StepsPerUpdate() - 1)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		v.g.SetStepsPerUpdate(v.g.StepsPerUpdate() + 1)
	}

	if rl.IsKeyPressed(rl.KeyTab) {
		v.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyF5) {
		v.saveSnapshot()
	}
	if rl.IsKeyPressed(rl.KeyF) {
		v.follow = !v.follow
	}
	if rl.IsKeyPressed(rl.KeyK) {
		v.toggleDrive()
	}

	for key := rl.GetKeyPressed(); key != 0; key = rl.GetKeyPressed() {
		if id, on, ok := v.overlays.HandleKeyPress(key); ok {
			slog.Debug("overlay toggled", "overlay", id, "enabled", on)
		}
	}

	v.handleCameraInput()

	mouse := rl.GetMousePosition()
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && !v.controls.Contains(mouse, v.overlays) {
		wx, wy := v.cam.ScreenToWorld(mouse.X, mouse.Y)
		if e, ok := AgentAt(v.g.Readouts(), float64(wx), float64(wy)); ok {
			v.selected = e
		} else {
			v.selected = ecs.Entity{}
			v.follow = false
		}
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == v.screenW && h == v.screenH {
		return
	}
	v.screenW = w
	v.screenH = h

	v.cam.Resize(w, h)
	v.inspector.SetPosition(int32(w)-250, 10)
	v.perf.SetPosition(int32(w)-250, int32(h)-200)
}

// handleCameraInput processes camera pan/zoom controls.
func (v *Viewer) handleCameraInput() {
	// Pan speed scales inversely with zoom for natural feel
	panSpeed := float32(8.0) / v.cam.Zoom

	if rl.IsKeyDown(rl.KeyRight) {
		v.cam.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.cam.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.cam.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.cam.Pan(0, -panSpeed)
	}

	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Pan(-d.X, -d.Y)
		v.follow = false
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		m := rl.GetMousePosition()
		v.cam.ZoomAt(m.X, m.Y, 1+wheel*0.1)
	}

	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.cam.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.cam.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Reset()
		v.follow = false
	}
}

// toggleDrive hands the selected agent to the keyboard, or gives it back.
func (v *Viewer) toggleDrive() {
	if v.driven != (ecs.Entity{}) {
		if err := v.g.SetController(v.driven, v.drivenPrev); err != nil {
			slog.Debug("release keyboard control", "error", err)
		}
		v.driven, v.drivenPrev = ecs.Entity{}, nil
		return
	}
	if !v.hasSelection() {
		return
	}
	prev := v.g.ControllerOf(v.selected)
	if err := v.g.SetController(v.selected, KeyboardController{}); err != nil {
		return
	}
	v.driven, v.drivenPrev = v.selected, prev
}

func (v *Viewer) hasSelection() bool {
	return v.selected != (ecs.Entity{})
}

func (v *Viewer) saveSnapshot() {
	dir := v.snapshotDir
	if dir == "" {
		dir = "."
	}
	path, err := v.g.SaveSnapshot(dir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", v.g.Tick())
}

// Draw renders one frame.
func (v *Viewer) Draw() {
	v.g.RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 16, G: 18, B: 22, A: 255})

	v.world.ShowHitboxes = v.overlays.IsEnabled(OverlayHitboxes)
	v.world.ShowSensors = v.overlays.IsEnabled(OverlaySensors)

	if v.overlays.IsEnabled(OverlayGrid) {
		v.world.DrawGrid(gridSpacing)
	}
	if v.overlays.IsEnabled(OverlayBounds) {
		v.world.DrawBounds(v.bounds)
	}

	readouts := v.g.Readouts()
	v.world.DrawObstacles(v.g.Obstacles())
	v.world.DrawSensors(v.g.Eyes())
	v.world.DrawAgents(readouts, v.selected)

	v.hud.Draw(v.hudData(readouts))
	v.hud.DrawControls(int32(v.screenH), controlsLegend)

	actions := v.controls.Draw(ControlsState{Paused: v.g.Paused(), Speed: v.g.StepsPerUpdate()}, v.overlays)
	if actions.TogglePause {
		v.g.SetPaused(!v.g.Paused())
	}
	if actions.Step {
		v.g.StepOnce()
	}
	if actions.Snapshot {
		v.saveSnapshot()
	}
	v.g.SetStepsPerUpdate(actions.Speed)

	if v.overlays.IsEnabled(OverlayInspector) && v.hasSelection() {
		if r, err := v.g.Readout(v.selected); err == nil {
			name := ""
			if c := v.g.ControllerOf(v.selected); c != nil {
				name = c.Name()
			}
			v.inspector.Draw(r, name)
		}
	}

	if v.overlays.IsEnabled(OverlayPerf) {
		v.perf.Draw(v.g.PerfStats(), v.g.Systems())
	}

	rl.EndDrawing()
}

func (v *Viewer) hudData(readouts []game.Readout) HUDData {
	d := HUDData{
		Title:     "pupil",
		Agents:    len(readouts),
		Obstacles: len(v.g.Obstacles()),
		Tick:      v.g.Tick(),
		Speed:     v.g.StepsPerUpdate(),
		FPS:       rl.GetFPS(),
		Paused:    v.g.Paused(),
	}
	for _, r := range readouts {
		if r.Inert {
			d.Inert++
		}
		d.Sensors += len(r.Senses)
		for _, s := range r.Senses {
			if s.Detected {
				d.Detected++
			}
		}
	}
	return d
}
