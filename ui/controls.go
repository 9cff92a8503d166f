package ui

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// ControlsState is what the controls panel shows and edits.
type ControlsState struct {
	Paused bool
	Speed  int // steps per update, 1..10
}

// ControlsActions reports what the user clicked this frame.
type ControlsActions struct {
	TogglePause bool
	Step        bool
	Snapshot    bool
	Speed       int // new steps per update, equal to the input when unchanged
}

// ControlsPanel renders the left-side controls panel: simulation buttons,
// a speed slider and the overlay toggles.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether a screen point is over the panel.
func (c *ControlsPanel) Contains(p rl.Vector2, overlays *OverlayRegistry) bool {
	if !c.visible {
		return false
	}
	r := rl.Rectangle{X: float32(c.x), Y: float32(c.y), Width: float32(c.width), Height: float32(c.height(overlays))}
	return rl.CheckCollisionPointRec(p, r)
}

func (c *ControlsPanel) height(overlays *OverlayRegistry) int32 {
	t := c.renderer.Theme
	items := len(overlays.All()) + len(overlays.Categories())
	return t.Padding*3 + t.LineHeight + 30 + 34 + int32(items)*t.LineHeight + int32(len(overlays.Categories()))*4
}

// Draw renders the controls panel and returns the user's actions.
func (c *ControlsPanel) Draw(state ControlsState, overlays *OverlayRegistry) ControlsActions {
	actions := ControlsActions{Speed: state.Speed}
	if !c.visible {
		return actions
	}

	r := c.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	r.DrawPanel(c.x, c.y, c.width, c.height(overlays))

	x := float32(c.x + padding)
	y := c.y + padding

	rl.DrawText("Simulation", c.x+padding, y, 16, rl.White)
	y += lineHeight + 4

	bw := float32(c.width-padding*2-10) / 3
	pauseLabel := "Pause"
	if state.Paused {
		pauseLabel = "Resume"
	}
	if gui.Button(rl.Rectangle{X: x, Y: float32(y), Width: bw, Height: 24}, pauseLabel) {
		actions.TogglePause = true
	}
	if gui.Button(rl.Rectangle{X: x + bw + 5, Y: float32(y), Width: bw, Height: 24}, "Step") {
		actions.Step = true
	}
	if gui.Button(rl.Rectangle{X: x + 2*(bw+5), Y: float32(y), Width: bw, Height: 24}, "Save") {
		actions.Snapshot = true
	}
	y += 30

	speed := gui.SliderBar(
		rl.Rectangle{X: x + 40, Y: float32(y), Width: float32(c.width-padding*2) - 80, Height: 18},
		"Speed", fmt.Sprintf("%dx", state.Speed),
		float32(state.Speed), 1, 10,
	)
	actions.Speed = int(math.Round(float64(speed)))
	y += 34

	for _, category := range overlays.Categories() {
		rl.DrawText(categoryLabel(category), c.x+padding, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += lineHeight

		for _, desc := range overlays.ByCategory(category) {
			c.drawToggle(c.x+padding, y, desc, overlays.IsEnabled(desc.ID), c.width-padding*2)
			y += lineHeight
		}

		y += 4
	}

	return actions
}

// drawToggle draws a single overlay toggle line.
func (c *ControlsPanel) drawToggle(x, y int32, desc OverlayDescriptor, enabled bool, width int32) {
	r := c.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)

	nameColor := r.Theme.LabelColor
	if enabled {
		nameColor = rl.White
	}
	rl.DrawText(desc.Name, x+14, y, r.Theme.FontSize, nameColor)

	if desc.KeyLabel != "" {
		keyText := fmt.Sprintf("[%s]", desc.KeyLabel)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, r.Theme.MutedColor)
	}
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	switch cat {
	case "visual":
		return "Visual"
	case "perception":
		return "Perception"
	case "debug":
		return "Debug"
	default:
		return cat
	}
}
