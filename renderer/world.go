// Package renderer draws the simulation world with raylib.
package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/pupil/camera"
	"github.com/pthm-cable/pupil/components"
	"github.com/pthm-cable/pupil/game"
	"github.com/pthm-cable/pupil/geom"
	"github.com/pthm-cable/pupil/systems"
)

var (
	obstacleColor = rl.Color{R: 90, G: 100, B: 115, A: 255}
	hiddenColor   = rl.Color{R: 60, G: 60, B: 70, A: 160}
	agentColor    = rl.Color{R: 80, G: 170, B: 220, A: 255}
	inertColor    = rl.Color{R: 110, G: 110, B: 110, A: 200}
	selectedColor = rl.Yellow
	gridColor     = rl.Color{R: 255, G: 255, B: 255, A: 18}
	boundsColor   = rl.Color{R: 200, G: 80, B: 80, A: 120}
	wedgeOutline  = rl.Color{R: 255, G: 255, B: 255, A: 50}
)

// WorldRenderer draws obstacles, agents and sensor wedges through a camera.
type WorldRenderer struct {
	cam *camera.Camera

	ShowHitboxes bool
	ShowSensors  bool
}

// NewWorldRenderer creates a renderer drawing through cam.
func NewWorldRenderer(cam *camera.Camera) *WorldRenderer {
	return &WorldRenderer{cam: cam, ShowSensors: true}
}

func (w *WorldRenderer) toScreen(v r2.Vec) rl.Vector2 {
	x, y := w.cam.WorldToScreen(float32(v.X), float32(v.Y))
	return rl.Vector2{X: x, Y: y}
}

// rect converts a world rectangle centered at c to a screen rectangle.
func (w *WorldRenderer) rect(c r2.Vec, size r2.Vec) rl.Rectangle {
	x, y := w.cam.WorldToScreen(float32(c.X-size.X/2), float32(c.Y+size.Y/2))
	return rl.Rectangle{X: x, Y: y, Width: w.cam.Scale(float32(size.X)), Height: w.cam.Scale(float32(size.Y))}
}

// DrawGrid draws world-aligned grid lines every spacing units.
func (w *WorldRenderer) DrawGrid(spacing float32) {
	if w.cam.Scale(spacing) < 8 {
		return
	}
	minX, minY, maxX, maxY := w.cam.VisibleWorldBounds()

	for x := float32(math.Floor(float64(minX/spacing))) * spacing; x <= maxX; x += spacing {
		sx, _ := w.cam.WorldToScreen(x, 0)
		rl.DrawLineV(rl.Vector2{X: sx, Y: 0}, rl.Vector2{X: sx, Y: w.cam.ViewportH}, gridColor)
	}
	for y := float32(math.Floor(float64(minY/spacing))) * spacing; y <= maxY; y += spacing {
		_, sy := w.cam.WorldToScreen(0, y)
		rl.DrawLineV(rl.Vector2{X: 0, Y: sy}, rl.Vector2{X: w.cam.ViewportW, Y: sy}, gridColor)
	}
}

// DrawBounds outlines the region bodies may occupy before freezing.
func (w *WorldRenderer) DrawBounds(b systems.WorldBounds) {
	c := r2.Vec{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
	size := r2.Vec{X: b.MaxX - b.MinX, Y: b.MaxY - b.MinY}
	rl.DrawRectangleLinesEx(w.rect(c, size), 2, boundsColor)
}

// DrawObstacles draws the tick's obstacle snapshot. Obstacles sensors cannot
// see are drawn faded.
func (w *WorldRenderer) DrawObstacles(obstacles []systems.ObstacleShape) {
	for _, o := range obstacles {
		center := o.Hitbox.Center(o.Pos)
		if !w.cam.IsVisible(float32(center.X), float32(center.Y), float32(o.Hitbox.Size.X/2), float32(o.Hitbox.Size.Y/2)) {
			continue
		}
		color := obstacleColor
		if !o.Seeable {
			color = hiddenColor
		}
		r := w.rect(center, o.Hitbox.Size)
		rl.DrawRectangleRec(r, color)

		if w.ShowHitboxes {
			t1, t2 := o.Triangles()
			w.drawTriangleLines(t1, rl.DarkGray)
			w.drawTriangleLines(t2, rl.DarkGray)
		}
	}
}

// DrawAgents draws each agent body with a marker on the side it faces.
func (w *WorldRenderer) DrawAgents(readouts []game.Readout, selected ecs.Entity) {
	for _, r := range readouts {
		color := agentColor
		if r.Inert {
			color = inertColor
		}
		pos := r2.Vec{X: r.X, Y: r.Y}
		size := r2.Vec{X: r.W, Y: r.H}
		rect := w.rect(pos, size)
		rl.DrawRectangleRec(rect, color)

		if r.Entity == selected {
			rl.DrawRectangleLinesEx(rect, 2, selectedColor)
		} else if w.ShowHitboxes {
			rl.DrawRectangleLinesEx(rect, 1, rl.White)
		}

		dir := 1.0
		if r.Facing == components.DirLeft {
			dir = -1
		}
		w.drawFacingMarker(pos, dir, r.H/4)
	}
}

// drawFacingMarker draws a small triangle pointing along dir.
func (w *WorldRenderer) drawFacingMarker(pos r2.Vec, dir, size float64) {
	tip := w.toScreen(r2.Vec{X: pos.X + dir*size*1.5, Y: pos.Y})
	top := w.toScreen(r2.Vec{X: pos.X, Y: pos.Y + size/2})
	bot := w.toScreen(r2.Vec{X: pos.X, Y: pos.Y - size/2})
	a, b, c := counterClockwise(tip, top, bot)
	rl.DrawTriangle(a, b, c, rl.White)
}

// DrawSensors draws each sensor wedge outline and fills it up to the last
// reading.
func (w *WorldRenderer) DrawSensors(eyes []game.EyeView) {
	if !w.ShowSensors {
		return
	}
	for _, eye := range eyes {
		t1, t2 := eye.SeeBox.Triangles(eye.Origin)
		w.drawTriangleLines(t1, wedgeOutline)
		w.drawTriangleLines(t2, wedgeOutline)

		if !eye.Reading.Detected {
			continue
		}
		color := ReadingColor(eye.Reading)
		f1, f2 := eye.SeeBox.ToScale(eye.Reading.Distance).Triangles(eye.Origin)
		w.drawTriangle(f1, color)
		w.drawTriangle(f2, color)
	}
}

func (w *WorldRenderer) drawTriangle(t geom.Triangle, color rl.Color) {
	a, b, c := counterClockwise(w.toScreen(t.A), w.toScreen(t.B), w.toScreen(t.C))
	rl.DrawTriangle(a, b, c, color)
}

func (w *WorldRenderer) drawTriangleLines(t geom.Triangle, color rl.Color) {
	rl.DrawTriangleLines(w.toScreen(t.A), w.toScreen(t.B), w.toScreen(t.C), color)
}

// counterClockwise orders screen-space vertices the way DrawTriangle needs
// them. The y-flip from world to screen reverses winding.
func counterClockwise(a, b, c rl.Vector2) (rl.Vector2, rl.Vector2, rl.Vector2) {
	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	if cross > 0 {
		return a, c, b
	}
	return a, b, c
}

// ReadingColor shades a detection from red when close to yellow at full range.
func ReadingColor(r components.Reading) rl.Color {
	if !r.Detected {
		return rl.Color{R: 80, G: 80, B: 80, A: 60}
	}
	d := math.Max(0, math.Min(1, r.Distance))
	return rl.Color{R: 230, G: uint8(60 + 170*d), B: 40, A: 110}
}
