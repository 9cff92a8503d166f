// Package camera provides a 2D camera system for viewport control.
package camera

// Camera controls the viewport into the simulation world.
// The world is y-up and bounded; the screen is y-down.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom level (1.0 = 1:1, 2.0 = 2x magnification)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// World bounds; the camera center stays inside them
	MinX, MinY, MaxX, MaxY float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera centered on the world bounds with 1:1 zoom.
func New(viewportW, viewportH, minX, minY, maxX, maxY float32) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		MinX:      minX,
		MinY:      minY,
		MaxX:      maxX,
		MaxY:      maxY,
		MaxZoom:   4.0,
	}
	c.MinZoom = c.fitZoom() / 2
	c.Reset()
	return c
}

// fitZoom is the zoom at which the whole world just fits the viewport.
func (c *Camera) fitZoom() float32 {
	zx := c.ViewportW / (c.MaxX - c.MinX)
	zy := c.ViewportH / (c.MaxY - c.MinY)
	return min(zx, zy)
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	sx = c.ViewportW/2 + (wx-c.X)*c.Zoom
	sy = c.ViewportH/2 - (wy-c.Y)*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	wx = c.X + (sx-c.ViewportW/2)/c.Zoom
	wy = c.Y - (sy-c.ViewportH/2)/c.Zoom
	return wx, wy
}

// Scale converts a world length to pixels.
func (c *Camera) Scale(l float32) float32 {
	return l * c.Zoom
}

// IsVisible returns true if a rectangle centered at (wx, wy) with the given
// half extents could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, halfW, halfH float32) bool {
	vw := c.ViewportW/(2*c.Zoom) + halfW
	vh := c.ViewportH/(2*c.Zoom) + halfH
	return absf(wx-c.X) <= vw && absf(wy-c.Y) <= vh
}

// Resize updates viewport dimensions and recalculates zoom constraints.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.MinZoom = c.fitZoom() / 2
	if c.Zoom < c.MinZoom {
		c.Zoom = c.MinZoom
	}
}

// Pan moves the camera by the given delta in screen pixels. Dragging down
// moves the view down the world.
func (c *Camera) Pan(dx, dy float32) {
	c.X = clamp(c.X+dx/c.Zoom, c.MinX, c.MaxX)
	c.Y = clamp(c.Y-dy/c.Zoom, c.MinY, c.MaxY)
}

// CenterOn moves the camera center to a world point.
func (c *Camera) CenterOn(wx, wy float32) {
	c.X = clamp(wx, c.MinX, c.MaxX)
	c.Y = clamp(wy, c.MinY, c.MaxY)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// ZoomAt zooms by factor keeping the world point under (sx, sy) fixed.
func (c *Camera) ZoomAt(sx, sy, factor float32) {
	wx, wy := c.ScreenToWorld(sx, sy)
	c.ZoomBy(factor)
	nx, ny := c.ScreenToWorld(sx, sy)
	c.CenterOn(c.X+wx-nx, c.Y+wy-ny)
}

// Reset centers the camera on the world at 1:1 zoom, or less if the world
// would not fit.
func (c *Camera) Reset() {
	c.X = (c.MinX + c.MaxX) / 2
	c.Y = (c.MinY + c.MaxY) / 2
	c.Zoom = clamp(1.0, c.MinZoom, min(1.0, c.fitZoom()))
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)

	minX = c.X - halfW
	maxX = c.X + halfW
	minY = c.Y - halfH
	maxY = c.Y + halfH
	return
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
