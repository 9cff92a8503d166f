package systems

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// ObstacleGrid buckets obstacle snapshot indices into uniform cells so a
// sensor only tests obstacles near its wedge. A rectangle is inserted into
// every cell it covers; shapes outside the grid land in the edge cells.
type ObstacleGrid struct {
	cellSize float64
	origin   r2.Vec
	cols     int
	rows     int
	cells    [][]int // indices into the snapshot slice
}

// maxGridCells bounds the grid's memory and per-tick clear cost.
const maxGridCells = 1 << 16

// NewObstacleGrid creates a grid covering box. cellSize grows as needed to
// keep the grid within maxGridCells.
func NewObstacleGrid(box r2.Box, cellSize float64) *ObstacleGrid {
	w := box.Max.X - box.Min.X
	h := box.Max.Y - box.Min.Y
	if !finite(w) || !finite(h) {
		// No useful bucketing; one cell holds everything.
		w, h, cellSize = 0, 0, 1
	}
	for (math.Floor(w/cellSize)+1)*(math.Floor(h/cellSize)+1) > maxGridCells {
		cellSize *= 2
	}
	cols := int(w/cellSize) + 1
	rows := int(h/cellSize) + 1

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 4)
	}

	return &ObstacleGrid{
		cellSize: cellSize,
		origin:   box.Min,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Rebuild clears the grid and inserts every obstacle in the snapshot.
func (g *ObstacleGrid) Rebuild(obstacles []ObstacleShape) {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	for i, o := range obstacles {
		c0, r0, c1, r1 := g.span(o.Box())
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				idx := r*g.cols + c
				g.cells[idx] = append(g.cells[idx], i)
			}
		}
	}
}

// QueryInto appends the snapshot indices of obstacles whose cells intersect
// box to dst, in ascending order without duplicates. Reuse dst across calls to
// avoid allocations. Safe for concurrent use between Rebuilds.
func (g *ObstacleGrid) QueryInto(dst []int, box r2.Box) []int {
	start := len(dst)
	c0, r0, c1, r1 := g.span(box)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			dst = append(dst, g.cells[r*g.cols+c]...)
		}
	}
	found := dst[start:]
	slices.Sort(found)
	return append(dst[:start], slices.Compact(found)...)
}

// span returns the clamped inclusive cell range covered by box.
func (g *ObstacleGrid) span(box r2.Box) (c0, r0, c1, r1 int) {
	c0 = g.clampCol(g.cellOf(box.Min.X - g.origin.X))
	c1 = g.clampCol(g.cellOf(box.Max.X - g.origin.X))
	r0 = g.clampRow(g.cellOf(box.Min.Y - g.origin.Y))
	r1 = g.clampRow(g.cellOf(box.Max.Y - g.origin.Y))
	return c0, r0, c1, r1
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (g *ObstacleGrid) cellOf(v float64) int {
	return int(math.Floor(v / g.cellSize))
}

func (g *ObstacleGrid) clampCol(c int) int {
	return max(0, min(c, g.cols-1))
}

func (g *ObstacleGrid) clampRow(r int) int {
	return max(0, min(r, g.rows-1))
}
