package components

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
)

// Position represents an entity's world position. Y points up.
type Position struct {
	X, Y float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Velocity represents an entity's velocity in world units per second.
type Velocity struct {
	X, Y float64
}

// Vec returns the velocity as a vector.
func (v Velocity) Vec() r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}

// Dir is a facing direction.
type Dir uint8

const (
	DirRight Dir = iota
	DirLeft
)

func (d Dir) String() string {
	if d == DirLeft {
		return "left"
	}
	return "right"
}

func (d Dir) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dir) UnmarshalText(text []byte) error {
	switch string(text) {
	case "right":
		*d = DirRight
	case "left":
		*d = DirLeft
	default:
		return fmt.Errorf("unknown direction %q", text)
	}
	return nil
}

// Facing tracks which way an agent is looking.
type Facing struct {
	Dir Dir
}
