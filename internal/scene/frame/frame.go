package frame

import (
	"errors"
	"fmt"

	"scenefacts.ai/internal/scene/grid"
)

var ErrInvalidOrientation = errors.New("invalid orientation")

// Orientation is the agent's facing in 90° steps.
type Orientation int

const (
	North Orientation = iota
	East
	South
	West
)

func (o Orientation) Valid() bool { return o >= North && o <= West }

func (o Orientation) String() string {
	switch o {
	case North:
		return "North"
	case East:
		return "East"
	case South:
		return "South"
	case West:
		return "West"
	}
	return fmt.Sprintf("Orientation(%d)", int(o))
}

// ToGlobal maps a cell of an agent's local window to map coordinates, given
// where the agent sits in the window, where it stands on the map, and which
// way the window is rotated.
func ToGlobal(local, localSelf, globalSelf grid.Point, o Orientation) (grid.Point, error) {
	d := local.Sub(localSelf)
	var r grid.Point
	switch o {
	case North:
		r = grid.Point{Row: d.Row, Col: d.Col}
	case East:
		r = grid.Point{Row: d.Col, Col: -d.Row}
	case South:
		r = grid.Point{Row: -d.Row, Col: -d.Col}
	case West:
		r = grid.Point{Row: -d.Col, Col: d.Row}
	default:
		return grid.Point{}, fmt.Errorf("%w: %d", ErrInvalidOrientation, int(o))
	}
	return globalSelf.Add(r), nil
}

// Frame binds one agent's pose so a whole window can be transformed without
// re-validating the orientation per cell.
type Frame struct {
	LocalSelf   grid.Point
	GlobalSelf  grid.Point
	Orientation Orientation
}

func New(localSelf, globalSelf grid.Point, o Orientation) (Frame, error) {
	if !o.Valid() {
		return Frame{}, fmt.Errorf("%w: %d", ErrInvalidOrientation, int(o))
	}
	return Frame{LocalSelf: localSelf, GlobalSelf: globalSelf, Orientation: o}, nil
}

func (f Frame) ToGlobal(local grid.Point) grid.Point {
	p, _ := ToGlobal(local, f.LocalSelf, f.GlobalSelf, f.Orientation)
	return p
}
