package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Coordinate is an immutable grid location
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// neighborOffsets is the canonical expansion order: north, south, east, west
var neighborOffsets = [4]struct{ dx, dy int }{
	{0, 1},
	{0, -1},
	{1, 0},
	{-1, 0},
}

// Neighbors returns the four 4-connected neighbors in canonical order.
// Bounds are not checked here.
func (c Coordinate) Neighbors() []Coordinate {
	out := make([]Coordinate, 0, len(neighborOffsets))
	for _, off := range neighborOffsets {
		out = append(out, Coordinate{X: c.X + off.dx, Y: c.Y + off.dy})
	}
	return out
}

// Equals reports structural equality
func (c Coordinate) Equals(other Coordinate) bool {
	return c == other
}

// IsAdjacent reports whether other shares an edge with c
func (c Coordinate) IsAdjacent(other Coordinate) bool {
	return ManhattanDistance(c, other) == 1
}

// Shift returns the coordinate offset by dx, dy
func (c Coordinate) Shift(dx, dy int) Coordinate {
	return Coordinate{X: c.X + dx, Y: c.Y + dy}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// ParseCoordinate parses "x,y" (surrounding parentheses and spaces allowed)
func ParseCoordinate(s string) (Coordinate, error) {
	trimmed := strings.Trim(strings.TrimSpace(s), "()")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("coordinate %q: expected x,y", s)
	}

	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: bad x: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Coordinate{}, fmt.Errorf("coordinate %q: bad y: %w", s, err)
	}

	return Coordinate{X: x, Y: y}, nil
}

// ManhattanDistance calculates the Manhattan distance between two coordinates
func ManhattanDistance(from, to Coordinate) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
