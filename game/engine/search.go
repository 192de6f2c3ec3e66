package engine

import "fmt"

// SearchPath finds a shortest route from start to a cell adjacent to target.
// The returned path begins with start and never contains target. Occupied
// cells are impassable; the target's own occupant does not matter because
// the search never enters it. If start already touches target (or is
// target) the path is just [start].
func (w *World) SearchPath(start, target Coordinate) ([]Coordinate, error) {
	if !w.InBounds(start) {
		return nil, w.outOfBounds(start)
	}
	if !w.InBounds(target) {
		return nil, w.outOfBounds(target)
	}
	if start == target || start.IsAdjacent(target) {
		return []Coordinate{start}, nil
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	prev := map[Coordinate]Coordinate{start: start}
	queue := []Coordinate{start}
	expanded := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.IsAdjacent(target) {
			return rebuildPath(prev, start, current), nil
		}

		expanded++
		if w.searchBudget > 0 && expanded > w.searchBudget {
			return nil, fmt.Errorf("%w: expanded %d cells searching %s -> %s",
				ErrSearchBudgetExceeded, w.searchBudget, start, target)
		}

		for _, next := range current.Neighbors() {
			if _, seen := prev[next]; seen {
				continue
			}
			if !w.passable(next) || next == target {
				continue
			}
			prev[next] = current
			queue = append(queue, next)
		}
	}

	return nil, fmt.Errorf("%w: %s -> %s", ErrPathNotFound, start, target)
}

// passable must be called with the read lock held
func (w *World) passable(p Coordinate) bool {
	if !w.InBounds(p) {
		return false
	}
	_, occupied := w.registry[p]
	return !occupied
}

// rebuildPath walks predecessors from end back to start
func rebuildPath(prev map[Coordinate]Coordinate, start, end Coordinate) []Coordinate {
	var reversed []Coordinate
	for at := end; ; at = prev[at] {
		reversed = append(reversed, at)
		if at == start {
			break
		}
	}

	path := make([]Coordinate, len(reversed))
	for i, c := range reversed {
		path[len(reversed)-1-i] = c
	}
	return path
}
