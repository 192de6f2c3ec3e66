package engine

import (
	"fmt"
	"sort"
	"sync"
)

// World is a fixed-size rectangular grid with a sparse registry of entities.
// X ranges over [0, height) and Y over [0, weight).
type World struct {
	height       int
	weight       int
	searchBudget int
	registry     map[Coordinate]Entity
	mu           sync.RWMutex
}

// Option configures a World at construction time
type Option func(*World)

// WithSearchBudget caps how many cells a single SearchPath may expand.
// Zero or a negative value means unbounded.
func WithSearchBudget(n int) Option {
	return func(w *World) {
		if n < 0 {
			n = NoSearchBudget
		}
		w.searchBudget = n
	}
}

// NewWorld creates an empty world with the given dimensions
func NewWorld(height, weight int, opts ...Option) (*World, error) {
	if height < 0 || weight < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, height, weight)
	}

	w := &World{
		height:   height,
		weight:   weight,
		registry: make(map[Coordinate]Entity),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Size returns (height, weight)
func (w *World) Size() (int, int) {
	return w.height, w.weight
}

// Area returns height × weight
func (w *World) Area() int {
	return w.height * w.weight
}

// SearchBudget returns the configured search budget, 0 when unbounded
func (w *World) SearchBudget() int {
	return w.searchBudget
}

// InBounds reports whether p lies inside the grid
func (w *World) InBounds(p Coordinate) bool {
	return p.X >= 0 && p.X < w.height && p.Y >= 0 && p.Y < w.weight
}

// AddObject places e at its own coordinate and returns that coordinate.
// An existing occupant is replaced.
func (w *World) AddObject(e Entity) (Coordinate, error) {
	if e == nil {
		return Coordinate{}, ErrNilEntity
	}

	at := e.Coordinate()
	if !w.InBounds(at) {
		return Coordinate{}, w.outOfBounds(at)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.registry[at] = e
	return at, nil
}

// GetObject returns the entity at p, or nil if the cell is empty
func (w *World) GetObject(p Coordinate) (Entity, error) {
	if !w.InBounds(p) {
		return nil, w.outOfBounds(p)
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.registry[p], nil
}

// IsOccupied reports whether an entity is registered at p
func (w *World) IsOccupied(p Coordinate) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, ok := w.registry[p]
	return ok
}

// RemoveObject deregisters the entity at p and returns it, or nil if the
// cell was already empty
func (w *World) RemoveObject(p Coordinate) (Entity, error) {
	if !w.InBounds(p) {
		return nil, w.outOfBounds(p)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.registry[p]
	if !ok {
		return nil, nil
	}
	delete(w.registry, p)
	return e, nil
}

// Count returns the number of placed entities
func (w *World) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.registry)
}

// Objects returns every placed entity ordered by X, then Y
func (w *World) Objects() []Entity {
	w.mu.RLock()
	out := make([]Entity, 0, len(w.registry))
	for _, e := range w.registry {
		out = append(out, e)
	}
	w.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Coordinate(), out[j].Coordinate()
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	return out
}

// CountKind counts the placed entities of the given kind
func (w *World) CountKind(kind Kind) int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	count := 0
	for _, e := range w.registry {
		if e.Kind() == kind {
			count++
		}
	}
	return count
}

// Render returns one row per X, one rune per Y, using layout glyphs
func (w *World) Render() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	rows := make([]string, w.height)
	line := make([]rune, w.weight)
	for x := 0; x < w.height; x++ {
		for y := 0; y < w.weight; y++ {
			line[y] = EmptyGlyph
			if e, ok := w.registry[Coordinate{X: x, Y: y}]; ok {
				line[y] = GlyphOf(e.Kind())
			}
		}
		rows[x] = string(line)
	}
	return rows
}

// Snapshot returns a serialisable copy of the world
func (w *World) Snapshot() *WorldState {
	objects := w.Objects()
	views := make([]EntityView, 0, len(objects))
	for _, e := range objects {
		views = append(views, ViewOf(e))
	}

	return &WorldState{
		Height:   w.height,
		Weight:   w.weight,
		Area:     w.Area(),
		Entities: views,
		Rows:     w.Render(),
	}
}

func (w *World) outOfBounds(p Coordinate) error {
	return fmt.Errorf("%w: %s not in %dx%d", ErrOutOfBounds, p, w.height, w.weight)
}
