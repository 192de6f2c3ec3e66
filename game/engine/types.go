package engine

import "errors"

// Kind identifies an entity variant
type Kind string

// Sprite is the display tag of an entity variant
type Sprite string

const (
	KindGrass     Kind = "grass"
	KindRock      Kind = "rock"
	KindTree      Kind = "tree"
	KindHerbivore Kind = "herbivore"
	KindPredator  Kind = "predator"

	// KindEmpty is only meaningful in layout legends
	KindEmpty Kind = "empty"

	// Validation constants
	MaxWorldSize   = 256
	NoSearchBudget = 0
)

var (
	ErrPathNotFound         = errors.New("path not found")
	ErrOutOfBounds          = errors.New("coordinate out of bounds")
	ErrInvalidSize          = errors.New("invalid world size")
	ErrNilEntity            = errors.New("entity cannot be nil")
	ErrUnknownKind          = errors.New("unknown entity kind")
	ErrSearchBudgetExceeded = errors.New("search budget exceeded")
	ErrInvalidConfig        = errors.New("invalid world config")
)

// EntityView is the serialisable form of a placed entity
type EntityView struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Kind   Kind   `json:"kind"`
	Sprite Sprite `json:"sprite"`
}

// WorldState is a point-in-time snapshot of a world
type WorldState struct {
	Height   int          `json:"height"`
	Weight   int          `json:"weight"`
	Area     int          `json:"area"`
	Entities []EntityView `json:"entities"`
	Rows     []string     `json:"rows"`
}

// ViewOf converts an entity into its serialisable form
func ViewOf(e Entity) EntityView {
	c := e.Coordinate()
	return EntityView{
		X:      c.X,
		Y:      c.Y,
		Kind:   e.Kind(),
		Sprite: e.Sprite(),
	}
}
