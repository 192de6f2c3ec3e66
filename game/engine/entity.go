package engine

import (
	"fmt"
	"sort"
)

// Entity is anything that can be placed on a world
type Entity interface {
	Coordinate() Coordinate
	Sprite() Sprite
	Kind() Kind
}

// placement carries the coordinate shared by all variants
type placement struct {
	at Coordinate
}

func (p placement) Coordinate() Coordinate { return p.at }

// Grass is a static plant
type Grass struct{ placement }

// Rock is a static obstacle
type Rock struct{ placement }

// Tree is a static obstacle
type Tree struct{ placement }

// Herbivore is a grass-eating creature
type Herbivore struct{ placement }

// Predator is a herbivore-eating creature
type Predator struct{ placement }

func NewGrass(c Coordinate) *Grass         { return &Grass{placement{c}} }
func NewRock(c Coordinate) *Rock           { return &Rock{placement{c}} }
func NewTree(c Coordinate) *Tree           { return &Tree{placement{c}} }
func NewHerbivore(c Coordinate) *Herbivore { return &Herbivore{placement{c}} }
func NewPredator(c Coordinate) *Predator   { return &Predator{placement{c}} }

func (*Grass) Kind() Kind     { return KindGrass }
func (*Rock) Kind() Kind      { return KindRock }
func (*Tree) Kind() Kind      { return KindTree }
func (*Herbivore) Kind() Kind { return KindHerbivore }
func (*Predator) Kind() Kind  { return KindPredator }

const (
	SpriteGrass     Sprite = "🌱"
	SpriteRock      Sprite = "🪨"
	SpriteTree      Sprite = "🌳"
	SpriteHerbivore Sprite = "🐇"
	SpritePredator  Sprite = "🐺"
)

func (*Grass) Sprite() Sprite     { return SpriteGrass }
func (*Rock) Sprite() Sprite      { return SpriteRock }
func (*Tree) Sprite() Sprite      { return SpriteTree }
func (*Herbivore) Sprite() Sprite { return SpriteHerbivore }
func (*Predator) Sprite() Sprite  { return SpritePredator }

type kindInfo struct {
	sprite Sprite
	glyph  rune
	build  func(Coordinate) Entity
}

var kinds = map[Kind]kindInfo{
	KindGrass:     {sprite: SpriteGrass, glyph: 'G', build: func(c Coordinate) Entity { return NewGrass(c) }},
	KindRock:      {sprite: SpriteRock, glyph: 'R', build: func(c Coordinate) Entity { return NewRock(c) }},
	KindTree:      {sprite: SpriteTree, glyph: 'T', build: func(c Coordinate) Entity { return NewTree(c) }},
	KindHerbivore: {sprite: SpriteHerbivore, glyph: 'H', build: func(c Coordinate) Entity { return NewHerbivore(c) }},
	KindPredator:  {sprite: SpritePredator, glyph: 'P', build: func(c Coordinate) Entity { return NewPredator(c) }},
}

// EmptyGlyph marks an unoccupied cell in rendered rows and layouts
const EmptyGlyph = '.'

// NewEntity builds an entity of the given kind at c
func NewEntity(kind Kind, c Coordinate) (Entity, error) {
	info, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return info.build(c), nil
}

// Kinds returns every placeable kind in sorted order
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GlyphOf returns the layout rune for a kind
func GlyphOf(kind Kind) rune {
	if info, ok := kinds[kind]; ok {
		return info.glyph
	}
	return '?'
}

// SpriteOf returns the sprite for a kind, or "" if unknown
func SpriteOf(kind Kind) Sprite {
	return kinds[kind].sprite
}

// DefaultLegend maps layout runes to kinds
func DefaultLegend() map[string]string {
	legend := map[string]string{
		string(EmptyGlyph): string(KindEmpty),
	}
	for k, info := range kinds {
		legend[string(info.glyph)] = string(k)
	}
	return legend
}
