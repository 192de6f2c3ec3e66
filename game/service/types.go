package service

import (
	"time"

	"github.com/wricardo/gridworld/game/engine"
)

// SessionInfo provides information about a world session
type SessionInfo struct {
	ID             string             `json:"id"`
	LayoutName     string             `json:"layout_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	World          *engine.WorldState `json:"world"`
}

// PlacementResult is returned by entity placement and removal
type PlacementResult struct {
	At      engine.Coordinate  `json:"at"`
	Entity  *engine.EntityView `json:"entity,omitempty"` // placed or removed entity, nil for an empty cell
	Message string             `json:"message"`
	World   *engine.WorldState `json:"world"`
}

// CellInfo describes a single cell lookup
type CellInfo struct {
	At       engine.Coordinate  `json:"at"`
	Occupied bool               `json:"occupied"`
	Entity   *engine.EntityView `json:"entity,omitempty"`
}

// PathResult contains the outcome of a path search
type PathResult struct {
	Start  engine.Coordinate   `json:"start"`
	Target engine.Coordinate   `json:"target"`
	Path   []engine.Coordinate `json:"path"`
	Steps  int                 `json:"steps"` // moves needed to stand next to the target
	Final  engine.Coordinate   `json:"final"`
	Rows   []string            `json:"rows,omitempty"` // world rows with the route marked
}

// ConfigInfo provides information about a world layout
type ConfigInfo struct {
	Filename     string `json:"filename"`
	ConfigID     string `json:"config_id"` // The identifier to use for session creation
	Name         string `json:"name"`      // Display name
	Description  string `json:"description"`
	Height       int    `json:"height"`
	Weight       int    `json:"weight"`
	SearchBudget int    `json:"search_budget,omitempty"`
}

// NewConfigInfo summarises a layout stored under filename
func NewConfigInfo(filename, id string, config *engine.WorldConfig) *ConfigInfo {
	return &ConfigInfo{
		Filename:     filename,
		ConfigID:     id,
		Name:         config.Name,
		Description:  config.Description,
		Height:       config.Height(),
		Weight:       config.Weight(),
		SearchBudget: config.SearchBudget,
	}
}
