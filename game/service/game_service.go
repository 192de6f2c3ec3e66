package service

import (
	"context"
	"time"

	"github.com/wricardo/gridworld/game/engine"
)

// WorldService defines all world-related operations
type WorldService interface {
	// Session Management
	CreateSession(ctx context.Context, layoutID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// World Operations
	PlaceEntity(ctx context.Context, sessionID string, kind engine.Kind, at engine.Coordinate) (*PlacementResult, error)
	RemoveEntity(ctx context.Context, sessionID string, at engine.Coordinate) (*PlacementResult, error)
	GetEntity(ctx context.Context, sessionID string, at engine.Coordinate) (*CellInfo, error)
	SearchPath(ctx context.Context, sessionID string, start, target engine.Coordinate) (*PathResult, error)

	// World State
	GetWorldState(ctx context.Context, sessionID string) (*engine.WorldState, error)

	// Layouts
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, layoutID string) (*engine.WorldConfig, error)
	SaveConfig(ctx context.Context, layoutID string, config *engine.WorldConfig) error
	SaveSessionAsConfig(ctx context.Context, sessionID, layoutID string) (*ConfigInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.WorldConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles world layout loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.WorldConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.WorldConfig
	SaveConfig(name string, config *engine.WorldConfig) error
}

// Session represents an active world session.
// SessionManager hands out copies; only World is shared between them.
type Session struct {
	ID             string
	World          *engine.World
	Config         *engine.WorldConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
