package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/wricardo/gridworld/game/engine"
)

var (
	// ErrSessionNotFound is wrapped by every operation addressing a missing session
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionAlreadyExists is returned when creating a session under a taken ID
	ErrSessionAlreadyExists = errors.New("session already exists")
	// ErrConfigNotFound is returned when a layout name has no file
	ErrConfigNotFound = errors.New("configuration not found")
)

// worldServiceImpl implements the WorldService interface
type worldServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewWorldService creates a new world service instance.
// A nil logger disables logging.
func NewWorldService(sessions SessionManager, configs ConfigManager, logger *zap.Logger) WorldService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &worldServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   logger.Named("service"),
	}
}

// getConfigID returns the config_id for a given layout display name, used for consistent API responses
func (s *worldServiceImpl) getConfigID(name string) string {
	available, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range available {
			if cfg.Name == name {
				return cfg.ConfigID
			}
		}
	}
	if name == "" {
		return "default"
	}
	return name
}

func (s *worldServiceImpl) sessionInfo(sess *Session, layoutID string) *SessionInfo {
	if layoutID == "" {
		layoutID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		LayoutName:     layoutID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		World:          sess.World.Snapshot(),
	}
}

// session fetches a session and refreshes its access time
func (s *worldServiceImpl) session(sessionID string) (*Session, error) {
	// touch first so the copy returned by Get carries the new access time
	err := s.sessions.UpdateLastAccessed(sessionID)
	if err == nil {
		var sess *Session
		if sess, err = s.sessions.Get(sessionID); err == nil {
			return sess, nil
		}
	}
	if errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrSessionNotFound, err)
}

// CreateSession creates a new session whose world is built from a layout.
// An empty layoutID uses the default layout.
func (s *worldServiceImpl) CreateSession(ctx context.Context, layoutID string) (*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.WorldConfig
	if layoutID != "" {
		var err error
		config, err = s.configs.LoadConfig(layoutID)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				available, listErr := s.configs.ListConfigs()
				if listErr == nil && len(available) > 0 {
					ids := make([]string, 0, len(available))
					for _, cfg := range available {
						ids = append(ids, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: layout '%s', available layouts: %v", ErrConfigNotFound, layoutID, ids)
				}
				return nil, fmt.Errorf("%w: layout '%s', use /api/layouts to list available layouts", ErrConfigNotFound, layoutID)
			}
			return nil, fmt.Errorf("failed to load layout %s: %w", layoutID, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created",
		zap.String("session", sess.ID),
		zap.String("layout", config.Name),
		zap.Int("entities", sess.World.Count()))

	return s.sessionInfo(sess, layoutID), nil
}

// GetSession retrieves session information
func (s *worldServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess, ""), nil
}

// ListSessions returns all active sessions
func (s *worldServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess, ""))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *worldServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrSessionNotFound, err)
	}
	s.logger.Info("session deleted", zap.String("session", sessionID))
	return nil
}

// PlaceEntity creates an entity of the given kind and places it.
// An entity already in the cell is replaced.
func (s *worldServiceImpl) PlaceEntity(ctx context.Context, sessionID string, kind engine.Kind, at engine.Coordinate) (*PlacementResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	entity, err := engine.NewEntity(kind, at)
	if err != nil {
		return nil, err
	}

	previous, err := sess.World.GetObject(at)
	if err != nil {
		return nil, err
	}
	if _, err := sess.World.AddObject(entity); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("placed %s at %s", kind, at)
	if previous != nil {
		message = fmt.Sprintf("replaced %s with %s at %s", previous.Kind(), kind, at)
	}

	s.logger.Debug("entity placed",
		zap.String("session", sess.ID),
		zap.String("kind", string(kind)),
		zap.Stringer("at", at))

	view := engine.ViewOf(entity)
	return &PlacementResult{
		At:      at,
		Entity:  &view,
		Message: message,
		World:   sess.World.Snapshot(),
	}, nil
}

// RemoveEntity clears a cell. Removing from an empty cell is not an error.
func (s *worldServiceImpl) RemoveEntity(ctx context.Context, sessionID string, at engine.Coordinate) (*PlacementResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	removed, err := sess.World.RemoveObject(at)
	if err != nil {
		return nil, err
	}

	result := &PlacementResult{
		At:      at,
		Message: fmt.Sprintf("cell %s was already empty", at),
		World:   sess.World.Snapshot(),
	}
	if removed != nil {
		view := engine.ViewOf(removed)
		result.Entity = &view
		result.Message = fmt.Sprintf("removed %s from %s", removed.Kind(), at)
	}
	return result, nil
}

// GetEntity looks up a single cell
func (s *worldServiceImpl) GetEntity(ctx context.Context, sessionID string, at engine.Coordinate) (*CellInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	entity, err := sess.World.GetObject(at)
	if err != nil {
		return nil, err
	}

	info := &CellInfo{At: at}
	if entity != nil {
		view := engine.ViewOf(entity)
		info.Occupied = true
		info.Entity = &view
	}
	return info, nil
}

// SearchPath finds the shortest route from start to a cell next to target
func (s *worldServiceImpl) SearchPath(ctx context.Context, sessionID string, start, target engine.Coordinate) (*PathResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	path, err := sess.World.SearchPath(start, target)
	if err != nil {
		s.logger.Debug("path search failed",
			zap.String("session", sess.ID),
			zap.Stringer("start", start),
			zap.Stringer("target", target),
			zap.Error(err))
		return nil, fmt.Errorf("search %s -> %s: %w", start, target, err)
	}

	return &PathResult{
		Start:  start,
		Target: target,
		Path:   path,
		Steps:  len(path) - 1,
		Final:  path[len(path)-1],
		Rows:   engine.RenderPath(sess.World.Render(), path, target),
	}, nil
}

// GetWorldState retrieves a snapshot of the session's world
func (s *worldServiceImpl) GetWorldState(ctx context.Context, sessionID string) (*engine.WorldState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.World.Snapshot(), nil
}

// ListConfigs returns available world layouts
func (s *worldServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific world layout
func (s *worldServiceImpl) LoadConfig(ctx context.Context, layoutID string) (*engine.WorldConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.configs.LoadConfig(layoutID)
}

// SaveConfig saves a world layout to disk
func (s *worldServiceImpl) SaveConfig(ctx context.Context, layoutID string, config *engine.WorldConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.configs.SaveConfig(layoutID, config)
}

// SaveSessionAsConfig captures a session's current world as a new layout
func (s *worldServiceImpl) SaveSessionAsConfig(ctx context.Context, sessionID, layoutID string) (*ConfigInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSuffix(layoutID, filepath.Ext(layoutID))
	if id == "" {
		return nil, fmt.Errorf("%w: layout name is required", engine.ErrInvalidConfig)
	}

	description := fmt.Sprintf("Saved from session %s (based on %s)", sess.ID, sess.Config.Name)
	config := engine.WorldConfigFromWorld(id, description, sess.World)
	if err := s.configs.SaveConfig(id, config); err != nil {
		return nil, err
	}

	s.logger.Info("session saved as layout", zap.String("session", sess.ID), zap.String("layout", id))
	return NewConfigInfo(id+".yaml", id, config), nil
}
