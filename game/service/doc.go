// Package service provides the business logic layer for the grid world server.
//
// The service package implements:
//   - Multi-session world management
//   - Layout listing, loading and saving
//   - Entity placement, removal and lookup
//   - Path searches against a session's world
//
// Core Interfaces:
//
// WorldService is the main service interface used by the REST API, the
// WebSocket hub and the MCP tools. SessionManager stores sessions and
// ConfigManager provides world layouts; both are implemented by the
// session and config packages.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	worldService := service.NewWorldService(sessionMgr, configMgr, logger)
//
//	info, err := worldService.CreateSession(ctx, "meadow")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := worldService.SearchPath(ctx, info.ID,
//		engine.Coordinate{X: 0, Y: 0}, engine.Coordinate{X: 4, Y: 4})
//
// Errors:
//
// Lookups of unknown sessions wrap ErrSessionNotFound and unknown layouts
// wrap ErrConfigNotFound. Engine errors (ErrOutOfBounds, ErrUnknownKind,
// ErrPathNotFound, ErrSearchBudgetExceeded) pass through wrapped so callers
// can use errors.Is.
package service
