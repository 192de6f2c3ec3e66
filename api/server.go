package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wricardo/gridworld/game/engine"
	"github.com/wricardo/gridworld/game/service"
	"github.com/wricardo/gridworld/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.WorldService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *zap.Logger
}

// NewServer creates a new API server. hub and logger may be nil.
func NewServer(worldService service.WorldService, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		service: worldService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger.Named("api"),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// World operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetWorldState).Methods("GET")
	api.HandleFunc("/sessions/{id}/entities", s.handleListEntities).Methods("GET")
	api.HandleFunc("/sessions/{id}/entities", s.handlePlaceEntity).Methods("POST")
	api.HandleFunc("/sessions/{id}/entities/{x:-?[0-9]+}/{y:-?[0-9]+}", s.handleGetEntity).Methods("GET")
	api.HandleFunc("/sessions/{id}/entities/{x:-?[0-9]+}/{y:-?[0-9]+}", s.handleRemoveEntity).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/path", s.handleSearchPath).Methods("POST")
	api.HandleFunc("/sessions/{id}/save", s.handleSaveSession).Methods("POST")

	// Layouts
	api.HandleFunc("/layouts", s.handleListLayouts).Methods("GET")
	api.HandleFunc("/layouts", s.handleCreateLayout).Methods("POST")
	api.HandleFunc("/layouts/{name}", s.handleGetLayout).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Router exposes the underlying router so callers can mount extra handlers
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service and engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrOutOfBounds),
		errors.Is(err, engine.ErrUnknownKind),
		errors.Is(err, engine.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrPathNotFound), errors.Is(err, engine.ErrSearchBudgetExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	respondError(w, status, err.Error())
}

// broadcastWorld pushes a fresh snapshot to the session's WebSocket clients
func (s *Server) broadcastWorld(sessionID string, state *engine.WorldState) {
	if s.hub == nil || state == nil {
		return
	}
	s.hub.BroadcastWorld(sessionID, state)
}

// cellFromPath reads the {x}/{y} route variables
func cellFromPath(r *http.Request) (engine.Coordinate, error) {
	vars := mux.Vars(r)
	x, err := strconv.Atoi(vars["x"])
	if err != nil {
		return engine.Coordinate{}, fmt.Errorf("invalid x %q", vars["x"])
	}
	y, err := strconv.Atoi(vars["y"])
	if err != nil {
		return engine.Coordinate{}, fmt.Errorf("invalid y %q", vars["y"])
	}
	return engine.Coordinate{X: x, Y: y}, nil
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LayoutID string `json:"layout_id,omitempty"`
	}

	// an empty body selects the default layout
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	session, err := s.service.CreateSession(r.Context(), req.LayoutID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.logger.Info("session created",
		zap.String("session", session.ID),
		zap.String("layout", session.LayoutName))
	respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	limit := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			limit = l
		}
	}
	sessions = sessions[:limit]

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventSessionDeleted, nil)
	}

	s.logger.Info("session deleted", zap.String("session", sessionID))
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// World Handlers

func (s *Server) handleGetWorldState(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetWorldState(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.GetWorldState(r.Context(), sessionID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	entities := state.Entities
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := make([]engine.EntityView, 0, len(entities))
		for _, e := range entities {
			if string(e.Kind) == kind {
				filtered = append(filtered, e)
			}
		}
		entities = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(entities),
		"entities": entities,
	})
}

func (s *Server) handlePlaceEntity(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Kind engine.Kind `json:"kind"`
		X    *int        `json:"x"`
		Y    *int        `json:"y"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Kind == "" || req.X == nil || req.Y == nil {
		respondError(w, http.StatusBadRequest, "kind, x and y are required")
		return
	}

	at := engine.Coordinate{X: *req.X, Y: *req.Y}
	result, err := s.service.PlaceEntity(r.Context(), sessionID, req.Kind, at)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.broadcastWorld(sessionID, result.World)
	s.logger.Debug("entity placed",
		zap.String("session", sessionID),
		zap.String("kind", string(req.Kind)),
		zap.Stringer("at", at))

	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	at, err := cellFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cell, err := s.service.GetEntity(r.Context(), sessionID, at)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cell)
}

func (s *Server) handleRemoveEntity(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	at, err := cellFromPath(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.RemoveEntity(r.Context(), sessionID, at)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	if result.Entity != nil {
		s.broadcastWorld(sessionID, result.World)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearchPath(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Start  *engine.Coordinate `json:"start"`
		Target *engine.Coordinate `json:"target"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Start == nil || req.Target == nil {
		respondError(w, http.StatusBadRequest, "start and target are required")
		return
	}

	result, err := s.service.SearchPath(r.Context(), sessionID, *req.Start, *req.Target)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventPathFound, result)
	}

	s.logger.Info("path found",
		zap.String("session", sessionID),
		zap.Stringer("start", result.Start),
		zap.Stringer("target", result.Target),
		zap.Int("steps", result.Steps))

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	info, err := s.service.SaveSessionAsConfig(r.Context(), sessionID, req.Name)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

// Layout Handlers

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	config, err := s.service.LoadConfig(r.Context(), trimLayoutExt(name))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, config)
}

func (s *Server) handleCreateLayout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id,omitempty"`
		engine.WorldConfig
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Layout name is required")
		return
	}

	id := trimLayoutExt(req.ID)
	if id == "" {
		id = layoutSlug(req.Name)
	}

	config := req.WorldConfig
	if err := s.service.SaveConfig(r.Context(), id, &config); err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.logger.Info("layout saved", zap.String("layout", id))
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Layout saved successfully",
		"config_id": id,
	})
}

// trimLayoutExt strips a layout file extension from a route name
func trimLayoutExt(name string) string {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// layoutSlug derives a file-safe layout ID from a display name
func layoutSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
