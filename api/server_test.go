package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wricardo/gridworld/game/engine"
	"github.com/wricardo/gridworld/game/service"
	"github.com/wricardo/gridworld/transport/websocket"
)

// MockWorldService implements service.WorldService for testing
type MockWorldService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, layoutID string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// World Operations
	PlaceEntityFunc  func(ctx context.Context, sessionID string, kind engine.Kind, at engine.Coordinate) (*service.PlacementResult, error)
	RemoveEntityFunc func(ctx context.Context, sessionID string, at engine.Coordinate) (*service.PlacementResult, error)
	GetEntityFunc    func(ctx context.Context, sessionID string, at engine.Coordinate) (*service.CellInfo, error)
	SearchPathFunc   func(ctx context.Context, sessionID string, start, target engine.Coordinate) (*service.PathResult, error)

	// World State
	GetWorldStateFunc func(ctx context.Context, sessionID string) (*engine.WorldState, error)

	// Layouts
	ListConfigsFunc         func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc          func(ctx context.Context, layoutID string) (*engine.WorldConfig, error)
	SaveConfigFunc          func(ctx context.Context, layoutID string, config *engine.WorldConfig) error
	SaveSessionAsConfigFunc func(ctx context.Context, sessionID, layoutID string) (*service.ConfigInfo, error)
}

func (m *MockWorldService) CreateSession(ctx context.Context, layoutID string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, layoutID)
	}
	return &service.SessionInfo{
		ID:         "test-session",
		LayoutName: layoutID,
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockWorldService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{
		ID:         sessionID,
		LayoutName: "test-layout",
		CreatedAt:  time.Now(),
	}, nil
}

func (m *MockWorldService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockWorldService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockWorldService) PlaceEntity(ctx context.Context, sessionID string, kind engine.Kind, at engine.Coordinate) (*service.PlacementResult, error) {
	if m.PlaceEntityFunc != nil {
		return m.PlaceEntityFunc(ctx, sessionID, kind, at)
	}
	view := engine.EntityView{X: at.X, Y: at.Y, Kind: kind, Sprite: engine.SpriteOf(kind)}
	return &service.PlacementResult{At: at, Entity: &view, World: &engine.WorldState{}}, nil
}

func (m *MockWorldService) RemoveEntity(ctx context.Context, sessionID string, at engine.Coordinate) (*service.PlacementResult, error) {
	if m.RemoveEntityFunc != nil {
		return m.RemoveEntityFunc(ctx, sessionID, at)
	}
	return &service.PlacementResult{At: at, World: &engine.WorldState{}}, nil
}

func (m *MockWorldService) GetEntity(ctx context.Context, sessionID string, at engine.Coordinate) (*service.CellInfo, error) {
	if m.GetEntityFunc != nil {
		return m.GetEntityFunc(ctx, sessionID, at)
	}
	return &service.CellInfo{At: at}, nil
}

func (m *MockWorldService) SearchPath(ctx context.Context, sessionID string, start, target engine.Coordinate) (*service.PathResult, error) {
	if m.SearchPathFunc != nil {
		return m.SearchPathFunc(ctx, sessionID, start, target)
	}
	return &service.PathResult{Start: start, Target: target, Path: []engine.Coordinate{start}, Final: start}, nil
}

func (m *MockWorldService) GetWorldState(ctx context.Context, sessionID string) (*engine.WorldState, error) {
	if m.GetWorldStateFunc != nil {
		return m.GetWorldStateFunc(ctx, sessionID)
	}
	return &engine.WorldState{}, nil
}

func (m *MockWorldService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockWorldService) LoadConfig(ctx context.Context, layoutID string) (*engine.WorldConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, layoutID)
	}
	return &engine.WorldConfig{
		Name:        layoutID,
		Description: "Test layout",
		Rows:        []string{"..", ".."},
	}, nil
}

func (m *MockWorldService) SaveConfig(ctx context.Context, layoutID string, config *engine.WorldConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, layoutID, config)
	}
	return nil
}

func (m *MockWorldService) SaveSessionAsConfig(ctx context.Context, sessionID, layoutID string) (*service.ConfigInfo, error) {
	if m.SaveSessionAsConfigFunc != nil {
		return m.SaveSessionAsConfigFunc(ctx, sessionID, layoutID)
	}
	return &service.ConfigInfo{Filename: layoutID + ".yaml", ConfigID: layoutID, Name: layoutID}, nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockWorldService) *Server {
	t.Helper()
	hub := websocket.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return NewServer(mockService, hub, nil)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func serve(t *testing.T, mockService *MockWorldService, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	server := setupTestServer(t, mockService)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockWorldService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create session with default layout",
			requestBody: nil,
			setupMock: func(m *MockWorldService) {
				m.CreateSessionFunc = func(ctx context.Context, layoutID string) (*service.SessionInfo, error) {
					if layoutID != "" {
						t.Errorf("Expected empty layout ID, got %s", layoutID)
					}
					return &service.SessionInfo{
						ID:             "sess-123",
						LayoutName:     "Meadow",
						CreatedAt:      time.Now(),
						LastAccessedAt: time.Now(),
					}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "sess-123" {
					t.Errorf("Expected session ID sess-123, got %s", resp.ID)
				}
			},
		},
		{
			name:        "Create session with specific layout",
			requestBody: map[string]string{"layout_id": "maze"},
			setupMock: func(m *MockWorldService) {
				m.CreateSessionFunc = func(ctx context.Context, layoutID string) (*service.SessionInfo, error) {
					if layoutID != "maze" {
						t.Errorf("Expected layout 'maze', got %s", layoutID)
					}
					return &service.SessionInfo{ID: "sess-456", LayoutName: "Maze"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.LayoutName != "Maze" {
					t.Errorf("Expected layout name 'Maze', got %s", resp.LayoutName)
				}
			},
		},
		{
			name:        "Unknown layout",
			requestBody: map[string]string{"layout_id": "nope"},
			setupMock: func(m *MockWorldService) {
				m.CreateSessionFunc = func(ctx context.Context, layoutID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("%w: %s", service.ErrConfigNotFound, layoutID)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Malformed body",
			requestBody:    "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Handle service error",
			requestBody: nil,
			setupMock: func(m *MockWorldService) {
				m.CreateSessionFunc = func(ctx context.Context, layoutID string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockWorldService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(t, mockService, makeRequest("POST", "/api/sessions", tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sessions := func() []*service.SessionInfo {
		return []*service.SessionInfo{
			{ID: "a", CreatedAt: base, LastAccessedAt: base.Add(3 * time.Minute)},
			{ID: "b", CreatedAt: base.Add(time.Minute), LastAccessedAt: base.Add(time.Minute)},
			{ID: "c", CreatedAt: base.Add(2 * time.Minute), LastAccessedAt: base.Add(2 * time.Minute)},
		}
	}

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"default sorts by last access desc", "", []string{"a", "c", "b"}},
		{"created ascending", "?sort=created&order=asc", []string{"a", "b", "c"}},
		{"created descending", "?sort=created", []string{"c", "b", "a"}},
		{"limit", "?limit=2", []string{"a", "c"}},
		{"invalid limit ignored", "?limit=zero", []string{"a", "c", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockWorldService{
				ListSessionsFunc: func(ctx context.Context) ([]*service.SessionInfo, error) {
					return sessions(), nil
				},
			}

			w := serve(t, mockService, makeRequest("GET", "/api/sessions"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}

			var resp struct {
				Count    int                    `json:"count"`
				Total    int                    `json:"total"`
				Sessions []*service.SessionInfo `json:"sessions"`
			}
			parseResponse(t, w, &resp)

			if resp.Total != 3 {
				t.Errorf("Expected total 3, got %d", resp.Total)
			}
			if resp.Count != len(tt.expected) {
				t.Fatalf("Expected %d sessions, got %d", len(tt.expected), resp.Count)
			}
			for i, id := range tt.expected {
				if resp.Sessions[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, resp.Sessions[i].ID)
				}
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	mockService := &MockWorldService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
			if sessionID == "missing" {
				return nil, fmt.Errorf("%w: %s", service.ErrSessionNotFound, sessionID)
			}
			return &service.SessionInfo{ID: sessionID, LayoutName: "Meadow"}, nil
		},
	}

	w := serve(t, mockService, makeRequest("GET", "/api/sessions/sess-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp service.SessionInfo
	parseResponse(t, w, &resp)
	if resp.ID != "sess-1" || resp.LayoutName != "Meadow" {
		t.Errorf("Unexpected session %+v", resp)
	}

	w = serve(t, mockService, makeRequest("GET", "/api/sessions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	var deleted string
	mockService := &MockWorldService{
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID == "missing" {
				return service.ErrSessionNotFound
			}
			deleted = sessionID
			return nil
		},
	}

	w := serve(t, mockService, makeRequest("DELETE", "/api/sessions/sess-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if deleted != "sess-1" {
		t.Errorf("Expected sess-1 deleted, got %q", deleted)
	}

	w = serve(t, mockService, makeRequest("DELETE", "/api/sessions/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

// World Operation Tests

func TestGetWorldState(t *testing.T) {
	mockService := &MockWorldService{
		GetWorldStateFunc: func(ctx context.Context, sessionID string) (*engine.WorldState, error) {
			return &engine.WorldState{Height: 2, Weight: 3, Area: 6, Rows: []string{"...", ".R."}}, nil
		},
	}

	w := serve(t, mockService, makeRequest("GET", "/api/sessions/sess-1/state", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var state engine.WorldState
	parseResponse(t, w, &state)
	if state.Height != 2 || state.Weight != 3 || state.Area != 6 {
		t.Errorf("Unexpected state %+v", state)
	}
}

func TestListEntities(t *testing.T) {
	mockService := &MockWorldService{
		GetWorldStateFunc: func(ctx context.Context, sessionID string) (*engine.WorldState, error) {
			return &engine.WorldState{Entities: []engine.EntityView{
				{X: 0, Y: 0, Kind: engine.KindRock},
				{X: 1, Y: 0, Kind: engine.KindTree},
				{X: 2, Y: 2, Kind: engine.KindRock},
			}}, nil
		},
	}

	tests := []struct {
		query string
		count int
	}{
		{"", 3},
		{"?kind=rock", 2},
		{"?kind=predator", 0},
	}

	for _, tt := range tests {
		t.Run("query"+tt.query, func(t *testing.T) {
			w := serve(t, mockService, makeRequest("GET", "/api/sessions/sess-1/entities"+tt.query, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var resp struct {
				Count    int                 `json:"count"`
				Entities []engine.EntityView `json:"entities"`
			}
			parseResponse(t, w, &resp)
			if resp.Count != tt.count || len(resp.Entities) != tt.count {
				t.Errorf("Expected %d entities, got %d", tt.count, resp.Count)
			}
		})
	}
}

func TestPlaceEntity(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*MockWorldService)
		expectedStatus int
	}{
		{
			name: "Place rock",
			requestBody: map[string]interface{}{
				"kind": "rock", "x": 1, "y": 2,
			},
			setupMock: func(m *MockWorldService) {
				m.PlaceEntityFunc = func(ctx context.Context, sessionID string, kind engine.Kind, at engine.Coordinate) (*service.PlacementResult, error) {
					if kind != engine.KindRock || at != (engine.Coordinate{X: 1, Y: 2}) {
						t.Errorf("Unexpected placement %s at %s", kind, at)
					}
					return &service.PlacementResult{At: at, Message: "placed", World: &engine.WorldState{}}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Origin is a valid cell",
			requestBody:    map[string]interface{}{"kind": "tree", "x": 0, "y": 0},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing coordinate",
			requestBody:    map[string]interface{}{"kind": "rock", "x": 1},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing kind",
			requestBody:    map[string]interface{}{"x": 1, "y": 1},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Out of bounds",
			requestBody: map[string]interface{}{"kind": "rock", "x": 99, "y": 0},
			setupMock: func(m *MockWorldService) {
				m.PlaceEntityFunc = func(ctx context.Context, sessionID string, kind engine.Kind, at engine.Coordinate) (*service.PlacementResult, error) {
					return nil, fmt.Errorf("%w: %s", engine.ErrOutOfBounds, at)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Unknown kind",
			requestBody: map[string]interface{}{"kind": "dragon", "x": 0, "y": 0},
			setupMock: func(m *MockWorldService) {
				m.PlaceEntityFunc = func(ctx context.Context, sessionID string, kind engine.Kind, at engine.Coordinate) (*service.PlacementResult, error) {
					return nil, fmt.Errorf("%w: %q", engine.ErrUnknownKind, kind)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Session not found",
			requestBody: map[string]interface{}{"kind": "rock", "x": 0, "y": 0},
			setupMock: func(m *MockWorldService) {
				m.PlaceEntityFunc = func(ctx context.Context, sessionID string, kind engine.Kind, at engine.Coordinate) (*service.PlacementResult, error) {
					return nil, service.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockWorldService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			w := serve(t, mockService, makeRequest("POST", "/api/sessions/sess-1/entities", tt.requestBody))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetEntity(t *testing.T) {
	mockService := &MockWorldService{
		GetEntityFunc: func(ctx context.Context, sessionID string, at engine.Coordinate) (*service.CellInfo, error) {
			if at.X < 0 {
				return nil, engine.ErrOutOfBounds
			}
			view := engine.EntityView{X: at.X, Y: at.Y, Kind: engine.KindTree}
			return &service.CellInfo{At: at, Occupied: true, Entity: &view}, nil
		},
	}

	w := serve(t, mockService, makeRequest("GET", "/api/sessions/sess-1/entities/2/3", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var cell service.CellInfo
	parseResponse(t, w, &cell)
	if cell.At != (engine.Coordinate{X: 2, Y: 3}) || !cell.Occupied || cell.Entity.Kind != engine.KindTree {
		t.Errorf("Unexpected cell %+v", cell)
	}

	w = serve(t, mockService, makeRequest("GET", "/api/sessions/sess-1/entities/-1/0", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for negative coordinate, got %d", w.Code)
	}

	w = serve(t, mockService, makeRequest("GET", "/api/sessions/sess-1/entities/a/b", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for non-numeric coordinate, got %d", w.Code)
	}
}

func TestRemoveEntity(t *testing.T) {
	mockService := &MockWorldService{
		RemoveEntityFunc: func(ctx context.Context, sessionID string, at engine.Coordinate) (*service.PlacementResult, error) {
			view := engine.EntityView{X: at.X, Y: at.Y, Kind: engine.KindRock}
			return &service.PlacementResult{At: at, Entity: &view, Message: "removed rock", World: &engine.WorldState{}}, nil
		},
	}

	w := serve(t, mockService, makeRequest("DELETE", "/api/sessions/sess-1/entities/1/1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var result service.PlacementResult
	parseResponse(t, w, &result)
	if result.Entity == nil || result.Entity.Kind != engine.KindRock {
		t.Errorf("Expected removed rock, got %+v", result.Entity)
	}
}

func TestSearchPath(t *testing.T) {
	start := engine.Coordinate{X: 0, Y: 0}
	target := engine.Coordinate{X: 0, Y: 3}

	tests := []struct {
		name           string
		requestBody    interface{}
		err            error
		expectedStatus int
	}{
		{
			name:           "Path found",
			requestBody:    map[string]interface{}{"start": start, "target": target},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing target",
			requestBody:    map[string]interface{}{"start": start},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "No path",
			requestBody:    map[string]interface{}{"start": start, "target": target},
			err:            fmt.Errorf("search: %w", engine.ErrPathNotFound),
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "Budget exceeded",
			requestBody:    map[string]interface{}{"start": start, "target": target},
			err:            engine.ErrSearchBudgetExceeded,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "Start outside the world",
			requestBody:    map[string]interface{}{"start": map[string]int{"x": -1, "y": 0}, "target": target},
			err:            engine.ErrOutOfBounds,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockWorldService{
				SearchPathFunc: func(ctx context.Context, sessionID string, s, g engine.Coordinate) (*service.PathResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					path := []engine.Coordinate{s, {X: 0, Y: 1}, {X: 0, Y: 2}}
					return &service.PathResult{Start: s, Target: g, Path: path, Steps: 2, Final: path[2]}, nil
				},
			}

			w := serve(t, mockService, makeRequest("POST", "/api/sessions/sess-1/path", tt.requestBody))
			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			if tt.expectedStatus == http.StatusOK {
				var result service.PathResult
				parseResponse(t, w, &result)
				if result.Steps != 2 || result.Final != (engine.Coordinate{X: 0, Y: 2}) {
					t.Errorf("Unexpected path result %+v", result)
				}
			}
		})
	}
}

func TestSaveSession(t *testing.T) {
	mockService := &MockWorldService{
		SaveSessionAsConfigFunc: func(ctx context.Context, sessionID, layoutID string) (*service.ConfigInfo, error) {
			if sessionID != "sess-1" || layoutID != "snapshot" {
				t.Errorf("Unexpected save %s -> %s", sessionID, layoutID)
			}
			return &service.ConfigInfo{Filename: "snapshot.yaml", ConfigID: "snapshot", Name: "snapshot"}, nil
		},
	}

	w := serve(t, mockService, makeRequest("POST", "/api/sessions/sess-1/save", map[string]string{"name": "snapshot"}))
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	var info service.ConfigInfo
	parseResponse(t, w, &info)
	if info.ConfigID != "snapshot" {
		t.Errorf("Expected config ID snapshot, got %s", info.ConfigID)
	}

	w = serve(t, mockService, makeRequest("POST", "/api/sessions/sess-1/save", map[string]string{}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without a name, got %d", w.Code)
	}
}

// Layout Tests

func TestListLayouts(t *testing.T) {
	mockService := &MockWorldService{
		ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{
				{Filename: "maze.yaml", ConfigID: "maze", Name: "Maze", Height: 8, Weight: 8},
				{Filename: "meadow.yaml", ConfigID: "meadow", Name: "Meadow", Height: 5, Weight: 5},
			}, nil
		},
	}

	w := serve(t, mockService, makeRequest("GET", "/api/layouts", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var configs []*service.ConfigInfo
	parseResponse(t, w, &configs)
	if len(configs) != 2 || configs[1].ConfigID != "meadow" {
		t.Errorf("Unexpected layouts %+v", configs)
	}
}

func TestGetLayout(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		expectedID     string
		expectedStatus int
	}{
		{"plain id", "/api/layouts/meadow", "meadow", http.StatusOK},
		{"yaml extension", "/api/layouts/meadow.yaml", "meadow", http.StatusOK},
		{"json extension", "/api/layouts/maze.json", "maze", http.StatusOK},
		{"missing", "/api/layouts/missing", "missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockWorldService{
				LoadConfigFunc: func(ctx context.Context, layoutID string) (*engine.WorldConfig, error) {
					if layoutID != tt.expectedID {
						t.Errorf("Expected layout %s, got %s", tt.expectedID, layoutID)
					}
					if layoutID == "missing" {
						return nil, fmt.Errorf("%w: %s", service.ErrConfigNotFound, layoutID)
					}
					return &engine.WorldConfig{Name: layoutID, Rows: []string{"."}}, nil
				},
			}

			w := serve(t, mockService, makeRequest("GET", tt.path, nil))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestCreateLayout(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		saveErr        error
		expectedID     string
		expectedStatus int
	}{
		{
			name:           "ID derived from name",
			requestBody:    map[string]interface{}{"name": "Rocky Pass", "rows": []string{"..", ".R"}},
			expectedID:     "rocky-pass",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Explicit ID",
			requestBody:    map[string]interface{}{"id": "pass.yaml", "name": "Rocky Pass", "rows": []string{".."}},
			expectedID:     "pass",
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing name",
			requestBody:    map[string]interface{}{"rows": []string{".."}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid layout",
			requestBody:    map[string]interface{}{"name": "Broken", "rows": []string{"..", "."}},
			saveErr:        fmt.Errorf("%w: ragged rows", engine.ErrInvalidConfig),
			expectedID:     "broken",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockWorldService{
				SaveConfigFunc: func(ctx context.Context, layoutID string, config *engine.WorldConfig) error {
					if layoutID != tt.expectedID {
						t.Errorf("Expected layout ID %s, got %s", tt.expectedID, layoutID)
					}
					if len(config.Rows) == 0 {
						t.Error("Expected rows to be decoded")
					}
					return tt.saveErr
				},
			}

			w := serve(t, mockService, makeRequest("POST", "/api/layouts", tt.requestBody))
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestLayoutSlug(t *testing.T) {
	tests := map[string]string{
		"Meadow":         "meadow",
		"  Rocky Pass  ": "rocky-pass",
		"../../etc":      "etc",
		"v2_maze-A":      "v2_maze-a",
	}
	for in, want := range tests {
		if got := layoutSlug(in); got != want {
			t.Errorf("layoutSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", service.ErrConfigNotFound), http.StatusNotFound},
		{service.ErrSessionAlreadyExists, http.StatusConflict},
		{engine.ErrOutOfBounds, http.StatusBadRequest},
		{engine.ErrUnknownKind, http.StatusBadRequest},
		{engine.ErrInvalidConfig, http.StatusBadRequest},
		{engine.ErrPathNotFound, http.StatusUnprocessableEntity},
		{engine.ErrSearchBudgetExceeded, http.StatusUnprocessableEntity},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}

func TestHealth(t *testing.T) {
	w := serve(t, &MockWorldService{}, makeRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	parseResponse(t, w, &resp)
	if resp["status"] != "healthy" {
		t.Errorf("Unexpected health response %v", resp)
	}
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockWorldService)
		expectedStatus int
	}{
		{
			name:           "Missing session parameter",
			queryParams:    "",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "Invalid session",
			queryParams: "?session=invalid",
			setupMock: func(m *MockWorldService) {
				m.GetSessionFunc = func(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
					return nil, service.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Valid session",
			queryParams:    "?session=sess-123",
			expectedStatus: http.StatusSwitchingProtocols,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockWorldService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/ws"+tt.queryParams, nil)

			if tt.expectedStatus == http.StatusSwitchingProtocols {
				req.Header.Set("Upgrade", "websocket")
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
				req.Header.Set("Sec-WebSocket-Version", "13")
			}

			server.handleWebSocket(w, req)

			// ResponseRecorder cannot be hijacked, so an attempted upgrade surfaces as 500
			if tt.expectedStatus == http.StatusSwitchingProtocols && w.Code == http.StatusInternalServerError {
				return
			}

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}
