package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/gridworld/game/engine"
	"github.com/wricardo/gridworld/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Grid World",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Grid World - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A world is a rectangular grid holding at most one entity per cell:
grass (G), rock (R), tree (T), herbivore (H) and predator (P). Every
entity blocks movement. Empty cells are shown as '.'.

AVAILABLE TOOLS:
- create_session: Create a world from a layout
- list_sessions: List all active sessions
- world_state: Render a session's world
- place_entity: Put an entity on a cell (replaces any occupant)
- remove_entity: Clear a cell
- describe_cell: Inspect a single cell
- search_path: Shortest route that ends next to a target cell
- save_session: Store a session's world as a new layout
- list_layouts: List available layouts
- world_instructions: Coordinate conventions and search rules`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func intProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

func kindNames() []string {
	kinds := engine.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new world session, optionally from a named layout",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"layout_id": map[string]interface{}{
					"type":        "string",
					"description": "Layout ID from list_layouts (optional, default layout when empty)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active world sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	// World operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "world_state",
		Description: "Get the current world: size, entity counts and the rendered grid",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleWorldState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "place_entity",
		Description: "Place an entity on a cell. An existing occupant is replaced.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"kind": map[string]interface{}{
					"type":        "string",
					"enum":        kindNames(),
					"description": "Entity kind",
				},
				"x": intProperty("Row index (0-based)"),
				"y": intProperty("Column index (0-based)"),
			},
			Required: []string{"session_id", "kind", "x", "y"},
		},
	}, c.handlePlaceEntity)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "remove_entity",
		Description: "Remove whatever entity occupies a cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x":          intProperty("Row index (0-based)"),
				"y":          intProperty("Column index (0-based)"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleRemoveEntity)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get detailed information about a single cell, including whether it blocks movement",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x":          intProperty("Row index (0-based)"),
				"y":          intProperty("Column index (0-based)"),
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "search_path",
		Description: "Find the shortest route from start to a free cell next to target. The target itself is never entered.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"start_x":    intProperty("Start row"),
				"start_y":    intProperty("Start column"),
				"target_x":   intProperty("Target row"),
				"target_y":   intProperty("Target column"),
			},
			Required: []string{"session_id", "start_x", "start_y", "target_x", "target_y"},
		},
	}, c.handleSearchPath)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "save_session",
		Description: "Store the session's current world as a reusable layout",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Layout ID to save under",
				},
			},
			Required: []string{"session_id", "name"},
		},
	}, c.handleSaveSession)

	// Layouts
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_layouts",
		Description: "List available world layouts",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLayouts)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "world_instructions",
		Description: "Get coordinate conventions, the entity legend and path search rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleWorldInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool arguments, or an empty map when none were sent
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// intArg reads an integer argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, key string) (int, error) {
	switch v := args[key].(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, v)
		}
		return int(v), nil
	case int:
		return v, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, v)
		}
		return int(n), nil
	case nil:
		return 0, fmt.Errorf("%s is required", key)
	default:
		return 0, fmt.Errorf("%s must be an integer, got %T", key, v)
	}
}

// cellArg reads a coordinate from the given pair of argument keys
func cellArg(args map[string]interface{}, xKey, yKey string) (engine.Coordinate, error) {
	x, err := intArg(args, xKey)
	if err != nil {
		return engine.Coordinate{}, err
	}
	y, err := intArg(args, yKey)
	if err != nil {
		return engine.Coordinate{}, err
	}
	return engine.Coordinate{X: x, Y: y}, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	layoutID, _ := args["layout_id"].(string)

	body := map[string]string{}
	if layoutID != "" {
		body["layout_id"] = layoutID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&result, "- %s (Layout: %s, Created: %s)\n",
			s.ID, s.LayoutName, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleWorldState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.WorldState
	if err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatWorldState(&state)), nil
}

func (c *Client) handlePlaceEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	kind, _ := args["kind"].(string)

	at, err := cellArg(args, "x", "y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"kind": kind,
		"x":    at.X,
		"y":    at.Y,
	}

	var result service.PlacementResult
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/entities", sessionID), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlacementResult(&result)), nil
}

func (c *Client) handleRemoveEntity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	at, err := cellArg(args, "x", "y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.PlacementResult
	path := fmt.Sprintf("/api/sessions/%s/entities/%d/%d", sessionID, at.X, at.Y)
	if err := c.apiCall(ctx, "DELETE", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlacementResult(&result)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	at, err := cellArg(args, "x", "y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var cell service.CellInfo
	path := fmt.Sprintf("/api/sessions/%s/entities/%d/%d", sessionID, at.X, at.Y)
	if err := c.apiCall(ctx, "GET", path, nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCell(&cell)), nil
}

func (c *Client) handleSearchPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	start, err := cellArg(args, "start_x", "start_y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := cellArg(args, "target_x", "target_y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{
		"start":  start,
		"target": target,
	}

	var result service.PathResult
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/path", sessionID), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPathResult(&result)), nil
}

func (c *Client) handleSaveSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	name, _ := args["name"].(string)

	var info service.ConfigInfo
	if err := c.apiCall(ctx, "POST", fmt.Sprintf("/api/sessions/%s/save", sessionID), map[string]string{"name": name}, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Saved session %s as layout %s (%s, %dx%d)",
		sessionID, info.ConfigID, info.Filename, info.Height, info.Weight)), nil
}

func (c *Client) handleListLayouts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/layouts", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	result.WriteString("Available Layouts:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&result, "• %s (id: %s)\n  %s\n  Grid: %dx%d",
			config.Name, config.ConfigID, config.Description, config.Height, config.Weight)
		if config.SearchBudget > 0 {
			fmt.Fprintf(&result, ", Search budget: %d", config.SearchBudget)
		}
		result.WriteString("\n\n")
	}

	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleWorldInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var legend strings.Builder
	for _, kind := range engine.Kinds() {
		fmt.Fprintf(&legend, "• %c - %s\n", engine.GlyphOf(kind), kind)
	}

	instructions := `Grid World - Instructions

COORDINATES:
• A cell is (x, y). x is the row index, y the column index, both 0-based.
• x ranges over [0, height) and y over [0, weight).
• Rendered grids print row x = 0 first; character y of a row is column y.
• Neighbours of (x, y): north (x, y+1), south (x, y-1), east (x+1, y), west (x-1, y).

ENTITY LEGEND:
` + legend.String() + `• . - empty cell
• * - route cell (search_path output)
• X - search target (search_path output)

PLACEMENT:
• Each cell holds at most one entity.
• place_entity on an occupied cell replaces the occupant.
• remove_entity on an empty cell succeeds and reports the cell was empty.

PATH SEARCH:
• Breadth-first over the four neighbours in north, south, east, west order.
• Every entity blocks movement. The start cell itself may be occupied.
• The search stops at the first cell adjacent to the target; the target is never entered.
• The route includes the start; steps = cells in the route minus one.
• Start already next to (or on) the target yields a one-cell route.
• "path not found" means every free cell next to the target is unreachable.
• "search budget exceeded" means the layout caps how many cells a search may expand.

TIPS:
• Use world_state first to see the grid, then describe_cell to confirm single cells.
• Save interesting worlds with save_session and recreate them with create_session.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLayout: %s\nCreated: %s\n\n%s",
		session.ID, session.LayoutName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatWorldState(session.World))
}

func formatWorldState(state *engine.WorldState) string {
	if state == nil {
		return "No world state available"
	}

	var result strings.Builder
	fmt.Fprintf(&result, "World: %dx%d (area %d) | Entities: %d\n",
		state.Height, state.Weight, state.Area, len(state.Entities))

	if counts := countKinds(state.Entities); counts != "" {
		result.WriteString(counts + "\n")
	}
	result.WriteString("\n")
	result.WriteString(formatGrid(state.Rows))

	return result.String()
}

// countKinds summarises entities as "rock: 3, tree: 1"
func countKinds(entities []engine.EntityView) string {
	counts := make(map[engine.Kind]int)
	for _, e := range entities {
		counts[e.Kind]++
	}

	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s: %d", k, counts[engine.Kind(k)])
	}
	return strings.Join(parts, ", ")
}

// formatGrid prefixes each rendered row with its x index
func formatGrid(rows []string) string {
	if len(rows) == 0 {
		return "(empty grid)\n"
	}

	width := len(fmt.Sprint(len(rows) - 1))
	var result strings.Builder
	for x, row := range rows {
		fmt.Fprintf(&result, "%*d %s\n", width, x, row)
	}
	return result.String()
}

func formatPlacementResult(result *service.PlacementResult) string {
	var out strings.Builder
	out.WriteString("✓ " + result.Message + "\n")
	if result.World != nil {
		out.WriteString("\n")
		out.WriteString(formatWorldState(result.World))
	}
	return out.String()
}

func formatCell(cell *service.CellInfo) string {
	if !cell.Occupied || cell.Entity == nil {
		return fmt.Sprintf("Cell %s\nChar: %c\nType: empty\nPassable: yes", cell.At, engine.EmptyGlyph)
	}

	return fmt.Sprintf("Cell %s\nChar: %c\nType: %s\nSprite: %s\nPassable: no",
		cell.At, engine.GlyphOf(cell.Entity.Kind), cell.Entity.Kind, cell.Entity.Sprite)
}

func formatPathResult(result *service.PathResult) string {
	var out strings.Builder
	fmt.Fprintf(&out, "Path %s -> %s: %d steps, ends at %s\n",
		result.Start, result.Target, result.Steps, result.Final)

	cells := make([]string, len(result.Path))
	for i, c := range result.Path {
		cells[i] = c.String()
	}
	out.WriteString("Route: " + strings.Join(cells, " "))
	out.WriteString("\n")

	if len(result.Rows) > 0 {
		out.WriteString("\n")
		out.WriteString(formatGrid(result.Rows))
	}
	return out.String()
}
