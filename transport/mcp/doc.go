// Package mcp exposes the grid world to MCP clients.
//
// Client is a thin proxy: every tool call becomes a request against the
// REST API (see package api) and the JSON response is rendered as text for
// the calling agent. The same tool set is served over stdio by the
// "gridworld mcp" command and over streamable HTTP at /mcp by
// "gridworld serve".
//
// Tools:
//   - create_session, list_sessions
//   - world_state, describe_cell
//   - place_entity, remove_entity
//   - search_path
//   - save_session, list_layouts
//   - world_instructions
//
// Coordinates are passed as separate integer arguments (x, y or
// start_x, start_y, target_x, target_y). Failures from the API come back as
// tool errors rather than protocol errors so agents can read the message.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
