// Package api exposes the world service over HTTP.
//
// Routes are registered on a gorilla/mux router:
//
// Sessions:
//   - POST /api/sessions {"layout_id": "maze"} - create a session, empty body uses the default layout
//   - GET /api/sessions?sort=created|accessed&order=asc|desc&limit=N
//   - GET /api/sessions/{id}
//   - DELETE /api/sessions/{id}
//
// World:
//   - GET /api/sessions/{id}/state - full snapshot with rendered rows
//   - GET /api/sessions/{id}/entities?kind=rock
//   - POST /api/sessions/{id}/entities {"kind": "rock", "x": 1, "y": 2}
//   - GET /api/sessions/{id}/entities/{x}/{y}
//   - DELETE /api/sessions/{id}/entities/{x}/{y}
//   - POST /api/sessions/{id}/path {"start": {"x": 0, "y": 0}, "target": {"x": 3, "y": 3}}
//   - POST /api/sessions/{id}/save {"name": "snapshot"}
//
// Layouts:
//   - GET /api/layouts
//   - POST /api/layouts - body is a layout plus an optional "id"
//   - GET /api/layouts/{name}
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket upgrade
//
// Errors are JSON bodies of the form {"error": "..."}. Unknown sessions and
// layouts map to 404, invalid coordinates, kinds and layouts to 400, and a
// search that finds no route or runs out of budget to 422.
//
// Successful mutations push the new snapshot to the session's WebSocket
// clients.
package api
