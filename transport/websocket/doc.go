// Package websocket streams world updates to browser clients.
//
// A single Hub owns every connection. Clients join a session with
// ?session=<id> on the upgrade request and from then on receive a JSON
// Message whenever that session's world changes:
//
//	{"session_id": "ab12cd34", "event": "world_update", "world": {...}}
//
// Path searches are announced with the "path_found" event and deleting a
// session sends "session_deleted" before the hub disconnects its clients.
// Incoming client frames are read only to keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Broadcasts never block the caller; when the queue is full the message is
// dropped and logged. Run returns when ctx is cancelled and closes every
// client.
package websocket
