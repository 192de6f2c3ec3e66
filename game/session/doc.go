// Package session provides in-memory session management for the grid world server.
//
// Each session owns one engine.World built from a layout when the session is
// created. Sessions are never written to disk; restarting the server starts
// from an empty session set.
//
// Session Identifiers:
//
// Callers may choose an ID; otherwise the first block of a random UUID is
// used. IDs are case-insensitive.
//
// Usage:
//
//	manager := session.NewManager(session.WithLogger(logger))
//
//	sess, err := manager.Create("", layout)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	go manager.RunCleanup(ctx, time.Minute, 30*time.Minute)
package session
