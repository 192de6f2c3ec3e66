// Package engine provides the core grid world logic.
//
// The engine package implements:
//   - Coordinates with 4-connected neighbor generation
//   - Entity variants (grass, rock, tree, herbivore, predator)
//   - A fixed-size World holding a sparse coordinate-keyed registry
//   - Breadth-first path search that stops next to its target
//   - World layouts loaded from YAML or JSON files
//
// Core Types:
//
// World owns the grid dimensions and the registry of placed entities.
// Entity is the interface every placeable variant implements; the World
// never depends on concrete variants. WorldConfig describes a named layout
// that BuildWorld turns into a World.
//
// Usage:
//
//	world, err := engine.NewWorld(5, 5)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	world.AddObject(engine.NewRock(engine.Coordinate{X: 2, Y: 2}))
//
//	path, err := world.SearchPath(engine.Coordinate{X: 0, Y: 0}, engine.Coordinate{X: 3, Y: 3})
//	if errors.Is(err, engine.ErrPathNotFound) {
//		// nothing can reach the target
//	}
//
// Search Rules:
//
// The search expands neighbors in the fixed order north (y+1), south (y-1),
// east (x+1), west (x-1) with a FIFO queue, so equal-length routes always
// resolve the same way. Every occupied cell blocks movement. The returned
// path ends on a cell adjacent to the target and never includes the target.
package engine
