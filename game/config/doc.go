// Package config provides world layouts and server settings for the grid world server.
//
// The config package handles:
//   - Loading world layouts from YAML or JSON files in a directory
//   - Caching layouts and dropping them when their files change
//   - Saving layouts as YAML
//   - Reading server settings from TOML with environment overrides
//   - Building the zap logger described by the settings
//
// Layout Format:
//
//	name: Meadow
//	description: Open field with a rock wall
//	rows:
//	  - "..G.."
//	  - ".RRR."
//	  - "....."
//	search_budget: 0
//
// Row index is X and the character index within a row is Y. The optional
// legend maps characters to entity kinds; the default legend uses '.' for
// empty cells and G, R, T, H, P for grass, rock, tree, herbivore and
// predator.
//
// Usage:
//
//	settings, err := config.LoadOrDefault("gridworld.toml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	manager, err := config.NewManager(settings.World.LayoutsDir)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	layout, err := manager.LoadConfig("meadow")
//
// The default layout is "meadow" when present, otherwise the first valid
// layout by name, otherwise a built-in empty 5x5 world.
package config
