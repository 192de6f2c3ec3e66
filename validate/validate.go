// Package validate checks world layout files and reports what they contain.
//
// Beyond structural validation it counts entities per kind, finds open cells
// cut off from the main open region, and tries a path search from every
// herbivore to its nearest grass and from every predator to its nearest
// herbivore.
package validate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/gridworld/game/engine"
)

// Result captures the outcome of validating a single layout
type Result struct {
	File     string
	Name     string
	Valid    bool
	Errors   []string
	Info     []string
	Counts   map[engine.Kind]int
	Isolated []engine.Coordinate
}

// layoutPatterns are the file globs Dir scans
var layoutPatterns = []string{"*.yaml", "*.yml", "*.json"}

// Dir validates every layout file in dir, ordered by file name
func Dir(dir string) ([]Result, error) {
	var files []string
	for _, pattern := range layoutPatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}
	sort.Strings(files)

	results := make([]Result, 0, len(files))
	for _, file := range files {
		results = append(results, File(file))
	}
	return results, nil
}

// File loads and validates a single layout file
func File(path string) Result {
	config, err := engine.LoadWorldConfig(path)
	if err != nil {
		result := Result{File: filepath.Base(path)}
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result := Config(config)
	result.File = filepath.Base(path)
	return result
}

// Config validates an already parsed layout
func Config(config *engine.WorldConfig) Result {
	result := Result{
		Name:   config.Name,
		Valid:  true,
		Counts: make(map[engine.Kind]int),
	}

	world, err := engine.BuildWorld(config)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	height, weight := world.Size()
	result.Info = append(result.Info, fmt.Sprintf("Size: %dx%d (%d cells, %d occupied)",
		height, weight, world.Area(), world.Count()))

	for _, kind := range engine.Kinds() {
		if n := world.CountKind(kind); n > 0 {
			result.Counts[kind] = n
		}
	}

	result.Isolated = IsolatedCells(world)
	if len(result.Isolated) > 0 {
		cells := make([]string, len(result.Isolated))
		for i, c := range result.Isolated {
			cells[i] = c.String()
		}
		result.Info = append(result.Info, fmt.Sprintf("Isolated open cells (%d): %s",
			len(result.Isolated), strings.Join(cells, " ")))
	}

	result.Info = append(result.Info, Reachability(world, engine.KindHerbivore, engine.KindGrass)...)
	result.Info = append(result.Info, Reachability(world, engine.KindPredator, engine.KindHerbivore)...)

	return result
}

// IsolatedCells returns the open cells outside the largest connected open
// region, in row order. Regions are 4-connected.
func IsolatedCells(w *engine.World) []engine.Coordinate {
	height, weight := w.Size()
	region := make(map[engine.Coordinate]int)
	var sizes []int

	for x := 0; x < height; x++ {
		for y := 0; y < weight; y++ {
			start := engine.Coordinate{X: x, Y: y}
			if w.IsOccupied(start) {
				continue
			}
			if _, seen := region[start]; seen {
				continue
			}

			id := len(sizes)
			size := 0
			queue := []engine.Coordinate{start}
			region[start] = id
			for len(queue) > 0 {
				current := queue[0]
				queue = queue[1:]
				size++

				for _, next := range current.Neighbors() {
					if !w.InBounds(next) || w.IsOccupied(next) {
						continue
					}
					if _, seen := region[next]; seen {
						continue
					}
					region[next] = id
					queue = append(queue, next)
				}
			}
			sizes = append(sizes, size)
		}
	}

	if len(sizes) < 2 {
		return nil
	}

	// earliest region wins ties
	largest := 0
	for id, size := range sizes {
		if size > sizes[largest] {
			largest = id
		}
	}

	var isolated []engine.Coordinate
	for x := 0; x < height; x++ {
		for y := 0; y < weight; y++ {
			c := engine.Coordinate{X: x, Y: y}
			if id, ok := region[c]; ok && id != largest {
				isolated = append(isolated, c)
			}
		}
	}
	return isolated
}

// Reachability searches from every entity of kind from to its nearest
// entity of kind to, by Manhattan distance, and describes each outcome
func Reachability(w *engine.World, from, to engine.Kind) []string {
	var sources, targets []engine.Coordinate
	for _, e := range w.Objects() {
		switch e.Kind() {
		case from:
			sources = append(sources, e.Coordinate())
		case to:
			targets = append(targets, e.Coordinate())
		}
	}
	if len(sources) == 0 || len(targets) == 0 {
		return nil
	}

	lines := make([]string, 0, len(sources))
	for _, source := range sources {
		nearest := targets[0]
		for _, t := range targets[1:] {
			if engine.ManhattanDistance(source, t) < engine.ManhattanDistance(source, nearest) {
				nearest = t
			}
		}

		path, err := w.SearchPath(source, nearest)
		switch {
		case err == nil:
			lines = append(lines, fmt.Sprintf("%s %s -> %s %s: %d steps",
				from, source, to, nearest, len(path)-1))
		case errors.Is(err, engine.ErrPathNotFound):
			lines = append(lines, fmt.Sprintf("%s %s -> %s %s: unreachable",
				from, source, to, nearest))
		default:
			lines = append(lines, fmt.Sprintf("%s %s -> %s %s: %v",
				from, source, to, nearest, err))
		}
	}
	return lines
}

// Report writes a human-readable summary of results and reports whether
// every layout was valid
func Report(out io.Writer, results []Result) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if !result.Valid {
			allValid = false
			fmt.Fprintln(out, "❌ INVALID")
			for _, err := range result.Errors {
				fmt.Fprintln(out, "  ❌ "+err)
			}
			continue
		}

		fmt.Fprintf(out, "✅ VALID (%s)\n", result.Name)
		for _, info := range result.Info {
			fmt.Fprintln(out, "  "+info)
		}
		if len(result.Counts) > 0 {
			kinds := make([]string, 0, len(result.Counts))
			for kind, n := range result.Counts {
				kinds = append(kinds, fmt.Sprintf("%s=%d", kind, n))
			}
			sort.Strings(kinds)
			fmt.Fprintln(out, "  Entities: "+strings.Join(kinds, " "))
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(out, "✅ All layouts are valid!")
	} else {
		fmt.Fprintln(out, "❌ Some layouts have errors")
	}
	return allValid
}
