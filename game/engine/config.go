package engine

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WorldConfig describes a named world layout.
// Row index is X, rune index within a row is Y.
type WorldConfig struct {
	Name         string            `json:"name" yaml:"name"`
	Description  string            `json:"description" yaml:"description"`
	Rows         []string          `json:"rows" yaml:"rows"`
	Legend       map[string]string `json:"legend,omitempty" yaml:"legend,omitempty"`
	SearchBudget int               `json:"search_budget,omitempty" yaml:"search_budget,omitempty"`
}

// Height is the number of rows
func (c *WorldConfig) Height() int {
	return len(c.Rows)
}

// Weight is the length of a row in runes
func (c *WorldConfig) Weight() int {
	if len(c.Rows) == 0 {
		return 0
	}
	return len([]rune(c.Rows[0]))
}

// legend returns the configured legend or the default one
func (c *WorldConfig) legend() map[string]string {
	if len(c.Legend) == 0 {
		return DefaultLegend()
	}
	return c.Legend
}

// ValidateWorldConfig validates a world layout for correctness
func ValidateWorldConfig(config *WorldConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config cannot be nil", ErrInvalidConfig)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if len(config.Rows) == 0 {
		return fmt.Errorf("%w: rows must not be empty", ErrInvalidConfig)
	}
	if config.SearchBudget < 0 {
		return fmt.Errorf("%w: search_budget must not be negative, got %d", ErrInvalidConfig, config.SearchBudget)
	}

	height, weight := config.Height(), config.Weight()
	if height > MaxWorldSize || weight > MaxWorldSize {
		return fmt.Errorf("%w: world must be at most %dx%d, got %dx%d",
			ErrInvalidConfig, MaxWorldSize, MaxWorldSize, height, weight)
	}

	legend := config.legend()
	for glyph, value := range legend {
		if len([]rune(glyph)) != 1 {
			return fmt.Errorf("%w: legend key %q must be a single character", ErrInvalidConfig, glyph)
		}
		kind := Kind(value)
		if kind == KindEmpty {
			continue
		}
		if _, ok := kinds[kind]; !ok {
			return fmt.Errorf("%w: legend[%q] names unknown kind %q", ErrInvalidConfig, glyph, value)
		}
	}

	for x, row := range config.Rows {
		runes := []rune(row)
		if len(runes) != weight {
			return fmt.Errorf("%w: row %d must have %d characters, got %d",
				ErrInvalidConfig, x, weight, len(runes))
		}
		for y, r := range runes {
			if _, ok := legend[string(r)]; !ok {
				return fmt.Errorf("%w: invalid character '%c' at (%d,%d)", ErrInvalidConfig, r, x, y)
			}
		}
	}

	return nil
}

// BuildWorld creates a world populated from a validated layout
func BuildWorld(config *WorldConfig) (*World, error) {
	if err := ValidateWorldConfig(config); err != nil {
		return nil, err
	}

	w, err := NewWorld(config.Height(), config.Weight(), WithSearchBudget(config.SearchBudget))
	if err != nil {
		return nil, err
	}

	legend := config.legend()
	for x, row := range config.Rows {
		for y, r := range []rune(row) {
			kind := Kind(legend[string(r)])
			if kind == KindEmpty {
				continue
			}
			e, err := NewEntity(kind, Coordinate{X: x, Y: y})
			if err != nil {
				return nil, err
			}
			if _, err := w.AddObject(e); err != nil {
				return nil, err
			}
		}
	}

	return w, nil
}

// WorldConfigFromWorld captures the current contents of w as a layout
func WorldConfigFromWorld(name, description string, w *World) *WorldConfig {
	return &WorldConfig{
		Name:         name,
		Description:  description,
		Rows:         w.Render(),
		Legend:       DefaultLegend(),
		SearchBudget: w.SearchBudget(),
	}
}

// LoadWorldConfig loads a layout from a YAML or JSON file
func LoadWorldConfig(filename string) (*WorldConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := ParseWorldConfig(data)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", filename, err)
	}
	return config, nil
}

// ParseWorldConfig decodes and validates a layout document.
// JSON documents are accepted since YAML is a superset.
func ParseWorldConfig(data []byte) (*WorldConfig, error) {
	var config WorldConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := ValidateWorldConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// DefaultWorldConfig is used when no layout files are available
func DefaultWorldConfig() *WorldConfig {
	return &WorldConfig{
		Name:        "default",
		Description: "Empty 5x5 world",
		Rows: []string{
			".....",
			".....",
			".....",
			".....",
			".....",
		},
	}
}

// RenderPath overlays a path onto rendered rows, marking path cells with
// '*' and the target with 'X'. Cells outside the grid are ignored.
func RenderPath(rows []string, path []Coordinate, target Coordinate) []string {
	grid := make([][]rune, len(rows))
	for i, row := range rows {
		grid[i] = []rune(row)
	}

	mark := func(c Coordinate, r rune) {
		if c.X >= 0 && c.X < len(grid) && c.Y >= 0 && c.Y < len(grid[c.X]) {
			grid[c.X][c.Y] = r
		}
	}
	for _, c := range path {
		mark(c, '*')
	}
	mark(target, 'X')

	out := make([]string, len(grid))
	for i, row := range grid {
		out[i] = string(row)
	}
	return out
}

// FormatRows joins rendered rows with newlines
func FormatRows(rows []string) string {
	return strings.Join(rows, "\n")
}
