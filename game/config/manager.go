package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/gridworld/game/engine"
	"github.com/wricardo/gridworld/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = engine.ErrInvalidConfig
)

// PreferredDefault is the layout used as default when present
const PreferredDefault = "meadow"

// layoutExtensions are tried in order when resolving a layout name
var layoutExtensions = []string{".yaml", ".yml", ".json"}

// Manager handles world layout loading and caching
type Manager struct {
	configDir     string
	defaultName   string
	defaultConfig *engine.WorldConfig
	configs       map[string]*engine.WorldConfig
	mu            sync.RWMutex
}

// NewManager creates a new layout manager over configDir
func NewManager(configDir string) (*Manager, error) {
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir:   configDir,
		defaultName: PreferredDefault,
		configs:     make(map[string]*engine.WorldConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// Dir returns the directory layouts are read from
func (m *Manager) Dir() string {
	return m.configDir
}

// layoutID strips any known extension from a layout name
func layoutID(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range layoutExtensions {
		if ext == known {
			return strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
	return name
}

func isLayoutFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range layoutExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

func validateName(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: invalid layout name %q", ErrInvalidConfig, id)
	}
	return nil
}

// resolve finds the file backing a layout id
func (m *Manager) resolve(id string) (string, error) {
	for _, ext := range layoutExtensions {
		path := filepath.Join(m.configDir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", ErrConfigNotFound
}

// LoadConfig loads a layout by name. The extension is optional.
func (m *Manager) LoadConfig(name string) (*engine.WorldConfig, error) {
	id := layoutID(name)
	if err := validateName(id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id)
}

// loadLocked reads a layout from disk; m.mu must be held for writing
func (m *Manager) loadLocked(id string) (*engine.WorldConfig, error) {
	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	path, err := m.resolve(id)
	if err != nil {
		return nil, err
	}

	config, err := engine.LoadWorldConfig(path)
	if err != nil {
		return nil, err
	}

	m.configs[id] = config
	return config, nil
}

// ListConfigs returns information about all valid layouts, sorted by id.
// Invalid files are skipped.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*service.ConfigInfo

	for _, entry := range entries {
		if entry.IsDir() || !isLayoutFile(entry.Name()) {
			continue
		}

		id := layoutID(entry.Name())
		if seen[id] {
			continue
		}

		config, err := m.LoadConfig(id)
		if err != nil {
			continue
		}
		seen[id] = true

		configs = append(configs, service.NewConfigInfo(entry.Name(), id, config))
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default layout
func (m *Manager) GetDefault() *engine.WorldConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default layout by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = layoutID(name)
	m.defaultConfig = config
	return nil
}

// RefreshCache drops all cached layouts and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.WorldConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// Invalidate drops a single cached layout
func (m *Manager) Invalidate(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.configs, layoutID(name))
}

// Count returns the number of cached layouts
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}

// loadDefaultConfig picks the default layout: the configured name, else the
// first valid layout, else a built-in empty world
func (m *Manager) loadDefaultConfig() error {
	m.mu.RLock()
	name := m.defaultName
	m.mu.RUnlock()

	config, err := m.LoadConfig(name)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil {
			return listErr
		}
		if len(configs) == 0 {
			config = engine.DefaultWorldConfig()
		} else if config, err = m.LoadConfig(configs[0].ConfigID); err != nil {
			config = engine.DefaultWorldConfig()
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig validates a layout and writes it as YAML.
// Layouts already stored as .yml keep that extension.
func (m *Manager) SaveConfig(name string, config *engine.WorldConfig) error {
	id := layoutID(name)
	if err := validateName(id); err != nil {
		return err
	}
	if err := engine.ValidateWorldConfig(config); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Join(m.configDir, id+".yaml")
	if existing, err := m.resolve(id); err == nil && strings.EqualFold(filepath.Ext(existing), ".yml") {
		path = existing
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.configs[id] = config
	return nil
}
