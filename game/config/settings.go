package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings holds server settings read from a TOML file
type Settings struct {
	Server  ServerSettings  `toml:"server"`
	World   WorldSettings   `toml:"world"`
	Session SessionSettings `toml:"session"`
	Logging LoggingSettings `toml:"logging"`
	Ngrok   NgrokSettings   `toml:"ngrok"`
}

type ServerSettings struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr is the listen address
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL is the address local clients such as the MCP proxy use
func (s ServerSettings) BaseURL() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, s.Port)
}

type WorldSettings struct {
	LayoutsDir    string `toml:"layouts_dir"`
	DefaultLayout string `toml:"default_layout"`
	SearchBudget  int    `toml:"search_budget"` // applied to layouts without their own budget, 0 = unbounded
	Watch         bool   `toml:"watch"`
}

type SessionSettings struct {
	TTL             time.Duration `toml:"ttl"`
	CleanupInterval time.Duration `toml:"cleanup_interval"`
}

type LoggingSettings struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type NgrokSettings struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"authtoken"`
	Domain    string `toml:"domain"`
}

// Load reads settings from path on top of the defaults
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault reads path when it exists and falls back to the defaults
func LoadOrDefault(path string) (*Settings, error) {
	if path == "" {
		return Defaults(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Defaults(), nil
	}
	return Load(path)
}

// Defaults returns the built-in settings
func Defaults() *Settings {
	return &Settings{
		Server: ServerSettings{
			Host: "0.0.0.0",
			Port: 8080,
		},
		World: WorldSettings{
			LayoutsDir:    "configs",
			DefaultLayout: PreferredDefault,
			Watch:         true,
		},
		Session: SessionSettings{
			TTL:             30 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks value ranges
func (s *Settings) Validate() error {
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", s.Server.Port)
	}
	if s.World.LayoutsDir == "" {
		return fmt.Errorf("world.layouts_dir is required")
	}
	if s.World.SearchBudget < 0 {
		return fmt.Errorf("world.search_budget must not be negative: %d", s.World.SearchBudget)
	}
	if s.Logging.Format != "json" && s.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", s.Logging.Format)
	}
	if s.Ngrok.Enabled && s.Ngrok.AuthToken == "" {
		return fmt.Errorf("ngrok.authtoken is required when ngrok is enabled")
	}
	return nil
}

// ApplyEnv overrides settings from GRIDWORLD_* environment variables.
// NGROK_AUTHTOKEN and NGROK_DOMAIN are honoured as well.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
		return nil
	}
	flag := func(key string, dst *bool) error {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
		return nil
	}

	str("GRIDWORLD_HOST", &s.Server.Host)
	if err := num("GRIDWORLD_PORT", &s.Server.Port); err != nil {
		return err
	}
	str("GRIDWORLD_LAYOUTS_DIR", &s.World.LayoutsDir)
	str("GRIDWORLD_DEFAULT_LAYOUT", &s.World.DefaultLayout)
	if err := num("GRIDWORLD_SEARCH_BUDGET", &s.World.SearchBudget); err != nil {
		return err
	}
	if err := flag("GRIDWORLD_WATCH", &s.World.Watch); err != nil {
		return err
	}
	if err := dur("GRIDWORLD_SESSION_TTL", &s.Session.TTL); err != nil {
		return err
	}
	if err := dur("GRIDWORLD_SESSION_CLEANUP_INTERVAL", &s.Session.CleanupInterval); err != nil {
		return err
	}
	str("GRIDWORLD_LOG_LEVEL", &s.Logging.Level)
	str("GRIDWORLD_LOG_FORMAT", &s.Logging.Format)
	if err := flag("GRIDWORLD_NGROK", &s.Ngrok.Enabled); err != nil {
		return err
	}
	str("NGROK_AUTHTOKEN", &s.Ngrok.AuthToken)
	str("NGROK_DOMAIN", &s.Ngrok.Domain)

	return nil
}
