// Package config loads coverdrift's YAML configuration, following the
// XDG base directory spec for default file locations.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coverdrift/coverdrift/internal/planner"
)

type Config struct {
	Intensity string                  `yaml:"intensity"`
	Engines   EnginesConfig           `yaml:"engines"`
	Session   SessionConfig           `yaml:"session"`
	Server    ServerConfig            `yaml:"server"`
	Wordlists string                  `yaml:"wordlists_dir"`
	Persist   PersistConfig           `yaml:"persist"`
}

// EnginesConfig carries each producer's enable flag and, for the ones that
// need one, an endpoint to hit.
type EnginesConfig struct {
	Browse  EngineEntry `yaml:"browse"`
	Search  EngineEntry `yaml:"search"`
	DNS     EngineEntry `yaml:"dns"`
	AdClick EngineEntry `yaml:"adclick"`
}

type EngineEntry struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// SessionConfig mirrors planner.SessionConfig's YAML-configurable fields,
// plus max_concurrent_sessions which belongs to the engine registry.
type SessionConfig struct {
	MaxConcurrentSessions int     `yaml:"max_concurrent_sessions"`
	SessionLengthMean     float64 `yaml:"session_length_mean"`
	ObsessionProbability  float64 `yaml:"obsession_probability"`
}

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AuthToken      string `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type PersistConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Load reads and validates a config file at path. Validation failures are
// §7 error kind (e): fatal at startup, non-enumerated intensity or
// negative numerics are rejected here rather than downstream.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.Persist.Dir == "" {
		cfg.Persist.Dir = filepath.Join(defaultStateDir(), "coverdrift")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads config from path, or returns the default config if
// the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaultConfig(), nil
	}
	return Load(path)
}

// Validate enforces §6's configuration invariants.
func (c *Config) Validate() error {
	if !planner.Intensity(c.Intensity).Valid() {
		return fmt.Errorf("invalid intensity %q: must be one of low, medium, high, paranoid", c.Intensity)
	}
	if c.Session.MaxConcurrentSessions < 1 {
		return fmt.Errorf("max_concurrent_sessions must be >= 1, got %d", c.Session.MaxConcurrentSessions)
	}
	if c.Session.SessionLengthMean <= 0 {
		return fmt.Errorf("session_length_mean must be positive, got %v", c.Session.SessionLengthMean)
	}
	if c.Session.ObsessionProbability < 0 || c.Session.ObsessionProbability > 1 {
		return fmt.Errorf("obsession_probability must be in [0,1], got %v", c.Session.ObsessionProbability)
	}
	return nil
}

// PlannerSessionConfig converts the loaded config into planner.SessionConfig,
// keeping the duration-bound and obsession-range defaults the planner
// itself defines (those aren't part of §6's configuration surface).
func (c *Config) PlannerSessionConfig() planner.SessionConfig {
	sc := planner.DefaultSessionConfig()
	sc.MeanDurationMin = c.Session.SessionLengthMean
	sc.ObsessionProbability = c.Session.ObsessionProbability
	return sc
}

func defaultConfig() *Config {
	return &Config{
		Intensity: "medium",
		Engines: EnginesConfig{
			Browse: EngineEntry{Enabled: true, Endpoint: "https://example.com"},
			Search: EngineEntry{Enabled: true, Endpoint: "https://example.com/search?q=%s"},
			DNS:    EngineEntry{Enabled: true},
		},
		Session: SessionConfig{
			MaxConcurrentSessions: 2,
			SessionLengthMean:     15,
			ObsessionProbability:  0.05,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8747,
		},
		Persist: PersistConfig{
			Enabled: true,
			Dir:     filepath.Join(defaultStateDir(), "coverdrift"),
		},
	}
}

func defaultStateDir() string {
	if value := os.Getenv("XDG_STATE_HOME"); value != "" {
		return value
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "state")
}

func defaultConfigDir() string {
	if value := os.Getenv("XDG_CONFIG_HOME"); value != "" {
		return value
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// DefaultConfigPath returns the default XDG-compliant config file path.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "coverdrift", "config.yaml")
}

// Diff compares two configs and returns human-readable descriptions of
// what changed, in the same spirit as the reference config-reload diffing:
// only sections safe to apply without a restart are compared.
func Diff(old, new *Config) []string {
	var changes []string

	if old.Intensity != new.Intensity {
		changes = append(changes, fmt.Sprintf("intensity: %s -> %s", old.Intensity, new.Intensity))
	}
	if old.Engines.Browse.Enabled != new.Engines.Browse.Enabled {
		changes = append(changes, fmt.Sprintf("engines.browse.enabled: %v -> %v", old.Engines.Browse.Enabled, new.Engines.Browse.Enabled))
	}
	if old.Engines.Search.Enabled != new.Engines.Search.Enabled {
		changes = append(changes, fmt.Sprintf("engines.search.enabled: %v -> %v", old.Engines.Search.Enabled, new.Engines.Search.Enabled))
	}
	if old.Engines.DNS.Enabled != new.Engines.DNS.Enabled {
		changes = append(changes, fmt.Sprintf("engines.dns.enabled: %v -> %v", old.Engines.DNS.Enabled, new.Engines.DNS.Enabled))
	}
	if old.Engines.AdClick.Enabled != new.Engines.AdClick.Enabled {
		changes = append(changes, fmt.Sprintf("engines.adclick.enabled: %v -> %v", old.Engines.AdClick.Enabled, new.Engines.AdClick.Enabled))
	}
	if old.Session.MaxConcurrentSessions != new.Session.MaxConcurrentSessions {
		changes = append(changes, fmt.Sprintf("session.max_concurrent_sessions: %d -> %d", old.Session.MaxConcurrentSessions, new.Session.MaxConcurrentSessions))
	}
	if old.Session.SessionLengthMean != new.Session.SessionLengthMean {
		changes = append(changes, fmt.Sprintf("session.session_length_mean: %v -> %v", old.Session.SessionLengthMean, new.Session.SessionLengthMean))
	}
	if old.Session.ObsessionProbability != new.Session.ObsessionProbability {
		changes = append(changes, fmt.Sprintf("session.obsession_probability: %v -> %v", old.Session.ObsessionProbability, new.Session.ObsessionProbability))
	}

	return changes
}
