// Package config defines the Coldfront application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/coldfront/agent"
)

// Config is the top-level Coldfront configuration.
type Config struct {
	DataDir   string         `json:"data_dir" yaml:"data_dir"`
	Workspace string         `json:"workspace" yaml:"workspace"`
	LogLevel  string         `json:"log_level" yaml:"log_level"`
	Provider  ProviderConfig `json:"provider" yaml:"provider"`
	Swarm     SwarmConfig    `json:"swarm" yaml:"swarm"`
	Tools     ToolsConfig    `json:"tools" yaml:"tools"`
	Agents    []agent.Agent  `json:"agents" yaml:"agents"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	Type    string   `json:"type" yaml:"type"` // "ollama", "openai", "mock"
	BaseURL string   `json:"base_url,omitempty" yaml:"base_url"`
	APIKey  string   `json:"api_key,omitempty" yaml:"api_key"`
	Model   string   `json:"model,omitempty" yaml:"model"`
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// SwarmConfig controls scheduling.
type SwarmConfig struct {
	MaxWorkers           int      `json:"max_workers" yaml:"max_workers"`
	OverdueCheckInterval Duration `json:"overdue_check_interval" yaml:"overdue_check_interval"`
}

// ToolsConfig controls the tool runtime.
type ToolsConfig struct {
	Denylist []string `json:"denylist,omitempty" yaml:"denylist"` // extra entries on top of the built-in list
	Browser  bool     `json:"browser" yaml:"browser"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:   "./data",
		Workspace: "./workspace",
		LogLevel:  "info",
		Provider: ProviderConfig{
			Type:    "ollama",
			Timeout: Duration(120 * time.Second),
		},
		Swarm: SwarmConfig{
			MaxWorkers:           3,
			OverdueCheckInterval: Duration(60 * time.Second),
		},
		Agents: []agent.Agent{
			{ID: "frost", Name: "Frost", Specialty: "research and analysis"},
			{ID: "drift", Name: "Drift", Specialty: "writing and documentation"},
			{ID: "boreas", Name: "Boreas", Specialty: "coding and automation"},
			{ID: "aurora", Name: "Aurora", Specialty: "planning and review"},
		},
	}
}

// Load reads a YAML config file and returns the parsed configuration.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("agents list is empty")
	}
	if c.Swarm.MaxWorkers < 0 {
		return fmt.Errorf("swarm.max_workers must not be negative")
	}
	switch c.Provider.Type {
	case "", "ollama", "openai", "mock":
	default:
		return fmt.Errorf("unknown provider type %q", c.Provider.Type)
	}
	return nil
}
