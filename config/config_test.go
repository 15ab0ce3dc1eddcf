package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if len(cfg.Agents) != 4 {
		t.Fatalf("default roster size = %d, want 4", len(cfg.Agents))
	}
	if cfg.Swarm.MaxWorkers != 3 {
		t.Errorf("max_workers = %d, want 3", cfg.Swarm.MaxWorkers)
	}
	if cfg.Provider.Type != "ollama" {
		t.Errorf("provider type = %q, want ollama", cfg.Provider.Type)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q, want info", cfg.LogLevel)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	raw := `
log_level: debug
provider:
  type: openai
  model: gpt-4o-mini
  timeout: 30s
swarm:
  max_workers: 5
agents:
  - id: solo
    name: Solo
`
	path := filepath.Join(t.TempDir(), "coldfront.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Provider.Type != "openai" || cfg.Provider.Model != "gpt-4o-mini" {
		t.Errorf("provider = %+v", cfg.Provider)
	}
	if cfg.Provider.Timeout.Std() != 30*time.Second {
		t.Errorf("timeout = %s, want 30s", cfg.Provider.Timeout.Std())
	}
	if cfg.Swarm.MaxWorkers != 5 {
		t.Errorf("max_workers = %d, want 5", cfg.Swarm.MaxWorkers)
	}
	if len(cfg.Agents) != 1 || cfg.Agents[0].ID != "solo" {
		t.Errorf("agents = %+v", cfg.Agents)
	}
	// Untouched fields keep their defaults.
	if cfg.DataDir != "./data" {
		t.Errorf("data_dir = %q", cfg.DataDir)
	}
}

func TestLoad_RejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"unknown provider": "provider:\n  type: quantum\n",
		"negative workers": "swarm:\n  max_workers: -1\n",
		"empty agents":     "agents: []\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
