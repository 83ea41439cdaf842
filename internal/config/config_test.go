package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
agent:
  model: test-model
  timeout: 45s
digest:
  maxItemsPerSection: 3
trends:
  periodType: month
  keywordsOnly: true
sections:
  - name: Papers
    scanner: arxiv
    categories:
      - name: cs.AI
        url: https://export.arxiv.org/list/cs.AI/pastweek
  - name: News
    query: hdc news
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(agentAPIKeyEnv, "secret")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(agentModelEnv, "")

	cfg := LoadFrom(path)

	if cfg.Agent.Model != "test-model" {
		t.Fatalf("unexpected model: %s", cfg.Agent.Model)
	}
	if cfg.Agent.Timeout != 45*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.Agent.Timeout)
	}
	if cfg.Agent.APIKey != "secret" {
		t.Fatalf("env override not applied")
	}
	if cfg.Agent.Endpoint == "" {
		t.Fatalf("default endpoint lost")
	}
	if cfg.Digest.MaxItemsPerSection != 3 || cfg.Digest.DaysBack != 1 {
		t.Fatalf("unexpected digest config: %+v", cfg.Digest)
	}
	if cfg.Trends.PeriodType != "month" || !cfg.Trends.KeywordsOnly || cfg.Trends.TopN != 15 {
		t.Fatalf("unexpected trends config: %+v", cfg.Trends)
	}
	if len(cfg.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(cfg.Sections))
	}
	if cfg.Sections[0].Scanner != ScannerArxiv || cfg.Sections[1].Scanner != ScannerAgent {
		t.Fatalf("unexpected scanners: %+v", cfg.Sections)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadFromMissingFileKeepsDefaults(t *testing.T) {
	cfg := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))

	if len(cfg.Sections) != 3 {
		t.Fatalf("expected default sections, got %d", len(cfg.Sections))
	}
	if len(cfg.Trends.Keywords) == 0 {
		t.Fatalf("expected default keywords")
	}
	if cfg.Scheduler.Location() == nil {
		t.Fatalf("expected timezone binding")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no sections", func(c *Config) { c.Sections = nil }},
		{"duplicate section", func(c *Config) { c.Sections = append(c.Sections, c.Sections[0]) }},
		{"agent section without query", func(c *Config) { c.Sections[0].Query = "" }},
		{"bad period", func(c *Config) { c.Trends.PeriodType = "day" }},
		{"zero topN", func(c *Config) { c.Trends.TopN = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
