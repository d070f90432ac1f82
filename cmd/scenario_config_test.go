package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestLoadPolicyBundle_ValidYAML(t *testing.T) {
	yaml := `
strategy:
  name: shortest-path-lce
cache_policy:
  name: fifo
repo_policy:
  name: basic
sched_policy:
  name: FIFO
collectors:
  latency: {}
  cache-hits: {}
num_services: 10
rate: 2.5
`
	path := writeTempYAML(t, yaml)
	bundle, err := LoadPolicyBundle(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bundle.Validate(); err != nil {
		t.Fatalf("bundle should validate: %v", err)
	}

	cfg := bundle.ExperimentConfig()
	if cfg.CachePolicy.Name != "fifo" {
		t.Errorf("cache policy = %q, want fifo", cfg.CachePolicy.Name)
	}
	if cfg.SchedPolicy.Name != "FIFO" {
		t.Errorf("sched policy = %q, want FIFO", cfg.SchedPolicy.Name)
	}
	if len(cfg.Collectors) != 2 {
		t.Errorf("collectors = %v, want 2 entries", cfg.Collectors)
	}
	if cfg.Network.NumServices != 10 || cfg.Network.Rate != 2.5 {
		t.Errorf("network config = %+v", cfg.Network)
	}
}

// TestPolicyBundle_DefaultsForAbsentSections tests that an empty bundle
// validates into the default experiment configuration
func TestPolicyBundle_DefaultsForAbsentSections(t *testing.T) {
	path := writeTempYAML(t, "{}\n")
	bundle, err := LoadPolicyBundle(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := bundle.Validate(); err != nil {
		t.Fatalf("empty bundle should validate: %v", err)
	}

	cfg := bundle.ExperimentConfig()
	if cfg.Strategy.Name != "shortest-path-lce" {
		t.Errorf("strategy = %q, want shortest-path-lce", cfg.Strategy.Name)
	}
	if cfg.CachePolicy.Name != "lru" || cfg.RepoPolicy.Name != "basic" {
		t.Errorf("policies = %q/%q", cfg.CachePolicy.Name, cfg.RepoPolicy.Name)
	}
	if cfg.SchedPolicy.Name != "EDF" {
		t.Errorf("sched policy = %q, want EDF", cfg.SchedPolicy.Name)
	}
	if _, ok := cfg.Collectors["latency"]; !ok {
		t.Error("default collectors should include latency")
	}
	if cfg.WarmupStrategy.Name != "" {
		t.Errorf("warm-up strategy = %q, want empty", cfg.WarmupStrategy.Name)
	}
}

func TestPolicyBundle_RejectsUnknownNames(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"strategy", "strategy: {name: oracle}\n"},
		{"cache policy", "cache_policy: {name: arc}\n"},
		{"repo policy", "repo_policy: {name: quota}\n"},
		{"sched policy", "sched_policy: {name: round-robin}\n"},
		{"collector", "collectors:\n  throughput: {}\n"},
		{"warm-up strategy", "warmup_strategy: {name: oracle}\n"},
	}
	for _, tc := range cases {
		bundle, err := LoadPolicyBundle(writeTempYAML(t, tc.yaml))
		if err != nil {
			t.Fatalf("%s: unexpected parse error: %v", tc.name, err)
		}
		if err := bundle.Validate(); err == nil {
			t.Errorf("%s: unknown name should not validate", tc.name)
		}
	}
}

func TestLoadPolicyBundle_BadInput(t *testing.T) {
	if _, err := LoadPolicyBundle(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
	if _, err := LoadPolicyBundle(writeTempYAML(t, "strategy: [unterminated\n")); err == nil {
		t.Error("malformed YAML should error")
	}
}
