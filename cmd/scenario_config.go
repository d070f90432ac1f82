package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vananle/IcarusRepoSEND/sim"
)

// PolicyBundle is the on-disk experiment description. Every field is a
// pointer so that absent keys can be distinguished from zero values and
// filled with defaults during validation.
type PolicyBundle struct {
	Strategy       *sim.Descriptor           `yaml:"strategy"`
	CachePolicy    *sim.Descriptor           `yaml:"cache_policy"`
	RepoPolicy     *sim.Descriptor           `yaml:"repo_policy"`
	SchedPolicy    *sim.Descriptor           `yaml:"sched_policy"`
	Collectors     map[string]map[string]any `yaml:"collectors"`
	WarmupStrategy *sim.Descriptor           `yaml:"warmup_strategy"`
	NumServices    *int                      `yaml:"num_services"`
	Rate           *float64                  `yaml:"rate"`
}

// LoadPolicyBundle reads and parses a YAML policy bundle.
func LoadPolicyBundle(path string) (*PolicyBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bundle PolicyBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("unable to parse policy bundle %s: %w", path, err)
	}
	return &bundle, nil
}

// Validate fills defaults for absent sections and rejects unknown policy
// names before any model state is built.
func (b *PolicyBundle) Validate() error {
	if b.Strategy == nil {
		b.Strategy = &sim.Descriptor{Name: "shortest-path-lce"}
	}
	if b.CachePolicy == nil {
		b.CachePolicy = &sim.Descriptor{Name: "lru"}
	}
	if b.RepoPolicy == nil {
		b.RepoPolicy = &sim.Descriptor{Name: "basic"}
	}
	if b.SchedPolicy == nil {
		b.SchedPolicy = &sim.Descriptor{Name: "EDF"}
	}
	if b.Collectors == nil {
		b.Collectors = map[string]map[string]any{"latency": {}}
	}
	if !sim.ValidStrategies[b.Strategy.Name] {
		return fmt.Errorf("unknown strategy: %s", b.Strategy.Name)
	}
	if !sim.ValidCachePolicies[b.CachePolicy.Name] {
		return fmt.Errorf("unknown cache policy: %s", b.CachePolicy.Name)
	}
	if !sim.ValidRepoPolicies[b.RepoPolicy.Name] {
		return fmt.Errorf("unknown repo policy: %s", b.RepoPolicy.Name)
	}
	if !sim.ValidSchedPolicies[b.SchedPolicy.Name] {
		return fmt.Errorf("unknown scheduler policy: %s", b.SchedPolicy.Name)
	}
	for name := range b.Collectors {
		if !sim.ValidCollectors[name] {
			return fmt.Errorf("unknown collector: %s", name)
		}
	}
	if b.WarmupStrategy != nil && !sim.ValidStrategies[b.WarmupStrategy.Name] {
		return fmt.Errorf("unknown warm-up strategy: %s", b.WarmupStrategy.Name)
	}
	return nil
}

// ExperimentConfig converts a validated bundle into engine configuration.
func (b *PolicyBundle) ExperimentConfig() sim.ExperimentConfig {
	cfg := sim.ExperimentConfig{
		Strategy:    *b.Strategy,
		CachePolicy: *b.CachePolicy,
		RepoPolicy:  *b.RepoPolicy,
		SchedPolicy: *b.SchedPolicy,
		Collectors:  b.Collectors,
	}
	if b.WarmupStrategy != nil {
		cfg.WarmupStrategy = *b.WarmupStrategy
	}
	if b.NumServices != nil {
		cfg.Network.NumServices = *b.NumServices
	}
	if b.Rate != nil {
		cfg.Network.Rate = *b.Rate
	}
	return cfg
}
