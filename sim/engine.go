package sim

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// interimResultsEvery is how many status-1 events pass between interim
// results snapshots.
const interimResultsEvery = 500

// ExperimentConfig bundles everything one experiment run needs beyond the
// topology and workload.
type ExperimentConfig struct {
	Network     NetworkConfig
	Strategy    Descriptor
	CachePolicy Descriptor
	RepoPolicy  Descriptor
	SchedPolicy Descriptor
	// Collectors maps collector names to their parameters.
	Collectors map[string]map[string]any
	// WarmupStrategy is accepted for trace compatibility; the loop does
	// not currently run a warm-up phase.
	WarmupStrategy Descriptor
}

// ExecExperiment runs one full experiment: it builds the network model,
// view and controller, attaches a proxy fanning out to all configured
// collectors, instantiates the strategy, replays the workload event by
// event, and returns the aggregated result tree.
func ExecExperiment(topo *Topology, workload Workload, cfg ExperimentConfig) (ResultTree, error) {
	if workload == nil {
		return nil, fmt.Errorf("workload must not be nil")
	}
	if cfg.SchedPolicy.Name == "" {
		cfg.SchedPolicy = Descriptor{Name: "EDF"}
	}
	netCfg := cfg.Network
	if netCfg.NumServices == 0 {
		netCfg.NumServices = workload.NumServices()
	}
	if netCfg.Rate == 0 {
		netCfg.Rate = workload.Rate()
	}

	model, err := NewNetworkModel(topo, cfg.CachePolicy, cfg.RepoPolicy, cfg.SchedPolicy.Name, netCfg)
	if err != nil {
		return nil, fmt.Errorf("building network model: %w", err)
	}
	view, err := NewNetworkView(model)
	if err != nil {
		return nil, err
	}
	controller, err := NewNetworkController(model)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Collectors))
	for name := range cfg.Collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	collectors := make([]Collector, 0, len(names))
	for _, name := range names {
		collector, err := NewCollector(name, view, cfg.Collectors[name])
		if err != nil {
			return nil, err
		}
		collectors = append(collectors, collector)
	}
	proxy := NewCollectorProxy(names, collectors)
	controller.AttachCollector(proxy)

	strategy, err := NewStrategy(cfg.Strategy.Name, view, controller, cfg.Strategy.Params)
	if err != nil {
		return nil, err
	}
	if cfg.WarmupStrategy.Name != "" {
		if _, err := NewStrategy(cfg.WarmupStrategy.Name, view, controller, cfg.WarmupStrategy.Params); err != nil {
			return nil, fmt.Errorf("warm-up strategy: %w", err)
		}
	}

	runID := uuid.NewString()
	logrus.Infof("starting experiment %s: strategy=%s cache=%s repo=%s sched=%s",
		runID, cfg.Strategy.Name, cfg.CachePolicy.Name, cfg.RepoPolicy.Name, cfg.SchedPolicy.Name)

	// Events are processed strictly one at a time, to completion; the
	// workload dictates primary order.
	n := 0
	for {
		t, e, ok := workload.Next()
		if !ok {
			break
		}
		strategy.ProcessEvent(t, e)
		if e.Status == 1 {
			n++
			if n%interimResultsEvery == 0 {
				// Interim snapshot; side effect on collectors only.
				proxy.Results()
			}
		}
	}

	results := proxy.Results()
	results["RUN_ID"] = runID
	logrus.Infof("experiment %s complete after %d status-1 events", runID, n)
	return results, nil
}
