// Package sim provides the runtime core of an edge-network caching and
// computation simulator.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - model.go: NetworkModel, the authoritative network state container
//   - view.go: NetworkView, the read-only query facade used by strategies
//   - controller.go: NetworkController, the only component allowed to mutate the model
//
// A strategy acts on the network by calling NetworkController methods, which
// update the NetworkModel; it observes the network through NetworkView
// methods, which never mutate. The controller is also the single point that
// reports effects to an attached Collector.
//
// # Architecture
//
// The engine (engine.go) builds the model/view/controller triad from a
// declarative Topology plus policy descriptors, attaches a CollectorProxy
// fanning out to all configured collectors, and replays a chronological
// workload of events through a pluggable Strategy, one event to completion
// at a time. Execution is single-threaded and cooperative; no locking is
// required, and callers must refetch Topology() after any mutating call.
//
// # Extension Points
//
// Pluggable components are consumed through small interfaces and name-keyed
// registries resolved at construction time:
//   - Cache: per-node cache replacement (cache.go)
//   - RepoStorage: per-node persistent storage admission (storage.go)
//   - Scheduler: computation-slot task ordering (compspot.go)
//   - Strategy: routing/caching decision logic (strategy.go)
//   - Collector: instrumentation sinks (collector.go)
//
// Unknown registry names fail at construction, never at first use.
package sim
