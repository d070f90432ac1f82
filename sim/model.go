package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// LinkKey identifies one directed link.
type LinkKey struct {
	U NodeID
	V NodeID
}

// Descriptor names a pluggable component and carries its policy-specific
// parameters.
type Descriptor struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

// NetworkConfig carries the non-topology attributes of a model.
type NetworkConfig struct {
	NumServices int
	Rate        float64
	Seed        int64
	// ShortestPaths, when non-nil, is used instead of recomputing all-pairs
	// shortest paths.
	ShortestPaths PathMap
}

// NetworkModel is the authoritative state of the simulated network: the
// topology graph, every derived index, and every per-node subsystem
// instance. It must never be edited by strategies directly, only through
// NetworkController.
type NetworkModel struct {
	topology      *Topology
	topologyDepth int
	shortestPaths PathMap

	linkType  map[LinkKey]string
	linkDelay map[LinkKey]float64

	// contentSource maps content to the ordered list of nodes persistently
	// holding it; sourceNode is its inverse. Order is first-registration
	// order: ClosestSource tie-breaks depend on it.
	contentSource map[ContentID][]NodeID
	sourceNode    map[NodeID][]ContentID
	contents      map[NodeID]map[ContentID]*Message

	// Label indices over stored content and over observed requests. The
	// two populations are distinct: a label can be popular in requests at a
	// node that stores nothing carrying it.
	nodeLabels         map[NodeID]*Multiset
	labelsSources      map[string]*Multiset
	requestLabels      map[NodeID]*Multiset
	requestLabelsNodes map[string]*Multiset

	cache       map[NodeID]Cache
	localCache  map[NodeID]Cache
	repoStorage map[NodeID]RepoStorage
	compSpot    map[NodeID]*ComputationSpot

	storageSize map[NodeID]float64
	compSize    map[NodeID]float64
	serviceSize map[NodeID]float64

	services  []*Service
	nServices int
	rate      float64

	eventQueue *EventQueue

	replicationHops      map[ContentID]int
	replicationOverheads map[ContentID]float64
	replicationsFrom     map[NodeID]int
	replicationsTo       map[NodeID]int

	// Fault-injection stashes. disconnectedNeighbors records, per removed
	// node, exactly the neighbors whose links were detached as part of that
	// removal, so RestoreNode never resurrects a link that was removed
	// independently beforehand.
	removedNodes          map[NodeID]*Stack
	disconnectedNeighbors map[NodeID]map[NodeID]bool
	removedLinks          map[LinkKey]Link
	removedSources        map[NodeID][]ContentID
	removedSourcePos      map[NodeID]map[ContentID]int
	removedCaches         map[NodeID]Cache
	removedLocalCaches    map[NodeID]Cache
}

// NewNetworkModel compiles a declarative topology plus policy descriptors
// into a fully wired runtime state. Construction is deterministic given
// identical topology, policies, and seed, and performs no event-driven
// work.
func NewNetworkModel(topo *Topology, cachePolicy, repoPolicy Descriptor, schedPolicy string, cfg NetworkConfig) (*NetworkModel, error) {
	if topo == nil {
		return nil, fmt.Errorf("topology must not be nil")
	}
	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}
	if !ValidSchedPolicies[schedPolicy] {
		return nil, fmt.Errorf("unknown scheduling policy %q", schedPolicy)
	}

	m := &NetworkModel{
		topology:              topo,
		linkType:              make(map[LinkKey]string),
		linkDelay:             make(map[LinkKey]float64),
		contentSource:         make(map[ContentID][]NodeID),
		sourceNode:            make(map[NodeID][]ContentID),
		contents:              make(map[NodeID]map[ContentID]*Message),
		nodeLabels:            make(map[NodeID]*Multiset),
		labelsSources:         make(map[string]*Multiset),
		requestLabels:         make(map[NodeID]*Multiset),
		requestLabelsNodes:    make(map[string]*Multiset),
		cache:                 make(map[NodeID]Cache),
		localCache:            make(map[NodeID]Cache),
		repoStorage:           make(map[NodeID]RepoStorage),
		compSpot:              make(map[NodeID]*ComputationSpot),
		storageSize:           make(map[NodeID]float64),
		compSize:              make(map[NodeID]float64),
		serviceSize:           make(map[NodeID]float64),
		nServices:             cfg.NumServices,
		rate:                  cfg.Rate,
		eventQueue:            NewEventQueue(),
		replicationHops:       make(map[ContentID]int),
		replicationOverheads:  make(map[ContentID]float64),
		replicationsFrom:      make(map[NodeID]int),
		replicationsTo:        make(map[NodeID]int),
		removedNodes:          make(map[NodeID]*Stack),
		disconnectedNeighbors: make(map[NodeID]map[NodeID]bool),
		removedLinks:          make(map[LinkKey]Link),
		removedSources:        make(map[NodeID][]ContentID),
		removedSourcePos:      make(map[NodeID]map[ContentID]int),
		removedCaches:         make(map[NodeID]Cache),
		removedLocalCaches:    make(map[NodeID]Cache),
	}

	// Link attribute maps, mirrored in both directions for the undirected
	// topology.
	for _, l := range topo.Links {
		m.linkType[LinkKey{l.U, l.V}] = l.Type
		m.linkType[LinkKey{l.V, l.U}] = l.Type
		m.linkDelay[LinkKey{l.U, l.V}] = l.Delay
		m.linkDelay[LinkKey{l.V, l.U}] = l.Delay
	}

	// Single pass over all topology nodes, in sorted order.
	cacheSize := make(map[NodeID]int)
	for _, node := range topo.NodeIDs() {
		stack := topo.Nodes[node]
		if stack.HasRole(RoleRouter) || stack.HasRole(RoleSource) {
			if stack.Depth > m.topologyDepth {
				m.topologyDepth = stack.Depth
			}
		}
		switch {
		case stack.HasRole(RoleRouter):
			if stack.CacheSize != 0 {
				cacheSize[node] = stack.CacheSize
			}
			if stack.StorageSize != 0 {
				m.storageSize[node] = stack.StorageSize
			}
			if stack.ComputationSize != 0 {
				m.compSize[node] = stack.ComputationSize
			}
			if stack.ServiceSize != 0 {
				m.serviceSize[node] = stack.ServiceSize
			}
			// A hybrid edge-repository node holds persistent content
			// alongside its router role.
			if stack.HasRole(RoleSource) && len(stack.Contents) > 0 {
				m.registerSourceContents(node, stack.Contents)
			}
		case stack.HasRole(RoleSource):
			// A pure source models an unbounded origin.
			m.storageSize[node] = infSize
			m.compSize[node] = infSize
			m.serviceSize[node] = infSize
			if len(stack.Contents) > 0 {
				m.registerSourceContents(node, stack.Contents)
			}
		}
	}

	// Degenerate cache sizes are clamped rather than rejected so topology
	// generators rounding down to zero still run.
	clamped := false
	for node, size := range cacheSize {
		if size < 1 {
			cacheSize[node] = 1
			clamped = true
		}
	}
	if clamped {
		logrus.Warnf("some content caches have size < 1; clamping them to 1 and running anyway")
	}

	for node, size := range cacheSize {
		c, err := NewCache(cachePolicy.Name, size)
		if err != nil {
			return nil, fmt.Errorf("cache at node %s: %w", node, err)
		}
		m.cache[node] = c
	}

	for node, size := range m.storageSize {
		var seeded []*Message
		if byID, ok := m.contents[node]; ok {
			seeded = make([]*Message, 0, len(byID))
			for _, id := range m.sourceNode[node] {
				seeded = append(seeded, byID[id])
			}
		}
		repo, err := NewRepoStorage(repoPolicy.Name, node, seeded, size)
		if err != nil {
			return nil, fmt.Errorf("repository at node %s: %w", node, err)
		}
		m.repoStorage[node] = repo
	}

	m.services = GenerateServices(cfg.NumServices, topo, cfg.Seed)

	for node, size := range m.compSize {
		stack := topo.Nodes[node]
		isCloud := stack.IsCloud || (stack.HasRole(RoleSource) && !stack.HasRole(RoleRouter))
		cs, err := NewComputationSpot(node, size, m.serviceSize[node], m.services, schedPolicy, isCloud)
		if err != nil {
			return nil, fmt.Errorf("computation spot at node %s: %w", node, err)
		}
		m.compSpot[node] = cs
	}

	if cfg.ShortestPaths != nil {
		m.shortestPaths = SymmetrifyPaths(cfg.ShortestPaths)
	} else {
		m.shortestPaths = AllPairsShortestPaths(topo, m.linkDelay)
	}

	return m, nil
}

// infSize marks unbounded storage/computation at pure source nodes.
const infSize = float64(1 << 62)

// registerSourceContents records node as a persistent origin for each
// message: content/source indices, label indices, and a replication hop
// count of one per originated item.
func (m *NetworkModel) registerSourceContents(node NodeID, msgs []*Message) {
	byID, ok := m.contents[node]
	if !ok {
		byID = make(map[ContentID]*Message)
		m.contents[node] = byID
	}
	for _, msg := range msgs {
		byID[msg.ID] = msg
		m.replicationHops[msg.ID] = 1
		m.sourceNode[node] = append(m.sourceNode[node], msg.ID)
		m.contentSource[msg.ID] = append(m.contentSource[msg.ID], node)
		for _, label := range msg.Labels {
			m.addNodeLabel(node, label)
		}
	}
}

// addNodeLabel folds one stored-content label into both label indices.
func (m *NetworkModel) addNodeLabel(node NodeID, label string) {
	if _, ok := m.nodeLabels[node]; !ok {
		m.nodeLabels[node] = NewMultiset()
	}
	m.nodeLabels[node].Add(label)
	if _, ok := m.labelsSources[label]; !ok {
		m.labelsSources[label] = NewMultiset()
	}
	m.labelsSources[label].Add(string(node))
}

// addRequestLabel folds one request label into both popularity indices.
func (m *NetworkModel) addRequestLabel(node NodeID, label string) {
	if _, ok := m.requestLabels[node]; !ok {
		m.requestLabels[node] = NewMultiset()
	}
	m.requestLabels[node].Add(label)
	if _, ok := m.requestLabelsNodes[label]; !ok {
		m.requestLabelsNodes[label] = NewMultiset()
	}
	m.requestLabelsNodes[label].Add(string(node))
}

// recomputePaths refreshes the all-pairs shortest paths after a topology
// mutation.
func (m *NetworkModel) recomputePaths() {
	m.shortestPaths = AllPairsShortestPaths(m.topology, m.linkDelay)
}

// isPureSource reports whether node is a source without a router role: the
// "cloud" origins that label discovery queries skip.
func (m *NetworkModel) isPureSource(node NodeID) bool {
	stack, ok := m.topology.Nodes[node]
	if !ok {
		stack, ok = m.removedNodes[node]
		if !ok {
			return false
		}
	}
	return stack.HasRole(RoleSource) && !stack.HasRole(RoleRouter)
}

// isSource reports whether node carries the source role.
func (m *NetworkModel) isSource(node NodeID) bool {
	stack, ok := m.topology.Nodes[node]
	return ok && stack.HasRole(RoleSource)
}
