package sim

import (
	"fmt"
	"math"
)

// NetworkView is the read-only query facade layered over a NetworkModel.
// Strategies and collectors use it to learn about shortest paths, link
// characteristics, content/label placement, and per-node capabilities.
//
// Every method is a pure function of the current model contents. Queries
// against unknown nodes or content fail soft: they return zero values
// rather than errors, since strategies routinely probe capabilities that
// only some nodes have. Construction, by contrast, fails fast.
type NetworkView struct {
	model *NetworkModel
}

// NewNetworkView wraps a model. A nil model is a programming error.
func NewNetworkView(model *NetworkModel) (*NetworkView, error) {
	if model == nil {
		return nil, fmt.Errorf("model must not be nil")
	}
	return &NetworkView{model: model}, nil
}

// ContentSource returns the nodes persistently storing the referenced
// content, in registration order. A label-only reference resolves through
// label discovery instead.
func (v *NetworkView) ContentSource(ref ContentRef) []NodeID {
	if ref.ByLabelsOnly() {
		return v.LabelLocations(ref.Labels)
	}
	return v.model.contentSource[ref.ID]
}

// ContentLocations returns every node currently holding the referenced
// content: persistent sources plus nodes whose cache has it. Cache holders
// come first, in sorted node order; sources follow in registration order.
func (v *NetworkView) ContentLocations(ref ContentRef) []NodeID {
	seen := make(map[NodeID]bool)
	var out []NodeID
	for _, node := range sortedCacheNodes(v.model.cache) {
		if v.model.cache[node].Has(ref.ID) && !seen[node] {
			seen[node] = true
			out = append(out, node)
		}
	}
	for _, node := range v.ContentSource(ref) {
		if !seen[node] {
			seen[node] = true
			out = append(out, node)
		}
	}
	return out
}

// LabelLocations returns the nodes matched by LabelsSources, in that
// multiset's scan order.
func (v *NetworkView) LabelLocations(labels []string) []NodeID {
	var out []NodeID
	for _, k := range v.LabelsSources(labels).Keys() {
		out = append(out, NodeID(k))
	}
	return out
}

// ClosestSource returns the source of the referenced content nearest to
// node by hop count, together with whether that source also holds the
// content in a (local) cache. Ties resolve to the source encountered first
// in the content's registration order. ok is false when the content has no
// reachable source.
func (v *NetworkView) ClosestSource(node NodeID, ref ContentRef) (res NodeID, cached bool, ok bool) {
	sources := v.ContentSource(ref)
	for _, s := range sources {
		if s == node {
			return node, v.cachedAt(node, ref.ID), true
		}
	}
	bestHops := math.MaxInt
	for _, s := range sources {
		path := v.ShortestPath(node, s)
		if path == nil {
			continue
		}
		if len(path) < bestHops {
			bestHops = len(path)
			res = s
			ok = true
		}
	}
	if !ok {
		return "", false, false
	}
	return res, v.cachedAt(res, ref.ID), true
}

func (v *NetworkView) cachedAt(node NodeID, id ContentID) bool {
	if !v.HasCache(node) {
		return v.LocalCacheLookup(node, id)
	}
	return v.CacheLookup(node, id) || v.LocalCacheLookup(node, id)
}

// LabelsSources returns, for nodes whose stored content carries every one
// of the given labels, the aggregate label-match count. The filter is
// conjunctive: a node failing any single label is excluded even if it
// matches the rest. Pure source (cloud) nodes are excluded.
func (v *NetworkView) LabelsSources(labels []string) *Multiset {
	nodes := NewMultiset()
	for _, label := range labels {
		nodes.Merge(v.model.labelsSources[label])
	}
	for _, k := range append([]string(nil), nodes.Keys()...) {
		node := NodeID(k)
		if v.model.isPureSource(node) {
			nodes.Remove(k)
			continue
		}
		stored := v.model.nodeLabels[node]
		for _, label := range labels {
			if stored == nil || !stored.Has(label) {
				nodes.Remove(k)
				break
			}
		}
	}
	return nodes
}

// LabelsRequests is the request-popularity counterpart of LabelsSources:
// the conjunctive aggregation over labels observed in requests at each
// node.
func (v *NetworkView) LabelsRequests(labels []string) *Multiset {
	nodes := NewMultiset()
	for _, label := range labels {
		nodes.Merge(v.model.requestLabelsNodes[label])
	}
	for _, k := range append([]string(nil), nodes.Keys()...) {
		seen := v.model.requestLabels[NodeID(k)]
		for _, label := range labels {
			if seen == nil || !seen.Has(label) {
				nodes.Remove(k)
				break
			}
		}
	}
	return nodes
}

// AllLabelsMainSource returns the storage node whose stored content most
// frequently matches the given labels. The improvement test is non-strict:
// a later candidate with an equal count overrides an earlier one.
func (v *NetworkView) AllLabelsMainSource(labels []string) (NodeID, bool) {
	currentCount := 0
	var auth NodeID
	found := false
	matches := v.LabelsSources(labels)
	for _, k := range matches.Keys() {
		node := NodeID(k)
		if matches.Count(k) < currentCount {
			continue
		}
		if v.model.isPureSource(node) {
			// An origin wins the slot but never raises the bar for
			// storage nodes after it.
			auth = node
			found = true
			continue
		}
		if _, ok := v.model.repoStorage[node]; !ok {
			continue
		}
		auth = node
		found = true
		currentCount = matches.Count(k)
	}
	return auth, found
}

// AllLabelsMostRequests returns the storage-capable node that has seen the
// most requests matching the given labels, with the same non-strict
// improvement test as AllLabelsMainSource.
func (v *NetworkView) AllLabelsMostRequests(labels []string) (NodeID, bool) {
	currentCount := 0
	var auth NodeID
	found := false
	requests := v.LabelsRequests(labels)
	for _, k := range requests.Keys() {
		node := NodeID(k)
		if _, ok := v.model.storageSize[node]; !ok {
			continue
		}
		if requests.Count(k) >= currentCount && v.HasStorageCapability(node) {
			auth = node
			found = true
			currentCount = requests.Count(k)
		}
	}
	return auth, found
}

// StorageLabelsClosestService ranks label-matching storage nodes by match
// frequency with a non-strict improvement test. The path argument is
// accepted for signature symmetry with the repo-ranking queries and does
// not affect the result.
func (v *NetworkView) StorageLabelsClosestService(labels []string, _ []NodeID) (NodeID, bool) {
	currentCount := 0
	var auth NodeID
	found := false
	matches := v.LabelsSources(labels)
	for _, k := range matches.Keys() {
		node := NodeID(k)
		if _, ok := v.model.repoStorage[node]; !ok {
			continue
		}
		if matches.Count(k) >= currentCount {
			auth = node
			found = true
			currentCount = matches.Count(k)
		}
	}
	return auth, found
}

// ServiceLabelsClosestRepo returns the repository node holding a processed
// message matching the labels that is closest to node by hop count. The
// improvement test is strict: the first minimal candidate wins and a later
// equally distant one never overrides it. When onPath is true only
// candidates lying on the supplied path qualify; otherwise on-path
// candidates are preferred over off-path ones at equal standing.
func (v *NetworkView) ServiceLabelsClosestRepo(labels []string, node NodeID, path []NodeID, onPath bool) (inPath bool, auth NodeID, found bool) {
	currentHops := math.MaxInt
	for _, k := range v.LabelsSources(labels).Keys() {
		n := NodeID(k)
		if v.model.isPureSource(n) {
			continue
		}
		repo, ok := v.model.repoStorage[n]
		if !ok {
			continue
		}
		msg, ok := repo.HasMessage("", labels)
		if !ok || !msg.Processed() {
			continue
		}
		sp := v.ShortestPath(node, n)
		if sp == nil {
			continue
		}
		hops := len(sp)
		switch {
		case onPath:
			if nodeInPath(n, path) && hops < currentHops {
				inPath = true
				auth = n
				found = true
				currentHops = hops
			}
		case nodeInPath(n, path) && hops < currentHops:
			inPath = true
			auth = n
			found = true
			currentHops = hops
		case hops < currentHops:
			inPath = false
			auth = n
			found = true
			currentHops = hops
		}
	}
	return inPath, auth, found
}

// MostServicesLabelsClosestRepo restricts candidates to the repositories
// holding the strictly largest number of processed label-matching messages,
// then picks the closest of those by hop count with a strict improvement
// test. onPath has the same meaning as in ServiceLabelsClosestRepo.
func (v *NetworkView) MostServicesLabelsClosestRepo(labels []string, node NodeID, path []NodeID, onPath bool) (inPath bool, auth NodeID, found bool) {
	counts := NewMultiset()
	maxProc := 0
	for _, k := range v.LabelsSources(labels).Keys() {
		n := NodeID(k)
		if v.model.isPureSource(n) {
			continue
		}
		repo, ok := v.model.repoStorage[n]
		if !ok {
			continue
		}
		nProc := len(repo.GetProcessedMessages(labels))
		if nProc == 0 {
			continue
		}
		counts.AddN(k, nProc)
		if nProc > maxProc {
			maxProc = nProc
		}
	}

	currentHops := math.MaxInt
	for _, k := range counts.Keys() {
		if counts.Count(k) < maxProc {
			continue
		}
		n := NodeID(k)
		sp := v.ShortestPath(node, n)
		if sp == nil {
			continue
		}
		hops := len(sp)
		switch {
		case onPath:
			if nodeInPath(n, path) && hops < currentHops {
				inPath = true
				auth = n
				found = true
				currentHops = hops
			}
		case nodeInPath(n, path) && hops < currentHops:
			inPath = true
			auth = n
			found = true
			currentHops = hops
		case hops < currentHops:
			inPath = false
			auth = n
			found = true
			currentHops = hops
		}
	}
	return inPath, auth, found
}

func nodeInPath(n NodeID, path []NodeID) bool {
	for _, p := range path {
		if p == n {
			return true
		}
	}
	return false
}

// ShortestPath returns the shortest path from s to t, origin and
// destination included, nil when t is unreachable from s.
func (v *NetworkView) ShortestPath(s, t NodeID) []NodeID {
	return v.model.shortestPaths[s][t]
}

// AllPairsShortestPaths returns the full symmetrized path map. Callers
// must treat it as read-only.
func (v *NetworkView) AllPairsShortestPaths() PathMap {
	return v.model.shortestPaths
}

// PathDelay sums the per-hop link delays along the shortest path from s to
// t. It is zero when s == t or when no path exists.
func (v *NetworkView) PathDelay(s, t NodeID) float64 {
	path := v.ShortestPath(s, t)
	delay := 0.0
	for i := 0; i+1 < len(path); i++ {
		delay += v.LinkDelay(path[i], path[i+1])
	}
	return delay
}

// LinkType returns the type of link (u, v), empty when no such link.
func (v *NetworkView) LinkType(u, t NodeID) string {
	return v.model.linkType[LinkKey{u, t}]
}

// LinkDelay returns the delay of link (u, v), zero when no such link.
func (v *NetworkView) LinkDelay(u, t NodeID) float64 {
	return v.model.linkDelay[LinkKey{u, t}]
}

// Cluster returns the cluster a node belongs to; ok is false when the
// topology is not clustered or the node is unknown.
func (v *NetworkView) Cluster(node NodeID) (int, bool) {
	stack, ok := v.model.topology.Nodes[node]
	if !ok || stack.Cluster == 0 {
		return 0, false
	}
	return stack.Cluster, true
}

// HasCache reports whether node has a coordinated content cache.
func (v *NetworkView) HasCache(node NodeID) bool {
	_, ok := v.model.cache[node]
	return ok
}

// HasComputationSpot reports whether node hosts a computation spot.
func (v *NetworkView) HasComputationSpot(node NodeID) bool {
	_, ok := v.model.compSpot[node]
	return ok
}

// HasService reports whether node can run the given service: cloud spots
// run everything, edge spots need a live VM instance.
func (v *NetworkView) HasService(node NodeID, service int) bool {
	cs, ok := v.model.compSpot[node]
	if !ok {
		return false
	}
	return cs.IsCloud() || cs.VMInstances(service) > 0
}

// HasStorageCapability reports whether node has a repository with nonzero
// capacity.
func (v *NetworkView) HasStorageCapability(node NodeID) bool {
	repo, ok := v.model.repoStorage[node]
	return ok && repo.GetTotalStorageSpace() > 0
}

// CacheLookup checks node's cache for content without touching replacement
// state. Strategies retrieving content must use
// NetworkController.GetContent instead; this is for collectors and
// placement queries. False when the node has no cache.
func (v *NetworkView) CacheLookup(node NodeID, id ContentID) bool {
	c, ok := v.model.cache[node]
	return ok && c.Has(id)
}

// LocalCacheLookup is CacheLookup against the uncoordinated local cache
// partition.
func (v *NetworkView) LocalCacheLookup(node NodeID, id ContentID) bool {
	c, ok := v.model.localCache[node]
	return ok && c.Has(id)
}

// CacheDump lists the contents of node's cache, nil when it has none.
func (v *NetworkView) CacheDump(node NodeID) []ContentID {
	c, ok := v.model.cache[node]
	if !ok {
		return nil
	}
	return c.Dump()
}

// CacheNodes returns the nodes with caching capability, sorted.
func (v *NetworkView) CacheNodes() []NodeID {
	return sortedCacheNodes(v.model.cache)
}

// CacheSizes maps caching nodes to their capacity.
func (v *NetworkView) CacheSizes() map[NodeID]int {
	out := make(map[NodeID]int, len(v.model.cache))
	for node, c := range v.model.cache {
		out[node] = c.MaxLen()
	}
	return out
}

// StorageNodes returns the nodes with repositories, sorted.
func (v *NetworkView) StorageNodes() []NodeID {
	ids := make([]NodeID, 0, len(v.model.repoStorage))
	for node := range v.model.repoStorage {
		ids = append(ids, node)
	}
	sortNodeIDs(ids)
	return ids
}

// StorageSizes maps storage nodes to their capacity.
func (v *NetworkView) StorageSizes() map[NodeID]float64 {
	out := make(map[NodeID]float64, len(v.model.storageSize))
	for node, size := range v.model.storageSize {
		out[node] = size
	}
	return out
}

// RepoStorage returns the repository at node, nil when it has none.
func (v *NetworkView) RepoStorage(node NodeID) RepoStorage {
	return v.model.repoStorage[node]
}

// CompSpot returns the computation spot at node; ok is false when it has
// none.
func (v *NetworkView) CompSpot(node NodeID) (*ComputationSpot, bool) {
	cs, ok := v.model.compSpot[node]
	return cs, ok
}

// CompSpotNodes returns the nodes hosting computation spots, sorted.
func (v *NetworkView) CompSpotNodes() []NodeID {
	ids := make([]NodeID, 0, len(v.model.compSpot))
	for node := range v.model.compSpot {
		ids = append(ids, node)
	}
	sortNodeIDs(ids)
	return ids
}

// Services returns the service population. Callers must treat it as
// read-only.
func (v *NetworkView) Services() []*Service {
	return v.model.services
}

// NumServices is the size of the service population.
func (v *NetworkView) NumServices() int {
	return v.model.nServices
}

// RequestRate is the aggregate request rate the model was built with.
func (v *NetworkView) RequestRate() float64 {
	return v.model.rate
}

// EventQueue exposes the shared event heap so strategies can inspect
// pending sub-events. Scheduling goes through NetworkController.AddEvent.
func (v *NetworkView) EventQueue() *EventQueue {
	return v.model.eventQueue
}

// Topology returns the current topology. Callers must not modify it and
// must not retain it across mutating controller calls; refetch instead.
func (v *NetworkView) Topology() *Topology {
	return v.model.topology
}

// ReplicationsDestination counts replications received by node.
func (v *NetworkView) ReplicationsDestination(node NodeID) int {
	return v.model.replicationsTo[node]
}

// ReplicationsRequests counts replications originated by node.
func (v *NetworkView) ReplicationsRequests(node NodeID) int {
	return v.model.replicationsFrom[node]
}

// ReplicationOverhead returns the accumulated replication cost of a
// content item.
func (v *NetworkView) ReplicationOverhead(id ContentID) float64 {
	return v.model.replicationOverheads[id]
}

// ReplicationHops returns the current hop counter of a content item.
func (v *NetworkView) ReplicationHops(id ContentID) int {
	return v.model.replicationHops[id]
}

func sortedCacheNodes(caches map[NodeID]Cache) []NodeID {
	ids := make([]NodeID, 0, len(caches))
	for node := range caches {
		ids = append(ids, node)
	}
	sortNodeIDs(ids)
	return ids
}
