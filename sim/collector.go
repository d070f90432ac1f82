package sim

import "fmt"

// ResultTree is the nested result structure produced by collectors.
type ResultTree map[string]any

// Collector is the instrumentation sink contract. The controller reports
// every observable effect to the attached collector; implementations pick
// what to measure.
type Collector interface {
	StartSession(timestamp float64, receiver NodeID, content ContentRef, labels []string, flowID int, deadline float64)
	EndSession(success bool, timestamp float64, flowID int)
	RequestHop(u, v NodeID, mainPath bool)
	ContentHop(u, v NodeID, mainPath bool)
	CacheHit(node NodeID)
	CacheMiss(node NodeID)
	ServerHit(node NodeID)
	StorageHit(node NodeID)
	StorageMiss(node NodeID)
	RequestLabels(node NodeID, labels []string)
	ExecuteService(flowID, service int, node NodeID, timestamp float64, isCloud bool)
	ReassignVM(node NodeID, serviceToReplace, serviceToAdd int)
	ReplacementIntervalOver(replacementInterval, timestamp float64)
	Results() ResultTree
}

// ValidCollectors is the set of recognized collector names.
var ValidCollectors = map[string]bool{"latency": true, "cache-hits": true}

// NewCollector creates a collector instance by name.
func NewCollector(name string, view *NetworkView, params map[string]any) (Collector, error) {
	switch name {
	case "latency":
		return newLatencyCollector(view), nil
	case "cache-hits":
		return newCacheHitCollector(view), nil
	default:
		return nil, fmt.Errorf("unknown collector %q", name)
	}
}

// CollectorProxy fans every notification out to all attached collectors
// and merges their result trees keyed by collector name.
type CollectorProxy struct {
	names      []string
	collectors []Collector
}

// NewCollectorProxy wraps the named collectors. Order is preserved so
// notifications arrive in a reproducible sequence.
func NewCollectorProxy(names []string, collectors []Collector) *CollectorProxy {
	return &CollectorProxy{names: names, collectors: collectors}
}

func (p *CollectorProxy) StartSession(timestamp float64, receiver NodeID, content ContentRef, labels []string, flowID int, deadline float64) {
	for _, c := range p.collectors {
		c.StartSession(timestamp, receiver, content, labels, flowID, deadline)
	}
}

func (p *CollectorProxy) EndSession(success bool, timestamp float64, flowID int) {
	for _, c := range p.collectors {
		c.EndSession(success, timestamp, flowID)
	}
}

func (p *CollectorProxy) RequestHop(u, v NodeID, mainPath bool) {
	for _, c := range p.collectors {
		c.RequestHop(u, v, mainPath)
	}
}

func (p *CollectorProxy) ContentHop(u, v NodeID, mainPath bool) {
	for _, c := range p.collectors {
		c.ContentHop(u, v, mainPath)
	}
}

func (p *CollectorProxy) CacheHit(node NodeID) {
	for _, c := range p.collectors {
		c.CacheHit(node)
	}
}

func (p *CollectorProxy) CacheMiss(node NodeID) {
	for _, c := range p.collectors {
		c.CacheMiss(node)
	}
}

func (p *CollectorProxy) ServerHit(node NodeID) {
	for _, c := range p.collectors {
		c.ServerHit(node)
	}
}

func (p *CollectorProxy) StorageHit(node NodeID) {
	for _, c := range p.collectors {
		c.StorageHit(node)
	}
}

func (p *CollectorProxy) StorageMiss(node NodeID) {
	for _, c := range p.collectors {
		c.StorageMiss(node)
	}
}

func (p *CollectorProxy) RequestLabels(node NodeID, labels []string) {
	for _, c := range p.collectors {
		c.RequestLabels(node, labels)
	}
}

func (p *CollectorProxy) ExecuteService(flowID, service int, node NodeID, timestamp float64, isCloud bool) {
	for _, c := range p.collectors {
		c.ExecuteService(flowID, service, node, timestamp, isCloud)
	}
}

func (p *CollectorProxy) ReassignVM(node NodeID, serviceToReplace, serviceToAdd int) {
	for _, c := range p.collectors {
		c.ReassignVM(node, serviceToReplace, serviceToAdd)
	}
}

func (p *CollectorProxy) ReplacementIntervalOver(replacementInterval, timestamp float64) {
	for _, c := range p.collectors {
		c.ReplacementIntervalOver(replacementInterval, timestamp)
	}
}

func (p *CollectorProxy) Results() ResultTree {
	tree := make(ResultTree, len(p.collectors))
	for i, c := range p.collectors {
		tree[p.names[i]] = c.Results()
	}
	return tree
}

// baseCollector absorbs the notifications a concrete collector does not
// measure, so collectors only implement what they care about.
type baseCollector struct{}

func (baseCollector) StartSession(float64, NodeID, ContentRef, []string, int, float64) {}
func (baseCollector) EndSession(bool, float64, int)                                   {}
func (baseCollector) RequestHop(NodeID, NodeID, bool)                                 {}
func (baseCollector) ContentHop(NodeID, NodeID, bool)                                 {}
func (baseCollector) CacheHit(NodeID)                                                 {}
func (baseCollector) CacheMiss(NodeID)                                                {}
func (baseCollector) ServerHit(NodeID)                                                {}
func (baseCollector) StorageHit(NodeID)                                               {}
func (baseCollector) StorageMiss(NodeID)                                              {}
func (baseCollector) RequestLabels(NodeID, []string)                                  {}
func (baseCollector) ExecuteService(int, int, NodeID, float64, bool)                  {}
func (baseCollector) ReassignVM(NodeID, int, int)                                     {}
func (baseCollector) ReplacementIntervalOver(float64, float64)                        {}

// latencyCollector measures session latency as the accumulated link delay
// of every main-path hop between session start and end.
type latencyCollector struct {
	baseCollector
	view *NetworkView

	inFlight  map[int]float64
	activeIDs []int
	latencies []float64
}

func newLatencyCollector(view *NetworkView) *latencyCollector {
	return &latencyCollector{view: view, inFlight: make(map[int]float64)}
}

func (lc *latencyCollector) StartSession(_ float64, _ NodeID, _ ContentRef, _ []string, flowID int, _ float64) {
	if _, ok := lc.inFlight[flowID]; !ok {
		lc.activeIDs = append(lc.activeIDs, flowID)
	}
	lc.inFlight[flowID] = 0
}

func (lc *latencyCollector) RequestHop(u, v NodeID, mainPath bool) {
	if mainPath {
		lc.addDelay(lc.view.LinkDelay(u, v))
	}
}

func (lc *latencyCollector) ContentHop(u, v NodeID, mainPath bool) {
	if mainPath {
		lc.addDelay(lc.view.LinkDelay(u, v))
	}
}

// addDelay attributes a hop to every in-flight session: hop notifications
// carry no flow id, so a single-flow-at-a-time driver (the usual case)
// sees exact accounting and concurrent flows see a shared-medium
// approximation.
func (lc *latencyCollector) addDelay(d float64) {
	for _, id := range lc.activeIDs {
		lc.inFlight[id] += d
	}
}

func (lc *latencyCollector) EndSession(success bool, _ float64, flowID int) {
	total, ok := lc.inFlight[flowID]
	if !ok {
		return
	}
	delete(lc.inFlight, flowID)
	for i, id := range lc.activeIDs {
		if id == flowID {
			lc.activeIDs = append(lc.activeIDs[:i], lc.activeIDs[i+1:]...)
			break
		}
	}
	if success {
		lc.latencies = append(lc.latencies, total)
	}
}

func (lc *latencyCollector) Results() ResultTree {
	mean := 0.0
	if len(lc.latencies) > 0 {
		sum := 0.0
		for _, l := range lc.latencies {
			sum += l
		}
		mean = sum / float64(len(lc.latencies))
	}
	return ResultTree{
		"MEAN":     mean,
		"SESSIONS": len(lc.latencies),
	}
}

// cacheHitCollector measures cache hit ratio, counting server hits as
// misses of the caching layer.
type cacheHitCollector struct {
	baseCollector
	view *NetworkView

	cacheHits   int
	cacheMisses int
	serverHits  int
	perNodeHits map[NodeID]int
}

func newCacheHitCollector(view *NetworkView) *cacheHitCollector {
	return &cacheHitCollector{view: view, perNodeHits: make(map[NodeID]int)}
}

func (cc *cacheHitCollector) CacheHit(node NodeID) {
	cc.cacheHits++
	cc.perNodeHits[node]++
}

func (cc *cacheHitCollector) CacheMiss(NodeID) {
	cc.cacheMisses++
}

func (cc *cacheHitCollector) ServerHit(NodeID) {
	cc.serverHits++
}

func (cc *cacheHitCollector) Results() ResultTree {
	total := cc.cacheHits + cc.serverHits
	ratio := 0.0
	if total > 0 {
		ratio = float64(cc.cacheHits) / float64(total)
	}
	perNode := make(map[string]int, len(cc.perNodeHits))
	for node, hits := range cc.perNodeHits {
		perNode[string(node)] = hits
	}
	return ResultTree{
		"MEAN":          ratio,
		"CACHE_HITS":    cc.cacheHits,
		"CACHE_MISSES":  cc.cacheMisses,
		"SERVER_HITS":   cc.serverHits,
		"PER_NODE_HITS": perNode,
	}
}
