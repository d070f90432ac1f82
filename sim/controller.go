package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Fault-injection misuse errors. Removing an element twice, or restoring
// one that was never removed, is caller error and is rejected instead of
// silently corrupting the stash maps.
var (
	ErrUnknownNode    = errors.New("node does not exist")
	ErrUnknownLink    = errors.New("link does not exist")
	ErrAlreadyRemoved = errors.New("element already removed")
	ErrNotRemoved     = errors.New("element not currently removed")
)

// NetworkController executes operations on the network model on behalf of
// a strategy. It is the only component permitted to mutate the model, and
// the single point reporting effects to an attached Collector. A nil
// collector is legal and silently skips reporting.
type NetworkController struct {
	model     *NetworkModel
	collector Collector
	sessions  map[int]*Session
}

// NewNetworkController wraps a model. A nil model is a programming error.
func NewNetworkController(model *NetworkModel) (*NetworkController, error) {
	if model == nil {
		return nil, fmt.Errorf("model must not be nil")
	}
	return &NetworkController{
		model:    model,
		sessions: make(map[int]*Session),
	}, nil
}

// AttachCollector attaches the sink all effects are reported to.
func (c *NetworkController) AttachCollector(collector Collector) {
	c.collector = collector
}

// DetachCollector detaches the current sink.
func (c *NetworkController) DetachCollector() {
	c.collector = nil
}

// Session returns the live session for a flow, nil when none.
func (c *NetworkController) Session(flowID int) *Session {
	return c.sessions[flowID]
}

// StartSession starts the retrieval of a content for a flow. Starting a
// session under a flow id that already has one overwrites the old session;
// replays hitting this hazard are reported at debug level. Request-label
// feedback is enabled for the session when the request carries labels.
func (c *NetworkController) StartSession(timestamp float64, receiver NodeID, content ContentRef, labels []string, log bool, flowID int, deadline float64) {
	if labels == nil {
		labels = []string{}
	}
	if _, ok := c.sessions[flowID]; ok {
		logrus.Debugf("session for flow %d overwritten at t=%g", flowID, timestamp)
	}
	c.sessions[flowID] = &Session{
		StartTime: timestamp,
		Receiver:  receiver,
		Content:   content,
		Labels:    labels,
		Log:       log,
		Feedback:  len(labels) > 0,
		Deadline:  deadline,
	}
	if c.collector != nil {
		c.collector.StartSession(timestamp, receiver, content, labels, flowID, deadline)
	}
}

// EndSession closes a flow's session and drops its entry.
func (c *NetworkController) EndSession(success bool, timestamp float64, flowID int) {
	if c.collector != nil {
		c.collector.EndSession(success, timestamp, flowID)
	}
	delete(c.sessions, flowID)
}

// ForwardRequestPath forwards a request of flowID from s to t, hop by hop.
// When path is nil the current shortest path is used. mainPath marks hops
// on the path that will lead to a content hit, for correct latency
// accounting in multicast cases.
func (c *NetworkController) ForwardRequestPath(flowID int, s, t NodeID, path []NodeID, mainPath bool) {
	if path == nil {
		path = c.model.shortestPaths[s][t]
	}
	for i := 0; i+1 < len(path); i++ {
		c.ForwardRequestHop(flowID, path[i], path[i+1], mainPath)
	}
}

// ForwardContentPath forwards content of flowID from u to v, hop by hop.
func (c *NetworkController) ForwardContentPath(flowID int, u, t NodeID, path []NodeID, mainPath bool) {
	if path == nil {
		path = c.model.shortestPaths[u][t]
	}
	for i := 0; i+1 < len(path); i++ {
		c.ForwardContentHop(flowID, path[i], path[i+1], mainPath)
	}
}

// ForwardRequestHop forwards a request over link u -> v. The hop is
// reported when the session logs; request-label popularity at the
// traversed node is updated when the session has feedback enabled.
func (c *NetworkController) ForwardRequestHop(flowID int, u, t NodeID, mainPath bool) {
	sess := c.sessions[flowID]
	if c.collector != nil && sess != nil && sess.Log {
		c.collector.RequestHop(u, t, mainPath)
	}
	if sess != nil && sess.Feedback {
		c.addRequestLabels(t, sess.Labels)
		if c.collector != nil && sess.Log {
			c.collector.RequestLabels(t, sess.Labels)
		}
	}
}

// ForwardContentHop forwards content over link u -> v.
func (c *NetworkController) ForwardContentHop(flowID int, u, t NodeID, mainPath bool) {
	sess := c.sessions[flowID]
	if c.collector != nil && sess != nil && sess.Log {
		c.collector.ContentHop(u, t, mainPath)
	}
}

// AddRequestLabelsToNode records the labels of a service request in node
// s's request-popularity indices.
func (c *NetworkController) AddRequestLabelsToNode(s NodeID, labels []string) {
	c.addRequestLabels(s, labels)
}

func (c *NetworkController) addRequestLabels(node NodeID, labels []string) {
	for _, label := range labels {
		c.model.addRequestLabel(node, label)
	}
}

// HasRequestLabels reports whether node s has seen requests carrying every
// one of the given labels.
func (c *NetworkController) HasRequestLabels(s NodeID, labels []string) bool {
	seen := c.model.requestLabels[s]
	if seen == nil {
		return false
	}
	for _, label := range labels {
		if !seen.Has(label) {
			return false
		}
	}
	return true
}

// AddRequestLabelsToStorage consumes the request-label counts of node s
// for the given labels, optionally promoting them to stored-content
// labels. This models a repository admitting content it had only seen
// requested until now.
func (c *NetworkController) AddRequestLabelsToStorage(s NodeID, labels []string, add bool) {
	seen := c.model.requestLabels[s]
	if seen == nil {
		return
	}
	for _, label := range labels {
		if !seen.Has(label) {
			continue
		}
		if add {
			c.model.addNodeLabel(s, label)
		}
		seen.Remove(label)
	}
}

// AddMessageToStorage admits a message into node s's repository and
// registers s as a holder in the content-source index, so placement
// queries observe the admission immediately.
func (c *NetworkController) AddMessageToStorage(s NodeID, msg *Message) error {
	repo, ok := c.model.repoStorage[s]
	if !ok {
		return fmt.Errorf("node %s has no repository", s)
	}
	if err := repo.AddToStoredMessages(msg); err != nil {
		return err
	}
	if _, known := c.model.contentSource[msg.ID]; known {
		holders := c.model.contentSource[msg.ID]
		present := false
		for _, n := range holders {
			if n == s {
				present = true
				break
			}
		}
		if !present {
			c.model.contentSource[msg.ID] = append(holders, s)
		}
		byID, ok := c.model.contents[s]
		if !ok {
			byID = make(map[ContentID]*Message)
			c.model.contents[s] = byID
		}
		byID[msg.ID] = msg
	}
	return nil
}

// AddStorageLabelsToNode folds a stored message's labels into node s's
// stored-content label indices.
func (c *NetworkController) AddStorageLabelsToNode(s NodeID, msg *Message) {
	for _, label := range msg.Labels {
		c.model.addNodeLabel(s, label)
	}
}

// Replicate accounts one replication from node s to node d.
func (c *NetworkController) Replicate(s, d NodeID) {
	c.model.replicationsFrom[s]++
	c.model.replicationsTo[d]++
}

// AddReplicationHops increments the hop counter of a content item.
func (c *NetworkController) AddReplicationHops(msg *Message) {
	c.model.replicationHops[msg.ID]++
}

// RemoveReplicationHops resets the hop counter of a content item.
func (c *NetworkController) RemoveReplicationHops(msg *Message) {
	c.model.replicationHops[msg.ID] = 0
}

// ReplicationOverheadUpdate accumulates the replication cost of a content
// item: the current hop count times the message size, added on every call.
func (c *NetworkController) ReplicationOverheadUpdate(msg *Message) {
	c.model.replicationOverheads[msg.ID] += float64(c.model.replicationHops[msg.ID]) * msg.Size
}

// PutContent stores content in node's coordinated cache per the caching
// policy. It returns the evicted item, if the insertion displaced one, and
// reports nothing: placement is not an observable effect. A node without a
// cache ignores the put.
func (c *NetworkController) PutContent(node NodeID, id ContentID) (ContentID, bool) {
	cache, ok := c.model.cache[node]
	if !ok {
		return "", false
	}
	return cache.Put(id)
}

// GetContent retrieves content from node. A cache hit or miss is reported;
// on a miss, and on a node without a cache, an origin source always serves
// the content and reports a server hit.
func (c *NetworkController) GetContent(flowID int, node NodeID, id ContentID) bool {
	if cache, ok := c.model.cache[node]; ok {
		hit := cache.Get(id)
		if c.collector != nil {
			if hit {
				c.collector.CacheHit(node)
			} else {
				c.collector.CacheMiss(node)
			}
		}
		if hit {
			return true
		}
	}
	if c.model.isSource(node) {
		sess := c.sessions[flowID]
		if c.collector != nil && sess != nil && sess.Log {
			c.collector.ServerHit(node)
		}
		return true
	}
	return false
}

// RemoveContent removes the current session's content from node's cache,
// reporting whether it was cached.
func (c *NetworkController) RemoveContent(flowID int, node NodeID) bool {
	sess := c.sessions[flowID]
	cache, ok := c.model.cache[node]
	if sess == nil || !ok {
		return false
	}
	return cache.Remove(sess.Content.ID)
}

// HasMessage checks node's repository for a message by id or labels,
// reporting a storage hit or miss. A node without a repository falls back
// to origin-source status, which always hits and reports a server hit.
func (c *NetworkController) HasMessage(node NodeID, id ContentID, labels []string) (*Message, bool) {
	if repo, ok := c.model.repoStorage[node]; ok && (id != "" || len(labels) > 0) {
		msg, hit := repo.HasMessage(id, labels)
		if c.collector != nil {
			if hit {
				c.collector.StorageHit(node)
			} else {
				c.collector.StorageMiss(node)
			}
		}
		return msg, hit
	}
	if c.model.isSource(node) {
		if c.collector != nil {
			c.collector.ServerHit(node)
		}
		if byID, ok := c.model.contents[node]; ok {
			if msg, ok := byID[id]; ok {
				return msg, true
			}
		}
		return nil, true
	}
	return nil, false
}

// AddEvent schedules an event on the shared heap. A non-finite timestamp
// is a caller bug and is rejected.
func (c *NetworkController) AddEvent(e *Event) error {
	if math.IsInf(e.Time, 0) || math.IsNaN(e.Time) {
		return fmt.Errorf("invalid event time %g: must be finite", e.Time)
	}
	c.model.eventQueue.Schedule(e)
	return nil
}

// ReplacementIntervalOver reports that a service replacement interval
// elapsed at the given timestamp.
func (c *NetworkController) ReplacementIntervalOver(replacementInterval, timestamp float64) {
	if c.collector != nil {
		c.collector.ReplacementIntervalOver(replacementInterval, timestamp)
	}
}

// ExecuteService reports the execution of a service at a node.
func (c *NetworkController) ExecuteService(flowID, service int, node NodeID, timestamp float64, isCloud bool) {
	if c.collector != nil {
		c.collector.ExecuteService(flowID, service, node, timestamp, isCloud)
	}
}

// CompleteTask finishes a task at its computation spot and reports the
// service execution. Cloud spots only report; edge spots also pop their
// scheduler.
func (c *NetworkController) CompleteTask(task *Task, timestamp float64) error {
	cs, ok := c.model.compSpot[task.Node]
	if !ok {
		return fmt.Errorf("node %s has no computation spot", task.Node)
	}
	if cs.IsCloud() {
		c.ExecuteService(task.FlowID, task.Service, task.Node, timestamp, true)
		return nil
	}
	if task.Type == TaskTypeService {
		c.ExecuteService(task.FlowID, task.Service, task.Node, timestamp, false)
	}
	return nil
}

// ReassignVM replaces one VM instance at a computation spot and reports
// the reassignment. Replacing a service with itself fails fast.
func (c *NetworkController) ReassignVM(cs *ComputationSpot, serviceToReplace, serviceToAdd int) error {
	if err := cs.ReassignVM(serviceToReplace, serviceToAdd); err != nil {
		return err
	}
	if c.collector != nil {
		c.collector.ReassignVM(cs.Node(), serviceToReplace, serviceToAdd)
	}
	return nil
}

// RewireLink moves an existing link (u, v) to new endpoints (up, vp),
// preserving its delay and type. Used to model mobility. Set
// recomputePaths false to batch several topology edits and recompute once
// on the last one.
func (c *NetworkController) RewireLink(u, t, up, tp NodeID, recomputePaths bool) error {
	link, ok := c.model.topology.RemoveLink(u, t)
	if !ok {
		return fmt.Errorf("rewire %s-%s: %w", u, t, ErrUnknownLink)
	}
	c.dropLinkAttrs(u, t)
	c.model.topology.AddLink(up, tp, link.Delay, link.Type)
	c.setLinkAttrs(up, tp, link.Delay, link.Type)
	if recomputePaths {
		c.model.recomputePaths()
	}
	return nil
}

// RemoveLink removes link (u, v) to simulate a failure, stashing it for
// RestoreLink.
func (c *NetworkController) RemoveLink(u, t NodeID, recomputePaths bool) error {
	key := linkKeyOf(u, t)
	if _, removed := c.model.removedLinks[key]; removed {
		return fmt.Errorf("remove link %s-%s: %w", u, t, ErrAlreadyRemoved)
	}
	link, ok := c.model.topology.RemoveLink(u, t)
	if !ok {
		return fmt.Errorf("remove link %s-%s: %w", u, t, ErrUnknownLink)
	}
	c.model.removedLinks[key] = link
	c.dropLinkAttrs(u, t)
	if recomputePaths {
		c.model.recomputePaths()
	}
	return nil
}

// RestoreLink reinserts a previously removed link. Restoring a link that
// is not currently removed is an error.
func (c *NetworkController) RestoreLink(u, t NodeID, recomputePaths bool) error {
	key := linkKeyOf(u, t)
	link, ok := c.model.removedLinks[key]
	if !ok {
		return fmt.Errorf("restore link %s-%s: %w", u, t, ErrNotRemoved)
	}
	delete(c.model.removedLinks, key)
	c.model.topology.AddLink(link.U, link.V, link.Delay, link.Type)
	c.setLinkAttrs(link.U, link.V, link.Delay, link.Type)
	if recomputePaths {
		c.model.recomputePaths()
	}
	return nil
}

// RemoveNode removes node v to simulate a failure. Every incident link is
// removed first and recorded individually; the set of neighbors
// disconnected here is snapshotted so RestoreNode restores exactly these
// links and no others. Any cache, local cache, or source list the node
// owned moves into the removed stashes.
func (c *NetworkController) RemoveNode(v NodeID, recomputePaths bool) error {
	if _, removed := c.model.removedNodes[v]; removed {
		return fmt.Errorf("remove node %s: %w", v, ErrAlreadyRemoved)
	}
	if !c.model.topology.HasNode(v) {
		return fmt.Errorf("remove node %s: %w", v, ErrUnknownNode)
	}

	neighbors := c.model.topology.Neighbors(v)
	disconnected := make(map[NodeID]bool, len(neighbors))
	for _, u := range neighbors {
		if err := c.RemoveLink(v, u, false); err != nil {
			return err
		}
		disconnected[u] = true
	}
	c.model.disconnectedNeighbors[v] = disconnected

	stack, _ := c.model.topology.RemoveNode(v)
	c.model.removedNodes[v] = stack

	if cache, ok := c.model.cache[v]; ok {
		c.model.removedCaches[v] = cache
		delete(c.model.cache, v)
	}
	if cache, ok := c.model.localCache[v]; ok {
		c.model.removedLocalCaches[v] = cache
		delete(c.model.localCache, v)
	}
	if owned, ok := c.model.sourceNode[v]; ok {
		c.model.removedSources[v] = owned
		delete(c.model.sourceNode, v)
		// Positions in the holder lists are snapshotted so a restore
		// reproduces ClosestSource tie-break order exactly.
		pos := make(map[ContentID]int, len(owned))
		for _, id := range owned {
			for i, n := range c.model.contentSource[id] {
				if n == v {
					pos[id] = i
					break
				}
			}
			c.model.contentSource[id] = withoutNode(c.model.contentSource[id], v)
			if len(c.model.contentSource[id]) == 0 {
				delete(c.model.contentSource, id)
			}
		}
		c.model.removedSourcePos[v] = pos
	}
	if recomputePaths {
		c.model.recomputePaths()
	}
	return nil
}

// RestoreNode reinserts a previously removed node with its snapshotted
// attributes, restores only the links removed as a direct consequence of
// its removal, and reinstates any stashed cache, local cache, and source
// list. A link removed independently before the node removal stays removed
// until its own RestoreLink.
func (c *NetworkController) RestoreNode(v NodeID, recomputePaths bool) error {
	stack, ok := c.model.removedNodes[v]
	if !ok {
		return fmt.Errorf("restore node %s: %w", v, ErrNotRemoved)
	}
	delete(c.model.removedNodes, v)
	c.model.topology.AddNode(v, stack)

	for u := range c.model.disconnectedNeighbors[v] {
		if _, stashed := c.model.removedLinks[linkKeyOf(v, u)]; stashed {
			if err := c.RestoreLink(v, u, false); err != nil {
				return err
			}
		}
	}
	delete(c.model.disconnectedNeighbors, v)

	if cache, ok := c.model.removedCaches[v]; ok {
		c.model.cache[v] = cache
		delete(c.model.removedCaches, v)
	}
	if cache, ok := c.model.removedLocalCaches[v]; ok {
		c.model.localCache[v] = cache
		delete(c.model.removedLocalCaches, v)
	}
	if owned, ok := c.model.removedSources[v]; ok {
		c.model.sourceNode[v] = owned
		delete(c.model.removedSources, v)
		pos := c.model.removedSourcePos[v]
		delete(c.model.removedSourcePos, v)
		for _, id := range owned {
			holders := c.model.contentSource[id]
			at, ok := pos[id]
			if !ok || at > len(holders) {
				at = len(holders)
			}
			holders = append(holders, "")
			copy(holders[at+1:], holders[at:])
			holders[at] = v
			c.model.contentSource[id] = holders
		}
	}
	if recomputePaths {
		c.model.recomputePaths()
	}
	return nil
}

// ReserveLocalCache splits each existing cache into a coordinated
// remainder and an uncoordinated local partition sized by ratio, both
// rounded. GetContent and PutContent only operate on the coordinated part;
// the local partition is reached through GetContentLocalCache and
// PutContentLocalCache. A partition that rounds to zero capacity is
// dropped from its map rather than kept as a degenerate empty cache.
func (c *NetworkController) ReserveLocalCache(ratio float64) error {
	if ratio < 0 || ratio > 1 {
		return fmt.Errorf("local cache ratio %g out of range [0, 1]", ratio)
	}
	for _, node := range sortedCacheNodes(c.model.cache) {
		cache := c.model.cache[node]
		policy := "lru"
		if namer, ok := cache.(policyNamer); ok {
			policy = namer.PolicyName()
		}
		maxLen := iround(float64(cache.MaxLen()) * (1 - ratio))
		if maxLen > 0 {
			rebuilt, err := NewCache(policy, maxLen)
			if err != nil {
				return err
			}
			c.model.cache[node] = rebuilt
		} else {
			delete(c.model.cache, node)
		}
		localMaxLen := iround(float64(cache.MaxLen()) * ratio)
		if localMaxLen > 0 {
			local, err := NewCache(policy, localMaxLen)
			if err != nil {
				return err
			}
			c.model.localCache[node] = local
		}
	}
	return nil
}

// GetContentLocalCache retrieves the current session's content from the
// local cache partition of node, if any.
func (c *NetworkController) GetContentLocalCache(flowID int, node NodeID) bool {
	sess := c.sessions[flowID]
	cache, ok := c.model.localCache[node]
	if sess == nil || !ok {
		return false
	}
	hit := cache.Get(sess.Content.ID)
	if c.collector != nil && sess.Log {
		if hit {
			c.collector.CacheHit(node)
		} else {
			c.collector.CacheMiss(node)
		}
	}
	return hit
}

// PutContentLocalCache stores the current session's content into the local
// cache partition of node, if any.
func (c *NetworkController) PutContentLocalCache(flowID int, node NodeID) (ContentID, bool) {
	sess := c.sessions[flowID]
	cache, ok := c.model.localCache[node]
	if sess == nil || !ok {
		return "", false
	}
	return cache.Put(sess.Content.ID)
}

func (c *NetworkController) dropLinkAttrs(u, t NodeID) {
	delete(c.model.linkType, LinkKey{u, t})
	delete(c.model.linkType, LinkKey{t, u})
	delete(c.model.linkDelay, LinkKey{u, t})
	delete(c.model.linkDelay, LinkKey{t, u})
}

func (c *NetworkController) setLinkAttrs(u, t NodeID, delay float64, linkType string) {
	c.model.linkType[LinkKey{u, t}] = linkType
	c.model.linkType[LinkKey{t, u}] = linkType
	c.model.linkDelay[LinkKey{u, t}] = delay
	c.model.linkDelay[LinkKey{t, u}] = delay
}

// linkKeyOf normalizes an undirected link to a canonical key.
func linkKeyOf(u, t NodeID) LinkKey {
	if t < u {
		u, t = t, u
	}
	return LinkKey{u, t}
}

func withoutNode(nodes []NodeID, v NodeID) []NodeID {
	out := nodes[:0]
	for _, n := range nodes {
		if n != v {
			out = append(out, n)
		}
	}
	return out
}

// iround rounds to the nearest integer, half away from zero.
func iround(x float64) int {
	return int(math.Floor(x + 0.5))
}
