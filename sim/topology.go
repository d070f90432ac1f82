package sim

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// NodeID identifies a topology node.
type NodeID string

// Node roles. A node may carry several roles; a hybrid "edge repository"
// node is both router and source.
const (
	RoleRouter   = "router"
	RoleSource   = "source"
	RoleReceiver = "receiver"
)

// Link types.
const (
	LinkInternal = "internal"
	LinkExternal = "external"
)

// Default per-link delays, in ms. These values are suggested by
// measurements reported in http://www.mpi-sws.org/~druschel/publications/ds2-imc.pdf
const (
	InternalLinkDelay = 2.0
	ExternalLinkDelay = 34.0
)

// Stack holds the per-node attributes read at model construction.
type Stack struct {
	Roles           []string   `yaml:"roles"`
	CacheSize       int        `yaml:"cache_size,omitempty"`
	StorageSize     float64    `yaml:"storage_size,omitempty"`
	ComputationSize float64    `yaml:"computation_size,omitempty"`
	ServiceSize     float64    `yaml:"service_size,omitempty"`
	Contents        []*Message `yaml:"contents,omitempty"`
	Depth           int        `yaml:"depth,omitempty"`
	Cluster         int        `yaml:"cluster,omitempty"`
	IsCloud         bool       `yaml:"cloud,omitempty"`
}

// HasRole reports whether the stack carries the given role.
func (s *Stack) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Link is one undirected topology edge.
type Link struct {
	U     NodeID  `yaml:"u"`
	V     NodeID  `yaml:"v"`
	Delay float64 `yaml:"delay"`
	Type  string  `yaml:"type"`
}

// GraphAttrs are topology-wide attributes consumed by service catalog
// generation and the engine.
type GraphAttrs struct {
	Depth               int     `yaml:"depth,omitempty"`
	LinkDelay           float64 `yaml:"link_delay"`
	ReceiverAccessDelay float64 `yaml:"receiver_access_delay"`
	Rate                float64 `yaml:"rate,omitempty"`
	NumServices         int     `yaml:"n_services,omitempty"`
}

// Topology is the declarative network description compiled into a
// NetworkModel. Nodes are stored in a map; NodeIDs() exposes a sorted view
// so every pass over the topology is reproducible.
type Topology struct {
	Nodes map[NodeID]*Stack `yaml:"nodes"`
	Links []Link            `yaml:"links"`
	Graph GraphAttrs        `yaml:"graph"`
}

// NewTopology returns an empty topology.
func NewTopology() *Topology {
	return &Topology{Nodes: make(map[NodeID]*Stack)}
}

// AddNode registers a node with its stack, replacing any existing entry.
func (t *Topology) AddNode(id NodeID, stack *Stack) {
	t.Nodes[id] = stack
}

// AddLink appends an undirected link between existing nodes.
func (t *Topology) AddLink(u, v NodeID, delay float64, linkType string) {
	t.Links = append(t.Links, Link{U: u, V: v, Delay: delay, Type: linkType})
}

// RemoveLink deletes the undirected link between u and v and returns it.
// The second return is false if no such link exists.
func (t *Topology) RemoveLink(u, v NodeID) (Link, bool) {
	for i, l := range t.Links {
		if (l.U == u && l.V == v) || (l.U == v && l.V == u) {
			t.Links = append(t.Links[:i], t.Links[i+1:]...)
			return l, true
		}
	}
	return Link{}, false
}

// RemoveNode deletes a node, returning its stack. Incident links are left
// in place; NetworkController.RemoveNode detaches them first so each can be
// restored individually.
func (t *Topology) RemoveNode(id NodeID) (*Stack, bool) {
	stack, ok := t.Nodes[id]
	if !ok {
		return nil, false
	}
	delete(t.Nodes, id)
	return stack, true
}

// HasNode reports whether the node exists.
func (t *Topology) HasNode(id NodeID) bool {
	_, ok := t.Nodes[id]
	return ok
}

// Neighbors returns the nodes adjacent to v, sorted.
func (t *Topology) Neighbors(v NodeID) []NodeID {
	var out []NodeID
	for _, l := range t.Links {
		if l.U == v {
			out = append(out, l.V)
		} else if l.V == v {
			out = append(out, l.U)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NodeIDs returns all node identifiers in sorted order.
func (t *Topology) NodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(t.Nodes))
	for id := range t.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NodesWithRole returns the sorted identifiers of nodes carrying role.
func (t *Topology) NodesWithRole(role string) []NodeID {
	var out []NodeID
	for _, id := range t.NodeIDs() {
		if t.Nodes[id].HasRole(role) {
			out = append(out, id)
		}
	}
	return out
}

// Validate checks structural consistency: every link references existing
// nodes, each node has at least one known role, link types are recognized.
func (t *Topology) Validate() error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("topology has no nodes")
	}
	for id, stack := range t.Nodes {
		if len(stack.Roles) == 0 {
			return fmt.Errorf("node %s has no roles", id)
		}
		for _, r := range stack.Roles {
			switch r {
			case RoleRouter, RoleSource, RoleReceiver:
			default:
				return fmt.Errorf("node %s has unknown role %q", id, r)
			}
		}
	}
	for _, l := range t.Links {
		if !t.HasNode(l.U) || !t.HasNode(l.V) {
			return fmt.Errorf("link %s-%s references unknown node", l.U, l.V)
		}
		switch l.Type {
		case LinkInternal, LinkExternal:
		default:
			return fmt.Errorf("link %s-%s has unknown type %q", l.U, l.V, l.Type)
		}
	}
	return nil
}

// LoadTopology reads and validates a YAML topology file.
func LoadTopology(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology: %w", err)
	}
	var topo Topology
	if err := yaml.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("parsing topology: %w", err)
	}
	if topo.Nodes == nil {
		topo.Nodes = make(map[NodeID]*Stack)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	return &topo, nil
}

// PathTopology builds a linear chain receiver - routers - source:
// node "0" is the receiver, node "n-1" the source, everything between a
// router. All links are internal with the given delay.
func PathTopology(n int, delay float64) *Topology {
	topo := NewTopology()
	for i := 0; i < n; i++ {
		id := NodeID(fmt.Sprintf("%d", i))
		switch i {
		case 0:
			topo.AddNode(id, &Stack{Roles: []string{RoleReceiver}})
		case n - 1:
			topo.AddNode(id, &Stack{Roles: []string{RoleSource}})
		default:
			topo.AddNode(id, &Stack{Roles: []string{RoleRouter}, Depth: i})
		}
		if i > 0 {
			prev := NodeID(fmt.Sprintf("%d", i-1))
			topo.AddLink(prev, id, delay, LinkInternal)
		}
	}
	topo.Graph = GraphAttrs{
		Depth:               n - 2,
		LinkDelay:           delay,
		ReceiverAccessDelay: delay,
	}
	return topo
}

// TreeTopology builds a complete k-ary tree of height h. The root is a
// source, the leaves are receivers, and the internal nodes are routers
// (depth recorded per node). Links are internal with the given delay.
func TreeTopology(k, h int, delay float64) *Topology {
	topo := NewTopology()
	var build func(parent NodeID, depth int)
	next := 0
	newID := func() NodeID {
		id := NodeID(fmt.Sprintf("%d", next))
		next++
		return id
	}
	root := newID()
	topo.AddNode(root, &Stack{Roles: []string{RoleSource}})
	build = func(parent NodeID, depth int) {
		if depth > h {
			return
		}
		for i := 0; i < k; i++ {
			id := newID()
			if depth == h {
				topo.AddNode(id, &Stack{Roles: []string{RoleReceiver}})
			} else {
				topo.AddNode(id, &Stack{Roles: []string{RoleRouter}, Depth: depth})
			}
			topo.AddLink(parent, id, delay, LinkInternal)
			build(id, depth+1)
		}
	}
	build(root, 1)
	topo.Graph = GraphAttrs{
		Depth:               h,
		LinkDelay:           delay,
		ReceiverAccessDelay: delay,
	}
	return topo
}
