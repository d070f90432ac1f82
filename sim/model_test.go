package sim

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// labeledTopology is the shared fixture: a receiver behind one caching
// router, two hybrid router+source repositories, and one pure cloud origin.
//
//	0 (receiver) - 1 (router, cache) - 2 (router+source, repo)
//	                        \-------- 3 (router+source, repo)
//	                        \-------- 4 (pure source, external link)
func labeledTopology() *Topology {
	topo := NewTopology()
	topo.AddNode("0", &Stack{Roles: []string{RoleReceiver}})
	topo.AddNode("1", &Stack{Roles: []string{RoleRouter}, CacheSize: 4})
	topo.AddNode("2", &Stack{
		Roles:           []string{RoleRouter, RoleSource},
		StorageSize:     100,
		ComputationSize: 4,
		ServiceSize:     100,
		Contents: []*Message{
			{ID: "A", Labels: []string{"sports", "news"}, Size: 1, ServiceType: ServiceTypeProcessed},
			{ID: "B", Labels: []string{"news"}, Size: 1, ServiceType: ServiceTypeUnprocessed},
		},
	})
	topo.AddNode("3", &Stack{
		Roles:       []string{RoleRouter, RoleSource},
		StorageSize: 100,
		Contents: []*Message{
			{ID: "A", Labels: []string{"sports"}, Size: 1, ServiceType: ServiceTypeUnprocessed},
			{ID: "D", Labels: []string{"news"}, Size: 1, ServiceType: ServiceTypeProcessed},
		},
	})
	topo.AddNode("4", &Stack{
		Roles: []string{RoleSource},
		Contents: []*Message{
			{ID: "C", Labels: []string{"weather"}, Size: 3, ServiceType: ServiceTypeUnprocessed},
		},
	})
	topo.AddLink("0", "1", 2, LinkInternal)
	topo.AddLink("1", "2", 2, LinkInternal)
	topo.AddLink("1", "3", 2, LinkInternal)
	topo.AddLink("1", "4", 34, LinkExternal)
	topo.Graph = GraphAttrs{Depth: 2, LinkDelay: 2, ReceiverAccessDelay: 2}
	return topo
}

func newLabeledFixture(t *testing.T) (*NetworkView, *NetworkController) {
	t.Helper()
	model, err := NewNetworkModel(labeledTopology(),
		Descriptor{Name: "lru"}, Descriptor{Name: "basic"}, "EDF",
		NetworkConfig{NumServices: 5, Rate: 1.0, Seed: 42})
	require.NoError(t, err, "building model")
	view, err := NewNetworkView(model)
	require.NoError(t, err, "building view")
	controller, err := NewNetworkController(model)
	require.NoError(t, err, "building controller")
	return view, controller
}

func TestNewNetworkModel_RejectsBadInput(t *testing.T) {
	_, err := NewNetworkModel(nil, Descriptor{Name: "lru"}, Descriptor{Name: "basic"}, "EDF", NetworkConfig{})
	assert.Error(t, err, "nil topology")

	_, err = NewNetworkModel(NewTopology(), Descriptor{Name: "lru"}, Descriptor{Name: "basic"}, "EDF", NetworkConfig{})
	assert.Error(t, err, "empty topology")

	_, err = NewNetworkModel(labeledTopology(), Descriptor{Name: "lru"}, Descriptor{Name: "basic"}, "round-robin", NetworkConfig{})
	assert.Error(t, err, "unknown scheduling policy")

	_, err = NewNetworkModel(labeledTopology(), Descriptor{Name: "arc"}, Descriptor{Name: "basic"}, "EDF", NetworkConfig{})
	assert.Error(t, err, "unknown cache policy")

	_, err = NewNetworkModel(labeledTopology(), Descriptor{Name: "lru"}, Descriptor{Name: "quota"}, "EDF", NetworkConfig{})
	assert.Error(t, err, "unknown repository policy")
}

func TestNewNetworkModel_BuildsIndices(t *testing.T) {
	view, _ := newLabeledFixture(t)

	if got := view.CacheNodes(); !reflect.DeepEqual(got, []NodeID{"1"}) {
		t.Errorf("cache nodes = %v, want [1]", got)
	}
	if got := view.CacheSizes()["1"]; got != 4 {
		t.Errorf("cache size at 1 = %d, want 4", got)
	}
	// The pure source gets unbounded storage, so it counts as a storage
	// node alongside the two repositories.
	if got := view.StorageNodes(); !reflect.DeepEqual(got, []NodeID{"2", "3", "4"}) {
		t.Errorf("storage nodes = %v, want [2 3 4]", got)
	}
	if got := view.CompSpotNodes(); !reflect.DeepEqual(got, []NodeID{"2", "4"}) {
		t.Errorf("comp spot nodes = %v, want [2 4]", got)
	}

	// Hybrid repository spots are edge spots; pure sources are cloud.
	if cs, ok := view.CompSpot("2"); !ok || cs.IsCloud() {
		t.Error("spot at 2 should exist and not be cloud")
	}
	if cs, ok := view.CompSpot("4"); !ok || !cs.IsCloud() {
		t.Error("spot at 4 should exist and be cloud")
	}

	// Content A is registered at 2 then 3, in sorted node order.
	if got := view.ContentSource(PlainID("A")); !reflect.DeepEqual(got, []NodeID{"2", "3"}) {
		t.Errorf("sources of A = %v, want [2 3]", got)
	}
	if got := view.ReplicationHops("A"); got != 1 {
		t.Errorf("replication hops of A = %d, want 1", got)
	}
	if got := len(view.Services()); got != 5 {
		t.Errorf("services = %d, want 5", got)
	}
	if view.RequestRate() != 1.0 || view.NumServices() != 5 {
		t.Errorf("rate/nServices = %g/%d", view.RequestRate(), view.NumServices())
	}
}

// TestNewNetworkModel_ClampsDegenerateCacheSize tests that a cache sized
// below one item is clamped rather than rejected
func TestNewNetworkModel_ClampsDegenerateCacheSize(t *testing.T) {
	topo := NewTopology()
	topo.AddNode("0", &Stack{Roles: []string{RoleReceiver}})
	topo.AddNode("1", &Stack{Roles: []string{RoleRouter}, CacheSize: -2})
	topo.AddNode("2", &Stack{Roles: []string{RoleSource}})
	topo.AddLink("0", "1", 2, LinkInternal)
	topo.AddLink("1", "2", 2, LinkInternal)

	model, err := NewNetworkModel(topo, Descriptor{Name: "lru"}, Descriptor{Name: "basic"}, "EDF", NetworkConfig{NumServices: 1})
	if err != nil {
		t.Fatalf("building model: %v", err)
	}
	view, _ := NewNetworkView(model)
	if got := view.CacheSizes()["1"]; got != 1 {
		t.Errorf("clamped cache size = %d, want 1", got)
	}
}

// TestNewNetworkModel_SuppliedPathsAreSymmetrized tests that externally
// supplied shortest paths get mirrored like computed ones
func TestNewNetworkModel_SuppliedPathsAreSymmetrized(t *testing.T) {
	supplied := PathMap{
		"0": {"2": []NodeID{"0", "1", "2"}},
	}
	model, err := NewNetworkModel(labeledTopology(),
		Descriptor{Name: "lru"}, Descriptor{Name: "basic"}, "EDF",
		NetworkConfig{NumServices: 1, ShortestPaths: supplied})
	if err != nil {
		t.Fatalf("building model: %v", err)
	}
	view, _ := NewNetworkView(model)
	if got := view.ShortestPath("2", "0"); !reflect.DeepEqual(got, []NodeID{"2", "1", "0"}) {
		t.Errorf("mirrored path(2,0) = %v, want [2 1 0]", got)
	}
}

func TestGenerateServices_Deterministic(t *testing.T) {
	topo := labeledTopology()
	first := GenerateServices(10, topo, 7)
	second := GenerateServices(10, topo, 7)
	other := GenerateServices(10, topo, 8)

	if len(first) != 10 {
		t.Fatalf("services = %d, want 10", len(first))
	}
	for i := range first {
		if first[i].Deadline != second[i].Deadline || first[i].ServiceTime != second[i].ServiceTime {
			t.Errorf("service %d differs under identical seeds", i)
		}
	}
	same := true
	for i := range first {
		if first[i].Deadline != other[i].Deadline {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds should produce different deadlines")
	}
}

func TestGenerateServices_DeadlineBounds(t *testing.T) {
	topo := labeledTopology()
	delayMin := 2*topo.Graph.ReceiverAccessDelay + 0.10
	delayMax := delayMin + 2*float64(topo.Graph.Depth)*topo.Graph.LinkDelay + 0.005

	for _, s := range GenerateServices(50, topo, 1) {
		d := s.Deadline - 2*0.001
		if d < delayMin || d > delayMax {
			t.Errorf("deadline %g outside [%g, %g]", s.Deadline, delayMin, delayMax)
		}
	}
}
