package sim

import (
	"reflect"
	"testing"
)

func TestNewNetworkView_RejectsNilModel(t *testing.T) {
	if _, err := NewNetworkView(nil); err == nil {
		t.Error("nil model should error")
	}
}

func TestNetworkView_ShortestPathAndDelay(t *testing.T) {
	view, _ := newLabeledFixture(t)

	if got := view.ShortestPath("0", "2"); !reflect.DeepEqual(got, []NodeID{"0", "1", "2"}) {
		t.Errorf("path(0,2) = %v, want [0 1 2]", got)
	}
	if got := view.PathDelay("0", "2"); got != 4 {
		t.Errorf("delay(0,2) = %g, want 4", got)
	}
	if got := view.PathDelay("0", "4"); got != 36 {
		t.Errorf("delay(0,4) = %g, want 36", got)
	}
	if got := view.PathDelay("2", "2"); got != 0 {
		t.Errorf("delay(2,2) = %g, want 0", got)
	}
	if got := view.LinkType("1", "4"); got != LinkExternal {
		t.Errorf("link type(1,4) = %q, want external", got)
	}
	if got := view.LinkDelay("0", "3"); got != 0 {
		t.Errorf("delay of non-link = %g, want 0", got)
	}
}

// TestNetworkView_LabelsSourcesIsConjunctive tests that a node matching
// only some of the requested labels is excluded entirely
func TestNetworkView_LabelsSourcesIsConjunctive(t *testing.T) {
	view, _ := newLabeledFixture(t)

	// Both repositories store sports content.
	single := view.LabelsSources([]string{"sports"})
	if !reflect.DeepEqual(single.Keys(), []string{"2", "3"}) {
		t.Errorf("sports sources = %v, want [2 3]", single.Keys())
	}

	// Node 3 stores sports and news on separate messages, so it survives
	// the conjunction; both nodes carry both labels somewhere.
	both := view.LabelsSources([]string{"sports", "news"})
	if !both.Has("2") {
		t.Error("node 2 stores sports and news and must match")
	}

	// The cloud origin stores weather but is a pure source: excluded.
	if weather := view.LabelsSources([]string{"weather"}); weather.Len() != 0 {
		t.Errorf("weather sources = %v, want none", weather.Keys())
	}

	// A label nobody stores matches nothing.
	if none := view.LabelsSources([]string{"sports", "finance"}); none.Len() != 0 {
		t.Errorf("sports+finance sources = %v, want none", none.Keys())
	}
}

func TestNetworkView_ContentAndLabelLocations(t *testing.T) {
	view, controller := newLabeledFixture(t)

	if got := view.ContentSource(PlainID("C")); !reflect.DeepEqual(got, []NodeID{"4"}) {
		t.Errorf("sources of C = %v, want [4]", got)
	}
	// A label-only reference resolves through label discovery.
	if got := view.ContentSource(LabeledRequest("", []string{"news"})); !reflect.DeepEqual(got, []NodeID{"2", "3"}) {
		t.Errorf("label-only sources = %v, want [2 3]", got)
	}

	// Cache holders are listed ahead of persistent sources.
	controller.PutContent("1", "A")
	if got := view.ContentLocations(PlainID("A")); !reflect.DeepEqual(got, []NodeID{"1", "2", "3"}) {
		t.Errorf("locations of A = %v, want [1 2 3]", got)
	}
}

// TestNetworkView_ClosestSourceTieBreak tests that equidistant sources
// resolve to the first one in registration order
func TestNetworkView_ClosestSourceTieBreak(t *testing.T) {
	view, _ := newLabeledFixture(t)

	// Nodes 2 and 3 both hold A at two hops from the receiver.
	res, cached, ok := view.ClosestSource("0", PlainID("A"))
	if !ok || res != "2" {
		t.Errorf("closest source = %s (%v), want 2", res, ok)
	}
	if cached {
		t.Error("nothing is cached yet")
	}

	// A source asking for its own content short-circuits to itself.
	if res, _, ok := view.ClosestSource("3", PlainID("A")); !ok || res != "3" {
		t.Errorf("self source = %s (%v), want 3", res, ok)
	}

	// Unknown content has no source.
	if _, _, ok := view.ClosestSource("0", PlainID("Z")); ok {
		t.Error("unknown content should report no source")
	}
}

// TestNetworkView_AllLabelsMainSource tests the non-strict ranking: a later
// candidate with an equal count takes the slot from an earlier one
func TestNetworkView_AllLabelsMainSource(t *testing.T) {
	view, _ := newLabeledFixture(t)

	// sports: both repositories match once, so the later one (3) wins.
	if auth, ok := view.AllLabelsMainSource([]string{"sports"}); !ok || auth != "3" {
		t.Errorf("main source for sports = %s (%v), want 3", auth, ok)
	}
	// news: node 2 matches twice, node 3 once; 2 keeps the slot.
	if auth, ok := view.AllLabelsMainSource([]string{"news"}); !ok || auth != "2" {
		t.Errorf("main source for news = %s (%v), want 2", auth, ok)
	}
	if _, ok := view.AllLabelsMainSource([]string{"finance"}); ok {
		t.Error("unmatched labels should find nothing")
	}
}

// TestNetworkView_ServiceLabelsClosestRepo tests the strict ranking: the
// first minimal candidate keeps winning against equally distant later ones
func TestNetworkView_ServiceLabelsClosestRepo(t *testing.T) {
	view, _ := newLabeledFixture(t)

	// Both repositories hold a processed news message, both two hops from
	// the receiver. Strict comparison keeps the first candidate, 2.
	_, auth, found := view.ServiceLabelsClosestRepo([]string{"news"}, "0", nil, false)
	if !found || auth != "2" {
		t.Errorf("closest repo = %s (%v), want 2", auth, found)
	}

	// Restricting to an explicit path rules node 2 out.
	inPath, auth, found := view.ServiceLabelsClosestRepo([]string{"news"}, "0", []NodeID{"0", "1", "3"}, true)
	if !found || auth != "3" || !inPath {
		t.Errorf("on-path repo = %s (inPath %v, found %v), want 3", auth, inPath, found)
	}

	// sports content is stored but never processed under that label alone
	// at node 3; node 2's processed message matches.
	_, auth, found = view.ServiceLabelsClosestRepo([]string{"sports"}, "0", nil, false)
	if !found || auth != "2" {
		t.Errorf("closest sports repo = %s (%v), want 2", auth, found)
	}
}

func TestNetworkView_MostServicesLabelsClosestRepo(t *testing.T) {
	view, controller := newLabeledFixture(t)

	// One processed news message each: maximal set is {2, 3}, strict hop
	// comparison keeps 2.
	_, auth, found := view.MostServicesLabelsClosestRepo([]string{"news"}, "0", nil, false)
	if !found || auth != "2" {
		t.Errorf("most-services repo = %s (%v), want 2", auth, found)
	}

	// A second processed news message at 3 makes it the sole maximum.
	msg := &Message{ID: "E", Labels: []string{"news"}, Size: 1, ServiceType: ServiceTypeProcessed}
	if err := controller.AddMessageToStorage("3", msg); err != nil {
		t.Fatalf("admitting message: %v", err)
	}
	controller.AddStorageLabelsToNode("3", msg)
	_, auth, found = view.MostServicesLabelsClosestRepo([]string{"news"}, "0", nil, false)
	if !found || auth != "3" {
		t.Errorf("after admission, most-services repo = %s (%v), want 3", auth, found)
	}
}

func TestNetworkView_Capabilities(t *testing.T) {
	view, _ := newLabeledFixture(t)

	if !view.HasCache("1") || view.HasCache("2") {
		t.Error("only node 1 has a cache")
	}
	if !view.HasComputationSpot("2") || view.HasComputationSpot("1") {
		t.Error("comp spots are at 2 and 4 only")
	}
	if !view.HasStorageCapability("2") || view.HasStorageCapability("1") {
		t.Error("storage capability wrong")
	}

	// The cloud spot runs every service; the edge spot needs an instance.
	if !view.HasService("4", 3) {
		t.Error("cloud spot should run any service")
	}
	if view.HasService("2", 3) {
		t.Error("edge spot without a VM instance should not run the service")
	}
	cs, _ := view.CompSpot("2")
	cs.AddVMInstance(3)
	if !view.HasService("2", 3) {
		t.Error("edge spot with a VM instance should run the service")
	}

	if _, ok := view.Cluster("1"); ok {
		t.Error("unclustered topology should report no cluster")
	}
}

func TestNetworkView_RequestLabelPopularity(t *testing.T) {
	view, controller := newLabeledFixture(t)

	controller.AddRequestLabelsToNode("1", []string{"sports", "news"})
	controller.AddRequestLabelsToNode("1", []string{"sports"})
	controller.AddRequestLabelsToNode("2", []string{"sports"})

	requests := view.LabelsRequests([]string{"sports"})
	if !reflect.DeepEqual(requests.Keys(), []string{"1", "2"}) {
		t.Errorf("request nodes = %v, want [1 2]", requests.Keys())
	}
	if requests.Count("1") != 2 {
		t.Errorf("count at 1 = %d, want 2", requests.Count("1"))
	}

	// Conjunction: node 2 never saw news.
	both := view.LabelsRequests([]string{"sports", "news"})
	if both.Has("2") || !both.Has("1") {
		t.Errorf("conjunctive request nodes = %v, want [1]", both.Keys())
	}

	// Only storage-capable nodes qualify for the popularity authority;
	// node 1 has no repository, so node 2 wins despite fewer requests.
	if auth, ok := view.AllLabelsMostRequests([]string{"sports"}); !ok || auth != "2" {
		t.Errorf("most-requests authority = %s (%v), want 2", auth, ok)
	}
}
