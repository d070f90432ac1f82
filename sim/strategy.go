package sim

import "fmt"

// Strategy is the routing/caching decision logic driven by the execution
// loop: one call per workload event, run to completion before the next
// event is dequeued. Strategies read the network through the view and act
// on it through the controller only.
type Strategy interface {
	ProcessEvent(time float64, e *Event)
}

// ValidStrategies is the set of recognized strategy names.
var ValidStrategies = map[string]bool{"shortest-path-lce": true}

// NewStrategy creates a strategy instance by name.
func NewStrategy(name string, view *NetworkView, controller *NetworkController, params map[string]any) (Strategy, error) {
	switch name {
	case "shortest-path-lce":
		return &LCEStrategy{view: view, controller: controller}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// LCEStrategy routes each request along the shortest path to the closest
// source of the content and leaves a copy of the retrieved content in
// every cache on the return path (leave-copy-everywhere).
type LCEStrategy struct {
	view       *NetworkView
	controller *NetworkController
}

// ProcessEvent handles one request arrival end to end: session start,
// request forwarding toward the closest holder, retrieval, content
// delivery with en-route caching, session end.
func (s *LCEStrategy) ProcessEvent(t float64, e *Event) {
	content := LabeledRequest(ContentID(fmt.Sprintf("%d", e.Service)), e.Labels)
	if e.Task != nil {
		// Sub-events carry no new request.
		return
	}
	s.controller.StartSession(t, e.Receiver, content, e.Labels, true, e.FlowID, e.Deadline)

	serving, _, ok := s.closestHolder(e.Receiver, content)
	if !ok {
		s.controller.EndSession(false, t, e.FlowID)
		return
	}

	path := s.view.ShortestPath(e.Receiver, serving)
	s.controller.ForwardRequestPath(e.FlowID, e.Receiver, serving, path, true)
	if !s.controller.GetContent(e.FlowID, serving, content.ID) {
		s.controller.EndSession(false, t, e.FlowID)
		return
	}

	// Deliver along the reverse path, caching at every hop.
	back := s.view.ShortestPath(serving, e.Receiver)
	s.controller.ForwardContentPath(e.FlowID, serving, e.Receiver, back, true)
	for _, node := range back {
		if node == serving {
			continue
		}
		s.controller.PutContent(node, content.ID)
	}
	s.controller.EndSession(true, t, e.FlowID)
}

// closestHolder prefers the nearest node whose cache holds the content,
// falling back to the closest persistent source.
func (s *LCEStrategy) closestHolder(from NodeID, content ContentRef) (NodeID, bool, bool) {
	best := NodeID("")
	bestHops := -1
	for _, node := range s.view.ContentLocations(content) {
		path := s.view.ShortestPath(from, node)
		if path == nil {
			continue
		}
		if bestHops == -1 || len(path) < bestHops {
			best = node
			bestHops = len(path)
		}
	}
	if bestHops != -1 {
		return best, false, true
	}
	return s.view.ClosestSource(from, content)
}
