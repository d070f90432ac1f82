package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Workload is a chronological sequence of timestamped events replayed by
// the execution loop. Next returns the events in order; ok is false once
// the sequence is exhausted.
type Workload interface {
	Next() (time float64, e *Event, ok bool)
	// NumServices is the size of the service population referenced by the
	// workload.
	NumServices() int
	// Rate is the aggregate request rate per second.
	Rate() float64
}

// TraceRecord is one workload event as read from a trace file.
type TraceRecord struct {
	Time     float64  `yaml:"time"`
	Receiver string   `yaml:"receiver"`
	Service  int      `yaml:"service"`
	Labels   []string `yaml:"labels"`
	Node     string   `yaml:"node"`
	FlowID   int      `yaml:"flow_id"`
	Deadline float64  `yaml:"deadline"`
	RTTDelay float64  `yaml:"rtt_delay"`
	Status   int      `yaml:"status"`
}

// TraceWorkload replays a pre-recorded sequence of events.
type TraceWorkload struct {
	Records     []TraceRecord `yaml:"events"`
	Services    int           `yaml:"n_services"`
	RequestRate float64       `yaml:"rate"`

	next int
}

// LoadTraceWorkload reads and validates a YAML trace: timestamps must be
// non-decreasing.
func LoadTraceWorkload(path string) (*TraceWorkload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workload: %w", err)
	}
	var w TraceWorkload
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parsing workload: %w", err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

// Validate checks chronological ordering of the trace.
func (w *TraceWorkload) Validate() error {
	for i := 1; i < len(w.Records); i++ {
		if w.Records[i].Time < w.Records[i-1].Time {
			return fmt.Errorf("workload event %d out of order: %g < %g",
				i, w.Records[i].Time, w.Records[i-1].Time)
		}
	}
	return nil
}

func (w *TraceWorkload) Next() (float64, *Event, bool) {
	if w.next >= len(w.Records) {
		return 0, nil, false
	}
	r := w.Records[w.next]
	w.next++
	labels := r.Labels
	if labels == nil {
		labels = []string{}
	}
	return r.Time, &Event{
		Time:     r.Time,
		Receiver: NodeID(r.Receiver),
		Service:  r.Service,
		Labels:   labels,
		Node:     NodeID(r.Node),
		FlowID:   r.FlowID,
		Deadline: r.Deadline,
		RTTDelay: r.RTTDelay,
		Status:   r.Status,
	}, true
}

func (w *TraceWorkload) NumServices() int { return w.Services }
func (w *TraceWorkload) Rate() float64    { return w.RequestRate }
