package sim

import "testing"

// TestEventQueue_TimestampOrdering tests that events are popped in
// timestamp order regardless of insertion order
func TestEventQueue_TimestampOrdering(t *testing.T) {
	q := NewEventQueue()
	q.Schedule(&Event{Time: 100, FlowID: 1})
	q.Schedule(&Event{Time: 50, FlowID: 2})
	q.Schedule(&Event{Time: 150, FlowID: 3})

	for i, want := range []float64{50, 100, 150} {
		e := q.PopNext()
		if e == nil || e.Time != want {
			t.Fatalf("pop %d: time = %v, want %g", i, e, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("queue should be empty, len = %d", q.Len())
	}
}

// TestEventQueue_FIFOTieBreak tests that same-timestamp events come out in
// the order they were scheduled
func TestEventQueue_FIFOTieBreak(t *testing.T) {
	q := NewEventQueue()
	for flow := 1; flow <= 5; flow++ {
		q.Schedule(&Event{Time: 10, FlowID: flow})
	}

	for flow := 1; flow <= 5; flow++ {
		e := q.PopNext()
		if e.FlowID != flow {
			t.Errorf("pop for flow %d returned flow %d", flow, e.FlowID)
		}
	}
}

// TestEventQueue_DeterministicReplay tests that two queues fed the same
// events in different insertion orders still agree where timestamps differ
func TestEventQueue_DeterministicReplay(t *testing.T) {
	events := []*Event{
		{Time: 3, FlowID: 1},
		{Time: 1, FlowID: 2},
		{Time: 2, FlowID: 3},
	}

	q1 := NewEventQueue()
	for _, e := range events {
		q1.Schedule(&Event{Time: e.Time, FlowID: e.FlowID})
	}
	q2 := NewEventQueue()
	for i := len(events) - 1; i >= 0; i-- {
		q2.Schedule(&Event{Time: events[i].Time, FlowID: events[i].FlowID})
	}

	for q1.Len() > 0 {
		e1, e2 := q1.PopNext(), q2.PopNext()
		if e1.FlowID != e2.FlowID {
			t.Errorf("replay diverged: flow %d vs %d", e1.FlowID, e2.FlowID)
		}
	}
	if q2.Len() != 0 {
		t.Errorf("second queue not drained, len = %d", q2.Len())
	}
}

// TestEventQueue_PeekAndEmpty tests Peek and the empty-queue behaviors
func TestEventQueue_PeekAndEmpty(t *testing.T) {
	q := NewEventQueue()
	if q.Peek() != nil {
		t.Error("Peek on empty queue should return nil")
	}
	if q.PopNext() != nil {
		t.Error("PopNext on empty queue should return nil")
	}

	q.Schedule(&Event{Time: 7})
	q.Schedule(&Event{Time: 2})

	if got := q.Peek(); got == nil || got.Time != 2 {
		t.Errorf("Peek = %v, want time 2", got)
	}
	if q.Len() != 2 {
		t.Errorf("Peek should not remove, len = %d", q.Len())
	}
}
