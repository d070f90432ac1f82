package sim

import "container/heap"

// Event is the arrival of a request (or a strategy-scheduled sub-event such
// as a task completion) at a node. Events are ordered by Time only; the
// queue breaks timestamp ties by push order.
type Event struct {
	Time     float64
	Receiver NodeID
	Service  int
	Labels   []string
	Node     NodeID
	FlowID   int
	Deadline float64
	RTTDelay float64
	Status   int
	Task     *Task

	seq uint64 // assigned by EventQueue.Push
}

// EventQueue is a min-heap of events ordered by (Time, push sequence).
// The secondary sequence key makes replay of same-timestamp events
// deterministic and stable: first pushed, first popped.
type EventQueue struct {
	events  []*Event
	nextSeq uint64
}

// NewEventQueue returns an empty event queue.
func NewEventQueue() *EventQueue {
	return &EventQueue{events: make([]*Event, 0)}
}

// Len implements heap.Interface.
func (q *EventQueue) Len() int { return len(q.events) }

// Less implements heap.Interface: timestamp first, push order second.
func (q *EventQueue) Less(i, j int) bool {
	ei, ej := q.events[i], q.events[j]
	if ei.Time != ej.Time {
		return ei.Time < ej.Time
	}
	return ei.seq < ej.seq
}

// Swap implements heap.Interface.
func (q *EventQueue) Swap(i, j int) {
	q.events[i], q.events[j] = q.events[j], q.events[i]
}

// Push implements heap.Interface.
func (q *EventQueue) Push(x any) {
	q.events = append(q.events, x.(*Event))
}

// Pop implements heap.Interface.
func (q *EventQueue) Pop() any {
	old := q.events
	n := len(old)
	item := old[n-1]
	q.events = old[0 : n-1]
	return item
}

// Schedule pushes an event onto the queue, stamping its sequence number.
func (q *EventQueue) Schedule(e *Event) {
	e.seq = q.nextSeq
	q.nextSeq++
	heap.Push(q, e)
}

// PopNext removes and returns the earliest event, nil when empty.
func (q *EventQueue) PopNext() *Event {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*Event)
}

// Peek returns the earliest event without removing it, nil when empty.
func (q *EventQueue) Peek() *Event {
	if q.Len() == 0 {
		return nil
	}
	return q.events[0]
}
