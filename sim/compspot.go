package sim

import (
	"container/heap"
	"fmt"
)

// Task types.
const (
	TaskTypeService = "SERVICE"
	TaskTypeVMStart = "VM_START"
)

// Task is one unit of work queued at a computation spot on behalf of a
// flow.
type Task struct {
	Time        float64
	Deadline    float64
	RTTDelay    float64
	Service     int
	ServiceTime float64
	Node        NodeID
	FlowID      int
	Receiver    NodeID
	Type        string
}

// Scheduler orders the tasks pending at one computation spot. Scheduling
// internals (e.g. deadline handling) are external to the simulator core;
// only this contract is consumed.
type Scheduler interface {
	// AddTask queues a task.
	AddTask(t *Task)
	// NextTask removes and returns the next task to run, nil when idle.
	NextTask() *Task
	// Len is the number of queued tasks.
	Len() int
}

// ValidSchedPolicies is the set of recognized scheduling policy names.
var ValidSchedPolicies = map[string]bool{"EDF": true, "FIFO": true}

// NewScheduler creates a scheduling policy instance by name.
func NewScheduler(name string) (Scheduler, error) {
	switch name {
	case "EDF":
		return &edfScheduler{}, nil
	case "FIFO":
		return &fifoScheduler{}, nil
	default:
		return nil, fmt.Errorf("unknown scheduling policy %q", name)
	}
}

// edfScheduler pops the pending task with the earliest deadline, breaking
// ties by arrival order.
type edfScheduler struct {
	tasks   []*taskEntry
	nextSeq uint64
}

type taskEntry struct {
	task *Task
	seq  uint64
}

func (s *edfScheduler) Len() int { return len(s.tasks) }
func (s *edfScheduler) Less(i, j int) bool {
	if s.tasks[i].task.Deadline != s.tasks[j].task.Deadline {
		return s.tasks[i].task.Deadline < s.tasks[j].task.Deadline
	}
	return s.tasks[i].seq < s.tasks[j].seq
}
func (s *edfScheduler) Swap(i, j int) { s.tasks[i], s.tasks[j] = s.tasks[j], s.tasks[i] }
func (s *edfScheduler) Push(x any)    { s.tasks = append(s.tasks, x.(*taskEntry)) }
func (s *edfScheduler) Pop() any {
	old := s.tasks
	n := len(old)
	item := old[n-1]
	s.tasks = old[0 : n-1]
	return item
}

func (s *edfScheduler) AddTask(t *Task) {
	heap.Push(s, &taskEntry{task: t, seq: s.nextSeq})
	s.nextSeq++
}

func (s *edfScheduler) NextTask() *Task {
	if s.Len() == 0 {
		return nil
	}
	return heap.Pop(s).(*taskEntry).task
}

type fifoScheduler struct {
	tasks []*Task
}

func (s *fifoScheduler) AddTask(t *Task) { s.tasks = append(s.tasks, t) }
func (s *fifoScheduler) Len() int        { return len(s.tasks) }
func (s *fifoScheduler) NextTask() *Task {
	if len(s.tasks) == 0 {
		return nil
	}
	t := s.tasks[0]
	s.tasks = s.tasks[1:]
	return t
}

// ComputationSpot is the per-node resource executing services. A cloud
// spot has unbounded cores and runs every service; an edge spot runs the
// bounded set of VM instances assigned to it.
type ComputationSpot struct {
	node        NodeID
	numCores    float64
	serviceSize float64
	isCloud     bool
	services    []*Service
	scheduler   Scheduler

	// vmInstances counts VM instances per service index.
	vmInstances map[int]int
}

// NewComputationSpot wires a computation spot for node with the given
// sizing and scheduling policy. Spots with non-finite core counts are
// treated as cloud.
func NewComputationSpot(node NodeID, compSize, serviceSize float64, services []*Service, schedPolicy string, isCloud bool) (*ComputationSpot, error) {
	sched, err := NewScheduler(schedPolicy)
	if err != nil {
		return nil, err
	}
	return &ComputationSpot{
		node:        node,
		numCores:    compSize,
		serviceSize: serviceSize,
		isCloud:     isCloud,
		services:    services,
		scheduler:   sched,
		vmInstances: make(map[int]int),
	}, nil
}

// Node is the node this spot is attached to.
func (cs *ComputationSpot) Node() NodeID { return cs.node }

// IsCloud reports whether the spot models an unbounded cloud resource.
func (cs *ComputationSpot) IsCloud() bool { return cs.isCloud }

// NumCores is the spot's computation size.
func (cs *ComputationSpot) NumCores() float64 { return cs.numCores }

// VMInstances returns the number of VM instances running service.
func (cs *ComputationSpot) VMInstances(service int) int {
	return cs.vmInstances[service]
}

// AddVMInstance assigns one more VM instance of service to this spot.
func (cs *ComputationSpot) AddVMInstance(service int) {
	cs.vmInstances[service]++
}

// ScheduleTask queues a task on the spot's scheduler.
func (cs *ComputationSpot) ScheduleTask(t *Task) {
	cs.scheduler.AddTask(t)
}

// NextTask pops the next task per the scheduling policy, nil when idle.
func (cs *ComputationSpot) NextTask() *Task {
	return cs.scheduler.NextTask()
}

// PendingTasks is the number of queued tasks.
func (cs *ComputationSpot) PendingTasks() int {
	return cs.scheduler.Len()
}

// ReassignVM replaces one VM instance of serviceToReplace with one of
// serviceToAdd. Assigning the same service to replace and to add is a
// caller bug and fails fast.
func (cs *ComputationSpot) ReassignVM(serviceToReplace, serviceToAdd int) error {
	if serviceToAdd == serviceToReplace {
		return fmt.Errorf("reassign VM at %s: service replaced and added are the same (%d)", cs.node, serviceToAdd)
	}
	if cs.vmInstances[serviceToReplace] < 1 {
		return fmt.Errorf("reassign VM at %s: no instance of service %d to replace", cs.node, serviceToReplace)
	}
	cs.vmInstances[serviceToReplace]--
	cs.vmInstances[serviceToAdd]++
	return nil
}
