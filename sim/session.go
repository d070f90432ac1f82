package sim

// Session is the controller-side bookkeeping for one active flow. There is
// at most one live session per flow id; starting a new session under an
// existing id overwrites the old one.
type Session struct {
	StartTime float64
	Receiver  NodeID
	Content   ContentRef
	Labels    []string
	Log       bool
	Feedback  bool
	Deadline  float64
}
