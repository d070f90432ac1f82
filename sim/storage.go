package sim

import "fmt"

// RepoStorage is the capability contract a repository-storage admission
// policy must satisfy. A repository persistently stores labeled messages at
// one node, independent of caching.
type RepoStorage interface {
	// Node is the node this repository is attached to.
	Node() NodeID
	// HasMessage returns a stored message matching the id (when non-empty)
	// or, for an empty id, carrying every one of the given labels.
	HasMessage(id ContentID, labels []string) (*Message, bool)
	// AddToStoredMessages admits a message, subject to capacity.
	AddToStoredMessages(msg *Message) error
	// GetProcessedMessages lists stored processed messages carrying every
	// one of the given labels.
	GetProcessedMessages(labels []string) []*Message
	// GetTotalStorageSpace is the repository capacity.
	GetTotalStorageSpace() float64
}

// ValidRepoPolicies is the set of recognized repository policy names.
var ValidRepoPolicies = map[string]bool{"basic": true}

// NewRepoStorage creates a repository policy instance by name, pre-seeded
// with the node's persistent contents.
func NewRepoStorage(name string, node NodeID, contents []*Message, capacity float64) (RepoStorage, error) {
	switch name {
	case "basic":
		return newBasicRepo(node, contents, capacity), nil
	default:
		return nil, fmt.Errorf("unknown repository policy %q", name)
	}
}

// basicRepo admits messages until the summed message size reaches capacity.
// Messages are kept in admission order so lookups are reproducible.
type basicRepo struct {
	node     NodeID
	capacity float64
	used     float64
	byID     map[ContentID]*Message
	stored   []*Message
}

func newBasicRepo(node NodeID, contents []*Message, capacity float64) *basicRepo {
	r := &basicRepo{
		node:     node,
		capacity: capacity,
		byID:     make(map[ContentID]*Message),
	}
	for _, msg := range contents {
		// Pre-seeded contents bypass the capacity check: they define the
		// node, they are not admitted to it.
		r.store(msg)
	}
	return r
}

func (r *basicRepo) store(msg *Message) {
	if old, ok := r.byID[msg.ID]; ok {
		r.used -= old.Size
		for i, m := range r.stored {
			if m.ID == msg.ID {
				r.stored[i] = msg
				break
			}
		}
	} else {
		r.stored = append(r.stored, msg)
	}
	r.byID[msg.ID] = msg
	r.used += msg.Size
}

func (r *basicRepo) Node() NodeID { return r.node }

func (r *basicRepo) HasMessage(id ContentID, labels []string) (*Message, bool) {
	if id != "" {
		msg, ok := r.byID[id]
		return msg, ok
	}
	for _, msg := range r.stored {
		if msg.MatchesAll(labels) {
			return msg, true
		}
	}
	return nil, false
}

func (r *basicRepo) AddToStoredMessages(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("nil message")
	}
	if _, ok := r.byID[msg.ID]; !ok && r.used+msg.Size > r.capacity {
		return fmt.Errorf("repository at %s full: %g + %g exceeds %g",
			r.node, r.used, msg.Size, r.capacity)
	}
	r.store(msg)
	return nil
}

func (r *basicRepo) GetProcessedMessages(labels []string) []*Message {
	var out []*Message
	for _, msg := range r.stored {
		if msg.Processed() && msg.MatchesAll(labels) {
			out = append(out, msg)
		}
	}
	return out
}

func (r *basicRepo) GetTotalStorageSpace() float64 { return r.capacity }
