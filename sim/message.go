package sim

// Message service-type classes. A repository marks a message "processed"
// once its associated service has run against it; placement queries rank
// repositories by how many processed messages they hold.
const (
	ServiceTypeProcessed   = "processed"
	ServiceTypeUnprocessed = "unprocessed"
)

// Message describes one content item held in persistent per-node storage:
// the unit of admission for RepoStorage and of replication accounting.
type Message struct {
	ID          ContentID `yaml:"id"`
	Labels      []string  `yaml:"labels"`
	Size        float64   `yaml:"size"`
	ServiceType string    `yaml:"service_type"`
	Service     int       `yaml:"service"`
}

// Ref returns the content reference naming this message.
func (m *Message) Ref() ContentRef {
	return LabeledRequest(m.ID, m.Labels)
}

// Processed reports whether the message has already been processed by its
// service.
func (m *Message) Processed() bool {
	return m.ServiceType == ServiceTypeProcessed
}

// MatchesAll reports whether the message carries every one of the given
// labels.
func (m *Message) MatchesAll(labels []string) bool {
	for _, want := range labels {
		found := false
		for _, l := range m.Labels {
			if l == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
