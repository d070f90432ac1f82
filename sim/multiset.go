package sim

// Multiset counts occurrences of string keys while remembering the order in
// which keys were first inserted. The ranking queries of NetworkView break
// ties by scan order, so iteration must be reproducible across runs; a bare
// Go map cannot provide that.
type Multiset struct {
	counts map[string]int
	order  []string
}

// NewMultiset returns an empty multiset.
func NewMultiset() *Multiset {
	return &Multiset{counts: make(map[string]int)}
}

// Add increments the count of key by one.
func (m *Multiset) Add(key string) {
	m.AddN(key, 1)
}

// AddN increments the count of key by n.
func (m *Multiset) AddN(key string, n int) {
	if _, ok := m.counts[key]; !ok {
		m.order = append(m.order, key)
	}
	m.counts[key] += n
}

// Count returns the current count of key, zero if absent.
func (m *Multiset) Count(key string) int {
	return m.counts[key]
}

// Has reports whether key is present with a nonzero count.
func (m *Multiset) Has(key string) bool {
	return m.counts[key] > 0
}

// Remove deletes key entirely, regardless of its count.
func (m *Multiset) Remove(key string) {
	if _, ok := m.counts[key]; !ok {
		return
	}
	delete(m.counts, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Keys returns the distinct keys in first-insertion order. The returned
// slice is shared; callers must not modify it.
func (m *Multiset) Keys() []string {
	return m.order
}

// Len returns the number of distinct keys.
func (m *Multiset) Len() int {
	return len(m.order)
}

// Merge folds every entry of other into m, preserving m's insertion order
// for keys it already holds.
func (m *Multiset) Merge(other *Multiset) {
	if other == nil {
		return
	}
	for _, k := range other.Keys() {
		m.AddN(k, other.Count(k))
	}
}
