package sim

import (
	"container/list"
	"fmt"
)

// Cache is the capability contract a cache-replacement policy must satisfy.
// Implementations are per-node and single-threaded.
type Cache interface {
	// Has reports whether id is cached, without touching replacement state.
	Has(id ContentID) bool
	// Get looks id up and updates replacement state on a hit.
	Get(id ContentID) bool
	// Put inserts id, returning the evicted item if the insertion displaced
	// one. Re-inserting a cached item refreshes its replacement state.
	Put(id ContentID) (ContentID, bool)
	// Remove deletes id, reporting whether it was present.
	Remove(id ContentID) bool
	// Dump lists the cached items, most recently used first where the
	// policy defines such an order.
	Dump() []ContentID
	// Len is the current number of cached items.
	Len() int
	// MaxLen is the cache capacity in items.
	MaxLen() int
}

// CacheConstructor builds a cache of the given capacity.
type CacheConstructor func(maxLen int) (Cache, error)

// ValidCachePolicies is the set of recognized cache policy names.
var ValidCachePolicies = map[string]bool{"lru": true, "fifo": true}

// NewCache creates a cache policy instance by name. Unknown names are an
// error so misconfigured experiments abort at model construction, not at
// first use.
func NewCache(name string, maxLen int) (Cache, error) {
	if maxLen < 1 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", maxLen)
	}
	switch name {
	case "lru":
		return newListCache(maxLen, true), nil
	case "fifo":
		return newListCache(maxLen, false), nil
	default:
		return nil, fmt.Errorf("unknown cache policy %q", name)
	}
}

// listCache implements LRU (refreshOnGet true) and FIFO (false) on a
// doubly linked list with a lookup map. Front is the replacement victim.
type listCache struct {
	name         string
	maxLen       int
	refreshOnGet bool
	entries      map[ContentID]*list.Element
	order        *list.List // front = oldest, back = newest
}

func newListCache(maxLen int, refreshOnGet bool) *listCache {
	name := "fifo"
	if refreshOnGet {
		name = "lru"
	}
	return &listCache{
		name:         name,
		maxLen:       maxLen,
		refreshOnGet: refreshOnGet,
		entries:      make(map[ContentID]*list.Element),
		order:        list.New(),
	}
}

func (c *listCache) Has(id ContentID) bool {
	_, ok := c.entries[id]
	return ok
}

func (c *listCache) Get(id ContentID) bool {
	el, ok := c.entries[id]
	if !ok {
		return false
	}
	if c.refreshOnGet {
		c.order.MoveToBack(el)
	}
	return true
}

func (c *listCache) Put(id ContentID) (ContentID, bool) {
	if el, ok := c.entries[id]; ok {
		c.order.MoveToBack(el)
		return "", false
	}
	var evicted ContentID
	var didEvict bool
	if c.order.Len() >= c.maxLen {
		victim := c.order.Front()
		evicted = victim.Value.(ContentID)
		didEvict = true
		c.order.Remove(victim)
		delete(c.entries, evicted)
	}
	c.entries[id] = c.order.PushBack(id)
	return evicted, didEvict
}

func (c *listCache) Remove(id ContentID) bool {
	el, ok := c.entries[id]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.entries, id)
	return true
}

func (c *listCache) Dump() []ContentID {
	out := make([]ContentID, 0, c.order.Len())
	for el := c.order.Back(); el != nil; el = el.Prev() {
		out = append(out, el.Value.(ContentID))
	}
	return out
}

func (c *listCache) Len() int    { return c.order.Len() }
func (c *listCache) MaxLen() int { return c.maxLen }

// PolicyName reports which policy variant this cache runs; used when a
// cache is re-instantiated at a different capacity during local-cache
// partitioning.
func (c *listCache) PolicyName() string { return c.name }

// policyNamer is implemented by caches that can report their policy name
// so ReserveLocalCache can rebuild them at a new capacity.
type policyNamer interface {
	PolicyName() string
}
