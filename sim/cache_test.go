package sim

import (
	"reflect"
	"testing"
)

func TestNewCache_UnknownPolicyAndBadCapacity(t *testing.T) {
	if _, err := NewCache("arc", 10); err == nil {
		t.Error("unknown policy should error")
	}
	if _, err := NewCache("lru", 0); err == nil {
		t.Error("zero capacity should error")
	}
	if _, err := NewCache("lru", -3); err == nil {
		t.Error("negative capacity should error")
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewCache("lru", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.Put("a")
	c.Put("b")
	// Touch a so b becomes the victim.
	if !c.Get("a") {
		t.Fatal("expected hit on a")
	}
	evicted, ok := c.Put("c")
	if !ok || evicted != "b" {
		t.Errorf("evicted = %q (%v), want b", evicted, ok)
	}
	if !c.Has("a") || !c.Has("c") || c.Has("b") {
		t.Errorf("cache contents wrong: %v", c.Dump())
	}
}

func TestFIFOCache_GetDoesNotRefresh(t *testing.T) {
	c, err := NewCache("fifo", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.Put("a")
	c.Put("b")
	// Under FIFO a stays the victim even after a hit.
	if !c.Get("a") {
		t.Fatal("expected hit on a")
	}
	evicted, ok := c.Put("c")
	if !ok || evicted != "a" {
		t.Errorf("evicted = %q (%v), want a", evicted, ok)
	}
}

func TestCache_PutExistingRefreshes(t *testing.T) {
	c, _ := NewCache("lru", 2)
	c.Put("a")
	c.Put("b")

	// Re-inserting a cached item must not evict and must refresh it.
	if evicted, ok := c.Put("a"); ok {
		t.Errorf("re-insert evicted %q", evicted)
	}
	evicted, ok := c.Put("c")
	if !ok || evicted != "b" {
		t.Errorf("evicted = %q (%v), want b", evicted, ok)
	}
}

func TestCache_RemoveAndDump(t *testing.T) {
	c, _ := NewCache("lru", 3)
	c.Put("a")
	c.Put("b")
	c.Put("c")

	if got := c.Dump(); !reflect.DeepEqual(got, []ContentID{"c", "b", "a"}) {
		t.Errorf("Dump() = %v, want [c b a]", got)
	}
	if !c.Remove("b") {
		t.Error("Remove(b) should report presence")
	}
	if c.Remove("b") {
		t.Error("second Remove(b) should report absence")
	}
	if c.Len() != 2 || c.MaxLen() != 3 {
		t.Errorf("Len/MaxLen = %d/%d, want 2/3", c.Len(), c.MaxLen())
	}
}

func TestListCache_PolicyName(t *testing.T) {
	lru, _ := NewCache("lru", 1)
	fifo, _ := NewCache("fifo", 1)

	if name := lru.(policyNamer).PolicyName(); name != "lru" {
		t.Errorf("PolicyName() = %q, want lru", name)
	}
	if name := fifo.(policyNamer).PolicyName(); name != "fifo" {
		t.Errorf("PolicyName() = %q, want fifo", name)
	}
}
