package cache

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCache_Eviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recent
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("a = %q, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", "2") // refreshes b
	clock.t = clock.t.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be expired")
	}
	if removed := c.CleanExpired(); removed != 0 {
		t.Fatalf("CleanExpired removed %d, want 0", removed)
	}
	clock.t = clock.t.Add(time.Minute)
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired removed %d, want 1", removed)
	}
}

func TestLRUCache_DeletePrefixAndStats(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("s1:1:cards", "x")
	c.Set("s1:2:goals", "y")
	c.Set("s2:1:cards", "z")

	if n := c.DeletePrefix("s1:"); n != 2 {
		t.Fatalf("DeletePrefix = %d, want 2", n)
	}
	c.Get("s2:1:cards")
	c.Get("s1:1:cards")

	st := c.Stats()
	if st.Size != 1 || st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestLRUCache_GetOrSet(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	calls := 0
	compute := func() (string, error) { calls++; return "v", nil }

	for i := 0; i < 3; i++ {
		if v, err := c.GetOrSet("k", compute); err != nil || v != "v" {
			t.Fatalf("GetOrSet = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("compute called %d times", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrSet("bad", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Fatal("failed compute must not be cached")
	}
}

func TestManager_SweepAndStop(t *testing.T) {
	c, clock := newTestCache(10, time.Second)
	c.Set("a", "1")
	clock.t = clock.t.Add(2 * time.Second)

	m := NewManager(nil)
	m.Register("dashboards", c)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()

	// Stop without a running loop must not block.
	NewManager(nil).Stop()
}
