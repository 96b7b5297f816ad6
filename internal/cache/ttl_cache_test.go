package cache

import (
	"testing"
	"time"
)

func TestGetMissesAfterExpiry(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("k", 42, 5*time.Millisecond)

	if got, ok := c.Get("k"); !ok || got != 42 {
		t.Fatalf("Get = %d, %v; want 42 before expiry", got, ok)
	}

	time.Sleep(10 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("k", "v", 0)

	time.Sleep(5 * time.Millisecond)

	if got, ok := c.Get("k"); !ok || got != "v" {
		t.Fatalf("Get = %q, %v; want zero-ttl entry kept", got, ok)
	}
}

func TestSetPrunesExpiredEntries(t *testing.T) {
	c := NewTTLCache[int, int]()
	c.pruneSize = 4

	for i := 0; i < 3; i++ {
		c.Set(i, i, time.Millisecond)
	}
	time.Sleep(5 * time.Millisecond)

	c.Set(100, 100, time.Minute)

	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	if size != 1 {
		t.Fatalf("entries = %d, want expired entries pruned on set", size)
	}
}
