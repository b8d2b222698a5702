package cache

import (
	"testing"
	"time"

	"github.com/fieldops/claimflow/internal/clock"
)

func TestTTLCacheExpiry(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	c := NewTTLCacheWithClock[string, int](fakeClock)

	c.Set("a", 1, time.Minute)

	if got, ok := c.Get("a"); !ok || got != 1 {
		t.Fatalf("expected fresh entry, got %d, %v", got, ok)
	}

	fakeClock.Advance(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestTTLCacheZeroTTLNotStored(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("a", "x", 0)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("zero TTL entries must not be stored")
	}
}

func TestTTLCacheInvalidate(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("a", "x", time.Hour)
	c.Set("b", "y", time.Hour)
	c.Invalidate()
	if _, ok := c.Get("a"); ok {
		t.Fatalf("invalidate should drop everything")
	}
	if _, ok := c.Get("b"); ok {
		t.Fatalf("invalidate should drop everything")
	}
}
