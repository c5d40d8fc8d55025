package application

import (
	"testing"
	"time"
)

func TestReportCacheStoresAndReturnsCopies(t *testing.T) {
	current := fixedNow
	cache := newReportCache(time.Minute, 4, func() time.Time { return current })

	original := ReportSummary{Total30: 3, PerDay: []CountEntry{{Label: "2024-03-14", Count: 3}}}
	cache.Store("2024-03-14", original)

	// Mutating the original slice should not affect the cached copy.
	original.PerDay[0].Count = 99

	cached, ok := cache.Get("2024-03-14")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached.PerDay[0].Count != 3 {
		t.Fatalf("expected cached count to remain unchanged, got %d", cached.PerDay[0].Count)
	}

	cached.PerDay[0].Count = 42
	again, _ := cache.Get("2024-03-14")
	if again.PerDay[0].Count != 3 {
		t.Fatalf("expected cache to return independent copy, got %d", again.PerDay[0].Count)
	}
}

func TestReportCacheExpiresEntries(t *testing.T) {
	current := fixedNow
	cache := newReportCache(time.Second, 4, func() time.Time { return current })

	cache.Store("key", ReportSummary{Total120: 1})
	if _, ok := cache.Get("key"); !ok {
		t.Fatalf("expected cache hit before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestReportCacheInvalidate(t *testing.T) {
	cache := newReportCache(time.Minute, 4, time.Now)
	cache.Store("key", ReportSummary{Total120: 1})
	cache.Invalidate()
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache to be empty after invalidation")
	}
}

func TestReportCacheBoundsEntries(t *testing.T) {
	cache := newReportCache(time.Minute, 2, time.Now)
	for _, key := range []string{"a", "b", "c"} {
		cache.Store(key, ReportSummary{})
	}
	if len(cache.entries) != 2 {
		t.Fatalf("expected at most 2 entries, got %d", len(cache.entries))
	}
}
