package application

import (
	"testing"
	"time"

	"github.com/example/synccircle/internal/layout"
)

func sampleWeek() layout.Week {
	var week layout.Week
	week.Days[0].Blocks = []layout.Block{{Event: layout.ScheduleEvent{ID: "event-1"}, DisplayStart: 540}}
	return week
}

func TestViewCacheStoresAndReturnsCopies(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newViewCache(time.Minute, 4, func() time.Time { return current })

	original := sampleWeek()
	cache.Store("c1|2024-05-01|UTC|now", original)

	// Mutating the original week should not affect the cached copy.
	original.Days[0].Blocks[0].DisplayStart = 0

	cached, ok := cache.Get("c1|2024-05-01|UTC|now")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached.Days[0].Blocks[0].DisplayStart != 540 {
		t.Fatalf("expected cached block to remain unchanged, got %d", cached.Days[0].Blocks[0].DisplayStart)
	}

	cached.Days[0].Blocks[0].DisplayStart = 1
	again, _ := cache.Get("c1|2024-05-01|UTC|now")
	if again.Days[0].Blocks[0].DisplayStart != 540 {
		t.Fatalf("expected cache to return independent copy, got %d", again.Days[0].Blocks[0].DisplayStart)
	}
}

func TestViewCacheExpiresEntries(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newViewCache(time.Second, 4, func() time.Time { return current })

	cache.Store("key", sampleWeek())
	if _, ok := cache.Get("key"); !ok {
		t.Fatalf("expected cache hit before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestViewCacheKeepsEntryStoredDuringExpiredRead(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var (
		cache   *viewCache
		refresh bool
	)
	fresh := sampleWeek()
	fresh.Days[0].Blocks[0].DisplayStart = 600

	cache = newViewCache(time.Second, 4, func() time.Time {
		if refresh {
			// Another request rebuilds the week between the read and the eviction.
			refresh = false
			cache.Store("key", fresh)
		}
		return current
	})

	cache.Store("key", sampleWeek())
	current = current.Add(2 * time.Second)
	refresh = true

	got, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected the refreshed entry to be served")
	}
	if got.Days[0].Blocks[0].DisplayStart != 600 {
		t.Fatalf("expected refreshed week, got %d", got.Days[0].Blocks[0].DisplayStart)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected refreshed entry to stay cached, got %d entries", cache.Len())
	}
}

func TestViewCacheInvalidateCircle(t *testing.T) {
	cache := newViewCache(time.Minute, 8, time.Now)
	cache.Store(buildViewCacheKey("c1", time.Now(), "UTC", layout.DSTReferenceNow), sampleWeek())
	cache.Store(buildViewCacheKey("c10", time.Now(), "UTC", layout.DSTReferenceNow), sampleWeek())

	cache.InvalidateCircle("c1")
	if cache.Len() != 1 {
		t.Fatalf("expected only c10 to remain, got %d entries", cache.Len())
	}
	if _, ok := cache.Get(buildViewCacheKey("c10", time.Now(), "UTC", layout.DSTReferenceNow)); !ok {
		t.Fatalf("expected other circle to stay cached")
	}

	cache.Invalidate()
	if cache.Len() != 0 {
		t.Fatalf("expected cache to be empty after invalidation")
	}
}

func TestViewCacheEvictsWhenFull(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newViewCache(time.Minute, 2, func() time.Time { return current })

	cache.Store("a", sampleWeek())
	current = current.Add(time.Second)
	cache.Store("b", sampleWeek())
	current = current.Add(time.Second)
	cache.Store("c", sampleWeek())

	if cache.Len() != 2 {
		t.Fatalf("expected cache to stay at capacity, got %d", cache.Len())
	}
	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected oldest entry to be evicted")
	}
}
