package application

import (
	"strings"
	"sync"
	"time"

	"github.com/example/synccircle/internal/layout"
)

// viewCache stores recently built week grids so repeated reads of the same
// week skip the snapshot load and layout while the circle is unchanged.
type viewCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]viewCacheEntry
}

type viewCacheEntry struct {
	week      layout.Week
	expiresAt time.Time
}

func newViewCache(ttl time.Duration, maxEntries int, now func() time.Time) *viewCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &viewCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]viewCacheEntry),
	}
}

func (c *viewCache) Get(key string) (layout.Week, bool) {
	if c == nil {
		return layout.Week{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return layout.Week{}, false
	}
	now := c.now()
	if !now.After(entry.expiresAt) {
		return cloneWeek(entry.week), true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A Store may have replaced the entry since the read lock was released.
	entry, ok = c.entries[key]
	if !ok {
		return layout.Week{}, false
	}
	if now.After(entry.expiresAt) {
		delete(c.entries, key)
		return layout.Week{}, false
	}
	return cloneWeek(entry.week), true
}

func (c *viewCache) Store(key string, week layout.Week) {
	if c == nil {
		return
	}
	cloned := cloneWeek(week)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = viewCacheEntry{week: cloned, expiresAt: expiry}
}

// InvalidateCircle drops every cached week of circleID.
func (c *viewCache) InvalidateCircle(circleID string) {
	if c == nil {
		return
	}
	prefix := circleID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *viewCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]viewCacheEntry)
	c.mu.Unlock()
}

func (c *viewCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *viewCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *viewCache) evictOneLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expiresAt.Before(oldest) {
			oldestKey, oldest = key, entry.expiresAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func cloneWeek(week layout.Week) layout.Week {
	out := week
	for i := range out.Days {
		blocks := make([]layout.Block, len(week.Days[i].Blocks))
		copy(blocks, week.Days[i].Blocks)
		out.Days[i].Blocks = blocks
	}
	return out
}

func buildViewCacheKey(circleID string, date time.Time, viewerTimezone string, reference layout.DSTReference) string {
	builder := strings.Builder{}
	builder.WriteString(circleID)
	builder.WriteString("|")
	builder.WriteString(layout.FormatDate(date))
	builder.WriteString("|")
	builder.WriteString(viewerTimezone)
	builder.WriteString("|")
	builder.WriteString(string(reference))
	return builder.String()
}
