package application

import (
	"sync"
	"time"
)

// reportCache keeps recently built summaries so that repeated dashboard
// refreshes within the TTL do not rescan four months of reservations.
type reportCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]reportCacheEntry
}

type reportCacheEntry struct {
	summary   ReportSummary
	expiresAt time.Time
}

func newReportCache(ttl time.Duration, maxEntries int, now func() time.Time) *reportCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 16
	}
	if now == nil {
		now = time.Now
	}
	return &reportCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]reportCacheEntry),
	}
}

func (c *reportCache) Get(key string) (ReportSummary, bool) {
	if c == nil {
		return ReportSummary{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return ReportSummary{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return ReportSummary{}, false
	}
	return cloneSummary(entry.summary), true
}

func (c *reportCache) Store(key string, summary ReportSummary) {
	if c == nil {
		return
	}
	cloned := cloneSummary(summary)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = reportCacheEntry{summary: cloned, expiresAt: expiry}
}

func (c *reportCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]reportCacheEntry)
	c.mu.Unlock()
}

func (c *reportCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *reportCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSummary(s ReportSummary) ReportSummary {
	s.PerDay = cloneCounts(s.PerDay)
	s.TopDays = cloneCounts(s.TopDays)
	s.ByWeekday = cloneCounts(s.ByWeekday)
	s.ByState = cloneCounts(s.ByState)
	s.ByChannel = cloneCounts(s.ByChannel)
	s.TopHours = cloneCounts(s.TopHours)
	if s.TableUsage != nil {
		usage := make([]TableUsage, len(s.TableUsage))
		copy(usage, s.TableUsage)
		s.TableUsage = usage
	}
	return s
}

func cloneCounts(entries []CountEntry) []CountEntry {
	if len(entries) == 0 {
		return nil
	}
	out := make([]CountEntry, len(entries))
	copy(out, entries)
	return out
}
