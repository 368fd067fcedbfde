package fetchcache

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type entry struct {
	body      []byte
	fetchedAt time.Time
}

// Cache is the only shared mutable state adapters touch. Keys are literal
// source URLs; there is no partial invalidation.
type Cache struct {
	ttl    time.Duration
	client *http.Client
	logger *log.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	now func() time.Time
}

type EntryStat struct {
	URL     string  `json:"url"`
	Age     float64 `json:"age_seconds"`
	Expired bool    `json:"expired"`
}

type Stats struct {
	Size    int         `json:"size"`
	Entries []EntryStat `json:"entries"`
}

func New(ttl, requestTimeout time.Duration, logger *log.Logger) *Cache {
	return &Cache{
		ttl:     ttl,
		client:  NewHTTPClient(requestTimeout),
		logger:  logger,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Get returns the cached body for url when it is younger than the TTL,
// otherwise fetches fresh. A failed fetch falls back to a stale entry when
// one exists; with no entry the failure propagates to the caller.
func (c *Cache) Get(ctx context.Context, url string) ([]byte, error) {
	now := c.now()

	c.mu.RLock()
	cached, ok := c.entries[url]
	c.mu.RUnlock()

	if ok && now.Sub(cached.fetchedAt) < c.ttl {
		c.logger.Debug("cache hit", "url", url, "age", now.Sub(cached.fetchedAt).Round(time.Second))
		return cached.body, nil
	}

	body, err := FetchBody(ctx, c.client, url)
	if err != nil {
		if ok {
			c.logger.Warn("fetch failed, serving stale", "url", url, "err", err)
			return cached.body, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.entries[url] = &entry{body: body, fetchedAt: now}
	c.mu.Unlock()

	return body, nil
}

// Sweep evicts entries older than the TTL and returns how many were removed.
// The host schedules it; the cache does not run its own timer.
func (c *Cache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for url, e := range c.entries {
		if now.Sub(e.fetchedAt) > c.ttl {
			delete(c.entries, url)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Info("cache sweep", "evicted", removed, "remaining", len(c.entries))
	}

	return removed
}

func (c *Cache) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{Size: len(c.entries), Entries: make([]EntryStat, 0, len(c.entries))}
	for url, e := range c.entries {
		age := now.Sub(e.fetchedAt)
		stats.Entries = append(stats.Entries, EntryStat{
			URL:     url,
			Age:     age.Seconds(),
			Expired: age > c.ttl,
		})
	}

	return stats
}
