package predictor

import (
	"sync"

	"github.com/couchcryptid/feature-prediction-service/internal/earthmodel"
	"golang.org/x/sync/singleflight"
)

// utilityCache keeps the most recently used earth-model utilities so the
// axis validation and hole scan run once per table grid. Concurrent misses
// for the same key share a single build.
type utilityCache struct {
	lru    *lruCache
	builds singleflight.Group
}

func newUtilityCache(maxEntries int) *utilityCache {
	return &utilityCache{lru: newLRUCache(maxEntries)}
}

// getOrBuild returns the cached utility for key, calling build on a miss.
// The second result reports a cache hit. Failed builds are not cached.
func (c *utilityCache) getOrBuild(key string, build func() (*earthmodel.Utility, error)) (*earthmodel.Utility, bool, error) {
	if u, ok := c.lru.get(key); ok {
		return u, true, nil
	}

	v, err, _ := c.builds.Do(key, func() (any, error) {
		if u, ok := c.lru.get(key); ok {
			return u, nil
		}
		u, err := build()
		if err != nil {
			return nil, err
		}
		c.lru.put(key, u)
		return u, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*earthmodel.Utility), false, nil
}

// lruCache is a thread-safe LRU map from grid keys to utilities.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *earthmodel.Utility
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: max(maxEntries, 1),
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*earthmodel.Utility, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *earthmodel.Utility) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
