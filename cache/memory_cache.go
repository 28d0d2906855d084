package cache

import (
	"container/list"
	"image"
	"sync"
)

type entry struct {
	key Key
	img image.Image
}

// MemoryCache is an in-memory LRU cache for rendered thumbnails. It pairs a
// hash map with a doubly-linked recency list so Get and Put are both O(1),
// and both count as an access: a get moves the entry to the front exactly
// like an insert does. Safe for concurrent use by the render workers.
type MemoryCache struct {
	mu         sync.Mutex
	maxEntries int
	items      map[Key]*list.Element
	order      *list.List // front = most recently used
}

// NewMemoryCache creates an LRU cache holding at most maxEntries thumbnails.
// Sizes below 1 fall back to DefaultMaxEntries.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		items:      make(map[Key]*list.Element),
		order:      list.New(),
	}
}

// Get returns the image stored for key and promotes the entry to most
// recently used. A miss has no side effect.
func (c *MemoryCache) Get(key Key) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry).img, true
}

// Put inserts or overwrites the image for key. If the cache grows past its
// capacity the least recently used entry is evicted, which is not
// necessarily the one just inserted.
func (c *MemoryCache) Put(key Key, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry).img = img
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&entry{key: key, img: img})
	c.items[key] = elem

	if c.order.Len() > c.maxEntries {
		c.evictOldest()
	}
}

// evictOldest drops the back of the recency list. Callers must hold mu.
func (c *MemoryCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	delete(c.items, oldest.Value.(*entry).key)
	c.order.Remove(oldest)
}

// Clear removes every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[Key]*list.Element)
	c.order.Init()
}

// ClearDocument removes all entries whose key belongs to document, leaving
// entries for other documents untouched. Used when a document is closed,
// replaced or deleted from disk.
func (c *MemoryCache) ClearDocument(document string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.items {
		if key.Document == document {
			delete(c.items, key)
			c.order.Remove(elem)
			removed++
		}
	}
	return removed
}

// Len reports the current number of cached thumbnails.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}
