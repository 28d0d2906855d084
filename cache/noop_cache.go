package cache

import "image"

// NoopCache is a cache that stores nothing. Selecting it effectively
// disables thumbnail caching: every request re-renders.
type NoopCache struct{}

// NewNoopCache creates a cache that never stores a thumbnail.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// Get always misses.
func (c *NoopCache) Get(key Key) (image.Image, bool) {
	return nil, false
}

// Put discards the image.
func (c *NoopCache) Put(key Key, img image.Image) {
}

// Clear does nothing.
func (c *NoopCache) Clear() {
}

// ClearDocument does nothing.
func (c *NoopCache) ClearDocument(document string) int {
	return 0
}

// Len is always 0.
func (c *NoopCache) Len() int {
	return 0
}
