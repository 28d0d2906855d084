// Package cache provides the bounded in-memory store for rendered page
// thumbnails. Keys quantize the requested zoom so that near-identical zoom
// levels (for example a slider mid-drag) share one cache entry per page.
package cache

import (
	"image"
	"math"
)

// DefaultMaxEntries bounds the memory cache when no size is configured.
const DefaultMaxEntries = 200

// Key identifies one cached thumbnail: a document, a 0-based page index and
// a zoom bucket. Keys are plain comparable values so they can index a map.
type Key struct {
	Document string
	Page     int
	Zoom     float64 // bucketed, see BucketZoom
}

// BucketZoom quantizes a zoom factor to the nearest 0.1 step, rounding ties
// up (1.05 -> 1.1, 0.95 -> 1.0). Both lookups and insertions go through the
// same bucketing so any two zooms in one bucket hit the same entry.
func BucketZoom(zoom float64) float64 {
	return math.Round(zoom*10) / 10
}

// NewKey builds a cache key, applying zoom bucketing.
func NewKey(document string, page int, zoom float64) Key {
	return Key{Document: document, Page: page, Zoom: BucketZoom(zoom)}
}

// Cache is the interface for a thumbnail cache.
type Cache interface {
	// Get returns the cached image for key and refreshes its recency.
	Get(key Key) (image.Image, bool)
	// Put inserts or replaces the image for key, evicting the least
	// recently used entry when the cache is over capacity.
	Put(key Key, img image.Image)
	// Clear removes every entry.
	Clear()
	// ClearDocument removes all entries belonging to one document and
	// reports how many were dropped.
	ClearDocument(document string) int
	// Len is the current number of entries.
	Len() int
}
