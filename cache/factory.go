package cache

import "fmt"

// New creates a cache for the configured driver. Supported drivers are
// "memory" (bounded LRU, the default) and "disabled" (no caching).
func New(driver string, maxEntries int) (Cache, error) {
	switch driver {
	case "", "memory":
		return NewMemoryCache(maxEntries), nil
	case "disabled":
		return NewNoopCache(), nil
	default:
		return nil, fmt.Errorf("unknown thumbnail cache driver: %s (supported: memory, disabled)", driver)
	}
}
