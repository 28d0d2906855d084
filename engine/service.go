package engine

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/drummonds/goThumbs/cache"
	"github.com/drummonds/goThumbs/engine/pagerenderer"
)

const (
	// BaseDPI is the rasterization resolution at zoom 1.0
	BaseDPI = 120.0
	// MaxDPI caps rasterization cost no matter how far a caller zooms in
	MaxDPI = 240.0
	// DefaultRenderWorkers bounds concurrent page renders when the config
	// does not say otherwise
	DefaultRenderWorkers = 2

	// a4WidthInches is the paper width assumed when converting a requested
	// pixel width into a DPI, since the renderer exposes no page geometry
	a4WidthInches = 8.27
)

// Result is what a thumbnail request resolves to. Image is nil when no
// thumbnail is available (bad input, missing file, corrupt page); that is
// the normal "show a placeholder" outcome, not an error. Generation is the
// service generation captured when the request was submitted, so callers
// that issued CancelAll can recognize and discard stale results.
type Result struct {
	Image      image.Image
	FromCache  bool
	Generation uint64
}

// ThumbnailService renders page thumbnails through a bounded worker pool
// and caches them. One instance per viewing session; it owns its own
// generation counter and dies with the session.
type ThumbnailService struct {
	renderer pagerenderer.Renderer
	cache    cache.Cache

	generation atomic.Uint64
	flight     singleflight.Group
	workers    chan struct{} // semaphore bounding concurrent renders

	mu     sync.Mutex // guards closed and wg.Add ordering against Shutdown
	wg     sync.WaitGroup
	closed bool
}

// NewThumbnailService creates a dispatcher over the given renderer and
// cache. workers bounds how many pages render concurrently.
func NewThumbnailService(renderer pagerenderer.Renderer, thumbCache cache.Cache, workers int) *ThumbnailService {
	if workers < 1 {
		workers = DefaultRenderWorkers
	}
	return &ThumbnailService{
		renderer: renderer,
		cache:    thumbCache,
		workers:  make(chan struct{}, workers),
	}
}

// DPIForZoom converts a zoom factor to a rasterization DPI, capped so a
// runaway zoom can never produce an oversized raster
func DPIForZoom(zoom float64) float64 {
	dpi := BaseDPI * zoom
	if dpi > MaxDPI {
		dpi = MaxDPI
	}
	return dpi
}

// ZoomForWidth converts a requested pixel width into the zoom factor that
// rasterizes an A4 portrait page to roughly that width
func ZoomForWidth(targetWidthPx int) float64 {
	return float64(targetWidthPx) / a4WidthInches / BaseDPI
}

// RequestAsync requests a thumbnail of one page. It never blocks and never
// panics: the returned channel receives exactly one Result and is then
// closed. A cache hit resolves immediately with FromCache true. Invalid
// input, a missing document or a render failure all resolve to a nil
// image. Concurrent requests for the same page and zoom bucket share one
// render instead of each occupying a worker.
func (s *ThumbnailService) RequestAsync(document string, pageIndex int, zoom float64) <-chan Result {
	out := make(chan Result, 1)
	gen := s.generation.Load()

	// A non-finite zoom would bucket to a NaN/Inf cache key that never
	// matches itself, so every such request would re-render and push a
	// permanently unreachable entry into the LRU
	if document == "" || pageIndex < 0 || zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 1) {
		Logger.Debug("Rejecting invalid thumbnail request", "document", document, "page", pageIndex, "zoom", zoom)
		out <- Result{Generation: gen}
		close(out)
		return out
	}

	key := cache.NewKey(document, pageIndex, zoom)
	if img, ok := s.cache.Get(key); ok {
		out <- Result{Image: img, FromCache: true, Generation: gen}
		close(out)
		return out
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		Logger.Debug("Rejecting thumbnail request after shutdown", "document", document, "page", pageIndex)
		out <- Result{Generation: gen}
		close(out)
		return out
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		img := s.renderShared(key, zoom)
		out <- Result{Image: img, FromCache: false, Generation: gen}
		close(out)
	}()

	return out
}

// renderShared renders one page through the singleflight group so that
// concurrent requests for the same key share a single render. Only the
// flight leader takes a worker slot; waiters just block on the result.
// Returns nil on any failure.
func (s *ThumbnailService) renderShared(key cache.Key, zoom float64) image.Image {
	flightKey := fmt.Sprintf("%s|%d|%.1f", key.Document, key.Page, key.Zoom)

	v, err, _ := s.flight.Do(flightKey, func() (val interface{}, err error) {
		// Renderer bugs must never take down a caller
		defer func() {
			if r := recover(); r != nil {
				Logger.Error("Panic recovered during page render", "panic", r, "document", key.Document, "page", key.Page)
				val = nil
				err = fmt.Errorf("render panic: %v", r)
			}
		}()

		// A previous flight may have cached this key between our miss and
		// now; a fresh lookup is cheaper than a render
		if img, ok := s.cache.Get(key); ok {
			return img, nil
		}

		s.workers <- struct{}{} //take a worker slot, released when the render finishes
		defer func() { <-s.workers }()

		dpi := DPIForZoom(zoom)
		img, renderErr := s.renderer.RenderPage(key.Document, key.Page, dpi)
		if renderErr != nil {
			Logger.Warn("Page render failed", "document", key.Document, "page", key.Page, "dpi", dpi, "error", renderErr)
			return nil, renderErr
		}

		// Cache even if a CancelAll superseded this request's generation:
		// the render is done, the pixels are valid, and the caller can
		// discard the result by generation if it no longer wants it.
		s.cache.Put(key, img)
		return img, nil
	})
	if err != nil || v == nil {
		return nil
	}
	return v.(image.Image)
}

// RequestSync is the blocking variant for callers that cannot consume a
// channel. It derives the zoom from the requested pixel width and waits
// for the render to finish. Returns nil on any failure, same as
// RequestAsync.
func (s *ThumbnailService) RequestSync(document string, pageIndex int, targetWidthPx int) image.Image {
	if document == "" || pageIndex < 0 || targetWidthPx <= 0 {
		Logger.Debug("Rejecting invalid sync thumbnail request", "document", document, "page", pageIndex, "width", targetWidthPx)
		return nil
	}
	result := <-s.RequestAsync(document, pageIndex, ZoomForWidth(targetWidthPx))
	return result.Image
}

// PageCount reports how many pages a document has, or 0 when the document
// is missing or unreadable
func (s *ThumbnailService) PageCount(document string) int {
	if document == "" {
		return 0
	}
	count, err := s.renderer.PageCount(document)
	if err != nil {
		Logger.Warn("Unable to count pages", "document", document, "error", err)
		return 0
	}
	return count
}

// CancelAll bumps the generation so callers can recognize results from
// requests issued before this point. In-flight renders are not
// interrupted; rendering a page is atomic.
func (s *ThumbnailService) CancelAll() {
	gen := s.generation.Add(1)
	Logger.Info("Cancelled outstanding thumbnail requests", "generation", gen)
}

// Generation returns the current generation counter
func (s *ThumbnailService) Generation() uint64 {
	return s.generation.Load()
}

// ClearCache drops every cached thumbnail
func (s *ThumbnailService) ClearCache() {
	s.cache.Clear()
	Logger.Info("Thumbnail cache cleared")
}

// RemoveCached drops all cached thumbnails for one document and reports
// how many entries that was
func (s *ThumbnailService) RemoveCached(document string) int {
	removed := s.cache.ClearDocument(document)
	if removed > 0 {
		Logger.Info("Evicted cached thumbnails for document", "document", document, "removed", removed)
	}
	return removed
}

// CacheSize reports how many thumbnails are currently cached
func (s *ThumbnailService) CacheSize() int {
	return s.cache.Len()
}

// Workers reports the size of the render worker pool
func (s *ThumbnailService) Workers() int {
	return cap(s.workers)
}

// Shutdown stops accepting new requests and waits for in-flight renders
// to finish, or until ctx expires. Requests submitted after Shutdown
// resolve immediately with a nil image.
func (s *ThumbnailService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	Logger.Info("Thumbnail service shutting down, draining in-flight renders")
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		Logger.Info("Thumbnail service drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("thumbnail service drain interrupted: %w", ctx.Err())
	}
}
