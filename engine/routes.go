package engine

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/drummonds/goThumbs/config"
	"github.com/drummonds/goThumbs/internal/build"
	"github.com/drummonds/goThumbs/library"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Library      *library.Library
	Thumbnails   *ThumbnailService
}

// GetDocuments lists the registered documents
// @Summary List documents
// @Description Retrieve the documents in the library, paginated and sorted by name
// @Tags Documents
// @Accept json
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Success 200 {object} map[string]interface{} "Documents plus pagination metadata"
// @Router /documents [get]
func (serverHandler *ServerHandler) GetDocuments(context echo.Context) error {
	// Get page parameter (default to 1)
	page := 1
	if pageParam := context.QueryParam("page"); pageParam != "" {
		if p, err := strconv.Atoi(pageParam); err == nil && p > 0 {
			page = p
		}
	}

	// Fixed page size of 20
	pageSize := 20

	documents := serverHandler.Library.Documents()
	totalCount := len(documents)
	totalPages := (totalCount + pageSize - 1) / pageSize // Ceiling division

	start := (page - 1) * pageSize
	if start > totalCount {
		start = totalCount
	}
	end := start + pageSize
	if end > totalCount {
		end = totalCount
	}

	return context.JSON(http.StatusOK, map[string]interface{}{
		"documents":   documents[start:end],
		"page":        page,
		"pageSize":    pageSize,
		"totalCount":  totalCount,
		"totalPages":  totalPages,
		"hasNext":     page < totalPages,
		"hasPrevious": page > 1,
	})
}

// GetDocument fetches one document by its ULID
// @Summary Get a document
// @Description Retrieve one document's registry entry including its page count
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ULID"
// @Success 200 {object} library.Document "Document details"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /document/{id} [get]
func (serverHandler *ServerHandler) GetDocument(context echo.Context) error {
	ulidStr := context.Param("id")
	document, ok := serverHandler.Library.GetByULID(ulidStr)
	if !ok {
		Logger.Warn("GetDocument API call for unknown document", "id", ulidStr)
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "document not found",
		})
	}
	return context.JSON(http.StatusOK, document)
}

// GetDocumentThumbnail renders one page of a document as a PNG thumbnail
// @Summary Get a page thumbnail
// @Description Render a page at the requested zoom, served from the thumbnail cache when possible. X-From-Cache reports whether the cache answered; X-Generation carries the render generation.
// @Tags Thumbnails
// @Produce png
// @Param id path string true "Document ULID"
// @Param page path int true "Zero-based page index"
// @Param zoom query number false "Zoom factor (default 1.0)"
// @Success 200 {file} binary "PNG image"
// @Failure 400 {object} map[string]interface{} "Bad page or zoom parameter"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Failure 422 {object} map[string]interface{} "Page could not be rendered"
// @Router /document/{id}/thumbnail/{page} [get]
func (serverHandler *ServerHandler) GetDocumentThumbnail(context echo.Context) error {
	document, ok := serverHandler.Library.GetByULID(context.Param("id"))
	if !ok {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "document not found",
		})
	}

	page, err := strconv.Atoi(context.Param("page"))
	if err != nil {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "page must be an integer",
		})
	}

	zoom := 1.0
	if zoomParam := context.QueryParam("zoom"); zoomParam != "" {
		zoom, err = strconv.ParseFloat(zoomParam, 64)
		// ParseFloat accepts "NaN" and "Inf" without error; neither is a
		// usable zoom and NaN would poison the cache key
		if err != nil || zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 1) {
			return context.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "zoom must be a positive number",
			})
		}
	}

	result := <-serverHandler.Thumbnails.RequestAsync(document.Path, page, zoom)
	if result.Image == nil {
		return context.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": "page could not be rendered",
		})
	}

	context.Response().Header().Set("X-From-Cache", strconv.FormatBool(result.FromCache))
	context.Response().Header().Set("X-Generation", strconv.FormatUint(result.Generation, 10))
	return writePNG(context, result.Image)
}

// GetDocumentPreview renders one page scaled to an exact pixel width
// @Summary Get a page preview at a fixed width
// @Description Render a page and scale it to the requested width, for layouts that need exact dimensions
// @Tags Thumbnails
// @Produce png
// @Param id path string true "Document ULID"
// @Param page path int true "Zero-based page index"
// @Param width query int false "Target width in pixels (default 320)"
// @Success 200 {file} binary "PNG image"
// @Failure 400 {object} map[string]interface{} "Bad page or width parameter"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Failure 422 {object} map[string]interface{} "Page could not be rendered"
// @Router /document/{id}/preview/{page} [get]
func (serverHandler *ServerHandler) GetDocumentPreview(context echo.Context) error {
	document, ok := serverHandler.Library.GetByULID(context.Param("id"))
	if !ok {
		return context.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "document not found",
		})
	}

	page, err := strconv.Atoi(context.Param("page"))
	if err != nil {
		return context.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "page must be an integer",
		})
	}

	width := 320
	if widthParam := context.QueryParam("width"); widthParam != "" {
		width, err = strconv.Atoi(widthParam)
		if err != nil || width < 16 || width > 4096 {
			return context.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "width must be between 16 and 4096",
			})
		}
	}

	img := serverHandler.Thumbnails.RequestSync(document.Path, page, width)
	if img == nil {
		return context.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": "page could not be rendered",
		})
	}

	// Resize to the exact requested width while maintaining aspect ratio
	preview := imaging.Resize(img, width, 0, imaging.Lanczos)

	// Apply basic sharpening to keep small previews readable
	preview = imaging.Sharpen(preview, 0.5)

	return writePNG(context, preview)
}

// CancelRenders marks all outstanding thumbnail requests as superseded
// @Summary Cancel outstanding renders
// @Description Bump the render generation so results from earlier requests can be recognized as stale. In-flight renders are not interrupted.
// @Tags Thumbnails
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "New generation"
// @Router /renders/cancel [post]
func (serverHandler *ServerHandler) CancelRenders(c echo.Context) error {
	serverHandler.Thumbnails.CancelAll()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"generation": serverHandler.Thumbnails.Generation(),
	})
}

// ClearThumbnailCache drops every cached thumbnail
// @Summary Clear the thumbnail cache
// @Description Remove all cached thumbnails for all documents
// @Tags Cache
// @Accept json
// @Produce json
// @Success 200 {string} string "Cache Cleared"
// @Router /cache [delete]
func (serverHandler *ServerHandler) ClearThumbnailCache(c echo.Context) error {
	serverHandler.Thumbnails.ClearCache()
	return c.JSON(http.StatusOK, "Cache Cleared")
}

// ClearDocumentThumbnails drops the cached thumbnails of one document
// @Summary Clear one document's thumbnails
// @Description Remove all cached thumbnails (every page and zoom) for a single document
// @Tags Cache
// @Accept json
// @Produce json
// @Param id path string true "Document ULID"
// @Success 200 {object} map[string]interface{} "Number of entries removed"
// @Failure 404 {object} map[string]interface{} "Document not found"
// @Router /cache/document/{id} [delete]
func (serverHandler *ServerHandler) ClearDocumentThumbnails(c echo.Context) error {
	ulidStr := c.Param("id")
	document, ok := serverHandler.Library.GetByULID(ulidStr)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "document not found",
		})
	}
	removed := serverHandler.Thumbnails.RemoveCached(document.Path)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"removed": removed,
	})
}

// GetCacheStats reports thumbnail cache usage
// @Summary Get cache statistics
// @Description Report cached entry count, configured bound, driver, render generation and worker pool size
// @Tags Cache
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Cache statistics"
// @Router /cache/stats [get]
func (serverHandler *ServerHandler) GetCacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries":    serverHandler.Thumbnails.CacheSize(),
		"maxEntries": serverHandler.ServerConfig.ThumbCacheSize,
		"driver":     serverHandler.ServerConfig.ThumbCache,
		"generation": serverHandler.Thumbnails.Generation(),
		"workers":    serverHandler.Thumbnails.Workers(),
	})
}

// RescanLibrary triggers a library scan manually
// @Summary Rescan the document folder
// @Description Walk the document folder now, registering new documents and evicting cached thumbnails of documents that vanished
// @Tags Admin
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Scan summary"
// @Failure 500 {object} map[string]interface{} "Scan failed"
// @Router /library/rescan [post]
func (serverHandler *ServerHandler) RescanLibrary(c echo.Context) error {
	Logger.Info("Manual library rescan triggered via API")
	summary, err := serverHandler.Library.Scan()
	if err != nil {
		Logger.Error("Library rescan failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "rescan failed",
		})
	}

	evicted := 0
	for _, removed := range summary.Removed {
		evicted += serverHandler.Thumbnails.RemoveCached(removed.Path)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total":             summary.Total,
		"added":             summary.Added,
		"updated":           summary.Updated,
		"removed":           len(summary.Removed),
		"evictedThumbnails": evicted,
	})
}

// GetAboutInfo returns server information
// @Summary Get system information
// @Description Retrieve version and configuration details about the server
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "System information"
// @Router /about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {
	aboutInfo := map[string]interface{}{
		"version":       build.Version,
		"buildDate":     build.BuildDate,
		"documentPath":  serverHandler.Library.Root(),
		"renderer":      serverHandler.ServerConfig.Renderer,
		"documentCount": serverHandler.Library.Len(),
		"cacheDriver":   serverHandler.ServerConfig.ThumbCache,
		"cacheEntries":  serverHandler.Thumbnails.CacheSize(),
		"renderWorkers": serverHandler.Thumbnails.Workers(),
		"scanInterval":  serverHandler.ServerConfig.ScanInterval,
	}

	return c.JSON(http.StatusOK, aboutInfo)
}

// writePNG encodes an image and sends it as the response body
func writePNG(context echo.Context, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		Logger.Error("Unable to encode thumbnail as PNG", "error", err)
		return context.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "encoding failed",
		})
	}
	return context.Blob(http.StatusOK, "image/png", buf.Bytes())
}
