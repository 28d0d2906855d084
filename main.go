package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	cache "github.com/drummonds/goThumbs/cache"
	config "github.com/drummonds/goThumbs/config"
	engine "github.com/drummonds/goThumbs/engine"
	"github.com/drummonds/goThumbs/engine/pagerenderer"
	"github.com/drummonds/goThumbs/library"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	config.Logger = Logger
	engine.Logger = Logger
	library.Logger = Logger
}

// @title goThumbs API
// @version 1.0
// @description Page thumbnail rendering and caching service for document libraries
// @description Renders document pages to PNG thumbnails on demand with an LRU cache and coalesced render workers

// @contact.name API Support
// @contact.url https://github.com/drummonds/goThumbs

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @tag.name Documents
// @tag.description Document registry operations

// @tag.name Thumbnails
// @tag.description Page thumbnail rendering operations

// @tag.name Cache
// @tag.description Thumbnail cache inspection and eviction

// @tag.name Admin
// @tag.description Administrative operations (rescan, system info)

func main() {
	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages

	Logger.Info("Setting up thumbnail cache", "driver", serverConfig.ThumbCache)
	thumbCache, err := cache.New(serverConfig.ThumbCache, serverConfig.ThumbCacheSize)
	if err != nil {
		Logger.Error("Failed to set up thumbnail cache", "error", err)
		os.Exit(1)
	}

	renderer, err := pagerenderer.NewRenderer(serverConfig.Renderer)
	if err != nil {
		Logger.Error("Failed to set up page renderer", "error", err)
		os.Exit(1)
	}
	defer renderer.Close()
	Logger.Info("Page renderer ready")

	thumbnails := engine.NewThumbnailService(renderer, thumbCache, serverConfig.RenderWorkers)
	documentLibrary := library.NewLibrary(serverConfig.DocumentPath, renderer)

	e := echo.New()
	Logger.Info("Echo created")

	// Custom 404 handler
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound {
			// Check if this is an API request
			if strings.HasPrefix(c.Request().URL.Path, "/api/") {
				// Return JSON for API endpoints
				c.JSON(http.StatusNotFound, map[string]string{
					"error":   "Not Found",
					"message": "The requested API endpoint does not exist",
					"path":    c.Request().URL.Path,
				})
				return
			}

			c.HTML(http.StatusNotFound, `<!DOCTYPE html>
<html>
<head><title>404 - Not Found</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
	<h1>404 - Page Not Found</h1>
	<p>The page you're looking for doesn't exist.</p>
	<a href="/api/documents" style="color: #3498db; text-decoration: none; font-size: 18px;">← Browse the document API</a>
</body>
</html>`)
			return
		}

		// For other errors, use default handler
		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler := engine.ServerHandler{
		Echo:         e,
		ServerConfig: serverConfig,
		Library:      documentLibrary,
		Thumbnails:   thumbnails,
	}
	Logger.Info("About to run startup checks")
	if err := serverHandler.StartupChecks(); err != nil { //Run all the sanity checks
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	Logger.Info("Startup checks complete, about to initialize schedules")
	serverHandler.InitializeSchedules() //initialize all the cron jobs
	Logger.Info("Schedules initialized")
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	//Start the API routes - all under /api/* prefix for clarity

	// Document API routes
	e.GET("/api/documents", serverHandler.GetDocuments)
	e.GET("/api/document/:id", serverHandler.GetDocument)

	// Thumbnail API routes
	e.GET("/api/document/:id/thumbnail/:page", serverHandler.GetDocumentThumbnail)
	e.GET("/api/document/:id/preview/:page", serverHandler.GetDocumentPreview)
	e.POST("/api/renders/cancel", serverHandler.CancelRenders)

	// Cache API routes
	e.DELETE("/api/cache", serverHandler.ClearThumbnailCache)
	e.DELETE("/api/cache/document/:id", serverHandler.ClearDocumentThumbnails)
	e.GET("/api/cache/stats", serverHandler.GetCacheStats)

	// Admin API routes
	e.POST("/api/library/rescan", serverHandler.RescanLibrary)
	e.GET("/api/about", serverHandler.GetAboutInfo)

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
		if ip, err := config.GetPreferredOutboundIP(); err == nil {
			Logger.Info("Server reachable at", "url", fmt.Sprintf("http://%s:%s", ip, serverConfig.ListenAddrPort))
		}
	}

	// Shut down cleanly on SIGINT/SIGTERM: drain in-flight renders, then
	// stop the HTTP server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		Logger.Info("Shutdown signal received, draining renders")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := thumbnails.Shutdown(ctx); err != nil {
			Logger.Warn("Render drain incomplete", "error", err)
		}
		if err := e.Shutdown(ctx); err != nil {
			Logger.Error("Server forced to shutdown", "error", err)
		}
	}()

	Logger.Info("Starting HTTP server")

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := serverConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = e.Start(addr)

		// Check if error is "address already in use"
		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", serverConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			// Increment port for next attempt
			portNum := 0
			fmt.Sscanf(serverConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			serverConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", serverConfig.ListenAddrPort,
					"max_retries", maxRetries)
				Logger.Error("Please reboot your computer to free up ports or manually stop conflicting processes")
				os.Exit(1)
			}
		} else if startErr != nil && startErr != http.ErrServerClosed {
			// Some other error occurred
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		} else {
			// Server started and was shut down cleanly
			Logger.Info("Server stopped")
			break
		}
	}

	if serverConfig.ListenAddrPort != startPort {
		Logger.Warn("Server ran on alternative port due to conflicts",
			"requested_port", startPort,
			"actual_port", serverConfig.ListenAddrPort)
	}
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "address already in use")
}
