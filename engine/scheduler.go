package engine

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// InitializeSchedules starts all the cron jobs (currently just one)
func (serverHandler *ServerHandler) InitializeSchedules() {
	// Run a library scan immediately at startup in a goroutine
	Logger.Info("Running library scan at startup")
	go serverHandler.libraryScanJobFunc()

	c := cron.New()
	var scanJob cron.Job
	scanJob = cron.FuncJob(serverHandler.libraryScanJobFunc)
	scanJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(scanJob) //ensure we don't kick off another if old one is still running
	c.AddJob(fmt.Sprintf("@every %dm", serverHandler.ServerConfig.ScanInterval), scanJob)
	Logger.Info("Adding library scan scheduler", "interval_minutes", serverHandler.ServerConfig.ScanInterval)
	c.Start()
}

// libraryScanJobFunc reconciles the registry with the document folder and
// evicts cached thumbnails of documents that vanished
func (serverHandler *ServerHandler) libraryScanJobFunc() {
	// Add panic recovery to prevent crashes
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in library scan job", "panic", r)
		}
	}()

	summary, err := serverHandler.Library.Scan()
	if err != nil {
		Logger.Error("Scheduled library scan failed", "error", err)
		return
	}

	for _, removed := range summary.Removed {
		serverHandler.Thumbnails.RemoveCached(removed.Path)
	}

	Logger.Info("Scheduled library scan finished", "documents", summary.Total,
		"added", summary.Added, "removed", len(summary.Removed),
		"cachedThumbnails", serverHandler.Thumbnails.CacheSize())
}
