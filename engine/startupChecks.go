package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/drummonds/goThumbs/config"
	"github.com/drummonds/goThumbs/library"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	serverConfig := serverHandler.ServerConfig
	if err := documentDirectoryChecks(serverConfig); err != nil {
		return err
	}
	documentInventoryChecks(serverConfig)
	return nil
}

// documentDirectoryChecks ensures the document directory exists
func documentDirectoryChecks(serverConfig config.ServerConfig) error {
	if serverConfig.DocumentPath == "" {
		Logger.Warn("Document path not configured")
		return nil
	}

	// Check if directory exists
	docInfo, err := os.Stat(serverConfig.DocumentPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create the directory
			Logger.Info("Creating document directory", "path", serverConfig.DocumentPath)
			err = os.MkdirAll(serverConfig.DocumentPath, 0755)
			if err != nil {
				Logger.Error("Failed to create document directory", "path", serverConfig.DocumentPath, "error", err)
				return err
			}
			Logger.Info("Document directory created successfully", "path", serverConfig.DocumentPath)
			return nil
		}
		Logger.Error("Error checking document directory", "path", serverConfig.DocumentPath, "error", err)
		return err
	}

	// Check if it's actually a directory
	if !docInfo.IsDir() {
		Logger.Error("Document path exists but is not a directory", "path", serverConfig.DocumentPath)
		return fmt.Errorf("document path is not a directory: %s", serverConfig.DocumentPath)
	}

	Logger.Info("Document directory exists", "path", serverConfig.DocumentPath)
	return nil
}

// documentInventoryChecks counts renderable files so an empty or misplaced
// directory is obvious before the first library scan finishes
func documentInventoryChecks(serverConfig config.ServerConfig) {
	count := 0
	filepath.Walk(serverConfig.DocumentPath, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() && library.IsSupported(path) {
			count++
		}
		return nil
	})
	if count == 0 {
		Logger.Warn("Document directory holds no renderable files yet", "path", serverConfig.DocumentPath)
		return
	}
	Logger.Info("Document inventory", "path", serverConfig.DocumentPath, "documents", count)
}
