// Package library keeps an in-memory registry of the documents found under
// the configured document folder. Each document gets a ULID so page and
// thumbnail URLs stay short and stable across rescans.
package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// supportedExtensions lists the document types MuPDF can rasterize
var supportedExtensions = []string{".pdf", ".xps", ".epub"}

// Document is everything the registry tracks about one file on disk
type Document struct {
	ULID     ulid.ULID
	Name     string
	Path     string // full path to the file
	Pages    int
	Size     int64
	Modified time.Time
}

// PageCounter reports how many pages a document has. The page renderer
// satisfies this.
type PageCounter interface {
	PageCount(filename string) (int, error)
}

// ScanSummary reports what one library scan changed
type ScanSummary struct {
	Added   int
	Updated int
	Removed []Document
	Total   int
}

// Library is the thread-safe document registry
type Library struct {
	mu      sync.RWMutex
	root    string
	counter PageCounter
	byULID  map[string]*Document
	byPath  map[string]*Document
}

// NewLibrary creates a registry rooted at the given document folder
func NewLibrary(root string, counter PageCounter) *Library {
	return &Library{
		root:    root,
		counter: counter,
		byULID:  make(map[string]*Document),
		byPath:  make(map[string]*Document),
	}
}

// Root returns the document folder this library scans
func (l *Library) Root() string {
	return l.root
}

// Scan walks the document folder and reconciles the registry with what is
// on disk. New files are registered under a fresh ULID, changed files get
// their page count refreshed, and files that vanished are dropped and
// returned so callers can evict their cached thumbnails.
func (l *Library) Scan() (ScanSummary, error) {
	Logger.Info("Starting library scan", "path", l.root)

	var found []string
	err := filepath.Walk(l.root, func(path string, info os.FileInfo, err error) error {
		// Abort on an unreadable root or subtree rather than mistaking it
		// for an empty library and dropping every registered document
		if err != nil {
			return err
		}
		if !info.IsDir() && IsSupported(path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		Logger.Error("Error scanning document folder", "error", err)
		return ScanSummary{}, fmt.Errorf("unable to scan document folder: %w", err)
	}

	var summary ScanSummary
	seen := make(map[string]bool, len(found))

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, path := range found {
		seen[path] = true
		fileStats, err := os.Stat(path)
		if err != nil {
			Logger.Warn("Unable to get information for file, won't register", "filePath", path, "error", err)
			continue
		}

		if existing, ok := l.byPath[path]; ok {
			if existing.Size == fileStats.Size() && existing.Modified.Equal(fileStats.ModTime()) {
				continue
			}
			pages, err := l.counter.PageCount(path)
			if err != nil {
				Logger.Warn("Unable to count pages for changed file, dropping it", "filePath", path, "error", err)
				delete(l.byULID, existing.ULID.String())
				delete(l.byPath, path)
				summary.Removed = append(summary.Removed, *existing)
				continue
			}
			existing.Pages = pages
			existing.Size = fileStats.Size()
			existing.Modified = fileStats.ModTime()
			summary.Updated++
			Logger.Debug("Refreshed changed document", "filePath", path, "pages", pages)
			continue
		}

		pages, err := l.counter.PageCount(path)
		if err != nil {
			Logger.Warn("Unable to count pages for file, won't register", "filePath", path, "error", err)
			continue
		}

		doc := &Document{
			ULID:     ulid.Make(),
			Name:     filepath.Base(path),
			Path:     path,
			Pages:    pages,
			Size:     fileStats.Size(),
			Modified: fileStats.ModTime(),
		}
		l.byULID[doc.ULID.String()] = doc
		l.byPath[path] = doc
		summary.Added++
		Logger.Debug("Registered document", "filePath", path, "ulid", doc.ULID.String(), "pages", pages)
	}

	// Anything registered but no longer on disk gets dropped.
	for path, doc := range l.byPath {
		if !seen[path] {
			delete(l.byULID, doc.ULID.String())
			delete(l.byPath, path)
			summary.Removed = append(summary.Removed, *doc)
			Logger.Info("Document vanished from disk, dropping it", "filePath", path, "ulid", doc.ULID.String())
		}
	}

	summary.Total = len(l.byPath)
	Logger.Info("Library scan complete", "total", summary.Total, "added", summary.Added,
		"updated", summary.Updated, "removed", len(summary.Removed))
	return summary, nil
}

// GetByULID looks up a document by its ULID string
func (l *Library) GetByULID(id string) (Document, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.byULID[id]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// GetByPath looks up a document by its full path
func (l *Library) GetByPath(path string) (Document, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	doc, ok := l.byPath[path]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Documents returns all registered documents sorted by name
func (l *Library) Documents() []Document {
	l.mu.RLock()
	defer l.mu.RUnlock()

	docs := make([]Document, 0, len(l.byPath))
	for _, doc := range l.byPath {
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Name == docs[j].Name {
			return docs[i].Path < docs[j].Path
		}
		return docs[i].Name < docs[j].Name
	})
	return docs
}

// Len reports how many documents are registered
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byPath)
}

// IsSupported reports whether a file can be rendered based on its extension
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}
