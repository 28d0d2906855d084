package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// stubCounter fakes page counting so library tests need no real documents
type stubCounter struct {
	pages map[string]int // keyed by base name
	calls int
}

func (s *stubCounter) PageCount(filename string) (int, error) {
	s.calls++
	pages, ok := s.pages[filepath.Base(filename)]
	if !ok {
		return 0, fmt.Errorf("unreadable document: %s", filename)
	}
	return pages, nil
}

func writeTestFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// TestScanRegistersSupportedDocuments tests that a scan picks up documents
// in supported formats, including nested folders, and skips everything else
func TestScanRegistersSupportedDocuments(t *testing.T) {
	Logger = testLogger()
	root := t.TempDir()

	writeTestFile(t, filepath.Join(root, "invoice.pdf"), "fake pdf")
	writeTestFile(t, filepath.Join(root, "book.epub"), "fake epub")
	writeTestFile(t, filepath.Join(root, "notes.txt"), "not a document")
	writeTestFile(t, filepath.Join(root, "archive", "report.xps"), "fake xps")

	counter := &stubCounter{pages: map[string]int{
		"invoice.pdf": 3,
		"book.epub":   120,
		"report.xps":  7,
	}}
	lib := NewLibrary(root, counter)

	summary, err := lib.Scan()
	if err != nil {
		t.Fatalf("Failed to scan library: %v", err)
	}
	if summary.Added != 3 {
		t.Fatalf("Expected 3 documents added, got %d", summary.Added)
	}
	if lib.Len() != 3 {
		t.Fatalf("Expected 3 documents registered, got %d", lib.Len())
	}

	docs := lib.Documents()
	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents listed, got %d", len(docs))
	}
	// Sorted by name: book.epub, invoice.pdf, report.xps
	if docs[0].Name != "book.epub" || docs[1].Name != "invoice.pdf" || docs[2].Name != "report.xps" {
		t.Fatalf("Expected name-sorted listing, got %s, %s, %s", docs[0].Name, docs[1].Name, docs[2].Name)
	}
	if docs[1].Pages != 3 {
		t.Fatalf("Expected 3 pages for invoice.pdf, got %d", docs[1].Pages)
	}

	if _, ok := lib.GetByPath(filepath.Join(root, "notes.txt")); ok {
		t.Fatal("Expected unsupported .txt file to be skipped")
	}
	t.Logf("✓ Scan registered %d supported documents and skipped the rest", lib.Len())
}

// TestScanKeepsULIDsStable tests that rescanning unchanged files neither
// re-adds them nor changes their IDs
func TestScanKeepsULIDsStable(t *testing.T) {
	Logger = testLogger()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "invoice.pdf"), "fake pdf")

	counter := &stubCounter{pages: map[string]int{"invoice.pdf": 3}}
	lib := NewLibrary(root, counter)

	if _, err := lib.Scan(); err != nil {
		t.Fatalf("Failed first scan: %v", err)
	}
	first, ok := lib.GetByPath(filepath.Join(root, "invoice.pdf"))
	if !ok {
		t.Fatal("Expected invoice.pdf to be registered")
	}

	summary, err := lib.Scan()
	if err != nil {
		t.Fatalf("Failed second scan: %v", err)
	}
	if summary.Added != 0 || summary.Updated != 0 || len(summary.Removed) != 0 {
		t.Fatalf("Expected a no-op rescan, got added=%d updated=%d removed=%d",
			summary.Added, summary.Updated, len(summary.Removed))
	}

	second, _ := lib.GetByPath(filepath.Join(root, "invoice.pdf"))
	if first.ULID != second.ULID {
		t.Fatalf("Expected stable ULID across rescans, got %s then %s", first.ULID, second.ULID)
	}

	byID, ok := lib.GetByULID(first.ULID.String())
	if !ok || byID.Path != first.Path {
		t.Fatal("Expected ULID lookup to find the same document")
	}
	t.Log("✓ Rescan left unchanged documents and their ULIDs alone")
}

// TestScanDropsVanishedDocuments tests that deleted files are reported so
// their cached thumbnails can be evicted
func TestScanDropsVanishedDocuments(t *testing.T) {
	Logger = testLogger()
	root := t.TempDir()
	keepPath := filepath.Join(root, "keep.pdf")
	dropPath := filepath.Join(root, "drop.pdf")
	writeTestFile(t, keepPath, "fake pdf")
	writeTestFile(t, dropPath, "fake pdf")

	counter := &stubCounter{pages: map[string]int{"keep.pdf": 1, "drop.pdf": 2}}
	lib := NewLibrary(root, counter)

	if _, err := lib.Scan(); err != nil {
		t.Fatalf("Failed first scan: %v", err)
	}
	if err := os.Remove(dropPath); err != nil {
		t.Fatalf("Failed to remove test file: %v", err)
	}

	summary, err := lib.Scan()
	if err != nil {
		t.Fatalf("Failed second scan: %v", err)
	}
	if len(summary.Removed) != 1 {
		t.Fatalf("Expected 1 removed document, got %d", len(summary.Removed))
	}
	if summary.Removed[0].Path != dropPath {
		t.Fatalf("Expected %s removed, got %s", dropPath, summary.Removed[0].Path)
	}
	if _, ok := lib.GetByPath(dropPath); ok {
		t.Fatal("Expected dropped document to be gone from the registry")
	}
	if _, ok := lib.GetByULID(summary.Removed[0].ULID.String()); ok {
		t.Fatal("Expected dropped document ULID to be unregistered")
	}
	if _, ok := lib.GetByPath(keepPath); !ok {
		t.Fatal("Expected surviving document to stay registered")
	}
	t.Log("✓ Vanished document was dropped and reported")
}

// TestScanRefreshesChangedDocuments tests that a changed file keeps its
// ULID but gets a fresh page count
func TestScanRefreshesChangedDocuments(t *testing.T) {
	Logger = testLogger()
	root := t.TempDir()
	path := filepath.Join(root, "grows.pdf")
	writeTestFile(t, path, "v1")

	counter := &stubCounter{pages: map[string]int{"grows.pdf": 2}}
	lib := NewLibrary(root, counter)

	if _, err := lib.Scan(); err != nil {
		t.Fatalf("Failed first scan: %v", err)
	}
	before, _ := lib.GetByPath(path)

	// Grow the file and push its mtime forward so the change is visible
	writeTestFile(t, path, "v2 with more content")
	later := before.Modified.Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Failed to bump mtime: %v", err)
	}
	counter.pages["grows.pdf"] = 5

	summary, err := lib.Scan()
	if err != nil {
		t.Fatalf("Failed second scan: %v", err)
	}
	if summary.Updated != 1 {
		t.Fatalf("Expected 1 updated document, got %d", summary.Updated)
	}

	after, _ := lib.GetByPath(path)
	if after.ULID != before.ULID {
		t.Fatalf("Expected ULID to survive the update, got %s then %s", before.ULID, after.ULID)
	}
	if after.Pages != 5 {
		t.Fatalf("Expected refreshed page count 5, got %d", after.Pages)
	}
	t.Log("✓ Changed document kept its ULID and refreshed its page count")
}

// TestScanSkipsUnreadableDocuments tests that files the renderer cannot
// open never enter the registry
func TestScanSkipsUnreadableDocuments(t *testing.T) {
	Logger = testLogger()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "good.pdf"), "fake pdf")
	writeTestFile(t, filepath.Join(root, "corrupt.pdf"), "zzzz")

	// corrupt.pdf missing from the stub map makes PageCount fail for it
	counter := &stubCounter{pages: map[string]int{"good.pdf": 1}}
	lib := NewLibrary(root, counter)

	summary, err := lib.Scan()
	if err != nil {
		t.Fatalf("Failed to scan library: %v", err)
	}
	if summary.Added != 1 {
		t.Fatalf("Expected only the readable document added, got %d", summary.Added)
	}
	if _, ok := lib.GetByPath(filepath.Join(root, "corrupt.pdf")); ok {
		t.Fatal("Expected unreadable document to be skipped")
	}
	t.Log("✓ Unreadable document was skipped with a warning")
}

// TestScanFailsOnMissingRoot tests that a vanished document folder is
// reported as an error, not mistaken for an empty library that would
// drop every registered document
func TestScanFailsOnMissingRoot(t *testing.T) {
	Logger = testLogger()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "invoice.pdf"), "fake pdf")

	counter := &stubCounter{pages: map[string]int{"invoice.pdf": 3}}
	lib := NewLibrary(root, counter)
	if _, err := lib.Scan(); err != nil {
		t.Fatalf("Failed to scan library: %v", err)
	}
	if lib.Len() != 1 {
		t.Fatalf("Expected 1 registered document, got %d", lib.Len())
	}

	if err := os.RemoveAll(root); err != nil {
		t.Fatalf("Failed to remove test root: %v", err)
	}

	if _, err := lib.Scan(); err == nil {
		t.Fatal("Expected a scan of a missing root to fail")
	}
	if lib.Len() != 1 {
		t.Fatalf("Expected the registry to be untouched after a failed scan, got %d documents", lib.Len())
	}
	t.Log("✓ Missing root failed the scan and left the registry intact")
}

// TestGetByULIDUnknown tests lookups for IDs that were never issued
func TestGetByULIDUnknown(t *testing.T) {
	Logger = testLogger()
	lib := NewLibrary(t.TempDir(), &stubCounter{})

	if _, ok := lib.GetByULID("01HZZZZZZZZZZZZZZZZZZZZZZZ"); ok {
		t.Fatal("Expected unknown ULID lookup to miss")
	}
	if _, ok := lib.GetByPath("/nowhere/doc.pdf"); ok {
		t.Fatal("Expected unknown path lookup to miss")
	}
}
