package pagerenderer

import (
	"os"
	"path/filepath"
	"testing"
)

// createSimpleTestPDF creates a minimal valid single-page PDF file for testing
func createSimpleTestPDF(filepath string) error {
	// This is a minimal valid PDF structure
	pdfContent := `%PDF-1.4
1 0 obj
<<
/Type /Catalog
/Pages 2 0 R
>>
endobj
2 0 obj
<<
/Type /Pages
/Kids [3 0 R]
/Count 1
>>
endobj
3 0 obj
<<
/Type /Page
/Parent 2 0 R
/MediaBox [0 0 612 792]
/Contents 4 0 R
/Resources <<
/Font <<
/F1 5 0 R
>>
>>
>>
endobj
4 0 obj
<<
/Length 44
>>
stream
BT
/F1 12 Tf
100 700 Td
(Test Document) Tj
ET
endstream
endobj
5 0 obj
<<
/Type /Font
/Subtype /Type1
/BaseFont /Helvetica
>>
endobj
xref
0 6
0000000000 65535 f
0000000009 00000 n
0000000058 00000 n
0000000115 00000 n
0000000262 00000 n
0000000356 00000 n
trailer
<<
/Size 6
/Root 1 0 R
>>
startxref
444
%%EOF`

	return os.WriteFile(filepath, []byte(pdfContent), 0644)
}

// TestFitzRendererPageCount tests page counting on a known single-page PDF
func TestFitzRendererPageCount(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MuPDF integration test in short mode")
	}

	testPDFPath := filepath.Join(t.TempDir(), "test.pdf")
	if err := createSimpleTestPDF(testPDFPath); err != nil {
		t.Fatalf("Failed to create test PDF: %v", err)
	}

	renderer, err := NewFitzRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Close()

	count, err := renderer.PageCount(testPDFPath)
	if err != nil {
		t.Fatalf("Failed to count pages: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 page, got %d", count)
	}
	t.Log("✓ PageCount reported 1 page for the test PDF")
}

// TestFitzRendererRenderPage tests that rendering produces an image whose
// size scales with the requested DPI
func TestFitzRendererRenderPage(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping MuPDF integration test in short mode")
	}

	testPDFPath := filepath.Join(t.TempDir(), "test.pdf")
	if err := createSimpleTestPDF(testPDFPath); err != nil {
		t.Fatalf("Failed to create test PDF: %v", err)
	}

	renderer, err := NewFitzRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Close()

	img, err := renderer.RenderPage(testPDFPath, 0, 120)
	if err != nil {
		t.Fatalf("Failed to render page: %v", err)
	}
	if img == nil {
		t.Fatal("Expected a rendered image, got nil")
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		t.Fatalf("Expected positive image dimensions, got %dx%d", bounds.Dx(), bounds.Dy())
	}
	t.Logf("✓ Rendered page 0 at 120 DPI: %dx%d pixels", bounds.Dx(), bounds.Dy())

	// Doubling the DPI should roughly double the pixel dimensions
	bigImg, err := renderer.RenderPage(testPDFPath, 0, 240)
	if err != nil {
		t.Fatalf("Failed to render page at 240 DPI: %v", err)
	}
	bigBounds := bigImg.Bounds()
	if bigBounds.Dx() < bounds.Dx()*2-4 || bigBounds.Dx() > bounds.Dx()*2+4 {
		t.Fatalf("Expected ~%d pixels wide at 240 DPI, got %d", bounds.Dx()*2, bigBounds.Dx())
	}
	t.Logf("✓ Rendered page 0 at 240 DPI: %dx%d pixels", bigBounds.Dx(), bigBounds.Dy())
}

// TestFitzRendererErrors tests that bad inputs return errors instead of panicking
func TestFitzRendererErrors(t *testing.T) {
	renderer, err := NewFitzRenderer()
	if err != nil {
		t.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Close()

	if _, err := renderer.RenderPage("missing.pdf", 0, 120); err == nil {
		t.Error("Expected an error for a missing file")
	}
	if _, err := renderer.PageCount("missing.pdf"); err == nil {
		t.Error("Expected an error counting pages of a missing file")
	}
	if _, err := renderer.RenderPage("missing.pdf", 0, 0); err == nil {
		t.Error("Expected an error for zero DPI")
	}
	if _, err := renderer.RenderPage("missing.pdf", 0, -72); err == nil {
		t.Error("Expected an error for negative DPI")
	}

	if testing.Short() {
		t.Log("✓ Invalid inputs rejected (page range check skipped in short mode)")
		return
	}

	testPDFPath := filepath.Join(t.TempDir(), "test.pdf")
	if err := createSimpleTestPDF(testPDFPath); err != nil {
		t.Fatalf("Failed to create test PDF: %v", err)
	}

	if _, err := renderer.RenderPage(testPDFPath, 5, 120); err == nil {
		t.Error("Expected an error for a page index past the end")
	}
	if _, err := renderer.RenderPage(testPDFPath, -1, 120); err == nil {
		t.Error("Expected an error for a negative page index")
	}
	t.Log("✓ Invalid inputs rejected with errors")
}
