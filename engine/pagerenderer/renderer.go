package pagerenderer

import (
	"fmt"
	"image"
)

// Renderer defines the interface for rasterizing single document pages
type Renderer interface {
	// RenderPage rasterizes one page of a document at the given DPI.
	// Page indexes are zero-based.
	RenderPage(filename string, pageIndex int, dpi float64) (image.Image, error)

	// PageCount reports the number of pages in a document
	PageCount(filename string) (int, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// NewRenderer creates a page renderer for the configured driver.
// "fitz" (the default) uses MuPDF via CGo and reads PDF, XPS and EPUB;
// "pdfium" uses go-pdfium compiled to WebAssembly, needs no CGo, and
// reads PDF only.
func NewRenderer(driver string) (Renderer, error) {
	switch driver {
	case "", "fitz":
		return NewFitzRenderer()
	case "pdfium":
		return NewPdfiumRenderer()
	default:
		return nil, fmt.Errorf("unknown renderer driver: %s (supported: fitz, pdfium)", driver)
	}
}
