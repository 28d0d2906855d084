package pagerenderer

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer implements page rendering using go-fitz (requires CGo and MuPDF).
// MuPDF reads PDF, XPS and EPUB documents, so every format the library
// accepts renders through the same path.
type FitzRenderer struct {
}

// NewFitzRenderer creates a new Fitz-based page renderer
func NewFitzRenderer() (*FitzRenderer, error) {
	return &FitzRenderer{}, nil
}

// RenderPage rasterizes a single page at the given DPI using go-fitz
func (r *FitzRenderer) RenderPage(filename string, pageIndex int, dpi float64) (image.Image, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid DPI %v", dpi)
	}

	// Open the document using go-fitz
	doc, err := fitz.New(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open document: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if pageIndex < 0 || pageIndex >= numPages {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", pageIndex, numPages)
	}

	img, err := doc.ImageDPI(pageIndex, dpi)
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", pageIndex, err)
	}

	return img, nil
}

// PageCount reports the number of pages in a document
func (r *FitzRenderer) PageCount(filename string) (int, error) {
	doc, err := fitz.New(filename)
	if err != nil {
		return 0, fmt.Errorf("unable to open document: %w", err)
	}
	defer doc.Close()

	return doc.NumPage(), nil
}

// Close cleans up resources (no-op for Fitz renderer as docs are closed per-render)
func (r *FitzRenderer) Close() error {
	return nil
}
