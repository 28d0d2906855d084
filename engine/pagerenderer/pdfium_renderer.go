package pagerenderer

import (
	"fmt"
	"image"
	"math"
	"os"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PdfiumRenderer implements page rendering using go-pdfium with
// WebAssembly (pure Go, no CGo). PDFium only reads PDF, so unlike the
// Fitz renderer it cannot handle XPS or EPUB documents.
type PdfiumRenderer struct {
	pool     pdfium.Pool
	instance pdfium.Pdfium
}

// NewPdfiumRenderer creates a new PDFium-based page renderer using WebAssembly
func NewPdfiumRenderer() (*PdfiumRenderer, error) {
	// Render concurrency is bounded by the service worker pool, so a
	// single PDFium worker is enough; calls serialize on the instance
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	return &PdfiumRenderer{
		pool:     pool,
		instance: instance,
	}, nil
}

// RenderPage rasterizes a single page at the given DPI using go-pdfium
func (r *PdfiumRenderer) RenderPage(filename string, pageIndex int, dpi float64) (image.Image, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("invalid DPI %v", dpi)
	}

	pdfBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to read document: %w", err)
	}

	doc, err := r.instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open document: %w", err)
	}
	defer r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Document,
	})

	pageCountResp, err := r.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to get page count: %w", err)
	}

	numPages := pageCountResp.PageCount
	if pageIndex < 0 || pageIndex >= numPages {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", pageIndex, numPages)
	}

	pageRender, err := r.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: int(math.Round(dpi)),
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.Document,
				Index:    pageIndex,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", pageIndex, err)
	}
	defer pageRender.Cleanup()

	return pageRender.Result.Image, nil
}

// PageCount reports the number of pages in a document
func (r *PdfiumRenderer) PageCount(filename string) (int, error) {
	pdfBytes, err := os.ReadFile(filename)
	if err != nil {
		return 0, fmt.Errorf("unable to read document: %w", err)
	}

	doc, err := r.instance.OpenDocument(&requests.OpenDocument{
		File: &pdfBytes,
	})
	if err != nil {
		return 0, fmt.Errorf("unable to open document: %w", err)
	}
	defer r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Document,
	})

	pageCountResp, err := r.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		return 0, fmt.Errorf("unable to get page count: %w", err)
	}

	return pageCountResp.PageCount, nil
}

// Close cleans up resources used by the PDFium renderer
func (r *PdfiumRenderer) Close() error {
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.instance = nil
	return nil
}
