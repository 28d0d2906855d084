package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/disintegration/imaging"

	engine "github.com/drummonds/goThumbs/engine"
	"github.com/drummonds/goThumbs/engine/pagerenderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// thumbgen renders a single document page to a PNG file. It is a
// smoke-test tool for checking how a document renders without running
// the full server.
func main() {
	// Parse command-line flags
	file := flag.String("file", "", "Document to render (pdf, xps or epub)")
	page := flag.Int("page", 0, "Zero-based page index to render")
	zoom := flag.Float64("zoom", 1.0, "Zoom factor (1.0 renders at 120 DPI)")
	width := flag.Int("width", 0, "Target width in pixels (overrides -zoom when set)")
	out := flag.String("out", "thumbnail.png", "Output image path")
	driver := flag.String("renderer", "fitz", "Page renderer driver (fitz or pdfium)")
	flag.Parse()

	Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

	if *file == "" {
		fmt.Println("Usage: thumbgen -file document.pdf [-page 0] [-zoom 1.0] [-out thumbnail.png]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	renderer, err := pagerenderer.NewRenderer(*driver)
	if err != nil {
		Logger.Error("Failed to set up page renderer", "error", err)
		os.Exit(1)
	}
	defer renderer.Close()

	pages, err := renderer.PageCount(*file)
	if err != nil {
		Logger.Error("Failed to open document", "file", *file, "error", err)
		os.Exit(1)
	}

	requestedZoom := *zoom
	if *width > 0 {
		requestedZoom = engine.ZoomForWidth(*width)
	}
	dpi := engine.DPIForZoom(requestedZoom)
	Logger.Info("Rendering page", "file", *file, "page", *page, "pages", pages, "dpi", dpi)

	img, err := renderer.RenderPage(*file, *page, dpi)
	if err != nil {
		Logger.Error("Render failed", "file", *file, "page", *page, "error", err)
		os.Exit(1)
	}
	if *width > 0 && img.Bounds().Dx() != *width {
		// Snap the bucketed render to the exact requested width
		img = imaging.Resize(img, *width, 0, imaging.Lanczos)
	}

	if err := imaging.Save(img, *out); err != nil {
		Logger.Error("Failed to write output", "path", *out, "error", err)
		os.Exit(1)
	}
	Logger.Info("Thumbnail written", "path", *out, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
}
