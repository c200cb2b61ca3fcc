package domain

import "context"

// Rasterizer converts a source PDF into one JPEG artifact per page.
type Rasterizer interface {
	// Rasterize writes page images next to the document and returns them
	// in page order.
	Rasterize(ctx context.Context, pdfPath string) ([]PageImage, error)
}

// Invoker sends one prompt plus zero or more images to a vision model and
// returns the raw free-text response. The stage config selects endpoint,
// credential and model per call.
type Invoker interface {
	Complete(ctx context.Context, cfg StageConfig, prompt string, imagePaths []string) (string, error)
}
