package domain

import "context"

// Loader turns a PDF into an ordered sequence of page images
type Loader interface {
	// Load renders every page of the PDF at the given DPI, in document order
	Load(ctx context.Context, pdfPath string, dpi int) ([]PageImage, error)

	// Cleanup removes temporary files created during rendering
	Cleanup() error
}

// VisionClient sends one page image to an external vision model and returns
// the raw response text. totalPages lets the prompt tell the model where the
// page sits in the document.
type VisionClient interface {
	Extract(ctx context.Context, page PageImage, totalPages int) (string, error)
}

// RowWriter persists the final rows and returns the path written
type RowWriter interface {
	Write(rows []CommodityRow, sourcePath string) (string, error)
}
