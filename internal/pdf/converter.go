package pdf

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"github.com/spherical/packing-list-extractor/internal/domain"
	"github.com/spherical/packing-list-extractor/internal/observability"
)

const timestampLayout = "20060102_150405"

// Options controls how pages are rendered and where the images go.
type Options struct {
	// TempRoot is the parent of the per-run pdf_images_<timestamp> directory.
	TempRoot    string
	JPEGQuality int
	// Enhance applies grayscale, contrast and sharpening before encoding.
	Enhance bool
	Logger  *observability.Logger
	Now     func() time.Time
}

// Converter renders PDF pages to JPEG files using go-fitz
type Converter struct {
	opts      Options
	validator *Validator
	logger    *observability.Logger
	tempDir   string
}

// NewConverter creates a new PDF converter instance
func NewConverter(opts Options) *Converter {
	if opts.TempRoot == "" {
		opts.TempRoot = os.TempDir()
	}
	if opts.JPEGQuality == 0 {
		opts.JPEGQuality = 95
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Nop()
	}
	logger = logger.WithOperation("load")

	validator := NewValidator()
	validator.onLargeFile = func(sizeMB int64) {
		logger.Warn().Int("size_mb", int(sizeMB)).Msg("PDF file is very large, processing may take a while")
	}

	return &Converter{
		opts:      opts,
		validator: validator,
		logger:    logger,
	}
}

// Load renders every page of pdfPath at dpi. The result is in document order.
// Any failure is a load error and no images are returned.
func (c *Converter) Load(ctx context.Context, pdfPath string, dpi int) ([]domain.PageImage, error) {
	if err := c.validator.ValidatePDFPath(pdfPath); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateDPI(dpi); err != nil {
		return nil, domain.LoadError("invalid render options", err)
	}
	if err := c.validator.ValidateQuality(c.opts.JPEGQuality); err != nil {
		return nil, domain.LoadError("invalid render options", err)
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, domain.LoadError("Failed to open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.LoadError("PDF has no pages", nil)
	}

	if err := os.MkdirAll(c.opts.TempRoot, 0o755); err != nil {
		return nil, domain.IOError("Failed to create temp root", err)
	}
	pattern := fmt.Sprintf("pdf_images_%s_*", c.opts.Now().Format(timestampLayout))
	tempDir, err := os.MkdirTemp(c.opts.TempRoot, pattern)
	if err != nil {
		return nil, domain.IOError("Failed to create temp directory", err)
	}
	c.tempDir = tempDir

	images := make([]domain.PageImage, 0, pageCount)

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// ImageDPI applies the page's /Rotate entry, so landscape pages
		// come back wider than tall.
		rgba, err := doc.ImageDPI(pageNum, float64(dpi))
		if err != nil {
			return nil, domain.LoadError(fmt.Sprintf("Failed to render page %d", pageNum+1), err)
		}

		var img image.Image = rgba
		if c.opts.Enhance {
			img = enhance(img)
		}

		outputPath := filepath.Join(tempDir, fmt.Sprintf("page_%d.jpg", pageNum+1))
		if err := imaging.Save(img, outputPath, imaging.JPEGQuality(c.opts.JPEGQuality)); err != nil {
			return nil, domain.IOError(fmt.Sprintf("Failed to encode page %d as JPG", pageNum+1), err)
		}

		bounds := img.Bounds()
		images = append(images, domain.PageImage{
			PageNumber:  pageNum + 1,
			ImagePath:   outputPath,
			Width:       bounds.Dx(),
			Height:      bounds.Dy(),
			Orientation: domain.OrientationOf(bounds.Dx(), bounds.Dy()),
		})
	}

	c.logger.Info().
		Int("pages", len(images)).
		Int("dpi", dpi).
		Bool("enhance", c.opts.Enhance).
		Str("dir", tempDir).
		Msg("Converted PDF to images")

	return images, nil
}

// TempDir returns the directory holding the rendered pages of the last Load.
func (c *Converter) TempDir() string {
	return c.tempDir
}

// Cleanup removes the temporary image directory
func (c *Converter) Cleanup() error {
	if c.tempDir == "" {
		return nil
	}
	if err := os.RemoveAll(c.tempDir); err != nil {
		return domain.IOError("Failed to remove temp directory", err)
	}
	c.logger.Info().Str("dir", c.tempDir).Msg("Cleaned up temporary folder")
	c.tempDir = ""
	return nil
}

// enhance makes scanned text crisper for the vision model.
func enhance(src image.Image) image.Image {
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 20)
	return imaging.Sharpen(img, 1.0)
}
