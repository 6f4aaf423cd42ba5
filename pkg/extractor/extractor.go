// Package extractor is the public entry point: it wires configuration into
// the loader, vision client and CSV writer and runs the pipeline.
package extractor

import (
	"context"
	"os"

	"github.com/spherical/packing-list-extractor/internal/config"
	"github.com/spherical/packing-list-extractor/internal/domain"
	"github.com/spherical/packing-list-extractor/internal/extract"
	"github.com/spherical/packing-list-extractor/internal/llm"
	"github.com/spherical/packing-list-extractor/internal/observability"
	"github.com/spherical/packing-list-extractor/internal/output"
	"github.com/spherical/packing-list-extractor/internal/pdf"
)

// Re-export event and result types for the public API
type (
	StreamEvent     = domain.StreamEvent
	EventType       = domain.EventType
	CommodityRow    = domain.CommodityRow
	ProcessResult   = extract.ProcessResult
	CompletePayload = extract.CompletePayload
)

// Event type constants
const (
	EventStart          = domain.EventStart
	EventPagesLoaded    = domain.EventPagesLoaded
	EventPageProcessing = domain.EventPageProcessing
	EventPageComplete   = domain.EventPageComplete
	EventPageFailed     = domain.EventPageFailed
	EventComplete       = domain.EventComplete
)

// Client runs extractions with one configuration
type Client struct {
	service   *extract.Service
	converter *pdf.Converter
}

// NewClient validates cfg, ensures the output and temp directories exist
// and builds the pipeline components.
func NewClient(cfg *config.Config, logger *observability.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.Nop()
	}

	for _, dir := range []string{cfg.Output.Dir, cfg.PDF.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, domain.IOError("failed to create directory "+dir, err)
		}
	}

	vision, err := llm.NewVisionClient(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}

	return newClient(cfg, vision, logger), nil
}

// NewClientWithVision is NewClient with a caller supplied vision client.
func NewClientWithVision(cfg *config.Config, vision domain.VisionClient, logger *observability.Logger) *Client {
	if logger == nil {
		logger = observability.Nop()
	}
	return newClient(cfg, vision, logger)
}

func newClient(cfg *config.Config, vision domain.VisionClient, logger *observability.Logger) *Client {
	converter := pdf.NewConverter(pdf.Options{
		TempRoot:    cfg.PDF.TempDir,
		JPEGQuality: cfg.PDF.JPEGQuality,
		Enhance:     cfg.PDF.Enhance,
		Logger:      logger,
	})

	service := extract.NewService(converter, vision, output.NewCSVWriter(cfg.Output.Dir), extract.Options{
		DPI:      cfg.PDF.DPI,
		KeepTemp: cfg.PDF.KeepTemp,
		Logger:   logger,
	})

	return &Client{service: service, converter: converter}
}

// Process extracts the packing list in pdfPath and writes the CSV. Events
// are sent to eventCh without blocking when it is non-nil; the caller owns
// and closes the channel.
func (c *Client) Process(ctx context.Context, pdfPath string, eventCh chan<- StreamEvent) (*ProcessResult, error) {
	return c.service.Process(ctx, pdfPath, eventCh)
}

// TempDir returns the image directory of the last run. It is only populated
// when temporary files are kept.
func (c *Client) TempDir() string {
	return c.converter.TempDir()
}
