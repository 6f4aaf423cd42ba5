package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/packing-list-extractor/internal/domain"
	"github.com/spherical/packing-list-extractor/internal/normalize"
	"github.com/spherical/packing-list-extractor/internal/observability"
)

// Options tune a Service. Zero values fall back to defaults.
type Options struct {
	DPI      int
	KeepTemp bool
	Logger   *observability.Logger
	NewRunID func() string
}

// ProcessResult is returned by a completed run
type ProcessResult struct {
	RunID      string
	OutputPath string
	Rows       []domain.CommodityRow
	Stats      domain.ProcessingStats
}

// CompletePayload is the payload of the EventComplete event
type CompletePayload struct {
	OutputPath string
	Stats      domain.ProcessingStats
}

// Service runs the load, extract, normalize and write stages for one PDF
type Service struct {
	loader domain.Loader
	vision domain.VisionClient
	writer domain.RowWriter
	opts   Options
	logger *observability.Logger
}

// NewService creates a new extraction service
func NewService(loader domain.Loader, vision domain.VisionClient, writer domain.RowWriter, opts Options) *Service {
	if opts.DPI <= 0 {
		opts.DPI = domain.DefaultDPI
	}
	if opts.Logger == nil {
		opts.Logger = observability.DefaultLogger()
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}

	return &Service{
		loader: loader,
		vision: vision,
		writer: writer,
		opts:   opts,
		logger: opts.Logger.WithOperation("pipeline"),
	}
}

// Process handles the complete workflow. Pages are handled one at a time in
// document order; a page whose extraction fails is logged and skipped. Load
// errors, write errors and cancellation abort the run without writing a file.
func (s *Service) Process(ctx context.Context, pdfPath string, eventCh chan<- domain.StreamEvent) (*ProcessResult, error) {
	startTime := time.Now()
	runID := s.opts.NewRunID()
	logger := s.logger.WithRun(runID).With().
		Str("pdf", pdfPath).
		Int("dpi", s.opts.DPI).
		Logger()

	if !s.opts.KeepTemp {
		defer func() {
			if err := s.loader.Cleanup(); err != nil {
				logger.Warn().Err(err).Msg("Failed to remove temporary images")
			}
		}()
	}

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventStart,
		Payload:   fmt.Sprintf("Starting extraction of %s", pdfPath),
		Timestamp: time.Now(),
	})

	logger.Info().Msg("Converting PDF to images")
	pages, err := s.loader.Load(ctx, pdfPath, s.opts.DPI)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load PDF")
		return nil, err
	}

	total := len(pages)
	logger.Info().Int("pages", total).Msg("Converted PDF pages")
	s.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventPagesLoaded,
		TotalPages: total,
		Payload:    fmt.Sprintf("Loaded %d pages", total),
		Timestamp:  time.Now(),
	})

	stats := domain.ProcessingStats{TotalPages: total}
	var rows []domain.CommodityRow

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			logger.Warn().Int("page", page.PageNumber).Msg("Extraction cancelled")
			return nil, err
		}

		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageProcessing,
			PageNumber: page.PageNumber,
			TotalPages: total,
			Payload:    fmt.Sprintf("Processing page %d", page.PageNumber),
			Timestamp:  time.Now(),
		})

		result, err := s.extractPage(ctx, page, total)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				logger.Warn().Int("page", page.PageNumber).Msg("Extraction cancelled")
				return nil, ctxErr
			}

			logger.Error().Err(err).Int("page", page.PageNumber).Msgf("Error processing page %d", page.PageNumber)
			stats.FailedPages++
			stats.Errors = append(stats.Errors, fmt.Errorf("page %d: %w", page.PageNumber, err))
			s.emitEvent(eventCh, domain.StreamEvent{
				Type:       domain.EventPageFailed,
				PageNumber: page.PageNumber,
				TotalPages: total,
				Payload:    err.Error(),
				Timestamp:  time.Now(),
			})
			continue
		}

		parsed := normalize.Parse(result.Text, page.PageNumber)
		rows = append(rows, parsed.Rows...)

		stats.SuccessfulPages++
		stats.DroppedRows += parsed.Dropped
		stats.QuantityDefaulted += parsed.QuantityDefaulted
		stats.UOMDefaulted += parsed.UOMDefaulted

		logger.Info().
			Int("page", page.PageNumber).
			Str("format", string(parsed.Format)).
			Int("dropped", parsed.Dropped).
			Dur("duration", result.Duration).
			Msgf("Page %d: Extracted %d items", page.PageNumber, len(parsed.Rows))

		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventPageComplete,
			PageNumber: page.PageNumber,
			TotalPages: total,
			Payload:    parsed.Rows,
			Timestamp:  time.Now(),
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats.Rows = len(rows)
	outputPath, err := s.writer.Write(rows, pdfPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write CSV")
		return nil, err
	}

	stats.TotalTime = time.Since(startTime)

	if stats.FailedPages == total {
		logger.Warn().Int("pages", total).Msg("No page could be extracted")
	}
	logger.Info().
		Int("rows", stats.Rows).
		Int("successful_pages", stats.SuccessfulPages).
		Int("failed_pages", stats.FailedPages).
		Dur("total_time", stats.TotalTime).
		Msgf("Results saved to %s", outputPath)

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:       domain.EventComplete,
		TotalPages: total,
		Payload:    CompletePayload{OutputPath: outputPath, Stats: stats},
		Timestamp:  time.Now(),
	})

	return &ProcessResult{
		RunID:      runID,
		OutputPath: outputPath,
		Rows:       rows,
		Stats:      stats,
	}, nil
}

// extractPage sends one page to the vision client
func (s *Service) extractPage(ctx context.Context, page domain.PageImage, total int) (domain.ExtractionResult, error) {
	start := time.Now()
	text, err := s.vision.Extract(ctx, page, total)
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	return domain.ExtractionResult{
		PageNumber: page.PageNumber,
		Text:       text,
		Duration:   time.Since(start),
	}, nil
}

// emitEvent sends an event without blocking the pipeline
func (s *Service) emitEvent(eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh != nil {
		select {
		case eventCh <- event:
		default:
			s.logger.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
		}
	}
}
