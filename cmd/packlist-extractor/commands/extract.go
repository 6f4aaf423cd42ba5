package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/packing-list-extractor/cmd/packlist-extractor/ui"
	"github.com/spherical/packing-list-extractor/internal/config"
	"github.com/spherical/packing-list-extractor/internal/domain"
	"github.com/spherical/packing-list-extractor/internal/observability"
	"github.com/spherical/packing-list-extractor/pkg/extractor"
)

func runExtract(cmd *cobra.Command, args []string) error {
	ui.InitUI(noColor, verbose)

	pdfPath := DefaultPDFPath
	if len(args) == 1 {
		pdfPath = args[0]
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "packlist-extractor",
	})

	client, err := extractor.NewClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.Section("Packing List Extraction")
	ui.Info("PDF file: %s", pdfPath)
	ui.Info("Provider: %s", cfg.LLM.Provider)
	ui.Newline()

	eventCh := make(chan extractor.StreamEvent, 100)
	type outcome struct {
		result *extractor.ProcessResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := client.Process(ctx, pdfPath, eventCh)
		close(eventCh)
		done <- outcome{result: result, err: err}
	}()

	renderProgress(eventCh)

	out := <-done
	if out.err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction cancelled")
		}
		return out.err
	}

	printSummary(out.result, cfg.PDF.KeepTemp, client.TempDir())
	return nil
}

// applyFlagOverrides copies explicitly set flags over file and env values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("provider") {
		cfg.LLM.Provider = strings.ToLower(provider)
		cfg.ResolveAPIKey()
	}
	if flags.Changed("model") {
		cfg.LLM.Model = model
	}
	if flags.Changed("dpi") {
		cfg.PDF.DPI = dpi
	}
	if flags.Changed("output-dir") {
		cfg.Output.Dir = outputDir
	}
	if flags.Changed("temp-dir") {
		cfg.PDF.TempDir = tempDir
	}
	if flags.Changed("keep-temp") {
		cfg.PDF.KeepTemp = keepTemp
	}
	if flags.Changed("enhance") {
		cfg.PDF.Enhance = enhance
	}
	if verbose {
		cfg.Observability.LogLevel = "debug"
	}
}

// renderProgress drives the spinner and progress bar until eventCh closes.
func renderProgress(eventCh <-chan extractor.StreamEvent) {
	spinner := ui.NewSpinner("Rendering PDF pages...")
	spinner.Start()
	spinning := true
	stopSpinner := func() {
		if spinning {
			spinner.Stop()
			spinning = false
		}
	}
	defer stopSpinner()

	var bar *ui.ProgressBar
	for event := range eventCh {
		switch event.Type {
		case extractor.EventPagesLoaded:
			stopSpinner()
			bar = ui.NewProgressBar(int64(event.TotalPages), "Extracting")

		case extractor.EventPageProcessing:
			if bar != nil {
				bar.Describe(fmt.Sprintf("Page %d/%d", event.PageNumber, event.TotalPages))
			}

		case extractor.EventPageComplete, extractor.EventPageFailed:
			if bar != nil {
				bar.Add(1)
			}

		case extractor.EventComplete:
			if bar != nil {
				bar.Finish()
			}
		}
	}
}

func printSummary(result *extractor.ProcessResult, keptTemp bool, imageDir string) {
	stats := result.Stats

	ui.Newline()
	ui.Section("Extraction Summary")
	ui.Table([]string{"Metric", "Value"}, [][]string{
		{"Run ID", result.RunID},
		{"Pages", fmt.Sprintf("%d", stats.TotalPages)},
		{"Pages extracted", fmt.Sprintf("%d", stats.SuccessfulPages)},
		{"Pages failed", fmt.Sprintf("%d", stats.FailedPages)},
		{"Rows", fmt.Sprintf("%d", stats.Rows)},
		{"Rows dropped (no name)", fmt.Sprintf("%d", stats.DroppedRows)},
		{"Qty defaulted", fmt.Sprintf("%d", stats.QuantityDefaulted)},
		{"UOM defaulted", fmt.Sprintf("%d", stats.UOMDefaulted)},
		{"Duration", ui.FormatDuration(stats.TotalTime)},
	})
	ui.Newline()

	for _, line := range summaryWarnings(stats, ui.Verbose()) {
		ui.Warning("%s", line)
	}
	if keptTemp && imageDir != "" {
		ui.Info("Page images kept in %s", imageDir)
	}

	ui.Success("Results saved to: %s", result.OutputPath)
}

// summaryWarnings lists what went wrong in a run. Individual page errors are
// only spelled out in verbose mode.
func summaryWarnings(stats domain.ProcessingStats, verbose bool) []string {
	var lines []string
	if verbose {
		for _, err := range stats.Errors {
			lines = append(lines, err.Error())
		}
	} else if stats.FailedPages > 0 {
		lines = append(lines, fmt.Sprintf("%d page(s) failed; rerun with --verbose for details", stats.FailedPages))
	}
	if stats.TotalPages > 0 && stats.FailedPages == stats.TotalPages {
		lines = append(lines, "No page could be extracted; the CSV only has a header")
	}
	return lines
}
