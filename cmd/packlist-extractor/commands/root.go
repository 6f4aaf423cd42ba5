package commands

import (
	"github.com/spf13/cobra"
)

// DefaultPDFPath is processed when no file argument is given.
const DefaultPDFPath = "cipl/sample7_Invoice+Packing List-100015.pdf"

var (
	cfgFile string
	verbose bool
	noColor bool

	dpi       int
	outputDir string
	tempDir   string
	provider  string
	model     string
	keepTemp  bool
	enhance   bool
)

var rootCmd = &cobra.Command{
	Use:   "packlist-extractor [pdf-file]",
	Short: "Extract commodity lines from a scanned packing list into CSV",
	Long: `packlist-extractor renders each page of a packing list PDF to an image,
asks a vision model for the commodity rows on that page and writes them to a
UTF-8 CSV file with the columns Commodity Name, Qty and UOM.

Missing quantities default to 1 and missing units to BOX. Rows without a
commodity name are dropped. A page that cannot be extracted is logged and
skipped.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runExtract,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	addExtractFlags(rootCmd)
}

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&dpi, "dpi", 0, "render resolution (default 300)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "directory for CSV output (default \"output\")")
	cmd.Flags().StringVar(&tempDir, "temp-dir", "", "directory for rendered page images (default \"temp\")")
	cmd.Flags().StringVar(&provider, "provider", "", "vision provider: anthropic or openrouter")
	cmd.Flags().StringVar(&model, "model", "", "vision model override")
	cmd.Flags().BoolVar(&keepTemp, "keep-temp", false, "keep rendered page images after the run")
	cmd.Flags().BoolVar(&enhance, "enhance", false, "grayscale, contrast and sharpen pages before extraction")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
