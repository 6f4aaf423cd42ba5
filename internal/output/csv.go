// Package output writes commodity rows to a spreadsheet-friendly CSV file.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/spherical/packing-list-extractor/internal/domain"
)

// TimestampLayout is the suffix format of output filenames.
const TimestampLayout = "20060102_150405"

// csvRow is the on-disk shape of a CommodityRow.
type csvRow struct {
	Name     string `csv:"Commodity Name"`
	Quantity string `csv:"Qty"`
	UOM      string `csv:"UOM"`
}

// CSVWriter writes rows as UTF-8 CSV with a byte order mark so that
// spreadsheet tools detect the encoding.
type CSVWriter struct {
	Dir string
	Now func() time.Time
}

// NewCSVWriter creates a writer rooted at dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{Dir: dir, Now: time.Now}
}

// FileName returns the output name for a source PDF at time t.
func FileName(sourcePath string, t time.Time) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_%s.csv", base, t.Format(TimestampLayout))
}

// Write creates the output file and returns its path. An empty row slice
// produces a header-only file.
func (w *CSVWriter) Write(rows []domain.CommodityRow, sourcePath string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", domain.IOError("failed to create output directory", err)
	}

	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	path := filepath.Join(w.Dir, FileName(sourcePath, now()))

	f, err := os.Create(path)
	if err != nil {
		return "", domain.IOError("failed to create output file", err)
	}
	defer f.Close()

	bom := transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
	if err := gocsv.Marshal(toCSVRows(rows), bom); err != nil {
		return "", domain.IOError("failed to write CSV", err)
	}
	if err := bom.Close(); err != nil {
		return "", domain.IOError("failed to flush CSV", err)
	}
	if err := f.Close(); err != nil {
		return "", domain.IOError("failed to close output file", err)
	}

	return path, nil
}

func toCSVRows(rows []domain.CommodityRow) []csvRow {
	out := make([]csvRow, len(rows))
	for i, r := range rows {
		out[i] = csvRow{
			Name:     r.Name,
			Quantity: r.Quantity.String(),
			UOM:      r.UOM,
		}
	}
	return out
}
