package llm

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"text/template"

	"github.com/spherical/packing-list-extractor/internal/domain"
)

// extractionPromptTmpl is sent with every page image. The defaults it states
// match domain.DefaultQuantityValue and domain.DefaultUOM.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are processing page {{.Page}} of {{.Total}} from a packing list or invoice document.
This page contains a table with product information. Maintain consistent column interpretation across all pages.

Important Rules:
1. The table structure is FIXED across all pages - every row must have the same column structure
2. Each row represents a product entry with specific details
3. Headers may or may not be repeated on each page - ignore headers if present and focus on data rows
4. Empty cells should be preserved to maintain table structure

Extract ONLY the following fields from each row, maintaining exact column order:
1. {{.NameColumn}}: The product description/name (required)
2. {{.QtyColumn}}: The quantity value (default to {{.DefaultQty}} if not found)
3. {{.UOMColumn}}: Unit of Measure (default to '{{.DefaultUOM}}' if not found)

Return ONLY a JSON array of objects with these exact fields: '{{.NameColumn}}', '{{.QtyColumn}}', '{{.UOMColumn}}'.
Each object must have all three fields, even if using default values.
Do not include any commentary, headers, or additional information.

Example format:
[
    {"{{.NameColumn}}": "Product A", "{{.QtyColumn}}": 10, "{{.UOMColumn}}": "{{.DefaultUOM}}"},
    {"{{.NameColumn}}": "Product B", "{{.QtyColumn}}": 1, "{{.UOMColumn}}": "{{.DefaultUOM}}"}
]`))

type promptData struct {
	Page       int
	Total      int
	NameColumn string
	QtyColumn  string
	UOMColumn  string
	DefaultQty int
	DefaultUOM string
}

// buildPrompt renders the extraction prompt for one page.
func buildPrompt(page, total int) (string, error) {
	var buf bytes.Buffer
	err := extractionPromptTmpl.Execute(&buf, promptData{
		Page:       page,
		Total:      total,
		NameColumn: domain.ColumnCommodityName,
		QtyColumn:  domain.ColumnQty,
		UOMColumn:  domain.ColumnUOM,
		DefaultQty: domain.DefaultQuantityValue,
		DefaultUOM: domain.DefaultUOM,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// encodeImage reads a rendered page and returns it base64 encoded.
func encodeImage(imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
