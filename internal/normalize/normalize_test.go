package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/packing-list-extractor/internal/domain"
)

type wantRow struct {
	name, qty, uom string
}

func rowsOf(rows []domain.CommodityRow) []wantRow {
	out := make([]wantRow, len(rows))
	for i, r := range rows {
		out[i] = wantRow{r.Name, r.Quantity.String(), r.UOM}
	}
	return out
}

func TestParse_Delimited(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []wantRow
	}{
		{
			name:  "comma lines with missing fields",
			input: "Widget A, 5, BOX\nWidget B,,EA",
			want:  []wantRow{{"Widget A", "5", "BOX"}, {"Widget B", "1", "EA"}},
		},
		{
			name:  "trailing empty uom",
			input: "Widget C, 2,",
			want:  []wantRow{{"Widget C", "2", "BOX"}},
		},
		{
			name:  "name only",
			input: "Loose screws",
			want:  []wantRow{{"Loose screws", "1", "BOX"}},
		},
		{
			name:  "name and quantity",
			input: "Cable ties, 250",
			want:  []wantRow{{"Cable ties", "250", "BOX"}},
		},
		{
			name:  "unparseable quantity defaults",
			input: "Gaskets, several, PCS",
			want:  []wantRow{{"Gaskets", "1", "PCS"}},
		},
		{
			name:  "decimal quantity",
			input: "Copper wire, 12.50, KG",
			want:  []wantRow{{"Copper wire", "12.5", "KG"}},
		},
		{
			name:  "quoted name with comma",
			input: `"Valve, brass 1/2in", 4, EA`,
			want:  []wantRow{{"Valve, brass 1/2in", "4", "EA"}},
		},
		{
			name:  "extra fields fold into the name",
			input: "Pump, centrifugal, 2, SET",
			want:  []wantRow{{"Pump, centrifugal", "2", "SET"}},
		},
		{
			name:  "header and blank lines skipped",
			input: "Commodity Name, Qty, UOM\n\nWidget A, 5, BOX\n\n",
			want:  []wantRow{{"Widget A", "5", "BOX"}},
		},
		{
			name: "markdown table",
			input: "| Commodity Name | Qty | UOM |\n" +
				"|----------------|-----|-----|\n" +
				"| Steel bracket | 1,200 | PCS |\n" +
				"| Hinge |  |  |",
			want: []wantRow{{"Steel bracket", "1200", "PCS"}, {"Hinge", "1", "BOX"}},
		},
		{
			name:  "tab separated",
			input: "Bolt M8\t100\tEA",
			want:  []wantRow{{"Bolt M8", "100", "EA"}},
		},
		{
			name:  "list markers stripped",
			input: "- Widget A, 5, BOX\n* Widget B, 3, EA",
			want:  []wantRow{{"Widget A", "5", "BOX"}, {"Widget B", "3", "EA"}},
		},
		{
			name:  "garbage passes through as name",
			input: "Sorry, I cannot read this page.",
			want:  []wantRow{{"Sorry, I cannot read this page.", "1", "BOX"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input, 1)
			assert.Equal(t, FormatDelimited, result.Format)
			assert.Equal(t, tt.want, rowsOf(result.Rows))
		})
	}
}

func TestParse_JSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []wantRow
	}{
		{
			name: "array with all fields",
			input: `[
				{"Commodity Name": "Product A", "Qty": 10, "UOM": "BOX"},
				{"Commodity Name": "Product B", "Qty": 1, "UOM": "CTN"}
			]`,
			want: []wantRow{{"Product A", "10", "BOX"}, {"Product B", "1", "CTN"}},
		},
		{
			name:  "missing and null fields default",
			input: `[{"Commodity Name": "Product C"}, {"Commodity Name": "Product D", "Qty": null, "UOM": ""}]`,
			want:  []wantRow{{"Product C", "1", "BOX"}, {"Product D", "1", "BOX"}},
		},
		{
			name:  "quantity as string",
			input: `[{"Commodity Name": "Product E", "Qty": "2,500", "UOM": "PCS"}]`,
			want:  []wantRow{{"Product E", "2500", "PCS"}},
		},
		{
			name:  "aliased keys",
			input: `[{"name": "Product F", "quantity": 3, "unit": "EA"}]`,
			want:  []wantRow{{"Product F", "3", "EA"}},
		},
		{
			name:  "code fenced",
			input: "```json\n[{\"Commodity Name\": \"Product G\", \"Qty\": 7, \"UOM\": \"BAG\"}]\n```",
			want:  []wantRow{{"Product G", "7", "BAG"}},
		},
		{
			name:  "wrapped in object",
			input: `{"items": [{"Commodity Name": "Product H", "Qty": 4.0}]}`,
			want:  []wantRow{{"Product H", "4", "BOX"}},
		},
		{
			name:  "empty array",
			input: `[]`,
			want:  []wantRow{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input, 1)
			assert.Equal(t, FormatJSON, result.Format)
			assert.Equal(t, tt.want, rowsOf(result.Rows))
		})
	}
}

func TestParse_DropsNamelessCandidates(t *testing.T) {
	input := "Widget A, 5, BOX\n, 3, EA\nWidget B, 2, EA\n  ,  ,  "

	result := Parse(input, 1)

	assert.Equal(t, 4, result.Candidates)
	assert.Equal(t, 2, result.Dropped)
	assert.Len(t, result.Rows, result.Candidates-result.Dropped)
	assert.Equal(t, []wantRow{{"Widget A", "5", "BOX"}, {"Widget B", "2", "EA"}}, rowsOf(result.Rows))
}

func TestParse_JSONDropsNameless(t *testing.T) {
	result := Parse(`[{"Commodity Name": "", "Qty": 5}, {"Qty": 2, "UOM": "EA"}, {"Commodity Name": "Kept"}]`, 1)

	assert.Equal(t, 3, result.Candidates)
	assert.Equal(t, 2, result.Dropped)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Kept", result.Rows[0].Name)
}

func TestParse_DefaultCounters(t *testing.T) {
	result := Parse("Widget A, 5, BOX\nWidget B,,EA\nWidget C, 2,\nWidget D", 3)

	assert.Equal(t, 2, result.QuantityDefaulted)
	assert.Equal(t, 2, result.UOMDefaulted)
	for _, row := range result.Rows {
		assert.Equal(t, 3, row.PageNumber)
	}
}

func TestParse_PreservesOrder(t *testing.T) {
	result := Parse("c, 1, EA\na, 2, EA\nb, 3, EA", 1)

	names := make([]string, len(result.Rows))
	for i, r := range result.Rows {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestParse_EmptyResponse(t *testing.T) {
	result := Parse("   \n ", 1)
	assert.Empty(t, result.Rows)
	assert.Zero(t, result.Candidates)
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want string // "" means nil
	}{
		{"5", "5"},
		{" 12 ", "12"},
		{"2.50", "2.5"},
		{"1,000", "1000"},
		{"1,000.75", "1000.75"},
		{"", ""},
		{"abc", ""},
		{"5 PCS", ""},
		{"1,00", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseQuantity(tt.in)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFieldFor(t *testing.T) {
	assert.Equal(t, fieldName, fieldFor("Commodity Name"))
	assert.Equal(t, fieldName, fieldFor("commodity_name"))
	assert.Equal(t, fieldQty, fieldFor("QTY"))
	assert.Equal(t, fieldUOM, fieldFor("Unit of Measure"))
	assert.Equal(t, fieldUnknown, fieldFor("HS Code"))
}

func TestParse_JSONDuplicateAliasesAreStable(t *testing.T) {
	input := `[{"Commodity Name": "Steel bolt", "Description": "M8 zinc plated", "Qty": 3, "quantity": 9, "unit": "PCS", "UOM": "EA"}]`

	for i := 0; i < 200; i++ {
		result := Parse(input, 1)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, wantRow{"Steel bolt", "3", "EA"}, rowsOf(result.Rows)[0])
	}
}

func TestParse_JSONAliasOrderWithoutExactColumns(t *testing.T) {
	input := `[{"name": "Second", "description": "First", "quantity": "", "qty": 4}]`

	for i := 0; i < 50; i++ {
		result := Parse(input, 1)
		assert.Equal(t, []wantRow{{"First", "4", "BOX"}}, rowsOf(result.Rows))
	}
}

func TestParse_JSONWrapperPicksFirstSortedArray(t *testing.T) {
	input := `{"rows": [{"Commodity Name": "From rows"}], "items": [{"Commodity Name": "From items"}], "notes": "none"}`

	for i := 0; i < 50; i++ {
		result := Parse(input, 1)
		assert.Equal(t, []wantRow{{"From items", "1", "BOX"}}, rowsOf(result.Rows))
	}
}

func TestParse_JSONEmbeddedInProse(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name: "preamble before fenced block",
			input: "Here are the extracted rows:\n```json\n" +
				`[{"Commodity Name": "Product A", "Qty": 10, "UOM": "CTN"}]` +
				"\n```",
		},
		{
			name: "commentary after fenced block",
			input: "```json\n" +
				`[{"Commodity Name": "Product A", "Qty": 10, "UOM": "CTN"}]` +
				"\n```\nLet me know if you need anything else.",
		},
		{
			name:  "unfenced array after preamble",
			input: `The table contains: [{"Commodity Name": "Product A", "Qty": 10, "UOM": "CTN"}] as requested.`,
		},
		{
			name:  "trailing note after bare array",
			input: `[{"Commodity Name": "Product A", "Qty": 10, "UOM": "CTN"}]` + "\nNote: page was clear.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input, 1)
			assert.Equal(t, FormatJSON, result.Format)
			assert.Equal(t, []wantRow{{"Product A", "10", "CTN"}}, rowsOf(result.Rows))
			assert.Zero(t, result.Dropped)
		})
	}
}

func TestParse_BracketsInDelimitedLinesStayDelimited(t *testing.T) {
	result := Parse("Hose clamp [20mm], 5, EA\nSpacer [1], 2, PCS", 1)

	assert.Equal(t, FormatDelimited, result.Format)
	assert.Equal(t, []wantRow{{"Hose clamp [20mm]", "5", "EA"}, {"Spacer [1]", "2", "PCS"}}, rowsOf(result.Rows))
}
