// Package normalize turns raw vision responses into commodity rows.
//
// Parsing is lenient. A response is read as a JSON array of objects when it
// contains one, bare or inside a fenced block with prose around it, and as
// delimited lines otherwise. Missing quantities become
// domain.DefaultQuantity, missing units become domain.DefaultUOM, and
// candidates without a name are dropped. Nothing here returns an error: input
// that cannot be understood ends up in the name column.
package normalize

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spherical/packing-list-extractor/internal/domain"
)

// Format identifies how a response was read
type Format string

const (
	FormatJSON      Format = "json"
	FormatDelimited Format = "delimited"
)

// Result holds the rows of one page plus counters for logging.
type Result struct {
	Rows              []domain.CommodityRow
	Format            Format
	Candidates        int
	Dropped           int
	QuantityDefaulted int
	UOMDefaulted      int
}

type candidate struct {
	name string
	qty  string
	uom  string
}

var (
	thousandsPattern = regexp.MustCompile(`^[-+]?\d{1,3}(,\d{3})+(\.\d+)?$`)
	separatorPattern = regexp.MustCompile(`^:?-{2,}:?$`)
	fencedPattern    = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\n(.*?)```")
	listMarkers      = []string{"- ", "* ", "• "}
)

// Parse reads one page's response. page is stamped on every row.
func Parse(text string, page int) Result {
	body := stripCodeFence(strings.TrimSpace(text))

	var (
		cands  []candidate
		format = FormatDelimited
	)
	if parsed, ok := findJSON(body); ok {
		cands = parsed
		format = FormatJSON
	} else {
		cands = parseDelimited(body)
	}

	result := Result{
		Rows:       make([]domain.CommodityRow, 0, len(cands)),
		Format:     format,
		Candidates: len(cands),
	}

	for _, c := range cands {
		qty := ParseQuantity(c.qty)
		row, ok := domain.NewCommodityRow(c.name, qty, c.uom, page)
		if !ok {
			result.Dropped++
			continue
		}
		if qty == nil {
			result.QuantityDefaulted++
		}
		if strings.TrimSpace(c.uom) == "" {
			result.UOMDefaulted++
		}
		result.Rows = append(result.Rows, row)
	}

	return result
}

// ParseQuantity parses a quantity cell. It returns nil when the cell is
// empty or not a number, which callers treat as "use the default".
func ParseQuantity(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if thousandsPattern.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

// stripCodeFence removes a surrounding ```lang ... ``` block if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// findJSON locates a JSON array in a response. The whole body is tried
// first, then each fenced block, then the text from the first '['. Embedded
// candidates only count when every item is an object, so delimited lines
// containing brackets are left alone.
func findJSON(body string) ([]candidate, bool) {
	if cands, ok := parseJSON(body, false); ok {
		return cands, true
	}
	for _, m := range fencedPattern.FindAllStringSubmatch(body, -1) {
		if cands, ok := parseJSON(strings.TrimSpace(m[1]), true); ok {
			return cands, true
		}
	}
	if i := strings.Index(body, "["); i > 0 {
		if cands, ok := parseJSON(body[i:], true); ok {
			return cands, true
		}
	}
	return nil, false
}

// parseJSON accepts an array of row objects, or an object wrapping one.
// Only the first JSON value is read; trailing text is ignored.
func parseJSON(body string, objectsOnly bool) ([]candidate, bool) {
	if body == "" || (body[0] != '[' && body[0] != '{') {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}

	var items []interface{}
	switch v := raw.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		arr, ok := firstArray(v)
		if !ok {
			return nil, false
		}
		items = arr
	default:
		return nil, false
	}

	if objectsOnly {
		if len(items) == 0 {
			return nil, false
		}
		for _, item := range items {
			if _, ok := item.(map[string]interface{}); !ok {
				return nil, false
			}
		}
	}

	cands := make([]candidate, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			// A bare string or number is treated as a name.
			cands = append(cands, candidate{name: scalarString(item)})
			continue
		}
		cands = append(cands, objectCandidate(obj))
	}

	return cands, true
}

// firstArray returns the array under the lowest sorted key of a wrapper object.
func firstArray(obj map[string]interface{}) ([]interface{}, bool) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if arr, ok := obj[k].([]interface{}); ok {
			return arr, true
		}
	}
	return nil, false
}

// objectCandidate maps one row object. Exact column names win over aliases,
// and among aliases the lowest sorted key wins. A field is only taken from a
// key whose value is not blank.
func objectCandidate(obj map[string]interface{}) candidate {
	var c candidate
	for _, key := range orderedKeys(obj) {
		val := scalarString(obj[key])
		if strings.TrimSpace(val) == "" {
			continue
		}
		switch fieldFor(key) {
		case fieldName:
			if c.name == "" {
				c.name = val
			}
		case fieldQty:
			if c.qty == "" {
				c.qty = val
			}
		case fieldUOM:
			if c.uom == "" {
				c.uom = val
			}
		}
	}
	return c
}

func orderedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ei, ej := isExactColumn(keys[i]), isExactColumn(keys[j])
		if ei != ej {
			return ei
		}
		return keys[i] < keys[j]
	})
	return keys
}

func isExactColumn(key string) bool {
	switch key {
	case domain.ColumnCommodityName, domain.ColumnQty, domain.ColumnUOM:
		return true
	}
	return false
}

// parseDelimited reads one candidate per non-blank line.
func parseDelimited(body string) []candidate {
	var cands []candidate

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		for _, marker := range listMarkers {
			line = strings.TrimPrefix(line, marker)
		}

		fields := splitFields(line)
		if isSeparatorRow(fields) || isHeaderRow(fields) {
			continue
		}

		cands = append(cands, fieldsToCandidate(fields))
	}

	return cands
}

// splitFields picks the delimiter for a line: pipe, then tab, then comma.
func splitFields(line string) []string {
	var fields []string

	switch {
	case strings.Contains(line, "|"):
		line = strings.TrimPrefix(strings.TrimSuffix(line, "|"), "|")
		fields = strings.Split(line, "|")
	case strings.Contains(line, "\t"):
		fields = strings.Split(line, "\t")
	default:
		r := csv.NewReader(strings.NewReader(line))
		r.LazyQuotes = true
		r.TrimLeadingSpace = true
		r.FieldsPerRecord = -1
		record, err := r.Read()
		if err != nil {
			record = strings.Split(line, ",")
		}
		fields = record
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// fieldsToCandidate maps positional fields. With more than three fields the
// last two are quantity and unit and the rest form the name.
func fieldsToCandidate(fields []string) candidate {
	switch n := len(fields); {
	case n == 0:
		return candidate{}
	case n == 1:
		return candidate{name: fields[0]}
	case n == 2:
		// A sentence split on its comma is not a name/quantity pair.
		if fields[1] != "" && ParseQuantity(fields[1]) == nil {
			return candidate{name: strings.Join(fields, ", ")}
		}
		return candidate{name: fields[0], qty: fields[1]}
	case n == 3:
		return candidate{name: fields[0], qty: fields[1], uom: fields[2]}
	default:
		return candidate{
			name: strings.Join(nonEmpty(fields[:n-2]), ", "),
			qty:  fields[n-2],
			uom:  fields[n-1],
		}
	}
}

func isSeparatorRow(fields []string) bool {
	seen := false
	for _, f := range fields {
		if f == "" {
			continue
		}
		if !separatorPattern.MatchString(f) {
			return false
		}
		seen = true
	}
	return seen
}

func isHeaderRow(fields []string) bool {
	if len(fields) < 2 {
		return false
	}
	return fieldFor(fields[0]) == fieldName && fieldFor(fields[1]) == fieldQty
}

func nonEmpty(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func scalarString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool, float64:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
