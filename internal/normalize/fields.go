package normalize

import (
	"strings"
	"unicode"
)

type field int

const (
	fieldUnknown field = iota
	fieldName
	fieldQty
	fieldUOM
)

// Column aliases, compared after lowercasing and dropping spaces and
// punctuation, so "Commodity Name", "commodity_name" and "CommodityName"
// all match.
var fieldAliases = map[string]field{
	"commodityname": fieldName,
	"commodity":     fieldName,
	"name":          fieldName,
	"productname":   fieldName,
	"description":   fieldName,
	"qty":           fieldQty,
	"quantity":      fieldQty,
	"uom":           fieldUOM,
	"unit":          fieldUOM,
	"unitofmeasure": fieldUOM,
}

func fieldFor(key string) field {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return fieldAliases[b.String()]
}
