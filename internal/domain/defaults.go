package domain

import "github.com/shopspring/decimal"

// Defaulting policy applied by the normalizer when a field is absent.
const (
	DefaultQuantityValue = 1
	DefaultUOM           = "BOX"
	DefaultDPI           = 300
)

// DefaultQuantity returns the quantity used when none can be parsed.
func DefaultQuantity() decimal.Decimal {
	return decimal.NewFromInt(DefaultQuantityValue)
}

// CSV column headers, in output order.
const (
	ColumnCommodityName = "Commodity Name"
	ColumnQty           = "Qty"
	ColumnUOM           = "UOM"
)
