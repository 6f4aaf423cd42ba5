package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Orientation of a rendered page
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// OrientationOf derives the orientation from rendered pixel dimensions.
// Square pages count as portrait.
func OrientationOf(width, height int) Orientation {
	if width > height {
		return OrientationLandscape
	}
	return OrientationPortrait
}

// PageImage represents a single rendered PDF page
type PageImage struct {
	PageNumber  int
	ImagePath   string // Path to temporary JPG file
	Width       int
	Height      int
	Orientation Orientation
}

// ExtractionResult holds the raw vision response for one page
type ExtractionResult struct {
	PageNumber int
	Text       string
	Duration   time.Duration
}

// CommodityRow is one line of the output table. Rows are values; the
// normalizer creates them and nothing mutates them afterwards.
type CommodityRow struct {
	Name       string
	Quantity   decimal.Decimal
	UOM        string
	PageNumber int
}

// NewCommodityRow applies the defaulting policy. ok is false when the name
// is blank, in which case the row must be dropped.
func NewCommodityRow(name string, qty *decimal.Decimal, uom string, page int) (row CommodityRow, ok bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CommodityRow{}, false
	}

	quantity := DefaultQuantity()
	if qty != nil {
		quantity = *qty
	}

	uom = strings.TrimSpace(uom)
	if uom == "" {
		uom = DefaultUOM
	}

	return CommodityRow{
		Name:       name,
		Quantity:   quantity,
		UOM:        uom,
		PageNumber: page,
	}, true
}

// EventType represents the type of progress event
type EventType string

const (
	EventStart          EventType = "start"
	EventPagesLoaded    EventType = "pages_loaded"
	EventPageProcessing EventType = "page_processing"
	EventPageComplete   EventType = "page_complete"
	EventPageFailed     EventType = "page_failed"
	EventComplete       EventType = "complete"
)

// StreamEvent represents an event emitted during processing
type StreamEvent struct {
	Type       EventType   `json:"type"`
	PageNumber int         `json:"page_number,omitempty"`
	TotalPages int         `json:"total_pages,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// ProcessingStats contains metadata about one run
type ProcessingStats struct {
	TotalTime         time.Duration
	TotalPages        int
	SuccessfulPages   int
	FailedPages       int
	Rows              int
	DroppedRows       int
	QuantityDefaulted int
	UOMDefaulted      int
	Errors            []error
}
