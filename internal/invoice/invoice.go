package invoice

import "time"

// Canonical trailer labels in the order a well-formed invoice must list them.
const (
	LabelSubtotal = "SUBTOTAL"
	LabelFreight  = "FREIGHT"
	LabelTax      = "TAX"
	LabelTotal    = "TOTAL"
)

// CanonicalTrailer is the required trailer label sequence.
var CanonicalTrailer = []string{LabelSubtotal, LabelFreight, LabelTax, LabelTotal}

// LineItem is one billed part on an invoice. RawLineIndex points back at the
// line in the source text the item was parsed from.
type LineItem struct {
	PartNumber   string  `json:"part_number"`
	Description  string  `json:"description,omitempty"`
	UnitPrice    float64 `json:"unit_price"`
	Quantity     int     `json:"quantity"`
	RawLineIndex int     `json:"raw_line_index"`
}

// TrailerLine is one summary line found after the line items, with its label
// normalized (canonical when a known synonym matched, uppercased otherwise).
type TrailerLine struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Record is a parsed invoice. It is built once by Extract and never mutated;
// line items and trailer lines keep document order.
type Record struct {
	InvoiceNumber string        `json:"invoice_number"`
	InvoiceDate   time.Time     `json:"invoice_date"`
	SourceID      string        `json:"source_id"`
	LineItems     []LineItem    `json:"line_items"`
	Trailer       []TrailerLine `json:"trailer"`
}

// DistinctPartNumbers returns the part numbers referenced by the line items,
// first-occurrence order, without duplicates.
func (r *Record) DistinctPartNumbers() []string {
	seen := make(map[string]bool, len(r.LineItems))
	parts := make([]string, 0, len(r.LineItems))
	for _, item := range r.LineItems {
		if seen[item.PartNumber] {
			continue
		}
		seen[item.PartNumber] = true
		parts = append(parts, item.PartNumber)
	}
	return parts
}

// ItemsForPart returns the line items billing the given part number.
func (r *Record) ItemsForPart(partNumber string) []LineItem {
	items := make([]LineItem, 0, 1)
	for _, item := range r.LineItems {
		if item.PartNumber == partNumber {
			items = append(items, item)
		}
	}
	return items
}
