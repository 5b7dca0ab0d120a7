package invoice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ExtractionErrorKind identifies why extraction failed.
type ExtractionErrorKind string

const (
	NoTextContent      ExtractionErrorKind = "no_text_content"
	UnparsableMetadata ExtractionErrorKind = "unparsable_metadata"
	NoLineItemsFound   ExtractionErrorKind = "no_line_items_found"
)

// ExtractionError is returned when raw text cannot be turned into a Record.
// It stops processing of the one invoice it belongs to, never the batch.
type ExtractionError struct {
	Kind     ExtractionErrorKind
	SourceID string
	Message  string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %s (%s)", e.SourceID, e.Message, e.Kind)
}

// minTextChars is the minimum number of non-whitespace characters the source
// text must carry before parsing is attempted.
const minTextChars = 10

// Invoice number patterns, tried in order; first match wins.
var invoiceNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^\s*invoice\s*(?:number|no\.?|num\.?)\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9/-]*)`),
	regexp.MustCompile(`(?im)^\s*invoice\s*#\s*([A-Za-z0-9][A-Za-z0-9/-]*)`),
	regexp.MustCompile(`(?im)^\s*inv\.?\s*(?:no\.?|#)?\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9/-]*)`),
	regexp.MustCompile(`(?im)\binvoice\s*[:#]\s*([A-Za-z0-9][A-Za-z0-9/-]*)`),
}

// Invoice date patterns, tried in order.
var invoiceDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^\s*(?:invoice\s+)?date\s*[:]?\s+(\S+(?:\s\d{1,2},?\s\d{4})?)\s*$`),
	regexp.MustCompile(`(?im)\bdate[d]?\s*[:]\s*(\d{4}-\d{2}-\d{2}|\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`),
	regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
	regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`),
}

// dateFormats is the fallback chain tried against a matched date string.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"02-01-2006",
	"01/02/06",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
}

// Line item shape: part number, optional description, unit price, quantity.
var lineItemPattern = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9_.-]*)\s{1,}(.*?)\s*\$?(\d[\d,]*(?:\.\d{1,4})?)\s+(\d+)\s*$`)

// Trailer shape: label words, optional colon, dollar amount, nothing else.
var trailerPattern = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z &/-]*?)\s*:?\s*\$?\s*(-?\d[\d,]*(?:\.\d{1,2})?)\s*$`)

// trailerSynonyms maps normalized document labels to canonical trailer labels.
var trailerSynonyms = map[string]string{
	"SUBTOTAL":            LabelSubtotal,
	"SUB TOTAL":           LabelSubtotal,
	"SUB-TOTAL":           LabelSubtotal,
	"MERCHANDISE":         LabelSubtotal,
	"FREIGHT":             LabelFreight,
	"FREIGHT CHARGES":     LabelFreight,
	"SHIPPING":            LabelFreight,
	"SHIPPING & HANDLING": LabelFreight,
	"S&H":                 LabelFreight,
	"TAX":                 LabelTax,
	"SALES TAX":           LabelTax,
	"TOTAL":               LabelTotal,
	"GRAND TOTAL":         LabelTotal,
	"TOTAL DUE":           LabelTotal,
	"AMOUNT DUE":          LabelTotal,
	"BALANCE DUE":         LabelTotal,
	"INVOICE TOTAL":       LabelTotal,
}

// Extract turns raw page text into a Record. It is a pure function of its
// input: no store access, no clock, no side effects.
func Extract(text, sourceID string) (*Record, error) {
	if countNonWhitespace(text) < minTextChars {
		return nil, &ExtractionError{
			Kind:     NoTextContent,
			SourceID: sourceID,
			Message:  "source text is empty or too short to be an invoice",
		}
	}

	number := matchFirst(text, invoiceNumberPatterns)
	if number == "" {
		return nil, &ExtractionError{
			Kind:     UnparsableMetadata,
			SourceID: sourceID,
			Message:  "no invoice number found",
		}
	}

	date, ok := extractDate(text)
	if !ok {
		return nil, &ExtractionError{
			Kind:     UnparsableMetadata,
			SourceID: sourceID,
			Message:  "no parseable invoice date found",
		}
	}

	lines := strings.Split(text, "\n")
	items := extractLineItems(lines)
	if len(items) == 0 {
		return nil, &ExtractionError{
			Kind:     NoLineItemsFound,
			SourceID: sourceID,
			Message:  "no line items matched the part/description/price/quantity shape",
		}
	}

	trailer := extractTrailer(lines, items[len(items)-1].RawLineIndex)

	return &Record{
		InvoiceNumber: number,
		InvoiceDate:   date,
		SourceID:      sourceID,
		LineItems:     items,
		Trailer:       trailer,
	}, nil
}

func countNonWhitespace(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func matchFirst(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func extractDate(text string) (time.Time, bool) {
	for _, p := range invoiceDatePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if d, ok := parseDate(strings.TrimSpace(m[1])); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

func parseDate(raw string) (time.Time, bool) {
	for _, format := range dateFormats {
		if d, err := time.Parse(format, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// extractLineItems scans every line for the part/description/price/quantity
// shape, preserving document order. Lines that normalize to a trailer label
// are never line items, whatever else they look like.
func extractLineItems(lines []string) []LineItem {
	items := make([]LineItem, 0, len(lines))
	for i, line := range lines {
		m := lineItemPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if _, isTrailer := canonicalLabel(m[1] + " " + m[2]); isTrailer {
			continue
		}
		if _, isTrailer := canonicalLabel(m[1]); isTrailer && strings.TrimSpace(m[2]) == "" {
			continue
		}
		price, err := parseAmount(m[3])
		if err != nil {
			continue
		}
		qty, err := strconv.Atoi(m[4])
		if err != nil {
			continue
		}
		items = append(items, LineItem{
			PartNumber:   m[1],
			Description:  strings.TrimSpace(m[2]),
			UnitPrice:    price,
			Quantity:     qty,
			RawLineIndex: i,
		})
	}
	return items
}

// extractTrailer collects label/amount lines after the last line item,
// mapping label synonyms onto the canonical names. Unknown labels are kept
// uppercased so the format phase can report exactly what the document said.
func extractTrailer(lines []string, lastItemIndex int) []TrailerLine {
	trailer := make([]TrailerLine, 0, 4)
	for _, line := range lines[lastItemIndex+1:] {
		m := trailerPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value, err := parseAmount(m[2])
		if err != nil {
			continue
		}
		label := normalizeLabel(m[1])
		if canonical, ok := canonicalLabel(label); ok {
			label = canonical
		}
		trailer = append(trailer, TrailerLine{Label: label, Value: value})
	}
	return trailer
}

func normalizeLabel(raw string) string {
	label := strings.ToUpper(strings.TrimSpace(raw))
	return strings.Join(strings.Fields(label), " ")
}

func canonicalLabel(raw string) (string, bool) {
	canonical, ok := trailerSynonyms[normalizeLabel(raw)]
	return canonical, ok
}

func parseAmount(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	return strconv.ParseFloat(cleaned, 64)
}
