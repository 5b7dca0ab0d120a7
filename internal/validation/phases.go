package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"invoice-audit/internal/invoice"
	"invoice-audit/internal/parts"
)

// PartSource is the lookup capability the parts-lookup and price-comparison
// phases consume. Lookups signal unknown parts with parts.ErrPartNotFound;
// any other error is treated as a store failure and aborts the run.
type PartSource interface {
	FindPart(partNumber string) (*parts.Part, error)
}

var invoiceNumberFormat = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9/-]*$`)
var partNumberCharset = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// DataQuality checks that the record's required fields are present and
// well-formed. Every problem is a separate CRITICAL finding.
func DataQuality(rec *invoice.Record) []Finding {
	findings := []Finding{}

	if rec.InvoiceNumber == "" {
		f := critical(PhaseDataQuality, AnomalyDataQuality, "invoice number is missing")
		f.Field = "invoice_number"
		findings = append(findings, f)
	} else if !invoiceNumberFormat.MatchString(rec.InvoiceNumber) {
		f := critical(PhaseDataQuality, AnomalyDataQuality,
			fmt.Sprintf("invoice number %q is not in an accepted format", rec.InvoiceNumber))
		f.Field = "invoice_number"
		f.Details = map[string]any{"actual": rec.InvoiceNumber}
		findings = append(findings, f)
	}

	if rec.InvoiceDate.IsZero() {
		f := critical(PhaseDataQuality, AnomalyDataQuality, "invoice date is missing or unparseable")
		f.Field = "invoice_date"
		findings = append(findings, f)
	}

	if len(rec.LineItems) == 0 {
		f := critical(PhaseDataQuality, AnomalyDataQuality, "invoice has no line items")
		f.Field = "line_items"
		findings = append(findings, f)
	}

	for _, item := range rec.LineItems {
		if item.PartNumber == "" {
			f := critical(PhaseDataQuality, AnomalyDataQuality,
				fmt.Sprintf("line %d has no part number", item.RawLineIndex))
			f.Field = "part_number"
			f.LineIndex = item.RawLineIndex
			findings = append(findings, f)
		}
		if item.UnitPrice <= 0 {
			f := critical(PhaseDataQuality, AnomalyDataQuality,
				fmt.Sprintf("line %d has a non-positive unit price", item.RawLineIndex))
			f.Field = "unit_price"
			f.LineIndex = item.RawLineIndex
			f.Details = map[string]any{"actual": item.UnitPrice}
			findings = append(findings, f)
		}
		if item.Quantity <= 0 {
			f := critical(PhaseDataQuality, AnomalyDataQuality,
				fmt.Sprintf("line %d has a non-positive quantity", item.RawLineIndex))
			f.Field = "quantity"
			f.LineIndex = item.RawLineIndex
			f.Details = map[string]any{"actual": item.Quantity}
			findings = append(findings, f)
		}
	}

	return findings
}

// FormatStructure checks the trailer against the canonical label sequence.
// Strict: wrong count is LINE_COUNT_VIOLATION, wrong labels or order at the
// right count is FORMAT_VIOLATION, no partial credit either way.
func FormatStructure(rec *invoice.Record) []Finding {
	expected := invoice.CanonicalTrailer

	if len(rec.Trailer) != len(expected) {
		f := critical(PhaseFormatStructure, AnomalyLineCount,
			fmt.Sprintf("trailer has %d lines, expected %d", len(rec.Trailer), len(expected)))
		f.Field = "trailer"
		f.Details = map[string]any{
			"expected_count": len(expected),
			"actual_count":   len(rec.Trailer),
			"actual_labels":  trailerLabels(rec),
		}
		return []Finding{f}
	}

	for i, line := range rec.Trailer {
		if line.Label != expected[i] {
			f := critical(PhaseFormatStructure, AnomalyFormat,
				fmt.Sprintf("trailer line %d is %q, expected %q", i+1, line.Label, expected[i]))
			f.Field = "trailer"
			f.Details = map[string]any{
				"expected_labels": expected,
				"actual_labels":   trailerLabels(rec),
			}
			return []Finding{f}
		}
	}

	return nil
}

func trailerLabels(rec *invoice.Record) []string {
	labels := make([]string, len(rec.Trailer))
	for i, line := range rec.Trailer {
		labels[i] = line.Label
	}
	return labels
}

// PartsLookup queries the store for each distinct part number. Unknown parts
// become CRITICAL MISSING_PART findings; these are the one kind of critical
// with a recovery path (the discovery session). A store failure aborts.
func PartsLookup(rec *invoice.Record, source PartSource) ([]Finding, error) {
	findings := []Finding{}

	for _, partNumber := range rec.DistinctPartNumbers() {
		_, err := source.FindPart(partNumber)
		if err == nil {
			continue
		}
		if !errors.Is(err, parts.ErrPartNotFound) {
			return nil, fmt.Errorf("looking up part %s: %w", partNumber, err)
		}

		items := rec.ItemsForPart(partNumber)
		f := critical(PhasePartsLookup, AnomalyMissingPart,
			fmt.Sprintf("part %s is not in the price list", partNumber))
		f.Field = "part_number"
		f.LineIndex = items[0].RawLineIndex
		f.Details = map[string]any{
			"part_number":      partNumber,
			"first_seen_price": items[0].UnitPrice,
			"description":      items[0].Description,
			"occurrences":      len(items),
		}
		findings = append(findings, f)
	}

	return findings, nil
}

// PriceComparison compares each found line item's unit price against the
// authorized price. Unknown parts are skipped here; the lookup phase already
// reported them.
func PriceComparison(rec *invoice.Record, source PartSource, cfg Config) ([]Finding, error) {
	findings := []Finding{}

	for _, item := range rec.LineItems {
		part, err := source.FindPart(item.PartNumber)
		if err != nil {
			if errors.Is(err, parts.ErrPartNotFound) {
				continue
			}
			return nil, fmt.Errorf("looking up part %s: %w", item.PartNumber, err)
		}

		findings = append(findings, comparePrice(item, part, cfg))
	}

	return findings, nil
}

func comparePrice(item invoice.LineItem, part *parts.Part, cfg Config) Finding {
	diff := math.Abs(item.UnitPrice - part.AuthorizedPrice)
	pct := 0.0
	if part.AuthorizedPrice > 0 {
		pct = diff / part.AuthorizedPrice * 100
	}

	details := map[string]any{
		"part_number":      item.PartNumber,
		"invoice_price":    item.UnitPrice,
		"authorized_price": part.AuthorizedPrice,
		"difference":       diff,
		"percent":          pct,
	}

	var f Finding
	switch {
	case diff <= cfg.PriceTolerance:
		f = informational(PhasePriceComparison, AnomalyPriceMatch,
			fmt.Sprintf("part %s price matches the authorized price", item.PartNumber))
	// Escalation is inclusive at the critical boundary: hitting either
	// threshold exactly is enough.
	case pct >= cfg.CriticalPercent || diff >= cfg.CriticalAbsolute:
		f = critical(PhasePriceComparison, AnomalyPriceMismatch,
			fmt.Sprintf("part %s billed at %.2f, authorized %.2f (off by %.2f, %.1f%%)",
				item.PartNumber, item.UnitPrice, part.AuthorizedPrice, diff, pct))
	default:
		// Anything between tolerance and the critical triggers is at least
		// a warning, whether or not the warning triggers fire.
		f = warning(PhasePriceComparison, AnomalyPriceMismatch,
			fmt.Sprintf("part %s billed at %.2f, authorized %.2f (off by %.2f, %.1f%%)",
				item.PartNumber, item.UnitPrice, part.AuthorizedPrice, diff, pct))
	}
	f.Field = "unit_price"
	f.LineIndex = item.RawLineIndex
	f.Details = details
	return f
}

// BusinessRules applies the fixed sanity checks plus any operator-defined
// custom rules.
func BusinessRules(rec *invoice.Record, cfg Config, now time.Time, ruleSet *RuleSet) []Finding {
	findings := []Finding{}

	for _, item := range rec.LineItems {
		findings = append(findings, partNumberSanity(item, cfg)...)
		findings = append(findings, priceReasonableness(item, cfg)...)
	}

	findings = append(findings, dateSanity(rec, cfg, now)...)

	if ruleSet != nil {
		findings = append(findings, ruleSet.Evaluate(rec)...)
	}

	return findings
}

func partNumberSanity(item invoice.LineItem, cfg Config) []Finding {
	n := len(item.PartNumber)
	if n >= cfg.PartNumberMinLength && n <= cfg.PartNumberMaxLength && partNumberCharset.MatchString(item.PartNumber) {
		return nil
	}
	f := warning(PhaseBusinessRules, AnomalyBusinessRule,
		fmt.Sprintf("part number %q does not look like a valid part number", item.PartNumber))
	f.Field = "part_number"
	f.LineIndex = item.RawLineIndex
	f.Details = map[string]any{"part_number": item.PartNumber}
	return []Finding{f}
}

func priceReasonableness(item invoice.LineItem, cfg Config) []Finding {
	if item.UnitPrice <= cfg.MinReasonablePrice {
		f := critical(PhaseBusinessRules, AnomalyBusinessRule,
			fmt.Sprintf("part %s priced unreasonably low at %.2f", item.PartNumber, item.UnitPrice))
		f.Field = "unit_price"
		f.LineIndex = item.RawLineIndex
		f.Details = map[string]any{"actual": item.UnitPrice, "minimum": cfg.MinReasonablePrice}
		return []Finding{f}
	}
	if item.UnitPrice > cfg.MaxReasonablePrice {
		f := warning(PhaseBusinessRules, AnomalyBusinessRule,
			fmt.Sprintf("part %s priced unusually high at %.2f", item.PartNumber, item.UnitPrice))
		f.Field = "unit_price"
		f.LineIndex = item.RawLineIndex
		f.Details = map[string]any{"actual": item.UnitPrice, "maximum": cfg.MaxReasonablePrice}
		return []Finding{f}
	}
	return nil
}

func dateSanity(rec *invoice.Record, cfg Config, now time.Time) []Finding {
	if rec.InvoiceDate.IsZero() {
		return nil
	}

	futureCutoff := now.AddDate(0, 0, cfg.FutureDateDays)
	if rec.InvoiceDate.After(futureCutoff) {
		f := warning(PhaseBusinessRules, AnomalyBusinessRule,
			fmt.Sprintf("invoice date %s is more than %d days in the future",
				rec.InvoiceDate.Format("2006-01-02"), cfg.FutureDateDays))
		f.Field = "invoice_date"
		f.Details = map[string]any{"invoice_date": rec.InvoiceDate, "cutoff": futureCutoff}
		return []Finding{f}
	}

	staleCutoff := now.AddDate(0, 0, -cfg.StaleDateDays)
	if rec.InvoiceDate.Before(staleCutoff) {
		f := Finding{
			Phase:    PhaseBusinessRules,
			Severity: SeverityInformational,
			Type:     AnomalyBusinessRule,
			Message: fmt.Sprintf("invoice date %s is more than %d days old",
				rec.InvoiceDate.Format("2006-01-02"), cfg.StaleDateDays),
			LineIndex: -1,
		}
		f.Field = "invoice_date"
		f.Details = map[string]any{"invoice_date": rec.InvoiceDate, "cutoff": staleCutoff}
		return []Finding{f}
	}

	return nil
}
