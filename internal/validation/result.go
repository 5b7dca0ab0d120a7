package validation

import (
	"invoice-audit/internal/invoice"
)

// Result is the per-invoice validation outcome. Valid is true iff no
// critical anomalies were recorded; ProcessingSuccessful is true iff the
// invoice made it through without an unhandled failure (extraction errors
// produce a result with ProcessingSuccessful false and no record).
type Result struct {
	SourceID             string           `json:"source_id"`
	Invoice              *invoice.Record  `json:"invoice,omitempty"`
	Valid                bool             `json:"valid"`
	ProcessingSuccessful bool             `json:"processing_successful"`
	Error                string           `json:"error,omitempty"`
	Findings             []Finding        `json:"findings"`
	Critical             []Anomaly        `json:"critical"`
	Warning              []Anomaly        `json:"warning"`
	Informational        []Anomaly        `json:"informational"`
}

// FailedResult records an invoice that never reached validation.
func FailedResult(sourceID string, err error) *Result {
	return &Result{
		SourceID:             sourceID,
		ProcessingSuccessful: false,
		Error:                err.Error(),
		Findings:             []Finding{},
		Critical:             []Anomaly{},
		Warning:              []Anomaly{},
		Informational:        []Anomaly{},
	}
}

// BatchResult aggregates results across a run in processing order.
type BatchResult struct {
	Results           []*Result `json:"results"`
	TotalInvoices     int       `json:"total_invoices"`
	ValidInvoices     int       `json:"valid_invoices"`
	InvalidInvoices   int       `json:"invalid_invoices"`
	FailedExtractions int       `json:"failed_extractions"`
	CriticalCount     int       `json:"critical_count"`
	WarningCount      int       `json:"warning_count"`
	InfoCount         int       `json:"info_count"`
}

// NewBatchResult builds the batch aggregate from per-invoice results.
func NewBatchResult(results []*Result) *BatchResult {
	batch := &BatchResult{Results: results, TotalInvoices: len(results)}
	for _, r := range results {
		if !r.ProcessingSuccessful {
			batch.FailedExtractions++
			continue
		}
		if r.Valid {
			batch.ValidInvoices++
		} else {
			batch.InvalidInvoices++
		}
		batch.CriticalCount += len(r.Critical)
		batch.WarningCount += len(r.Warning)
		batch.InfoCount += len(r.Informational)
	}
	return batch
}
