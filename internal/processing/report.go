package processing

import (
	"fmt"
	"io"

	"invoice-audit/internal/validation"
)

// SummaryWriter renders a plain-text batch summary. Structured report
// formats are downstream concerns; this is the one renderer the CLI ships.
type SummaryWriter struct {
	out io.Writer
}

// NewSummaryWriter creates a sink writing to out.
func NewSummaryWriter(out io.Writer) *SummaryWriter {
	return &SummaryWriter{out: out}
}

// Consume prints the batch summary.
func (w *SummaryWriter) Consume(batch *validation.BatchResult) error {
	for _, result := range batch.Results {
		if !result.ProcessingSuccessful {
			fmt.Fprintf(w.out, "FAILED  %s: %s\n", result.SourceID, result.Error)
			continue
		}

		status := "VALID  "
		if !result.Valid {
			status = "INVALID"
		}
		fmt.Fprintf(w.out, "%s %s (invoice %s, %d line items)\n",
			status, result.SourceID, result.Invoice.InvoiceNumber, len(result.Invoice.LineItems))

		for _, a := range result.Critical {
			fmt.Fprintf(w.out, "  CRITICAL %s: %s\n", a.Type, a.Message)
		}
		for _, a := range result.Warning {
			fmt.Fprintf(w.out, "  WARNING  %s: %s\n", a.Type, a.Message)
		}
		for _, a := range result.Informational {
			fmt.Fprintf(w.out, "  INFO     %s: %s\n", a.Type, a.Message)
		}
	}

	fmt.Fprintf(w.out, "\n%d invoices: %d valid, %d invalid, %d failed\n",
		batch.TotalInvoices, batch.ValidInvoices, batch.InvalidInvoices, batch.FailedExtractions)
	fmt.Fprintf(w.out, "anomalies: %d critical, %d warning, %d informational\n",
		batch.CriticalCount, batch.WarningCount, batch.InfoCount)
	return nil
}
