package validation

import (
	"invoice-audit/internal/invoice"
)

// IDGenerator produces anomaly ids.
type IDGenerator interface {
	Generate() string
}

// Classify partitions findings by severity. Every invalid finding becomes an
// Anomaly carrying a fresh id and the owning invoice's context. Order within
// each bucket is the order the findings were produced.
func Classify(rec *invoice.Record, findings []Finding, idGen IDGenerator) (critical, warning, informational []Anomaly) {
	critical = []Anomaly{}
	warning = []Anomaly{}
	informational = []Anomaly{}

	for _, f := range findings {
		if f.Valid {
			continue
		}
		anomaly := Anomaly{
			ID:            idGen.Generate(),
			InvoiceNumber: rec.InvoiceNumber,
			InvoiceDate:   rec.InvoiceDate,
			Finding:       f,
		}
		switch f.Severity {
		case SeverityCritical:
			critical = append(critical, anomaly)
		case SeverityWarning:
			warning = append(warning, anomaly)
		default:
			informational = append(informational, anomaly)
		}
	}

	return critical, warning, informational
}
