package validation

import (
	"time"
)

// Severity ranks how bad a finding is.
type Severity string

const (
	SeverityCritical      Severity = "CRITICAL"
	SeverityWarning       Severity = "WARNING"
	SeverityInformational Severity = "INFORMATIONAL"
)

// AnomalyType names the kind of deviation a finding reports.
type AnomalyType string

const (
	AnomalyDataQuality   AnomalyType = "DATA_QUALITY_ISSUE"
	AnomalyLineCount     AnomalyType = "LINE_COUNT_VIOLATION"
	AnomalyFormat        AnomalyType = "FORMAT_VIOLATION"
	AnomalyMissingPart   AnomalyType = "MISSING_PART"
	AnomalyPriceMismatch AnomalyType = "PRICE_DISCREPANCY"
	AnomalyPriceMatch    AnomalyType = "PRICE_MATCH"
	AnomalyBusinessRule  AnomalyType = "BUSINESS_RULE_VIOLATION"
	AnomalyDiscoveryNote AnomalyType = "DISCOVERY_NOTE"
)

// Phase names the validation phases in their fixed execution order.
type Phase string

const (
	PhaseDataQuality     Phase = "data_quality"
	PhaseFormatStructure Phase = "format_structure"
	PhasePartsLookup     Phase = "parts_lookup"
	PhasePriceComparison Phase = "price_comparison"
	PhaseBusinessRules   Phase = "business_rules"
)

// PhaseOrder is the sequence the runner executes.
var PhaseOrder = []Phase{
	PhaseDataQuality,
	PhaseFormatStructure,
	PhasePartsLookup,
	PhasePriceComparison,
	PhaseBusinessRules,
}

// Finding is the raw output of one phase validator. Valid findings (price
// matches, notes) are retained for the result but never become anomalies.
// LineIndex is -1 when the finding is not scoped to a single line item.
type Finding struct {
	Phase     Phase          `json:"phase"`
	Valid     bool           `json:"valid"`
	Severity  Severity       `json:"severity"`
	Type      AnomalyType    `json:"type"`
	Message   string         `json:"message"`
	Field     string         `json:"field,omitempty"`
	LineIndex int            `json:"line_index"`
	Details   map[string]any `json:"details,omitempty"`
}

// Anomaly wraps an invalid Finding with a generated id and the owning
// invoice's context.
type Anomaly struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	InvoiceDate   time.Time `json:"invoice_date"`
	Finding
}

func critical(phase Phase, t AnomalyType, message string) Finding {
	return Finding{Phase: phase, Severity: SeverityCritical, Type: t, Message: message, LineIndex: -1}
}

func warning(phase Phase, t AnomalyType, message string) Finding {
	return Finding{Phase: phase, Severity: SeverityWarning, Type: t, Message: message, LineIndex: -1}
}

func informational(phase Phase, t AnomalyType, message string) Finding {
	return Finding{Phase: phase, Valid: true, Severity: SeverityInformational, Type: t, Message: message, LineIndex: -1}
}
