package validation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"invoice-audit/internal/invoice"
)

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// RecoveryAction handles a phase's critical findings. It returns the
// replacement set for those findings and whether a resolution was reached
// for them. Only the parts-lookup phase configures one (the unknown-part
// discovery session); recovered runs continue to later phases even when the
// replacement set still carries criticals.
type RecoveryAction func(rec *invoice.Record, criticals []Finding) (handled bool, replacement []Finding)

// Runner executes the validation phases in their fixed order and classifies
// the findings into a Result.
type Runner struct {
	source     PartSource
	cfg        Config
	rules      *RuleSet
	recovery   map[Phase]RecoveryAction
	idGen      IDGenerator
	timeSource TimeSource
}

// NewRunner creates a Runner with UUID anomaly ids and the wall clock.
func NewRunner(source PartSource, cfg Config) *Runner {
	return NewRunnerWithDeps(source, cfg, &uuidGenerator{}, &defaultTimeSource{})
}

// NewRunnerWithDeps creates a Runner with custom id and time sources for
// testing.
func NewRunnerWithDeps(source PartSource, cfg Config, idGen IDGenerator, timeSource TimeSource) *Runner {
	return &Runner{
		source:     source,
		cfg:        cfg,
		recovery:   make(map[Phase]RecoveryAction),
		idGen:      idGen,
		timeSource: timeSource,
	}
}

// UseRules attaches operator-defined custom rules to the business-rules
// phase.
func (r *Runner) UseRules(rules *RuleSet) {
	r.rules = rules
}

// UseRecovery configures the recovery action for a phase.
func (r *Runner) UseRecovery(phase Phase, action RecoveryAction) {
	r.recovery[phase] = action
}

// Run validates one invoice record. Phase order is fixed: format correctness
// must be known before parts can be matched, and parts must be known before
// prices can be compared. A non-nil error means a shared collaborator failed
// and the whole run should stop.
func (r *Runner) Run(rec *invoice.Record) (*Result, error) {
	all := []Finding{}

	for _, phase := range PhaseOrder {
		findings, err := r.runPhase(phase, rec)
		if err != nil {
			return nil, fmt.Errorf("running %s phase: %w", phase, err)
		}

		criticals := invalidCriticals(findings)
		if len(criticals) == 0 {
			all = append(all, findings...)
			continue
		}

		action := r.recovery[phase]
		if action == nil {
			// No recovery path: retain what we have and stop.
			all = append(all, findings...)
			break
		}

		handled, replacement := action(rec, criticals)
		all = append(all, withoutInvalidCriticals(findings)...)
		all = append(all, replacement...)
		if !handled {
			break
		}
	}

	return r.buildResult(rec, all), nil
}

func (r *Runner) runPhase(phase Phase, rec *invoice.Record) ([]Finding, error) {
	switch phase {
	case PhaseDataQuality:
		return DataQuality(rec), nil
	case PhaseFormatStructure:
		return FormatStructure(rec), nil
	case PhasePartsLookup:
		return PartsLookup(rec, r.source)
	case PhasePriceComparison:
		return PriceComparison(rec, r.source, r.cfg)
	case PhaseBusinessRules:
		return BusinessRules(rec, r.cfg, r.timeSource.Now(), r.rules), nil
	default:
		return nil, fmt.Errorf("unknown phase %q", phase)
	}
}

func (r *Runner) buildResult(rec *invoice.Record, findings []Finding) *Result {
	critical, warning, informational := Classify(rec, findings, r.idGen)
	return &Result{
		SourceID:             rec.SourceID,
		Invoice:              rec,
		Valid:                len(critical) == 0,
		ProcessingSuccessful: true,
		Findings:             findings,
		Critical:             critical,
		Warning:              warning,
		Informational:        informational,
	}
}

func invalidCriticals(findings []Finding) []Finding {
	criticals := []Finding{}
	for _, f := range findings {
		if !f.Valid && f.Severity == SeverityCritical {
			criticals = append(criticals, f)
		}
	}
	return criticals
}

func withoutInvalidCriticals(findings []Finding) []Finding {
	kept := []Finding{}
	for _, f := range findings {
		if !f.Valid && f.Severity == SeverityCritical {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
