package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"invoice-audit/internal/discovery"
	"invoice-audit/internal/invoice"
	"invoice-audit/internal/parts"
	"invoice-audit/internal/scanning"
	"invoice-audit/internal/validation"
)

// Input is one invoice document to validate.
type Input struct {
	SourceID    string
	Data        []byte
	ContentType string
}

// ResultSink receives the finished batch for rendering. The core makes no
// assumption about the output format.
type ResultSink interface {
	Consume(batch *validation.BatchResult) error
}

// Service wires extraction, validation and discovery together for batch
// processing.
type Service struct {
	extractor scanning.Extractor
	store     parts.Store
	decider   discovery.Decider
	audit     discovery.AuditLog
	cfg       validation.Config
	rules     *validation.RuleSet
}

// NewService creates a processing service.
func NewService(extractor scanning.Extractor, store parts.Store, decider discovery.Decider, audit discovery.AuditLog, cfg validation.Config) *Service {
	return &Service{
		extractor: extractor,
		store:     store,
		decider:   decider,
		audit:     audit,
		cfg:       cfg,
	}
}

// UseRules attaches custom business rules to every future run.
func (s *Service) UseRules(rules *validation.RuleSet) {
	s.rules = rules
}

// Run is one processing run: a discovery session, a runner bound to it, and
// the results collected so far. A run is single-operator and must not be
// shared across goroutines.
type Run struct {
	session *discovery.Session
	runner  *validation.Runner
	service *Service
	results []*validation.Result
}

// NewRun opens a run. The caller must call Finish (or it leaks an open
// discovery session with unflushed audit entries).
func (s *Service) NewRun(ctx context.Context) *Run {
	session := discovery.NewSession(s.decider, s.store, s.audit)
	runner := validation.NewRunner(s.store, s.cfg)
	if s.rules != nil {
		runner.UseRules(s.rules)
	}
	runner.UseRecovery(validation.PhasePartsLookup, session.Recovery(ctx))

	return &Run{
		session: session,
		runner:  runner,
		service: s,
	}
}

// Process validates one input. Extraction failures are local: they produce a
// failed result and a nil error so the batch continues. A non-nil error
// means the parts store failed and the run should stop.
func (r *Run) Process(input Input) (*validation.Result, error) {
	slog.Info("Validating invoice", "source", input.SourceID, "content_type", input.ContentType)

	result, err := r.validate(input)
	if err != nil {
		return nil, err
	}
	r.results = append(r.results, result)
	return result, nil
}

func (r *Run) validate(input Input) (*validation.Result, error) {
	text, err := r.service.extractor.ExtractText(input.Data, input.ContentType)
	if err != nil {
		slog.Error("Text extraction failed", "source", input.SourceID, "error", err)
		return validation.FailedResult(input.SourceID, err), nil
	}

	rec, err := invoice.Extract(text, input.SourceID)
	if err != nil {
		var extractionErr *invoice.ExtractionError
		if errors.As(err, &extractionErr) {
			slog.Error("Invoice extraction failed",
				"source", input.SourceID, "kind", extractionErr.Kind, "error", err)
			return validation.FailedResult(input.SourceID, err), nil
		}
		return validation.FailedResult(input.SourceID, err), nil
	}

	result, err := r.runner.Run(rec)
	if err != nil {
		return nil, fmt.Errorf("validating %s: %w", input.SourceID, err)
	}
	return result, nil
}

// Session exposes the run's discovery session.
func (r *Run) Session() *discovery.Session {
	return r.session
}

// Finish closes the discovery session (flushing its audit entries) and
// builds the batch aggregate. Safe to call after a failure or cancellation.
func (r *Run) Finish() *validation.BatchResult {
	if err := r.session.Close(); err != nil {
		slog.Warn("Closing discovery session failed", "error", err)
	}
	return validation.NewBatchResult(r.results)
}

// ProcessBatch validates inputs in order. Cancellation is honored between
// invoices; the discovery session is always closed before returning. The
// partial batch is returned alongside any fatal or cancellation error.
func (s *Service) ProcessBatch(ctx context.Context, inputs []Input) (*validation.BatchResult, error) {
	run := s.NewRun(ctx)

	var runErr error
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			slog.Info("Batch cancelled", "remaining", len(inputs)-len(run.results))
			runErr = err
			break
		}
		if _, err := run.Process(input); err != nil {
			runErr = err
			break
		}
	}

	return run.Finish(), runErr
}

// InputFromFile reads one invoice document, deriving the content type from
// the file extension.
func InputFromFile(path string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, fmt.Errorf("reading %s: %w", path, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/pdf"
	}

	return Input{
		SourceID:    filepath.Base(path),
		Data:        data,
		ContentType: contentType,
	}, nil
}
