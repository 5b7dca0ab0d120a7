package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"invoice-audit/internal/invoice"
	"invoice-audit/internal/parts"
	"invoice-audit/internal/validation"
)

// State is the session's position in its lifecycle.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingDecision State = "awaiting_decision"
	StateClosed           State = "closed"
)

// resolution remembers the decision taken for one part number so the
// operator is never asked twice in the same run.
type resolution struct {
	context  UnknownPartContext
	action   Action
	source   string
	decision Decision
}

// Session tracks unknown-part resolution for one processing run. It is the
// recovery action for the parts-lookup phase: missing-part findings are
// queued through Resolve, decisions are obtained from the Decider, and every
// resolution is flushed to the audit log when the session closes. Not safe
// for concurrent use; the decision capability is inherently serial.
type Session struct {
	id          string
	startedAt   time.Time
	state       State
	decider     Decider
	store       parts.Store
	audit       AuditLog
	timeSource  validation.TimeSource
	resolutions map[string]*resolution
	order       []string
}

type sessionTimeSource struct{}

func (t *sessionTimeSource) Now() time.Time {
	return time.Now()
}

// NewSession opens a discovery session.
func NewSession(decider Decider, store parts.Store, audit AuditLog) *Session {
	return NewSessionWithDeps(decider, store, audit, uuid.NewString(), &sessionTimeSource{})
}

// NewSessionWithDeps opens a session with a fixed id and time source for
// testing.
func NewSessionWithDeps(decider Decider, store parts.Store, audit AuditLog, id string, timeSource validation.TimeSource) *Session {
	return &Session{
		id:          id,
		startedAt:   timeSource.Now(),
		state:       StateIdle,
		decider:     decider,
		store:       store,
		audit:       audit,
		timeSource:  timeSource,
		resolutions: make(map[string]*resolution),
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Recovery adapts the session to the runner's recovery contract for one run.
func (s *Session) Recovery(ctx context.Context) validation.RecoveryAction {
	return func(rec *invoice.Record, criticals []validation.Finding) (bool, []validation.Finding) {
		return s.Resolve(ctx, rec, criticals)
	}
}

// Resolve works through the queued missing-part findings for one invoice.
// Parts already decided in this run reuse their resolution without another
// prompt; new parts go to the decider. The returned findings replace the
// criticals passed in: added parts drop their finding (price comparison will
// cover them now that the store knows the part), skipped and deferred parts
// keep it. A closed session resolves nothing.
func (s *Session) Resolve(ctx context.Context, rec *invoice.Record, criticals []validation.Finding) (bool, []validation.Finding) {
	if s.state == StateClosed {
		slog.Warn("Discovery session is closed, missing parts left unresolved", "session", s.id)
		return false, criticals
	}

	replacement := []validation.Finding{}

	for _, finding := range criticals {
		if finding.Type != validation.AnomalyMissingPart {
			replacement = append(replacement, finding)
			continue
		}

		partContext := contextFromFinding(rec, finding)

		if prior, ok := s.resolutions[partContext.PartNumber]; ok {
			prior.context.Occurrences += partContext.Occurrences
			if prior.action != ActionAdd {
				replacement = append(replacement, finding)
			}
			continue
		}

		res := s.decide(ctx, partContext)
		s.resolutions[partContext.PartNumber] = res
		s.order = append(s.order, partContext.PartNumber)

		switch res.action {
		case ActionAdd:
			// Finding dropped: the part is in the store now.
		default:
			replacement = append(replacement, finding)
			if res.source == "timeout" || res.source == "error" {
				note := validation.Finding{
					Phase:    validation.PhasePartsLookup,
					Severity: validation.SeverityInformational,
					Type:     validation.AnomalyDiscoveryNote,
					Message: fmt.Sprintf("decision for part %s failed (%s), skipped automatically",
						partContext.PartNumber, res.source),
					Field:     "part_number",
					LineIndex: finding.LineIndex,
					Details:   map[string]any{"part_number": partContext.PartNumber},
				}
				replacement = append(replacement, note)
			}
		}
	}

	s.state = StateIdle
	return true, replacement
}

// decide obtains and applies a decision for one new unknown part.
func (s *Session) decide(ctx context.Context, partContext UnknownPartContext) *resolution {
	s.state = StateAwaitingDecision

	decision, err := s.decider.AskUnknownPart(ctx, partContext)
	if err != nil {
		source := "error"
		if errors.Is(err, ErrPromptTimeout) {
			source = "timeout"
		}
		slog.Warn("Unknown part decision failed, skipping",
			"part", partContext.PartNumber, "error", err)
		return &resolution{context: partContext, action: ActionSkip, source: source}
	}

	source := "decider"
	if decision.Action == ActionAdd {
		if err := s.addPart(partContext, &decision); err != nil {
			slog.Warn("Adding part failed, skipping instead",
				"part", partContext.PartNumber, "error", err)
			return &resolution{context: partContext, action: ActionSkip, source: "error"}
		}
	}

	return &resolution{context: partContext, action: decision.Action, source: source, decision: decision}
}

func (s *Session) addPart(partContext UnknownPartContext, decision *Decision) error {
	if decision.AuthorizedPrice <= 0 {
		return fmt.Errorf("authorized price must be positive, got %v", decision.AuthorizedPrice)
	}
	description := decision.Description
	if description == "" {
		description = partContext.Description
	}
	now := s.timeSource.Now()
	return s.store.InsertPart(&parts.Part{
		PartNumber:      partContext.PartNumber,
		AuthorizedPrice: decision.AuthorizedPrice,
		Description:     description,
		Category:        decision.Category,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
}

// ReviewQueue returns the deferred contexts collected so far, in decision
// order.
func (s *Session) ReviewQueue() []UnknownPartContext {
	queue := []UnknownPartContext{}
	for _, partNumber := range s.order {
		res := s.resolutions[partNumber]
		if res.action == ActionDefer {
			queue = append(queue, res.context)
		}
	}
	return queue
}

// Close ends the session: every resolution is appended to the audit log and
// deferred contexts are persisted to the store's review queue. Close is
// idempotent; audit failures are logged as warnings, never returned as
// validation failures.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed

	now := s.timeSource.Now()
	for _, partNumber := range s.order {
		res := s.resolutions[partNumber]

		entry := LogEntry{
			SessionID:       s.id,
			PartNumber:      partNumber,
			InvoiceNumber:   res.context.InvoiceNumber,
			InvoiceDate:     res.context.InvoiceDate,
			DiscoveredPrice: res.context.FirstSeenPrice,
			Action:          pastTense[res.action],
			DecisionSource:  res.source,
			Occurrences:     res.context.Occurrences,
			Timestamp:       now,
		}
		if res.action == ActionAdd {
			entry.AuthorizedPrice = res.decision.AuthorizedPrice
		}
		if err := s.audit.Append(entry); err != nil {
			slog.Warn("Appending audit entry failed", "part", partNumber, "error", err)
		}

		if res.action == ActionDefer {
			item := &parts.ReviewItem{
				PartNumber:      partNumber,
				DiscoveredPrice: res.context.FirstSeenPrice,
				Description:     res.context.Description,
				InvoiceNumber:   res.context.InvoiceNumber,
				InvoiceDate:     res.context.InvoiceDate,
				Occurrences:     res.context.Occurrences,
				SessionID:       s.id,
				DeferredAt:      now,
			}
			if err := s.store.SaveReviewItem(item); err != nil {
				slog.Warn("Persisting review item failed", "part", partNumber, "error", err)
			}
		}
	}

	return nil
}

// contextFromFinding rebuilds the unknown-part context from a missing-part
// finding's details.
func contextFromFinding(rec *invoice.Record, finding validation.Finding) UnknownPartContext {
	partContext := UnknownPartContext{
		InvoiceNumber: rec.InvoiceNumber,
		InvoiceDate:   rec.InvoiceDate,
		Occurrences:   1,
	}
	if v, ok := finding.Details["part_number"].(string); ok {
		partContext.PartNumber = v
	}
	if v, ok := finding.Details["first_seen_price"].(float64); ok {
		partContext.FirstSeenPrice = v
	}
	if v, ok := finding.Details["description"].(string); ok {
		partContext.Description = v
	}
	if v, ok := finding.Details["occurrences"].(int); ok {
		partContext.Occurrences = v
	}
	return partContext
}
