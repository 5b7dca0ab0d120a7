package discovery

import (
	"context"
	"time"
)

// Action is what the operator chose to do about an unknown part.
type Action string

const (
	ActionAdd   Action = "add"
	ActionSkip  Action = "skip"
	ActionDefer Action = "defer"
)

// pastTense maps actions to the wording used in audit entries.
var pastTense = map[Action]string{
	ActionAdd:   "added",
	ActionSkip:  "skipped",
	ActionDefer: "deferred",
}

// UnknownPartContext describes one unresolved part number for the decision
// capability.
type UnknownPartContext struct {
	PartNumber     string    `json:"part_number"`
	FirstSeenPrice float64   `json:"first_seen_price"`
	Description    string    `json:"description,omitempty"`
	InvoiceNumber  string    `json:"invoice_number"`
	InvoiceDate    time.Time `json:"invoice_date"`
	Occurrences    int       `json:"occurrences"`
}

// Decision is the outcome returned by a Decider. AuthorizedPrice,
// Description and Category are only meaningful for ActionAdd.
type Decision struct {
	Action          Action
	AuthorizedPrice float64
	Description     string
	Category        string
}

// Decider is the external decision capability: an interactive prompt or a
// pre-configured batch policy. An error or timeout is treated as skip by the
// session, never as add.
type Decider interface {
	AskUnknownPart(ctx context.Context, part UnknownPartContext) (Decision, error)
}

// PolicyDecider resolves every unknown part the same way without prompting.
type PolicyDecider struct {
	action Action
}

// NewPolicyDecider creates a batch policy decider for skip or defer.
func NewPolicyDecider(action Action) *PolicyDecider {
	return &PolicyDecider{action: action}
}

// AskUnknownPart applies the configured policy.
func (d *PolicyDecider) AskUnknownPart(ctx context.Context, part UnknownPartContext) (Decision, error) {
	return Decision{Action: d.action}, nil
}
