package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/diegoholiveira/jsonlogic/v3"
	"gopkg.in/yaml.v3"

	"invoice-audit/internal/invoice"
)

// CustomRule is one operator-defined check evaluated against every line
// item. When is a jsonlogic expression over the variables part_number,
// description, unit_price, quantity and line_total; a truthy result fires
// the rule.
type CustomRule struct {
	Name     string         `yaml:"name"`
	Severity Severity       `yaml:"severity"`
	Message  string         `yaml:"message"`
	When     map[string]any `yaml:"when"`
}

// RuleSet holds loaded custom rules. Custom rules are advisory: they are
// capped at WARNING and can never fail an invoice.
type RuleSet struct {
	rules []CustomRule
}

type ruleFile struct {
	Rules []CustomRule `yaml:"rules"`
}

// LoadRules reads a YAML rule file and validates every rule up front.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}

	for i := range file.Rules {
		rule := &file.Rules[i]
		if rule.Name == "" {
			return nil, fmt.Errorf("rule %d has no name", i+1)
		}
		if len(rule.When) == 0 {
			return nil, fmt.Errorf("rule %q has no condition", rule.Name)
		}
		switch rule.Severity {
		case "":
			rule.Severity = SeverityWarning
		case SeverityWarning, SeverityInformational:
		case SeverityCritical:
			return nil, fmt.Errorf("rule %q: custom rules cannot be CRITICAL", rule.Name)
		default:
			return nil, fmt.Errorf("rule %q has unknown severity %q", rule.Name, rule.Severity)
		}
		if rule.Message == "" {
			rule.Message = fmt.Sprintf("custom rule %q matched", rule.Name)
		}
	}

	return &RuleSet{rules: file.Rules}, nil
}

// Len reports the number of loaded rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Evaluate runs every rule against every line item. A rule that fails to
// evaluate is logged and skipped; a broken rule must not break validation.
func (rs *RuleSet) Evaluate(rec *invoice.Record) []Finding {
	findings := []Finding{}

	for _, item := range rec.LineItems {
		vars := map[string]any{
			"part_number": item.PartNumber,
			"description": item.Description,
			"unit_price":  item.UnitPrice,
			"quantity":    item.Quantity,
			"line_total":  item.UnitPrice * float64(item.Quantity),
		}

		for _, rule := range rs.rules {
			fired, err := applyRule(rule.When, vars)
			if err != nil {
				slog.Warn("Custom rule failed to evaluate", "rule", rule.Name, "error", err)
				continue
			}
			if !fired {
				continue
			}
			findings = append(findings, Finding{
				Phase:     PhaseBusinessRules,
				Severity:  rule.Severity,
				Type:      AnomalyBusinessRule,
				Message:   fmt.Sprintf("%s (part %s)", rule.Message, item.PartNumber),
				Field:     "line_item",
				LineIndex: item.RawLineIndex,
				Details: map[string]any{
					"rule":        rule.Name,
					"part_number": item.PartNumber,
				},
			})
		}
	}

	return findings
}

func applyRule(when, vars map[string]any) (bool, error) {
	ruleJSON, err := json.Marshal(when)
	if err != nil {
		return false, fmt.Errorf("marshaling rule: %w", err)
	}
	varsJSON, err := json.Marshal(vars)
	if err != nil {
		return false, fmt.Errorf("marshaling rule data: %w", err)
	}

	var result bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(ruleJSON), bytes.NewReader(varsJSON), &result); err != nil {
		return false, fmt.Errorf("applying rule: %w", err)
	}

	var value any
	if result.Len() == 0 {
		return false, nil
	}
	if err := json.Unmarshal(result.Bytes(), &value); err != nil {
		return false, fmt.Errorf("decoding rule result: %w", err)
	}

	switch v := value.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case string:
		return v != "", nil
	default:
		return false, nil
	}
}
