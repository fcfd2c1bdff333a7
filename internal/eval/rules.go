package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

// Rule is a single deterministic check against a trace's output text.
type Rule struct {
	// Kind selects the check: contains_any, not_contains, max_length,
	// regex, json_valid.
	Kind string `json:"kind"`

	// Values are the candidate substrings for contains_any and the
	// forbidden substrings for not_contains.
	Values []string `json:"values,omitempty"`

	// Pattern is the expression for regex rules.
	Pattern string `json:"pattern,omitempty"`

	// MaxLength bounds the output length for max_length rules.
	MaxLength int `json:"max_length,omitempty"`

	// Weight scales this rule's contribution to the composite score.
	// Zero means equal weighting.
	Weight float64 `json:"weight,omitempty"`
}

// RuleBasedEvaluator runs a fixed set of deterministic rules against a
// trace's final output and scores the weighted fraction that passed.
type RuleBasedEvaluator struct {
	name          string
	rules         []Rule
	passThreshold float64
	logger        *zap.Logger

	compiled []*regexp.Regexp
}

// NewRuleBasedEvaluator validates and compiles the rules up front so
// Evaluate never fails on a malformed pattern.
func NewRuleBasedEvaluator(name string, rules []Rule, passThreshold float64, logger *zap.Logger) (*RuleBasedEvaluator, error) {
	if name == "" {
		name = "rules"
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("at least one rule is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	compiled := make([]*regexp.Regexp, len(rules))
	for i, r := range rules {
		switch r.Kind {
		case "contains_any", "not_contains":
			if len(r.Values) == 0 {
				return nil, fmt.Errorf("rule %d: %s requires values", i, r.Kind)
			}
		case "max_length":
			if r.MaxLength <= 0 {
				return nil, fmt.Errorf("rule %d: max_length requires a positive bound", i)
			}
		case "regex":
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %d: invalid pattern: %w", i, err)
			}
			compiled[i] = re
		case "json_valid":
		default:
			return nil, fmt.Errorf("rule %d: unknown rule kind %q", i, r.Kind)
		}
		if r.Weight < 0 {
			return nil, fmt.Errorf("rule %d: weight must not be negative", i)
		}
	}

	return &RuleBasedEvaluator{
		name:          name,
		rules:         rules,
		passThreshold: passThreshold,
		logger:        logger,
		compiled:      compiled,
	}, nil
}

// Name implements Evaluator.
func (e *RuleBasedEvaluator) Name() string { return e.name }

// Evaluate implements Evaluator.
func (e *RuleBasedEvaluator) Evaluate(_ context.Context, tc *TestCase, tr *trace.Trace) (*EvalResult, error) {
	output := tr.OutputText

	var totalWeight, passedWeight float64
	var failed []string
	for i, r := range e.rules {
		w := r.Weight
		if w == 0 {
			w = 1.0
		}
		totalWeight += w

		ok, reason := e.check(i, r, output)
		if ok {
			passedWeight += w
		} else {
			failed = append(failed, reason)
		}
	}

	score := 0.0
	if totalWeight > 0 {
		score = passedWeight / totalWeight
	}

	var verdict Verdict
	switch {
	case score >= e.passThreshold:
		verdict = VerdictPass
	case score > 0:
		verdict = VerdictPartial
	default:
		verdict = VerdictFail
	}

	reason := "all rules passed"
	if len(failed) > 0 {
		reason = strings.Join(failed, "; ")
	}

	e.logger.Debug("rule evaluation complete",
		zap.String("test", tc.Name),
		zap.Float64("score", score),
		zap.Int("failed_rules", len(failed)),
	)

	return &EvalResult{
		EvalID:        uuid.New().String(),
		EvaluatorName: e.name,
		Verdict:       verdict,
		Score:         score,
		Reason:        reason,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (e *RuleBasedEvaluator) check(idx int, r Rule, output string) (bool, string) {
	switch r.Kind {
	case "contains_any":
		lower := strings.ToLower(output)
		for _, v := range r.Values {
			if strings.Contains(lower, strings.ToLower(v)) {
				return true, ""
			}
		}
		return false, fmt.Sprintf("output contains none of %v", r.Values)
	case "not_contains":
		lower := strings.ToLower(output)
		for _, v := range r.Values {
			if strings.Contains(lower, strings.ToLower(v)) {
				return false, fmt.Sprintf("output contains forbidden %q", v)
			}
		}
		return true, ""
	case "max_length":
		if len(output) <= r.MaxLength {
			return true, ""
		}
		return false, fmt.Sprintf("output length %d exceeds %d", len(output), r.MaxLength)
	case "regex":
		if e.compiled[idx].MatchString(output) {
			return true, ""
		}
		return false, fmt.Sprintf("output does not match %q", r.Pattern)
	case "json_valid":
		if json.Valid([]byte(output)) {
			return true, ""
		}
		return false, "output is not valid JSON"
	}
	return false, fmt.Sprintf("unknown rule kind %q", r.Kind)
}
