package eval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

// Verdict is the outcome category of one evaluation.
type Verdict string

const (
	// VerdictPass indicates the trace met the evaluator's bar.
	VerdictPass Verdict = "pass"

	// VerdictPartial indicates partial credit.
	VerdictPartial Verdict = "partial"

	// VerdictFail indicates the trace did not meet the bar.
	VerdictFail Verdict = "fail"

	// VerdictError indicates the evaluation itself failed.
	VerdictError Verdict = "error"
)

// TestCase is a single scenario an agent is exercised against.
type TestCase struct {
	// TestID uniquely identifies this test case.
	TestID string `json:"test_id"`

	// Name is the human-readable test name, unique within a suite.
	Name string `json:"name"`

	// Description explains what this test validates.
	Description string `json:"description,omitempty"`

	// InputText is the prompt sent to the agent.
	InputText string `json:"input_text"`

	// ExpectedOutput is an optional reference output for comparison.
	ExpectedOutput string `json:"expected_output,omitempty"`

	// Tags are labels for filtering and grouping.
	Tags []string `json:"tags,omitempty"`

	// Timeout bounds one invocation of this test. Zero means no limit.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Evaluators names the evaluators to run on this test.
	Evaluators []string `json:"evaluators,omitempty"`

	// Metadata carries extra test configuration.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EvalResult is the outcome of one evaluator run on one trace.
type EvalResult struct {
	// EvalID uniquely identifies this evaluation.
	EvalID string `json:"eval_id"`

	// EvaluatorName names the evaluator that produced the result.
	EvaluatorName string `json:"evaluator_name"`

	// Verdict is the outcome category.
	Verdict Verdict `json:"verdict"`

	// Score is the numeric score in [0, 1].
	Score float64 `json:"score"`

	// Reason is a human-readable explanation of the verdict.
	Reason string `json:"reason,omitempty"`

	// Metadata carries evaluator-specific detail.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the evaluation ran.
	CreatedAt time.Time `json:"created_at"`
}

// Evaluator scores a trace for a test case. Implementations must be safe
// for concurrent use and must propagate failures of any external work
// they perform (model calls, embeddings) rather than swallowing them.
type Evaluator interface {
	// Name identifies the evaluator in results and logs.
	Name() string

	// Evaluate scores the trace for the test case.
	Evaluate(ctx context.Context, tc *TestCase, tr *trace.Trace) (*EvalResult, error)
}

// ErrEmptyTraceSet is returned when statistics are requested over zero
// traces. A statistic over zero samples is undefined and never defaults
// to a sentinel score.
var ErrEmptyTraceSet = errors.New("cannot evaluate an empty trace set")

// InvalidWeightsError reports comparison weights that do not sum to 1.0.
type InvalidWeightsError struct {
	// Sum is the actual weight sum.
	Sum float64
}

func (e *InvalidWeightsError) Error() string {
	return fmt.Sprintf("comparison weights must sum to 1.0, got %.4f", e.Sum)
}
