package regression

import (
	"time"

	"github.com/fyrsmithlabs/agentprobe/internal/eval"
	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

// Status is the terminal state of one test execution.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// TestResult is the outcome of running a single test case once.
type TestResult struct {
	// ResultID uniquely identifies this result.
	ResultID string `json:"result_id"`

	// TestName is the name of the test case that produced this result.
	TestName string `json:"test_name"`

	// Status is the terminal state of the run.
	Status Status `json:"status"`

	// Score is the aggregate evaluation score in [0, 1].
	Score float64 `json:"score"`

	// DurationMS is the wall-clock run duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// Trace is the execution trace, nil when the run errored before
	// producing one.
	Trace *trace.Trace `json:"trace,omitempty"`

	// EvalResults holds the individual evaluator outcomes.
	EvalResults []*eval.EvalResult `json:"eval_results,omitempty"`

	// ErrorMessage describes the failure for error-status results.
	ErrorMessage string `json:"error_message,omitempty"`

	// CreatedAt is when the result was produced.
	CreatedAt time.Time `json:"created_at"`
}

// TestComparison is the per-test delta between a baseline run and the
// current run.
type TestComparison struct {
	TestName      string  `json:"test_name"`
	BaselineScore float64 `json:"baseline_score"`
	CurrentScore  float64 `json:"current_score"`

	// Delta is current minus baseline. Zero for tests present in only
	// one of the runs.
	Delta float64 `json:"delta"`

	IsRegression  bool `json:"is_regression"`
	IsImprovement bool `json:"is_improvement"`

	// IsNew marks a test present only in the current run.
	IsNew bool `json:"is_new"`

	// IsRemoved marks a test present only in the baseline run.
	IsRemoved bool `json:"is_removed"`
}

// RegressionReport summarizes the comparison of a full run against a
// baseline.
type RegressionReport struct {
	// BaselineName identifies the baseline compared against.
	BaselineName string `json:"baseline_name"`

	// Comparisons holds one entry per test name in either run, ordered
	// by test name.
	Comparisons []TestComparison `json:"comparisons"`

	TotalTests   int `json:"total_tests"`
	Regressions  int `json:"regressions"`
	Improvements int `json:"improvements"`
	Unchanged    int `json:"unchanged"`
	New          int `json:"new"`
	Removed      int `json:"removed"`

	// Threshold is the score delta at which a change counts as a
	// regression or an improvement.
	Threshold float64 `json:"threshold"`

	// CreatedAt is when the report was generated.
	CreatedAt time.Time `json:"created_at"`
}

// HasRegressions reports whether any test regressed.
func (r *RegressionReport) HasRegressions() bool {
	return r.Regressions > 0
}
