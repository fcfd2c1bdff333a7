package eval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

// ciZScore is the normal critical value for a 95% confidence interval.
const ciZScore = 1.96

// StatisticalSummary aggregates the scores of one evaluator across
// multiple traces of the same test case.
type StatisticalSummary struct {
	EvaluatorName string    `json:"evaluator_name"`
	SampleCount   int       `json:"sample_count"`
	Scores        []float64 `json:"scores"`
	Mean          float64   `json:"mean"`
	StdDev        float64   `json:"std_dev"`
	Median        float64   `json:"median"`
	P5            float64   `json:"p5"`
	P95           float64   `json:"p95"`
	CILower       float64   `json:"ci_lower"`
	CIUpper       float64   `json:"ci_upper"`
}

// StatisticalEvaluator runs an inner evaluator over a set of traces and
// summarizes the score distribution.
type StatisticalEvaluator struct {
	inner         Evaluator
	passThreshold float64
	logger        *zap.Logger
}

// NewStatisticalEvaluator wraps an inner evaluator.
func NewStatisticalEvaluator(inner Evaluator, passThreshold float64, logger *zap.Logger) (*StatisticalEvaluator, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner evaluator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticalEvaluator{inner: inner, passThreshold: passThreshold, logger: logger}, nil
}

// Name implements Evaluator.
func (e *StatisticalEvaluator) Name() string {
	return e.inner.Name() + "-statistical"
}

// EvaluateMultiple scores each trace with the inner evaluator and
// summarizes the distribution. Scores are reported in input order. An
// empty trace set is an error.
func (e *StatisticalEvaluator) EvaluateMultiple(ctx context.Context, tc *TestCase, traces []*trace.Trace) (*StatisticalSummary, error) {
	if len(traces) == 0 {
		return nil, ErrEmptyTraceSet
	}

	scores := make([]float64, 0, len(traces))
	for i, tr := range traces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := e.inner.Evaluate(ctx, tc, tr)
		if err != nil {
			return nil, fmt.Errorf("evaluate trace %d: %w", i, err)
		}
		scores = append(scores, res.Score)
	}

	summary := Summarize(e.inner.Name(), scores)

	e.logger.Debug("statistical summary computed",
		zap.String("evaluator", e.inner.Name()),
		zap.Int("samples", summary.SampleCount),
		zap.Float64("mean", summary.Mean),
		zap.Float64("std_dev", summary.StdDev),
	)

	return summary, nil
}

// Evaluate implements Evaluator for the single-trace case; the summary
// collapses to that trace's score.
func (e *StatisticalEvaluator) Evaluate(ctx context.Context, tc *TestCase, tr *trace.Trace) (*EvalResult, error) {
	summary, err := e.EvaluateMultiple(ctx, tc, []*trace.Trace{tr})
	if err != nil {
		return nil, err
	}
	return e.SummaryResult(summary), nil
}

// SummaryResult converts a summary into an EvalResult keyed on the mean.
func (e *StatisticalEvaluator) SummaryResult(summary *StatisticalSummary) *EvalResult {
	var verdict Verdict
	switch {
	case summary.Mean >= e.passThreshold:
		verdict = VerdictPass
	case summary.Mean >= 0.5:
		verdict = VerdictPartial
	default:
		verdict = VerdictFail
	}

	return &EvalResult{
		EvalID:        uuid.New().String(),
		EvaluatorName: e.Name(),
		Verdict:       verdict,
		Score:         summary.Mean,
		Reason: fmt.Sprintf("mean %.3f over %d samples (stddev %.3f, median %.3f)",
			summary.Mean, summary.SampleCount, summary.StdDev, summary.Median),
		Metadata:  map[string]any{"summary": summary},
		CreatedAt: time.Now().UTC(),
	}
}

// Summarize computes the distribution summary of a non-empty score
// slice. The Scores field preserves input order.
func Summarize(evaluatorName string, scores []float64) *StatisticalSummary {
	n := len(scores)

	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(n)

	stdDev := 0.0
	if n > 1 {
		var sq float64
		for _, s := range scores {
			d := s - mean
			sq += d * d
		}
		stdDev = math.Sqrt(sq / float64(n-1))
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	se := stdDev / math.Sqrt(float64(n))
	return &StatisticalSummary{
		EvaluatorName: evaluatorName,
		SampleCount:   n,
		Scores:        append([]float64(nil), scores...),
		Mean:          mean,
		StdDev:        stdDev,
		Median:        percentile(sorted, 50),
		P5:            percentile(sorted, 5),
		P95:           percentile(sorted, 95),
		CILower:       mean - ciZScore*se,
		CIUpper:       mean + ciZScore*se,
	}
}

// percentile pulls the p-th percentile from an ascending slice using
// linear interpolation between adjacent ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
