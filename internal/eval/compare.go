package eval

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/similarity"
	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

const weightSumTolerance = 1e-9

// Weights configures the relative importance of each comparison
// dimension. The four weights must sum to 1.0.
type Weights struct {
	ToolSequence     float64 `json:"tool_sequence"`
	ToolParameters   float64 `json:"tool_parameters"`
	OutputSimilarity float64 `json:"output_similarity"`
	CostDeviation    float64 `json:"cost_deviation"`
}

// DefaultWeights returns the standard dimension weighting.
func DefaultWeights() Weights {
	return Weights{
		ToolSequence:     0.3,
		ToolParameters:   0.2,
		OutputSimilarity: 0.35,
		CostDeviation:    0.15,
	}
}

// Validate checks that the weights sum to 1.0 and are non-negative.
func (w Weights) Validate() error {
	sum := w.ToolSequence + w.ToolParameters + w.OutputSimilarity + w.CostDeviation
	if math.Abs(sum-1.0) > weightSumTolerance {
		return &InvalidWeightsError{Sum: sum}
	}
	if w.ToolSequence < 0 || w.ToolParameters < 0 || w.OutputSimilarity < 0 || w.CostDeviation < 0 {
		return &InvalidWeightsError{Sum: sum}
	}
	return nil
}

// DimensionScores holds the per-dimension sub-scores, each in [0, 1].
type DimensionScores struct {
	ToolSequence     float64 `json:"tool_sequence"`
	ToolParameters   float64 `json:"tool_parameters"`
	OutputSimilarity float64 `json:"output_similarity"`
	CostDeviation    float64 `json:"cost_deviation"`
}

// ComparisonResult is the weighted multi-dimension similarity of a
// candidate trace against a fixed reference trace.
type ComparisonResult struct {
	// Score is the weighted composite in [0, 1].
	Score float64 `json:"score"`

	// Verdict derives from Score: pass at or above the threshold,
	// partial above zero, fail at exactly zero.
	Verdict Verdict `json:"verdict"`

	// Dimensions holds the per-dimension sub-scores.
	Dimensions DimensionScores `json:"dimensions"`

	// Weights are the weights the composite was computed with.
	Weights Weights `json:"weights"`
}

// ComparisonEvaluator scores a candidate trace against one fixed
// reference trace along four independent dimensions.
type ComparisonEvaluator struct {
	name          string
	reference     *trace.Trace
	weights       Weights
	passThreshold float64
	logger        *zap.Logger
}

// NewComparisonEvaluator creates the evaluator. Weights must sum to 1.0;
// a zero Weights value selects DefaultWeights.
func NewComparisonEvaluator(reference *trace.Trace, weights Weights, passThreshold float64, logger *zap.Logger) (*ComparisonEvaluator, error) {
	if reference == nil {
		return nil, fmt.Errorf("reference trace is required")
	}
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComparisonEvaluator{
		name:          "trace-compare",
		reference:     reference,
		weights:       weights,
		passThreshold: passThreshold,
		logger:        logger,
	}, nil
}

// Name implements Evaluator.
func (e *ComparisonEvaluator) Name() string { return e.name }

// Compare scores the candidate against the reference.
func (e *ComparisonEvaluator) Compare(candidate *trace.Trace) *ComparisonResult {
	dims := DimensionScores{
		ToolSequence:     toolSequenceScore(e.reference, candidate),
		ToolParameters:   toolParameterScore(e.reference, candidate),
		OutputSimilarity: similarity.KeywordOverlap(e.reference.OutputText, candidate.OutputText),
		CostDeviation:    costDeviationScore(e.reference, candidate),
	}

	score := e.weights.ToolSequence*dims.ToolSequence +
		e.weights.ToolParameters*dims.ToolParameters +
		e.weights.OutputSimilarity*dims.OutputSimilarity +
		e.weights.CostDeviation*dims.CostDeviation
	score = math.Round(clamp01(score)*10000) / 10000

	var verdict Verdict
	switch {
	case score >= e.passThreshold:
		verdict = VerdictPass
	case score > 0:
		verdict = VerdictPartial
	default:
		verdict = VerdictFail
	}

	return &ComparisonResult{
		Score:      score,
		Verdict:    verdict,
		Dimensions: dims,
		Weights:    e.weights,
	}
}

// Evaluate implements Evaluator by wrapping Compare into an EvalResult.
func (e *ComparisonEvaluator) Evaluate(_ context.Context, tc *TestCase, tr *trace.Trace) (*EvalResult, error) {
	result := e.Compare(tr)

	e.logger.Debug("trace comparison scored",
		zap.String("test", tc.Name),
		zap.Float64("score", result.Score),
		zap.String("verdict", string(result.Verdict)),
	)

	return &EvalResult{
		EvalID:        uuid.New().String(),
		EvaluatorName: e.name,
		Verdict:       result.Verdict,
		Score:         result.Score,
		Reason: fmt.Sprintf("trace comparison: %.3f (seq=%.2f, params=%.2f, output=%.2f, cost=%.2f)",
			result.Score, result.Dimensions.ToolSequence, result.Dimensions.ToolParameters,
			result.Dimensions.OutputSimilarity, result.Dimensions.CostDeviation),
		Metadata: map[string]any{
			"dimensions": result.Dimensions,
			"weights":    result.Weights,
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// toolSequenceScore is 1.0 on an exact ordered match, otherwise the LCS
// length over the reference sequence length.
func toolSequenceScore(reference, candidate *trace.Trace) float64 {
	ref := reference.ToolNames()
	cand := candidate.ToolNames()

	if len(ref) == len(cand) {
		exact := true
		for i := range ref {
			if ref[i] != cand[i] {
				exact = false
				break
			}
		}
		if exact {
			return 1.0
		}
	}
	return clamp01(similarity.LCSRatio(ref, cand))
}

// toolParameterScore is the fraction of positions where both traces have
// a call with the same tool name and equal input mappings.
func toolParameterScore(reference, candidate *trace.Trace) float64 {
	ref := reference.ToolCalls()
	cand := candidate.ToolCalls()

	maxLen := len(ref)
	if len(cand) > maxLen {
		maxLen = len(cand)
	}
	if maxLen == 0 {
		return 1.0
	}

	matches := 0
	for i := 0; i < maxLen && i < len(ref) && i < len(cand); i++ {
		if ref[i].ToolName != cand[i].ToolName {
			continue
		}
		if len(ref[i].ToolInput) == 0 && len(cand[i].ToolInput) == 0 {
			matches++
		} else if reflect.DeepEqual(ref[i].ToolInput, cand[i].ToolInput) {
			matches++
		}
	}
	return float64(matches) / float64(maxLen)
}

// costDeviationScore is 1.0 minus the normalized absolute token cost
// difference, floored at 0.
func costDeviationScore(reference, candidate *trace.Trace) float64 {
	ref := reference.TotalTokens()
	cand := candidate.TotalTokens()

	if ref == 0 && cand == 0 {
		return 1.0
	}
	maxTokens := ref
	if cand > maxTokens {
		maxTokens = cand
	}
	diff := float64(ref - cand)
	if diff < 0 {
		diff = -diff
	}
	return clamp01(1.0 - diff/float64(maxTokens))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
