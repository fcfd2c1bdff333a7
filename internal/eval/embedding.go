package eval

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/embeddings"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

// EmbeddingEvaluator scores a trace's output by cosine similarity of its
// embedding against the test case's expected output.
type EmbeddingEvaluator struct {
	name          string
	embedder      embeddings.Embedder
	passThreshold float64
	logger        *zap.Logger
}

// NewEmbeddingEvaluator creates the evaluator.
func NewEmbeddingEvaluator(embedder embeddings.Embedder, passThreshold float64, logger *zap.Logger) (*EmbeddingEvaluator, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingEvaluator{
		name:          "embedding-similarity",
		embedder:      embedder,
		passThreshold: passThreshold,
		logger:        logger,
	}, nil
}

// Name implements Evaluator.
func (e *EmbeddingEvaluator) Name() string { return e.name }

// Evaluate implements Evaluator. The test case must carry an expected
// output to embed against.
func (e *EmbeddingEvaluator) Evaluate(ctx context.Context, tc *TestCase, tr *trace.Trace) (*EvalResult, error) {
	if tc.ExpectedOutput == "" {
		return nil, fmt.Errorf("test case %q has no expected output", tc.Name)
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, []string{tc.ExpectedOutput, tr.OutputText})
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != 2 {
		return nil, fmt.Errorf("expected 2 embeddings, got %d", len(vectors))
	}

	score := clamp01(cosineSimilarity(vectors[0], vectors[1]))

	var verdict Verdict
	switch {
	case score >= e.passThreshold:
		verdict = VerdictPass
	case score > 0:
		verdict = VerdictPartial
	default:
		verdict = VerdictFail
	}

	e.logger.Debug("embedding similarity scored",
		zap.String("test", tc.Name),
		zap.Float64("score", score),
	)

	return &EvalResult{
		EvalID:        uuid.New().String(),
		EvaluatorName: e.name,
		Verdict:       verdict,
		Score:         score,
		Reason:        fmt.Sprintf("cosine similarity %.3f against expected output", score),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// cosineSimilarity is zero when either vector is empty or zero-length.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
