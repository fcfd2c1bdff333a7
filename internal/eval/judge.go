package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

const judgePromptTemplate = `You are grading an AI agent's answer.

Task given to the agent:
%s

Expected outcome:
%s

Agent's answer:
%s

Respond with a single JSON object and nothing else:
{"score": <float 0.0-1.0>, "reason": "<one sentence>"}`

type judgeResponse struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// JudgeEvaluator asks a language model to grade a trace's output against
// the test case's expected outcome.
type JudgeEvaluator struct {
	name          string
	model         llms.Model
	passThreshold float64
	logger        *zap.Logger
}

// NewJudgeEvaluator creates the evaluator.
func NewJudgeEvaluator(model llms.Model, passThreshold float64, logger *zap.Logger) (*JudgeEvaluator, error) {
	if model == nil {
		return nil, fmt.Errorf("judge model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JudgeEvaluator{
		name:          "llm-judge",
		model:         model,
		passThreshold: passThreshold,
		logger:        logger,
	}, nil
}

// Name implements Evaluator.
func (e *JudgeEvaluator) Name() string { return e.name }

// Evaluate implements Evaluator.
func (e *JudgeEvaluator) Evaluate(ctx context.Context, tc *TestCase, tr *trace.Trace) (*EvalResult, error) {
	prompt := fmt.Sprintf(judgePromptTemplate, tc.InputText, tc.ExpectedOutput, tr.OutputText)

	completion, err := llms.GenerateFromSinglePrompt(ctx, e.model, prompt)
	if err != nil {
		return nil, fmt.Errorf("judge completion: %w", err)
	}

	parsed, err := parseJudgeResponse(completion)
	if err != nil {
		e.logger.Warn("judge returned an unparseable verdict",
			zap.String("test", tc.Name),
			zap.Error(err),
		)
		return &EvalResult{
			EvalID:        uuid.New().String(),
			EvaluatorName: e.name,
			Verdict:       VerdictError,
			Score:         0,
			Reason:        fmt.Sprintf("unparseable judge response: %v", err),
			CreatedAt:     time.Now().UTC(),
		}, nil
	}

	score := clamp01(parsed.Score)

	var verdict Verdict
	switch {
	case score >= e.passThreshold:
		verdict = VerdictPass
	case score > 0:
		verdict = VerdictPartial
	default:
		verdict = VerdictFail
	}

	e.logger.Debug("judge verdict",
		zap.String("test", tc.Name),
		zap.Float64("score", score),
	)

	return &EvalResult{
		EvalID:        uuid.New().String(),
		EvaluatorName: e.name,
		Verdict:       verdict,
		Score:         score,
		Reason:        parsed.Reason,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// parseJudgeResponse tolerates fenced code blocks and leading prose
// around the JSON object.
func parseJudgeResponse(raw string) (*judgeResponse, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed judgeResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("decode judge response: %w", err)
	}
	if parsed.Score < 0 || parsed.Score > 1 {
		return nil, fmt.Errorf("score %v out of range", parsed.Score)
	}
	return &parsed, nil
}
