package eval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// cannedModel returns a fixed completion for every prompt.
type cannedModel struct {
	response string
	err      error
	prompts  []string
}

func (m *cannedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *cannedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestJudgeEvaluator_ParsesVerdict(t *testing.T) {
	model := &cannedModel{response: `{"score": 0.85, "reason": "matches the expected outcome"}`}
	eval, err := NewJudgeEvaluator(model, 0.8, zap.NewNop())
	require.NoError(t, err)

	tc := &TestCase{Name: "greet", InputText: "say hi", ExpectedOutput: "a greeting"}
	tr := buildEvalTrace(t, "hi there", 10, nil)

	result, err := eval.Evaluate(context.Background(), tc, tr)
	require.NoError(t, err)

	assert.Equal(t, VerdictPass, result.Verdict)
	assert.Equal(t, 0.85, result.Score)
	assert.Equal(t, "matches the expected outcome", result.Reason)

	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "say hi")
	assert.Contains(t, model.prompts[0], "a greeting")
	assert.Contains(t, model.prompts[0], "hi there")
}

func TestJudgeEvaluator_FencedJSON(t *testing.T) {
	model := &cannedModel{response: "```json\n{\"score\": 0.3, \"reason\": \"missing details\"}\n```"}
	eval, err := NewJudgeEvaluator(model, 0.8, zap.NewNop())
	require.NoError(t, err)

	tr := buildEvalTrace(t, "partial answer", 10, nil)
	result, err := eval.Evaluate(context.Background(), &TestCase{Name: "x"}, tr)
	require.NoError(t, err)

	assert.Equal(t, VerdictPartial, result.Verdict)
	assert.Equal(t, 0.3, result.Score)
}

func TestJudgeEvaluator_UnparseableResponse(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"prose only", "the answer looks fine to me"},
		{"score out of range", `{"score": 1.5, "reason": "over"}`},
		{"broken json", `{"score": `},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model := &cannedModel{response: tc.response}
			eval, err := NewJudgeEvaluator(model, 0.8, zap.NewNop())
			require.NoError(t, err)

			tr := buildEvalTrace(t, "out", 10, nil)
			result, err := eval.Evaluate(context.Background(), &TestCase{Name: "x"}, tr)
			require.NoError(t, err)
			assert.Equal(t, VerdictError, result.Verdict)
			assert.Equal(t, 0.0, result.Score)
		})
	}
}

func TestJudgeEvaluator_ModelError(t *testing.T) {
	model := &cannedModel{err: fmt.Errorf("rate limited")}
	eval, err := NewJudgeEvaluator(model, 0.8, zap.NewNop())
	require.NoError(t, err)

	tr := buildEvalTrace(t, "out", 10, nil)
	_, err = eval.Evaluate(context.Background(), &TestCase{Name: "x"}, tr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge completion")
}
