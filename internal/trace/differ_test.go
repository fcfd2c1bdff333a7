package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTrace assembles a trace through a real recording session.
func buildTrace(t *testing.T, output string, llmCalls []LLMCall, toolCalls []ToolCall) *Trace {
	t.Helper()

	sess, err := NewRecorder(nil).Begin("test-agent", "test-model")
	require.NoError(t, err)
	for _, c := range llmCalls {
		require.NoError(t, sess.RecordLLMCall(c))
	}
	for _, c := range toolCalls {
		require.NoError(t, sess.RecordToolCall(c))
	}
	tr, err := sess.Finalize("input", output)
	require.NoError(t, err)
	return tr
}

func TestDiff_TraceAgainstItself(t *testing.T) {
	tr := buildTrace(t, "final answer",
		[]LLMCall{{Model: "m", InputTokens: 100, OutputTokens: 40, LatencyMS: 200}},
		[]ToolCall{{ToolName: "search", ToolInput: map[string]any{"q": "x"}, ToolOutput: strPtr("hit"), Success: true, LatencyMS: 30}},
	)

	report := NewDiffer(nil, nil).Diff(tr, tr)

	assert.True(t, report.OutputMatches)
	assert.Equal(t, 0, report.TokenDelta)
	assert.Equal(t, int64(0), report.LatencyDeltaMS)
	assert.True(t, report.ToolSequenceMatch)
	assert.Equal(t, 1.0, report.OverallSimilarity)
}

func TestDiff_DeltasAreSigned(t *testing.T) {
	a := buildTrace(t, "out",
		[]LLMCall{{Model: "m", InputTokens: 100, OutputTokens: 50, LatencyMS: 200}}, nil)
	b := buildTrace(t, "out",
		[]LLMCall{{Model: "m", InputTokens: 130, OutputTokens: 60, LatencyMS: 150}}, nil)

	d := NewDiffer(nil, nil)

	forward := d.Diff(a, b)
	assert.Equal(t, 40, forward.TokenDelta)
	assert.Equal(t, int64(-50), forward.LatencyDeltaMS)

	backward := d.Diff(b, a)
	assert.Equal(t, -40, backward.TokenDelta)
	assert.Equal(t, int64(50), backward.LatencyDeltaMS)
	assert.Equal(t, forward.OverallSimilarity, backward.OverallSimilarity)
}

func TestDiff_OutputNormalization(t *testing.T) {
	a := buildTrace(t, "  answer\n", nil, nil)
	b := buildTrace(t, "answer", nil, nil)

	report := NewDiffer(nil, nil).Diff(a, b)
	assert.True(t, report.OutputMatches)

	caseDiffers := buildTrace(t, "Answer", nil, nil)
	report = NewDiffer(nil, nil).Diff(b, caseDiffers)
	assert.False(t, report.OutputMatches, "default normalization is case-sensitive")
}

func TestDiff_ToolSequence(t *testing.T) {
	a := buildTrace(t, "out", nil, []ToolCall{
		{ToolName: "search", Success: true},
		{ToolName: "summarize", Success: true},
	})
	sameSeq := buildTrace(t, "out", nil, []ToolCall{
		{ToolName: "search", Success: true},
		{ToolName: "summarize", Success: true},
	})
	reordered := buildTrace(t, "out", nil, []ToolCall{
		{ToolName: "summarize", Success: true},
		{ToolName: "search", Success: true},
	})
	extra := buildTrace(t, "out", nil, []ToolCall{
		{ToolName: "search", Success: true},
		{ToolName: "summarize", Success: true},
		{ToolName: "verify", Success: true},
	})

	d := NewDiffer(nil, nil)
	assert.True(t, d.Diff(a, sameSeq).ToolSequenceMatch)
	assert.False(t, d.Diff(a, reordered).ToolSequenceMatch)
	assert.False(t, d.Diff(a, extra).ToolSequenceMatch)
}

func TestDiff_NoToolCallsOnEitherSide(t *testing.T) {
	a := buildTrace(t, "out", []LLMCall{{Model: "m", InputTokens: 1}}, nil)
	b := buildTrace(t, "out", []LLMCall{{Model: "m", InputTokens: 1}}, nil)

	report := NewDiffer(nil, nil).Diff(a, b)
	assert.True(t, report.ToolSequenceMatch, "no tool calls on both sides matches vacuously")
	assert.Empty(t, report.ToolCallDiffs)
}

func TestDiff_PerPositionToolDiffs(t *testing.T) {
	a := buildTrace(t, "out", nil, []ToolCall{
		{ToolName: "search", ToolInput: map[string]any{"q": "x"}, ToolOutput: strPtr("r1"), Success: true},
		{ToolName: "fetch", Success: true},
	})
	b := buildTrace(t, "out", nil, []ToolCall{
		{ToolName: "search", ToolInput: map[string]any{"q": "x"}, ToolOutput: strPtr("r1"), Success: true},
	})

	report := NewDiffer(nil, nil).Diff(a, b)
	require.Len(t, report.ToolCallDiffs, 2)

	assert.Equal(t, "tool_call_0", report.ToolCallDiffs[0].Dimension)
	assert.Equal(t, 1.0, report.ToolCallDiffs[0].Similarity)

	assert.Equal(t, "fetch", report.ToolCallDiffs[1].Expected)
	assert.Empty(t, report.ToolCallDiffs[1].Actual)
	assert.Equal(t, 0.0, report.ToolCallDiffs[1].Similarity)
}

func TestDiff_CustomWeights(t *testing.T) {
	a := buildTrace(t, "identical output", nil, nil)
	b := buildTrace(t, "completely different text here", nil, nil)

	outputOnly := NewDiffer(&DifferConfig{OutputWeight: 1.0}, nil)
	report := outputOnly.Diff(a, b)
	assert.Less(t, report.OverallSimilarity, 1.0)
	assert.False(t, report.OutputMatches)
}

func TestLatencyCloseness(t *testing.T) {
	assert.Equal(t, 1.0, latencyCloseness(0, 0))
	assert.Equal(t, 1.0, latencyCloseness(50, 50))
	assert.InDelta(t, 0.5, latencyCloseness(50, 100), 1e-9)
	assert.InDelta(t, 0.5, latencyCloseness(100, 50), 1e-9)
}
