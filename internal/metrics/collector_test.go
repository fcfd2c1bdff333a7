package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/regression"
	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

func collectorTrace(t *testing.T) *trace.Trace {
	t.Helper()

	rec := trace.NewRecorder(zap.NewNop())
	sess, err := rec.Begin("metrics-agent", "test-model")
	require.NoError(t, err)
	require.NoError(t, sess.RecordLLMCall(trace.LLMCall{
		InputTokens:  100,
		OutputTokens: 40,
		OutputText:   "answer",
		LatencyMS:    30,
	}))
	out := "ok"
	require.NoError(t, sess.RecordToolCall(trace.ToolCall{
		ToolName:   "search",
		ToolOutput: &out,
		Success:    true,
		LatencyMS:  20,
	}))
	tr, err := sess.Finalize("prompt", "answer")
	require.NoError(t, err)
	return tr
}

func byName(samples []Sample) map[string]Sample {
	indexed := make(map[string]Sample, len(samples))
	for _, s := range samples {
		indexed[s.Name] = s
	}
	return indexed
}

func TestCollectFromTrace(t *testing.T) {
	assert.Nil(t, CollectFromTrace(nil))

	tr := collectorTrace(t)
	samples := CollectFromTrace(tr)
	require.Len(t, samples, 6)

	indexed := byName(samples)
	assert.Equal(t, 100.0, indexed[MetricInputTokens].Value)
	assert.Equal(t, 40.0, indexed[MetricOutputTokens].Value)
	assert.Equal(t, 140.0, indexed[MetricTotalTokens].Value)
	assert.Equal(t, 50.0, indexed[MetricLatencyMS].Value)
	assert.Equal(t, 1.0, indexed[MetricToolCalls].Value)
	assert.Equal(t, 1.0, indexed[MetricLLMCalls].Value)
	assert.Equal(t, "metrics-agent", indexed[MetricTotalTokens].Labels["agent"])
	assert.Equal(t, "test-model", indexed[MetricLatencyMS].Labels["model"])
}

func TestCollectFromResults(t *testing.T) {
	tr := collectorTrace(t)
	results := []*regression.TestResult{
		nil,
		{
			ResultID:   "r1",
			TestName:   "checkout",
			Status:     regression.StatusPassed,
			Score:      0.91,
			DurationMS: 1200,
			Trace:      tr,
			CreatedAt:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ResultID: "r2",
			TestName: "search",
			Status:   regression.StatusError,
			Score:    0,
		},
	}

	samples := CollectFromResults(results)
	// Two score+duration pairs plus six trace samples from r1.
	require.Len(t, samples, 10)

	var scores []Sample
	for _, s := range samples {
		if s.Name == MetricScore {
			scores = append(scores, s)
		}
	}
	require.Len(t, scores, 2)
	assert.Equal(t, 0.91, scores[0].Value)
	assert.Equal(t, "checkout", scores[0].Labels["test"])
	assert.Equal(t, "passed", scores[0].Labels["status"])
	assert.Equal(t, "error", scores[1].Labels["status"])
}
