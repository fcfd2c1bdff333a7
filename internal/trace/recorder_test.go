package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestBegin_RequiresAgentName(t *testing.T) {
	rec := NewRecorder(zap.NewNop())
	_, err := rec.Begin("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent name is required")
}

func TestSession_RecordAndFinalize(t *testing.T) {
	rec := NewRecorder(nil)
	sess, err := rec.Begin("support", "claude-sonnet-4-5", WithTags("smoke"))
	require.NoError(t, err)

	require.NoError(t, sess.RecordLLMCall(LLMCall{
		Model:        "claude-sonnet-4-5",
		InputTokens:  100,
		OutputTokens: 50,
		OutputText:   "checking the docs",
		LatencyMS:    120,
	}))
	require.NoError(t, sess.RecordToolCall(ToolCall{
		ToolName:   "search",
		ToolInput:  map[string]any{"query": "refund policy"},
		ToolOutput: strPtr("30 day refund window"),
		Success:    true,
		LatencyMS:  40,
	}))

	tr, err := sess.Finalize("can I get a refund?", "yes, within 30 days")
	require.NoError(t, err)

	assert.NotEmpty(t, tr.TraceID)
	assert.Equal(t, "support", tr.AgentName)
	assert.Equal(t, "claude-sonnet-4-5", tr.Model)
	assert.Equal(t, 100, tr.TotalInputTokens)
	assert.Equal(t, 50, tr.TotalOutputTokens)
	assert.Equal(t, int64(160), tr.TotalLatencyMS)
	assert.Equal(t, []string{"smoke"}, tr.Tags)
	require.Len(t, tr.Turns, 2)
	assert.Equal(t, TurnLLMCall, tr.Turns[0].Type)
	assert.Equal(t, TurnToolCall, tr.Turns[1].Type)
	assert.Equal(t, 0, tr.Turns[0].Seq)
	assert.Equal(t, 1, tr.Turns[1].Seq)

	require.NoError(t, tr.Validate())
}

func TestSession_AdoptsModelFromFirstLLMCall(t *testing.T) {
	rec := NewRecorder(nil)
	sess, err := rec.Begin("support", "")
	require.NoError(t, err)

	require.NoError(t, sess.RecordLLMCall(LLMCall{Model: "gpt-4o", InputTokens: 1}))
	tr, err := sess.Finalize("", "")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", tr.Model)
}

func TestSession_RejectsAfterFinalize(t *testing.T) {
	rec := NewRecorder(nil)
	sess, err := rec.Begin("support", "m")
	require.NoError(t, err)

	_, err = sess.Finalize("in", "out")
	require.NoError(t, err)

	assert.ErrorIs(t, sess.RecordLLMCall(LLMCall{Model: "m"}), ErrSessionFinalized)
	assert.ErrorIs(t, sess.RecordToolCall(ToolCall{ToolName: "search", Success: true}), ErrSessionFinalized)

	_, err = sess.Finalize("in", "out")
	assert.ErrorIs(t, err, ErrSessionFinalized)
}

func TestSession_FailedToolCallIsData(t *testing.T) {
	// Scenario: one LLM call plus one failed tool call still finalizes
	// into a well-formed trace with the failure captured as data.
	rec := NewRecorder(nil)
	sess, err := rec.Begin("support", "m")
	require.NoError(t, err)

	require.NoError(t, sess.RecordLLMCall(LLMCall{Model: "m", InputTokens: 100, OutputTokens: 50}))
	require.NoError(t, sess.RecordToolCall(ToolCall{
		ToolName:  "lookup",
		Success:   false,
		Error:     "connection refused",
		LatencyMS: 20,
	}))

	tr, err := sess.Finalize("q", "a")
	require.NoError(t, err)

	assert.Equal(t, 100, tr.TotalInputTokens)
	assert.Equal(t, 50, tr.TotalOutputTokens)
	assert.GreaterOrEqual(t, tr.TotalLatencyMS, int64(20))

	calls := tr.ToolCalls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Success)
	assert.Equal(t, "connection refused", calls[0].Error)
	require.NoError(t, tr.Validate())
}

func TestSession_ClosePreservesPartialTrace(t *testing.T) {
	rec := NewRecorder(nil)
	sess, err := rec.Begin("support", "m")
	require.NoError(t, err)

	require.NoError(t, sess.RecordLLMCall(LLMCall{Model: "m", InputTokens: 10}))

	// Simulates the invocation failing before an explicit finalize.
	sess.Close()

	tr := sess.Trace()
	require.NotNil(t, tr)
	assert.Len(t, tr.Turns, 1)
	assert.Equal(t, 10, tr.TotalInputTokens)

	// Close after finalize is a no-op.
	sess.Close()
	assert.Same(t, tr, sess.Trace())
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	rec := NewRecorder(nil)
	done := make(chan *Trace, 8)

	for i := 0; i < 8; i++ {
		go func() {
			sess, err := rec.Begin("parallel", "m")
			if err != nil {
				done <- nil
				return
			}
			_ = sess.RecordLLMCall(LLMCall{Model: "m", InputTokens: 1, OutputTokens: 1})
			tr, _ := sess.Finalize("in", "out")
			done <- tr
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < 8; i++ {
		tr := <-done
		require.NotNil(t, tr)
		assert.Len(t, tr.Turns, 1)
		assert.False(t, seen[tr.TraceID], "trace IDs must be unique")
		seen[tr.TraceID] = true
	}
}

func TestTrace_Validate(t *testing.T) {
	valid := &Trace{
		TraceID: "t1",
		Turns: []Turn{
			{TurnID: "a", Type: TurnLLMCall, LLMCall: &LLMCall{Model: "m", InputTokens: 5, OutputTokens: 3, LatencyMS: 10}},
			{TurnID: "b", Type: TurnToolCall, ToolCall: &ToolCall{ToolName: "search", Success: true, LatencyMS: 7}},
		},
		TotalInputTokens:  5,
		TotalOutputTokens: 3,
		TotalLatencyMS:    17,
	}
	require.NoError(t, valid.Validate())

	badTotals := *valid
	badTotals.TotalInputTokens = 99
	err := badTotals.Validate()
	var malformed *MalformedTraceError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "t1", malformed.TraceID)
	assert.Contains(t, malformed.Reason, "token totals")

	dupTurns := *valid
	dupTurns.Turns = []Turn{valid.Turns[0], valid.Turns[0]}
	dupTurns.TotalInputTokens = 10
	dupTurns.TotalOutputTokens = 6
	dupTurns.TotalLatencyMS = 20
	require.ErrorAs(t, dupTurns.Validate(), &malformed)
	assert.Contains(t, malformed.Reason, "duplicate turn ID")

	wrongPayload := &Trace{
		TraceID: "t2",
		Turns:   []Turn{{TurnID: "a", Type: TurnLLMCall, ToolCall: &ToolCall{ToolName: "x", Success: true}}},
	}
	require.ErrorAs(t, wrongPayload.Validate(), &malformed)
}
