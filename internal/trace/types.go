package trace

import (
	"time"
)

// TurnType identifies the kind of event a turn represents.
type TurnType string

const (
	// TurnLLMCall is a call to a language model.
	TurnLLMCall TurnType = "llm_call"

	// TurnToolCall is a tool invocation.
	TurnToolCall TurnType = "tool_call"
)

// LLMCall is a single call to a language model within a trace.
type LLMCall struct {
	// CallID uniquely identifies this call.
	CallID string `json:"call_id"`

	// Model is the model identifier string.
	Model string `json:"model"`

	// InputTokens is the number of prompt tokens consumed.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the number of completion tokens produced.
	OutputTokens int `json:"output_tokens"`

	// InputText is the prompt sent to the model.
	InputText string `json:"input_text"`

	// OutputText is the response text from the model.
	OutputText string `json:"output_text"`

	// LatencyMS is the round-trip latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Metadata carries provider-specific extras.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Timestamp is when the call was made.
	Timestamp time.Time `json:"timestamp"`
}

// ToolCall is a single tool invocation within a trace.
//
// A failed tool call (Success false, Error set) is valid data, not an
// error of the recording machinery.
type ToolCall struct {
	// CallID uniquely identifies this call.
	CallID string `json:"call_id"`

	// ToolName is the name of the tool invoked.
	ToolName string `json:"tool_name"`

	// ToolInput holds the arguments passed to the tool.
	ToolInput map[string]any `json:"tool_input,omitempty"`

	// ToolOutput is the output returned by the tool, nil if none.
	ToolOutput *string `json:"tool_output"`

	// Success reports whether the call succeeded.
	Success bool `json:"success"`

	// Error holds the failure message when Success is false.
	Error string `json:"error,omitempty"`

	// LatencyMS is the round-trip latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// Timestamp is when the call was made.
	Timestamp time.Time `json:"timestamp"`
}

// Turn is a single event on a trace timeline. Exactly one of LLMCall or
// ToolCall is set, matching Type.
type Turn struct {
	// TurnID uniquely identifies this turn within its trace.
	TurnID string `json:"turn_id"`

	// Seq is the monotonically increasing sequence position assigned at
	// record time. Insertion order equals chronological order.
	Seq int `json:"seq"`

	// Type is the kind of event this turn represents.
	Type TurnType `json:"turn_type"`

	// Content is a free-text summary of the turn.
	Content string `json:"content"`

	// LLMCall is the payload for llm_call turns.
	LLMCall *LLMCall `json:"llm_call,omitempty"`

	// ToolCall is the payload for tool_call turns.
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	// Timestamp is when the turn occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Trace is the complete record of one agent invocation.
//
// Traces are created only by Session.Finalize and are immutable
// afterwards. The Total* fields equal the sums of the corresponding
// per-turn quantities.
type Trace struct {
	// TraceID uniquely identifies this trace, assigned at finalize time.
	TraceID string `json:"trace_id"`

	// AgentName is the agent that produced this trace.
	AgentName string `json:"agent_name"`

	// Model is the primary model used during the run.
	Model string `json:"model,omitempty"`

	// InputText is the input given to the agent.
	InputText string `json:"input_text"`

	// OutputText is the final output produced by the agent.
	OutputText string `json:"output_text"`

	// Turns is the ordered execution timeline.
	Turns []Turn `json:"turns"`

	// TotalInputTokens is the sum of input tokens across LLM turns.
	TotalInputTokens int `json:"total_input_tokens"`

	// TotalOutputTokens is the sum of output tokens across LLM turns.
	TotalOutputTokens int `json:"total_output_tokens"`

	// TotalLatencyMS is the sum of per-turn latencies.
	TotalLatencyMS int64 `json:"total_latency_ms"`

	// Tags are labels for filtering and grouping.
	Tags []string `json:"tags,omitempty"`

	// Metadata carries additional run metadata.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the trace was finalized.
	CreatedAt time.Time `json:"created_at"`
}

// TotalTokens returns the combined input and output token count.
func (t *Trace) TotalTokens() int {
	return t.TotalInputTokens + t.TotalOutputTokens
}

// LLMCalls returns the LLM call payloads in timeline order.
func (t *Trace) LLMCalls() []*LLMCall {
	var calls []*LLMCall
	for i := range t.Turns {
		if t.Turns[i].Type == TurnLLMCall && t.Turns[i].LLMCall != nil {
			calls = append(calls, t.Turns[i].LLMCall)
		}
	}
	return calls
}

// ToolCalls returns the tool call payloads in timeline order.
func (t *Trace) ToolCalls() []*ToolCall {
	var calls []*ToolCall
	for i := range t.Turns {
		if t.Turns[i].Type == TurnToolCall && t.Turns[i].ToolCall != nil {
			calls = append(calls, t.Turns[i].ToolCall)
		}
	}
	return calls
}

// ToolNames returns the ordered list of tool names from tool-call turns.
func (t *Trace) ToolNames() []string {
	calls := t.ToolCalls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.ToolName
	}
	return names
}

// Validate checks the trace invariants: per-turn payloads match the turn
// type, turn IDs are unique, token counts are non-negative, and the
// Total* fields equal the per-turn sums. Violations are reported as a
// *MalformedTraceError.
func (t *Trace) Validate() error {
	seen := make(map[string]struct{}, len(t.Turns))
	var inputTokens, outputTokens int
	var latency int64

	for i := range t.Turns {
		turn := &t.Turns[i]
		if _, dup := seen[turn.TurnID]; dup {
			return &MalformedTraceError{TraceID: t.TraceID, Reason: "duplicate turn ID " + turn.TurnID}
		}
		seen[turn.TurnID] = struct{}{}

		switch turn.Type {
		case TurnLLMCall:
			if turn.LLMCall == nil || turn.ToolCall != nil {
				return &MalformedTraceError{TraceID: t.TraceID, Reason: "llm_call turn without exactly one LLM payload"}
			}
			if turn.LLMCall.InputTokens < 0 || turn.LLMCall.OutputTokens < 0 || turn.LLMCall.LatencyMS < 0 {
				return &MalformedTraceError{TraceID: t.TraceID, Reason: "negative token or latency count"}
			}
			inputTokens += turn.LLMCall.InputTokens
			outputTokens += turn.LLMCall.OutputTokens
			latency += turn.LLMCall.LatencyMS
		case TurnToolCall:
			if turn.ToolCall == nil || turn.LLMCall != nil {
				return &MalformedTraceError{TraceID: t.TraceID, Reason: "tool_call turn without exactly one tool payload"}
			}
			if turn.ToolCall.LatencyMS < 0 {
				return &MalformedTraceError{TraceID: t.TraceID, Reason: "negative latency count"}
			}
			if !turn.ToolCall.Success && turn.ToolCall.Error == "" {
				return &MalformedTraceError{TraceID: t.TraceID, Reason: "failed tool call without error message"}
			}
			latency += turn.ToolCall.LatencyMS
		default:
			return &MalformedTraceError{TraceID: t.TraceID, Reason: "unknown turn type " + string(turn.Type)}
		}
	}

	if inputTokens != t.TotalInputTokens || outputTokens != t.TotalOutputTokens {
		return &MalformedTraceError{TraceID: t.TraceID, Reason: "token totals do not match turn sums"}
	}
	if latency != t.TotalLatencyMS {
		return &MalformedTraceError{TraceID: t.TraceID, Reason: "latency total does not match turn sums"}
	}

	return nil
}

// DiffItem is a single per-position tool call comparison.
type DiffItem struct {
	// Dimension identifies the compared position, e.g. "tool_call_0".
	Dimension string `json:"dimension"`

	// Expected is the tool name on the first trace, empty if absent.
	Expected string `json:"expected,omitempty"`

	// Actual is the tool name on the second trace, empty if absent.
	Actual string `json:"actual,omitempty"`

	// Similarity is the per-position similarity in [0, 1].
	Similarity float64 `json:"similarity"`
}

// DiffReport is the structural diff between two traces. Deltas are
// computed as B minus A; swapping the arguments flips only the signs.
type DiffReport struct {
	// TraceAID is the first trace's ID.
	TraceAID string `json:"trace_a_id"`

	// TraceBID is the second trace's ID.
	TraceBID string `json:"trace_b_id"`

	// OutputMatches reports exact output equality after normalization.
	OutputMatches bool `json:"output_matches"`

	// TokenDelta is the total token difference (B - A).
	TokenDelta int `json:"token_delta"`

	// LatencyDeltaMS is the total latency difference (B - A).
	LatencyDeltaMS int64 `json:"latency_delta_ms"`

	// ToolSequenceMatch reports whether the ordered tool-name lists are
	// identical. Vacuously true when neither trace has tool calls.
	ToolSequenceMatch bool `json:"tool_sequence_match"`

	// ToolCallDiffs holds per-position tool call comparisons.
	ToolCallDiffs []DiffItem `json:"tool_call_diffs,omitempty"`

	// OverallSimilarity is the weighted similarity in [0, 1].
	OverallSimilarity float64 `json:"overall_similarity"`
}

// TraceStep is one position in a time-travel walk, with cumulative
// metrics up to and including that turn.
type TraceStep struct {
	// StepIndex is the zero-based position in the timeline.
	StepIndex int `json:"step_index"`

	// Turn is the trace turn at this step.
	Turn Turn `json:"turn"`

	// CumulativeInputTokens is the input token total up to this step.
	CumulativeInputTokens int `json:"cumulative_input_tokens"`

	// CumulativeOutputTokens is the output token total up to this step.
	CumulativeOutputTokens int `json:"cumulative_output_tokens"`

	// CumulativeCostUSD is the estimated cost total up to this step.
	CumulativeCostUSD float64 `json:"cumulative_cost_usd"`

	// CumulativeLatencyMS is the latency total up to this step.
	CumulativeLatencyMS int64 `json:"cumulative_latency_ms"`
}
