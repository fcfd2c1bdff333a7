package trace

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DefaultMockLatencyMS is recorded for a mock result that does not report
// its own latency.
const DefaultMockLatencyMS int64 = 1

// ToolResult is the outcome a tool mock reports for one invocation.
type ToolResult struct {
	// Output is the tool's output text.
	Output string

	// LatencyMS is the simulated latency. Zero selects
	// DefaultMockLatencyMS.
	LatencyMS int64
}

// ToolMock substitutes a tool's behavior during replay. Returning an
// error records a failed tool call on the replayed trace; it does not
// abort the replay.
type ToolMock interface {
	Call(ctx context.Context, input map[string]any) (*ToolResult, error)
}

// ToolMockFunc adapts a plain function to the ToolMock interface.
type ToolMockFunc func(ctx context.Context, input map[string]any) (*ToolResult, error)

// Call implements ToolMock.
func (f ToolMockFunc) Call(ctx context.Context, input map[string]any) (*ToolResult, error) {
	return f(ctx, input)
}

// ReplayEngine re-executes a recorded trace's tool calls through
// registered mocks, producing a new trace. LLM turns are replayed
// verbatim from the recording; only tool behavior is substituted.
type ReplayEngine struct {
	mocks    map[string]ToolMock
	recorder *Recorder
	differ   *Differ
	logger   *zap.Logger
}

// NewReplayEngine creates a replay engine with the given tool mocks.
// A nil logger disables logging.
func NewReplayEngine(mocks map[string]ToolMock, logger *zap.Logger) *ReplayEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := &ReplayEngine{
		mocks:    make(map[string]ToolMock, len(mocks)),
		recorder: NewRecorder(logger),
		differ:   NewDiffer(nil, logger),
		logger:   logger,
	}
	for name, mock := range mocks {
		engine.mocks[name] = mock
	}
	return engine
}

// RegisterMock adds or replaces a mock for a tool name.
func (e *ReplayEngine) RegisterMock(toolName string, mock ToolMock) {
	e.mocks[toolName] = mock
}

// Replay walks the original trace's turns in order, replaying LLM calls
// verbatim and re-executing tool calls through the registered mocks, and
// finalizes the result into a new trace.
//
// Every tool name in the original must have a mock: Replay fails with a
// *UnmappedToolError before executing anything if one is missing, rather
// than silently skipping the call.
func (e *ReplayEngine) Replay(ctx context.Context, original *Trace) (*Trace, error) {
	for _, name := range original.ToolNames() {
		if _, ok := e.mocks[name]; !ok {
			return nil, &UnmappedToolError{Tool: name}
		}
	}

	sess, err := e.recorder.Begin(original.AgentName, original.Model, WithTags(original.Tags...))
	if err != nil {
		return nil, fmt.Errorf("begin replay session: %w", err)
	}
	defer sess.Close()

	for i := range original.Turns {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("replay cancelled at turn %d: %w", i, err)
		}

		turn := &original.Turns[i]
		switch turn.Type {
		case TurnLLMCall:
			if err := e.replayLLMCall(sess, turn.LLMCall); err != nil {
				return nil, err
			}
		case TurnToolCall:
			if err := e.replayToolCall(ctx, sess, turn.ToolCall); err != nil {
				return nil, err
			}
		}
	}

	replayed, err := sess.Finalize(original.InputText, original.OutputText)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("trace replayed",
		zap.String("original_trace_id", original.TraceID),
		zap.String("replay_trace_id", replayed.TraceID),
		zap.Int("turns", len(replayed.Turns)),
	)
	return replayed, nil
}

func (e *ReplayEngine) replayLLMCall(sess *Session, call *LLMCall) error {
	return sess.RecordLLMCall(LLMCall{
		Model:        call.Model,
		InputTokens:  call.InputTokens,
		OutputTokens: call.OutputTokens,
		InputText:    call.InputText,
		OutputText:   call.OutputText,
		LatencyMS:    call.LatencyMS,
	})
}

func (e *ReplayEngine) replayToolCall(ctx context.Context, sess *Session, call *ToolCall) error {
	mock := e.mocks[call.ToolName]

	result, err := mock.Call(ctx, call.ToolInput)
	if err != nil {
		// A failing mock is captured as a failed tool call on the
		// replayed trace, matching how a live failure is recorded.
		return sess.RecordToolCall(ToolCall{
			ToolName:  call.ToolName,
			ToolInput: call.ToolInput,
			Success:   false,
			Error:     err.Error(),
			LatencyMS: DefaultMockLatencyMS,
		})
	}

	latency := result.LatencyMS
	if latency == 0 {
		latency = DefaultMockLatencyMS
	}
	output := result.Output
	return sess.RecordToolCall(ToolCall{
		ToolName:   call.ToolName,
		ToolInput:  call.ToolInput,
		ToolOutput: &output,
		Success:    true,
		LatencyMS:  latency,
	})
}

// Diff compares an original trace with its replay. It delegates to the
// Differ; replay-based regression checks are built on this report.
func (e *ReplayEngine) Diff(original, replayed *Trace) *DiffReport {
	return e.differ.Diff(original, replayed)
}
