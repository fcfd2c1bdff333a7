package trace

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Recorder opens recording sessions. Each session is exclusively owned by
// the single invocation it records; the Recorder itself is stateless and
// may be shared.
type Recorder struct {
	logger *zap.Logger
}

// NewRecorder creates a recorder. A nil logger disables logging.
func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger}
}

// SessionOption configures a recording session at Begin time.
type SessionOption func(*Session)

// WithTags attaches tags to the resulting trace.
func WithTags(tags ...string) SessionOption {
	return func(s *Session) {
		s.tags = append(s.tags, tags...)
	}
}

// WithMetadata attaches a metadata entry to the resulting trace.
func WithMetadata(key string, value any) SessionOption {
	return func(s *Session) {
		s.metadata[key] = value
	}
}

// Begin opens a recording session for one agent invocation.
func (r *Recorder) Begin(agentName, model string, opts ...SessionOption) (*Session, error) {
	if agentName == "" {
		return nil, errors.New("agent name is required")
	}

	s := &Session{
		agentName: agentName,
		model:     model,
		metadata:  make(map[string]any),
		logger:    r.logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.logger.Debug("recording started", zap.String("agent", agentName), zap.String("model", model))
	return s, nil
}

// Session accumulates turns during one live invocation and emits exactly
// one immutable Trace via Finalize. Sessions must not be shared across
// concurrent invocations.
type Session struct {
	mu        sync.Mutex
	agentName string
	model     string
	tags      []string
	metadata  map[string]any
	turns     []Turn
	seq       int
	finalized bool
	trace     *Trace
	logger    *zap.Logger
}

// RecordLLMCall appends an LLM call turn. Missing call ID and timestamp
// are filled in; the session adopts the call's model if it has none yet.
// Returns ErrSessionFinalized after Finalize.
func (s *Session) RecordLLMCall(call LLMCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return ErrSessionFinalized
	}

	if call.CallID == "" {
		call.CallID = uuid.New().String()
	}
	if call.Timestamp.IsZero() {
		call.Timestamp = time.Now().UTC()
	}
	if s.model == "" {
		s.model = call.Model
	}

	s.appendTurn(Turn{
		Type:      TurnLLMCall,
		Content:   call.OutputText,
		LLMCall:   &call,
		Timestamp: call.Timestamp,
	})
	return nil
}

// RecordToolCall appends a tool call turn. A failed call (Success false)
// is recorded faithfully; it is data, not a recorder error. Returns
// ErrSessionFinalized after Finalize.
func (s *Session) RecordToolCall(call ToolCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return ErrSessionFinalized
	}

	if call.CallID == "" {
		call.CallID = uuid.New().String()
	}
	if call.Timestamp.IsZero() {
		call.Timestamp = time.Now().UTC()
	}

	content := ""
	if call.ToolOutput != nil {
		content = *call.ToolOutput
	}

	s.appendTurn(Turn{
		Type:      TurnToolCall,
		Content:   content,
		ToolCall:  &call,
		Timestamp: call.Timestamp,
	})
	return nil
}

func (s *Session) appendTurn(turn Turn) {
	turn.TurnID = uuid.New().String()
	turn.Seq = s.seq
	s.seq++
	s.turns = append(s.turns, turn)
}

// Finalize computes the trace totals from the recorded turns, assigns the
// trace ID, and returns the immutable Trace. The session rejects all
// further calls afterwards with ErrSessionFinalized.
func (s *Session) Finalize(inputText, outputText string) (*Trace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizeLocked(inputText, outputText)
}

func (s *Session) finalizeLocked(inputText, outputText string) (*Trace, error) {
	if s.finalized {
		return nil, ErrSessionFinalized
	}

	var inputTokens, outputTokens int
	var latency int64
	for i := range s.turns {
		switch s.turns[i].Type {
		case TurnLLMCall:
			inputTokens += s.turns[i].LLMCall.InputTokens
			outputTokens += s.turns[i].LLMCall.OutputTokens
			latency += s.turns[i].LLMCall.LatencyMS
		case TurnToolCall:
			latency += s.turns[i].ToolCall.LatencyMS
		}
	}

	tr := &Trace{
		TraceID:           uuid.New().String(),
		AgentName:         s.agentName,
		Model:             s.model,
		InputText:         inputText,
		OutputText:        outputText,
		Turns:             s.turns,
		TotalInputTokens:  inputTokens,
		TotalOutputTokens: outputTokens,
		TotalLatencyMS:    latency,
		Tags:              s.tags,
		Metadata:          s.metadata,
		CreatedAt:         time.Now().UTC(),
	}

	// The turn list moves into the trace; the session keeps no way to
	// mutate it afterwards.
	s.turns = nil
	s.finalized = true
	s.trace = tr

	s.logger.Debug("recording finalized",
		zap.String("trace_id", tr.TraceID),
		zap.String("agent", tr.AgentName),
		zap.Int("turns", len(tr.Turns)),
		zap.Int("total_tokens", tr.TotalTokens()),
	)
	return tr, nil
}

// Close finalizes the session if it has not been finalized yet, preserving
// whatever turns were captured. Intended for deferred use so that a partial
// trace survives any exit path, including a panicking invocation.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return
	}
	tr, _ := s.finalizeLocked("", "")
	s.logger.Warn("session closed without explicit finalize, partial trace preserved",
		zap.String("trace_id", tr.TraceID),
		zap.String("agent", s.agentName),
	)
}

// Trace returns the finalized trace, or nil if Finalize has not run.
func (s *Session) Trace() *Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trace
}
