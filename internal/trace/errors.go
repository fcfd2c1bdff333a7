package trace

import (
	"errors"
	"fmt"
)

// ErrSessionFinalized is returned when an operation is attempted on a
// recording session after Finalize.
var ErrSessionFinalized = errors.New("recording session already finalized")

// UnmappedToolError is returned by the replay engine when a trace contains
// a tool call with no registered mock.
type UnmappedToolError struct {
	// Tool is the tool name with no mock.
	Tool string
}

func (e *UnmappedToolError) Error() string {
	return fmt.Sprintf("no mock registered for tool %q", e.Tool)
}

// MalformedTraceError reports a trace that violates its invariants.
type MalformedTraceError struct {
	// TraceID identifies the offending trace, may be empty before finalize.
	TraceID string

	// Reason describes the violated invariant.
	Reason string
}

func (e *MalformedTraceError) Error() string {
	if e.TraceID == "" {
		return "malformed trace: " + e.Reason
	}
	return fmt.Sprintf("malformed trace %s: %s", e.TraceID, e.Reason)
}
