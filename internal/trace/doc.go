// Package trace provides the execution trace data model and the machinery
// that operates on it: the recorder that captures a live agent invocation,
// the differ that compares two traces structurally, the replay engine that
// re-executes a trace's tool calls against mocks, and a time-travel
// inspector for stepping through a recorded timeline.
//
// A Trace is assembled exactly once by a recording Session and is treated
// as immutable afterwards. Components in this package never mutate a Trace
// they are given, which makes all of them safe to use concurrently.
package trace
