// Package runner executes test cases against an agent adapter,
// records their traces, scores them with evaluators, and emits
// lifecycle events. Tests run with bounded parallelism; results come
// back in test-case order.
package runner
