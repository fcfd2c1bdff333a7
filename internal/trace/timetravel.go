package trace

import "fmt"

// TimeTravel is a step-by-step trace inspector. Steps are precomputed at
// construction with cumulative token, cost, and latency totals, giving
// indexed access to any point on the timeline.
type TimeTravel struct {
	trace *Trace
	steps []TraceStep
}

// NewTimeTravel builds an inspector for the trace. The per-1K-token rates
// feed the cumulative cost column; pass zeros to skip cost estimation.
func NewTimeTravel(tr *Trace, costPer1KInput, costPer1KOutput float64) *TimeTravel {
	steps := make([]TraceStep, 0, len(tr.Turns))

	var cumInput, cumOutput int
	var cumLatency int64
	var cumCost float64

	for i := range tr.Turns {
		turn := tr.Turns[i]
		switch turn.Type {
		case TurnLLMCall:
			if turn.LLMCall != nil {
				cumInput += turn.LLMCall.InputTokens
				cumOutput += turn.LLMCall.OutputTokens
				cumLatency += turn.LLMCall.LatencyMS
				cumCost += float64(turn.LLMCall.InputTokens)/1000.0*costPer1KInput +
					float64(turn.LLMCall.OutputTokens)/1000.0*costPer1KOutput
			}
		case TurnToolCall:
			if turn.ToolCall != nil {
				cumLatency += turn.ToolCall.LatencyMS
			}
		}

		steps = append(steps, TraceStep{
			StepIndex:              i,
			Turn:                   turn,
			CumulativeInputTokens:  cumInput,
			CumulativeOutputTokens: cumOutput,
			CumulativeCostUSD:      cumCost,
			CumulativeLatencyMS:    cumLatency,
		})
	}

	return &TimeTravel{trace: tr, steps: steps}
}

// Trace returns the underlying trace.
func (t *TimeTravel) Trace() *Trace {
	return t.trace
}

// Len returns the number of steps.
func (t *TimeTravel) Len() int {
	return len(t.steps)
}

// Step returns the step at index. Negative indexes count from the end.
func (t *TimeTravel) Step(index int) (TraceStep, error) {
	if index < 0 {
		index += len(t.steps)
	}
	if index < 0 || index >= len(t.steps) {
		return TraceStep{}, fmt.Errorf("step index %d out of range [0, %d)", index, len(t.steps))
	}
	return t.steps[index], nil
}

// Steps returns a copy of all steps in timeline order.
func (t *TimeTravel) Steps() []TraceStep {
	out := make([]TraceStep, len(t.steps))
	copy(out, t.steps)
	return out
}

// RerunFrom returns the steps from the given index to the end.
func (t *TimeTravel) RerunFrom(index int) ([]TraceStep, error) {
	if index < 0 || index >= len(t.steps) {
		return nil, fmt.Errorf("step index %d out of range [0, %d)", index, len(t.steps))
	}
	out := make([]TraceStep, len(t.steps)-index)
	copy(out, t.steps[index:])
	return out, nil
}
