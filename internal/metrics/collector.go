package metrics

import (
	"time"

	"github.com/fyrsmithlabs/agentprobe/internal/regression"
	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

// CollectFromTrace extracts the standard measurements of one trace.
func CollectFromTrace(tr *trace.Trace) []Sample {
	if tr == nil {
		return nil
	}

	labels := map[string]string{"agent": tr.AgentName}
	if tr.Model != "" {
		labels["model"] = tr.Model
	}
	ts := tr.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	sample := func(name string, value float64) Sample {
		return Sample{Name: name, Value: value, Labels: labels, Timestamp: ts}
	}

	return []Sample{
		sample(MetricInputTokens, float64(tr.TotalInputTokens)),
		sample(MetricOutputTokens, float64(tr.TotalOutputTokens)),
		sample(MetricTotalTokens, float64(tr.TotalTokens())),
		sample(MetricLatencyMS, float64(tr.TotalLatencyMS)),
		sample(MetricToolCalls, float64(len(tr.ToolCalls()))),
		sample(MetricLLMCalls, float64(len(tr.LLMCalls()))),
	}
}

// CollectFromResults extracts score and duration samples from test
// results, plus each result's trace measurements when present.
func CollectFromResults(results []*regression.TestResult) []Sample {
	var samples []Sample
	for _, res := range results {
		if res == nil {
			continue
		}

		labels := map[string]string{"test": res.TestName, "status": string(res.Status)}
		ts := res.CreatedAt
		if ts.IsZero() {
			ts = time.Now().UTC()
		}

		samples = append(samples,
			Sample{Name: MetricScore, Value: res.Score, Labels: labels, Timestamp: ts},
			Sample{Name: MetricDurationMS, Value: float64(res.DurationMS), Labels: labels, Timestamp: ts},
		)
		samples = append(samples, CollectFromTrace(res.Trace)...)
	}
	return samples
}
