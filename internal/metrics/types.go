package metrics

import "time"

// Standard metric names emitted by the collector.
const (
	MetricScore        = "score"
	MetricDurationMS   = "duration_ms"
	MetricInputTokens  = "input_tokens"
	MetricOutputTokens = "output_tokens"
	MetricTotalTokens  = "total_tokens"
	MetricLatencyMS    = "latency_ms"
	MetricToolCalls    = "tool_calls"
	MetricLLMCalls     = "llm_calls"
)

// Sample is one measurement of one metric.
type Sample struct {
	// Name identifies the metric.
	Name string `json:"name"`

	// Value is the measured quantity.
	Value float64 `json:"value"`

	// Labels carry optional dimensions such as test name or model.
	Labels map[string]string `json:"labels,omitempty"`

	// Timestamp is when the measurement was taken.
	Timestamp time.Time `json:"timestamp"`
}

// Summary holds the aggregate statistics of one metric.
type Summary struct {
	Name        string  `json:"name"`
	SampleCount int     `json:"sample_count"`
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	P95         float64 `json:"p95"`
	P99         float64 `json:"p99"`
	StdDev      float64 `json:"std_dev"`
}

// TrendDirection classifies how a metric is moving over time.
type TrendDirection string

const (
	TrendImproving        TrendDirection = "improving"
	TrendDegrading        TrendDirection = "degrading"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// Trend is the result of comparing the recent half of a sample window
// against the older half.
type Trend struct {
	Name       string         `json:"name"`
	Direction  TrendDirection `json:"direction"`
	OlderMean  float64        `json:"older_mean"`
	RecentMean float64        `json:"recent_mean"`

	// ChangePct is the relative change of the recent mean against the
	// older mean, in percent.
	ChangePct float64 `json:"change_pct"`
}
