package trace

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/similarity"
)

// DifferConfig controls how the overall similarity is combined and how
// outputs are normalized before the exact-match check.
type DifferConfig struct {
	// OutputWeight weighs the output text similarity term.
	OutputWeight float64

	// ToolWeight weighs the mean per-position tool call similarity.
	ToolWeight float64

	// LatencyWeight weighs the latency closeness term.
	LatencyWeight float64

	// Normalize transforms output texts before the exact-match check.
	// Defaults to whitespace trimming, case-sensitive.
	Normalize func(string) string
}

// DefaultDifferConfig returns the default weighting: output 0.4,
// tools 0.4, latency 0.2.
func DefaultDifferConfig() *DifferConfig {
	return &DifferConfig{
		OutputWeight:  0.4,
		ToolWeight:    0.4,
		LatencyWeight: 0.2,
		Normalize:     strings.TrimSpace,
	}
}

// Differ computes structural diffs between trace pairs. It is stateless
// and safe for concurrent use.
type Differ struct {
	cfg    *DifferConfig
	logger *zap.Logger
}

// NewDiffer creates a differ. Nil config selects the defaults; a nil
// logger disables logging.
func NewDiffer(cfg *DifferConfig, logger *zap.Logger) *Differ {
	if cfg == nil {
		cfg = DefaultDifferConfig()
	}
	if cfg.Normalize == nil {
		cfg.Normalize = strings.TrimSpace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Differ{cfg: cfg, logger: logger}
}

// Diff compares two traces. Deltas are computed as b minus a, so swapping
// the arguments flips only the delta signs.
func (d *Differ) Diff(a, b *Trace) *DiffReport {
	toolsA := a.ToolCalls()
	toolsB := b.ToolCalls()

	toolDiffs := diffToolCalls(toolsA, toolsB)
	seqMatch := toolSequencesEqual(toolsA, toolsB)

	outputMatches := d.cfg.Normalize(a.OutputText) == d.cfg.Normalize(b.OutputText)
	tokenDelta := b.TotalTokens() - a.TotalTokens()
	latencyDelta := b.TotalLatencyMS - a.TotalLatencyMS

	overall := d.overallSimilarity(a, b, toolDiffs)

	report := &DiffReport{
		TraceAID:          a.TraceID,
		TraceBID:          b.TraceID,
		OutputMatches:     outputMatches,
		TokenDelta:        tokenDelta,
		LatencyDeltaMS:    latencyDelta,
		ToolSequenceMatch: seqMatch,
		ToolCallDiffs:     toolDiffs,
		OverallSimilarity: round4(overall),
	}

	d.logger.Debug("trace diff computed",
		zap.String("trace_a", a.TraceID),
		zap.String("trace_b", b.TraceID),
		zap.Float64("similarity", report.OverallSimilarity),
		zap.Bool("tool_sequence_match", seqMatch),
	)
	return report
}

func (d *Differ) overallSimilarity(a, b *Trace, toolDiffs []DiffItem) float64 {
	outputScore := similarity.KeywordOverlap(a.OutputText, b.OutputText)

	toolScore := 1.0
	if len(toolDiffs) > 0 {
		sum := 0.0
		for _, item := range toolDiffs {
			sum += item.Similarity
		}
		toolScore = sum / float64(len(toolDiffs))
	}

	latencyScore := latencyCloseness(a.TotalLatencyMS, b.TotalLatencyMS)

	total := d.cfg.OutputWeight + d.cfg.ToolWeight + d.cfg.LatencyWeight
	if total <= 0 {
		return 0.0
	}
	combined := d.cfg.OutputWeight*outputScore + d.cfg.ToolWeight*toolScore + d.cfg.LatencyWeight*latencyScore
	return combined / total
}

// latencyCloseness maps a latency pair to [0, 1]: 1.0 when equal
// (including both zero), the min/max ratio otherwise.
func latencyCloseness(a, b int64) float64 {
	if a == b {
		return 1.0
	}
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi == 0 {
		return 1.0
	}
	if lo < 0 {
		return 0.0
	}
	return float64(lo) / float64(hi)
}

func diffToolCalls(a, b []*ToolCall) []DiffItem {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}

	var diffs []DiffItem
	for i := 0; i < maxLen; i++ {
		item := DiffItem{Dimension: fmt.Sprintf("tool_call_%d", i)}
		switch {
		case i < len(a) && i < len(b):
			item.Expected = a[i].ToolName
			item.Actual = b[i].ToolName
			item.Similarity = round4(toolCallSimilarity(a[i], b[i]))
		case i < len(a):
			item.Expected = a[i].ToolName
		default:
			item.Actual = b[i].ToolName
		}
		diffs = append(diffs, item)
	}
	return diffs
}

// toolCallSimilarity scores name, input, and output equality one third each.
func toolCallSimilarity(a, b *ToolCall) float64 {
	score := 0.0
	if a.ToolName == b.ToolName {
		score += 1.0
	}
	if toolInputsEqual(a.ToolInput, b.ToolInput) {
		score += 1.0
	}
	if toolOutputsEqual(a.ToolOutput, b.ToolOutput) {
		score += 1.0
	}
	return score / 3.0
}

func toolInputsEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toolOutputsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func toolSequencesEqual(a, b []*ToolCall) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ToolName != b[i].ToolName {
			return false
		}
	}
	return true
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
