package metrics

import "fmt"

// DefaultTrendTolerance is the relative change below which a metric
// counts as stable.
const DefaultTrendTolerance = 0.05

// minTrendSamples is the smallest window that can be split into two
// meaningful halves.
const minTrendSamples = 4

// HigherIsBetter reports whether larger values of a standard metric are
// an improvement. Unknown names default to higher-is-better.
func HigherIsBetter(name string) bool {
	switch name {
	case MetricDurationMS, MetricLatencyMS, MetricInputTokens,
		MetricOutputTokens, MetricTotalTokens:
		return false
	}
	return true
}

// ComputeTrend splits time-ordered samples of one metric into an older
// and a recent half and classifies the movement of the mean. A
// non-positive tolerance selects DefaultTrendTolerance.
func ComputeTrend(samples []Sample, tolerance float64) (*Trend, error) {
	if tolerance <= 0 {
		tolerance = DefaultTrendTolerance
	}
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	name := samples[0].Name
	for _, sample := range samples {
		if sample.Name != name {
			return nil, fmt.Errorf("mixed metric names: %q and %q", name, sample.Name)
		}
	}

	if len(samples) < minTrendSamples {
		return &Trend{Name: name, Direction: TrendInsufficientData}, nil
	}

	mid := len(samples) / 2
	olderMean := meanOf(samples[:mid])
	recentMean := meanOf(samples[mid:])

	trend := &Trend{
		Name:       name,
		OlderMean:  olderMean,
		RecentMean: recentMean,
	}

	var change float64
	switch {
	case olderMean != 0:
		change = (recentMean - olderMean) / olderMean
	case recentMean != 0:
		change = 1.0
	}
	trend.ChangePct = change * 100

	abs := change
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < tolerance:
		trend.Direction = TrendStable
	case (change > 0) == HigherIsBetter(name):
		trend.Direction = TrendImproving
	default:
		trend.Direction = TrendDegrading
	}
	return trend, nil
}

func meanOf(samples []Sample) float64 {
	sum := 0.0
	for _, sample := range samples {
		sum += sample.Value
	}
	return sum / float64(len(samples))
}
