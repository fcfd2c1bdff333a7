package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTrend_InsufficientData(t *testing.T) {
	trend, err := ComputeTrend(samplesOf(MetricScore, 0.8, 0.9, 0.7), 0)
	require.NoError(t, err)
	assert.Equal(t, TrendInsufficientData, trend.Direction)

	_, err = ComputeTrend(nil, 0)
	require.ErrorIs(t, err, ErrNoSamples)
}

func TestComputeTrend_ScoreImproving(t *testing.T) {
	trend, err := ComputeTrend(samplesOf(MetricScore, 0.5, 0.5, 0.7, 0.7), 0)
	require.NoError(t, err)

	assert.Equal(t, TrendImproving, trend.Direction)
	assert.InDelta(t, 0.5, trend.OlderMean, 1e-9)
	assert.InDelta(t, 0.7, trend.RecentMean, 1e-9)
	assert.InDelta(t, 40, trend.ChangePct, 1e-9)
}

func TestComputeTrend_ScoreDegrading(t *testing.T) {
	trend, err := ComputeTrend(samplesOf(MetricScore, 0.9, 0.9, 0.6, 0.6), 0)
	require.NoError(t, err)
	assert.Equal(t, TrendDegrading, trend.Direction)
}

func TestComputeTrend_LatencyDirectionInverted(t *testing.T) {
	// Rising latency degrades even though the values went up.
	trend, err := ComputeTrend(samplesOf(MetricLatencyMS, 100, 100, 200, 200), 0)
	require.NoError(t, err)
	assert.Equal(t, TrendDegrading, trend.Direction)

	trend, err = ComputeTrend(samplesOf(MetricLatencyMS, 200, 200, 100, 100), 0)
	require.NoError(t, err)
	assert.Equal(t, TrendImproving, trend.Direction)
}

func TestComputeTrend_StableWithinTolerance(t *testing.T) {
	trend, err := ComputeTrend(samplesOf(MetricScore, 0.80, 0.80, 0.82, 0.82), 0.05)
	require.NoError(t, err)
	assert.Equal(t, TrendStable, trend.Direction)
}

func TestComputeTrend_MixedNames(t *testing.T) {
	samples := append(samplesOf(MetricScore, 0.8, 0.8), samplesOf(MetricLatencyMS, 100, 100)...)
	_, err := ComputeTrend(samples, 0)
	require.Error(t, err)
}

func TestComputeTrend_ZeroOlderMean(t *testing.T) {
	trend, err := ComputeTrend(samplesOf(MetricScore, 0, 0, 0.5, 0.5), 0)
	require.NoError(t, err)
	assert.Equal(t, TrendImproving, trend.Direction)
	assert.InDelta(t, 100, trend.ChangePct, 1e-9)
}

func TestHigherIsBetter(t *testing.T) {
	assert.True(t, HigherIsBetter(MetricScore))
	assert.True(t, HigherIsBetter("custom_metric"))
	assert.False(t, HigherIsBetter(MetricLatencyMS))
	assert.False(t, HigherIsBetter(MetricTotalTokens))
	assert.False(t, HigherIsBetter(MetricDurationMS))
}
