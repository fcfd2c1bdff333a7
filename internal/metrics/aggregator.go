package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNoSamples is returned when an aggregation is requested over an
// empty sample set.
var ErrNoSamples = errors.New("no samples")

// Aggregate computes summary statistics over samples that all share one
// metric name. Mixed names are an error.
func Aggregate(samples []Sample) (*Summary, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	name := samples[0].Name
	values := make([]float64, len(samples))
	for i, sample := range samples {
		if sample.Name != name {
			return nil, fmt.Errorf("mixed metric names: %q and %q", name, sample.Name)
		}
		values[i] = sample.Value
	}

	return summarize(name, values), nil
}

// AggregateByName groups samples by metric name and summarizes each
// group independently. Summaries come back keyed by name.
func AggregateByName(samples []Sample) (map[string]*Summary, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	grouped := make(map[string][]float64)
	for _, sample := range samples {
		grouped[sample.Name] = append(grouped[sample.Name], sample.Value)
	}

	summaries := make(map[string]*Summary, len(grouped))
	for name, values := range grouped {
		summaries[name] = summarize(name, values)
	}
	return summaries, nil
}

func summarize(name string, values []float64) *Summary {
	n := len(values)

	sum := 0.0
	min, max := values[0], values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / float64(n)

	stdDev := 0.0
	if n > 1 {
		var sq float64
		for _, v := range values {
			d := v - mean
			sq += d * d
		}
		stdDev = math.Sqrt(sq / float64(n-1))
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return &Summary{
		Name:        name,
		SampleCount: n,
		Mean:        mean,
		Median:      quantile(sorted, 0.50),
		Min:         min,
		Max:         max,
		P95:         quantile(sorted, 0.95),
		P99:         quantile(sorted, 0.99),
		StdDev:      stdDev,
	}
}

// quantile pulls the q-th quantile from an ascending slice using linear
// interpolation between adjacent ranks.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := q * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
