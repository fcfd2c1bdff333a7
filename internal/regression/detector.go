package regression

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// DefaultThreshold is the score delta at which a change counts as a
// regression or an improvement.
const DefaultThreshold = 0.05

// Detector compares test runs against baselines.
type Detector struct {
	threshold float64
	logger    *zap.Logger
}

// NewDetector creates a detector. A non-positive threshold selects
// DefaultThreshold.
func NewDetector(threshold float64, logger *zap.Logger) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{threshold: threshold, logger: logger}
}

// Compare classifies every test present in either run. Both inclusive
// bounds trigger: a delta of exactly minus the threshold is a
// regression, exactly plus the threshold an improvement. Tests present
// in only one run are reported as new or removed and never counted as
// regressions. Duplicate test names within a run are an error.
func (d *Detector) Compare(baselineName string, baseline, current []*TestResult) (*RegressionReport, error) {
	baseScores, err := indexScores(baseline)
	if err != nil {
		return nil, fmt.Errorf("baseline run: %w", err)
	}
	currScores, err := indexScores(current)
	if err != nil {
		return nil, fmt.Errorf("current run: %w", err)
	}

	names := make([]string, 0, len(baseScores)+len(currScores))
	for name := range baseScores {
		names = append(names, name)
	}
	for name := range currScores {
		if _, seen := baseScores[name]; !seen {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	report := &RegressionReport{
		BaselineName: baselineName,
		Comparisons:  make([]TestComparison, 0, len(names)),
		TotalTests:   len(names),
		Threshold:    d.threshold,
		CreatedAt:    time.Now().UTC(),
	}

	for _, name := range names {
		baseScore, inBase := baseScores[name]
		currScore, inCurr := currScores[name]

		cmp := TestComparison{TestName: name}
		switch {
		case inBase && inCurr:
			cmp.BaselineScore = baseScore
			cmp.CurrentScore = currScore
			cmp.Delta = currScore - baseScore
			cmp.IsRegression = cmp.Delta <= -d.threshold
			cmp.IsImprovement = cmp.Delta >= d.threshold
		case inCurr:
			cmp.CurrentScore = currScore
			cmp.IsNew = true
		default:
			cmp.BaselineScore = baseScore
			cmp.IsRemoved = true
		}

		switch {
		case cmp.IsRegression:
			report.Regressions++
		case cmp.IsImprovement:
			report.Improvements++
		case cmp.IsNew:
			report.New++
		case cmp.IsRemoved:
			report.Removed++
		default:
			report.Unchanged++
		}
		report.Comparisons = append(report.Comparisons, cmp)
	}

	d.logger.Info("regression comparison complete",
		zap.String("baseline", baselineName),
		zap.Int("total", report.TotalTests),
		zap.Int("regressions", report.Regressions),
		zap.Int("improvements", report.Improvements),
	)

	return report, nil
}

func indexScores(results []*TestResult) (map[string]float64, error) {
	scores := make(map[string]float64, len(results))
	for _, res := range results {
		if res.TestName == "" {
			return nil, fmt.Errorf("result %s has no test name", res.ResultID)
		}
		if _, dup := scores[res.TestName]; dup {
			return nil, fmt.Errorf("duplicate test name %q", res.TestName)
		}
		scores[res.TestName] = res.Score
	}
	return scores, nil
}
