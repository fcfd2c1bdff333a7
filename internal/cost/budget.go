package cost

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// BudgetExceededError reports spend crossing a budget limit.
type BudgetExceededError struct {
	LimitUSD float64
	SpentUSD float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: spent %.4f USD of %.4f USD limit", e.SpentUSD, e.LimitUSD)
}

// CheckResult is the outcome of one budget check.
type CheckResult struct {
	LimitUSD     float64 `json:"limit_usd"`
	SpentUSD     float64 `json:"spent_usd"`
	RemainingUSD float64 `json:"remaining_usd"`
	Exceeded     bool    `json:"exceeded"`
}

// BudgetEnforcer tracks cumulative spend against a fixed limit. Safe
// for concurrent use.
type BudgetEnforcer struct {
	limitUSD float64
	logger   *zap.Logger

	mu       sync.Mutex
	spentUSD float64
}

// NewBudgetEnforcer creates an enforcer. The limit must be positive.
func NewBudgetEnforcer(limitUSD float64, logger *zap.Logger) (*BudgetEnforcer, error) {
	if limitUSD <= 0 {
		return nil, fmt.Errorf("budget limit must be positive, got %v", limitUSD)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BudgetEnforcer{limitUSD: limitUSD, logger: logger}, nil
}

// Record adds spend and returns a BudgetExceededError once the
// cumulative total crosses the limit. The spend is still recorded.
func (b *BudgetEnforcer) Record(costUSD float64) error {
	if costUSD < 0 {
		return fmt.Errorf("cost must not be negative, got %v", costUSD)
	}

	b.mu.Lock()
	b.spentUSD += costUSD
	spent := b.spentUSD
	b.mu.Unlock()

	if spent > b.limitUSD {
		b.logger.Warn("budget exceeded",
			zap.Float64("limit_usd", b.limitUSD),
			zap.Float64("spent_usd", spent),
		)
		return &BudgetExceededError{LimitUSD: b.limitUSD, SpentUSD: spent}
	}
	return nil
}

// Check reports current spend without recording anything.
func (b *BudgetEnforcer) Check() CheckResult {
	b.mu.Lock()
	spent := b.spentUSD
	b.mu.Unlock()

	remaining := b.limitUSD - spent
	if remaining < 0 {
		remaining = 0
	}
	return CheckResult{
		LimitUSD:     b.limitUSD,
		SpentUSD:     spent,
		RemainingUSD: remaining,
		Exceeded:     spent > b.limitUSD,
	}
}

// Reset clears accumulated spend.
func (b *BudgetEnforcer) Reset() {
	b.mu.Lock()
	b.spentUSD = 0
	b.mu.Unlock()
}
