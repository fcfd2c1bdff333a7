package cost

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

// Breakdown is the cost attributed to one model within a run.
type Breakdown struct {
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Summary is the total cost of one or more traces.
type Summary struct {
	TotalCostUSD      float64 `json:"total_cost_usd"`
	TotalInputTokens  int     `json:"total_input_tokens"`
	TotalOutputTokens int     `json:"total_output_tokens"`

	// ByModel holds per-model breakdowns keyed by model identifier.
	ByModel map[string]*Breakdown `json:"by_model"`
}

// Calculator prices traces against a pricing table.
type Calculator struct {
	table  *PricingTable
	logger *zap.Logger
}

// NewCalculator creates a calculator.
func NewCalculator(table *PricingTable, logger *zap.Logger) (*Calculator, error) {
	if table == nil {
		return nil, fmt.Errorf("pricing table is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{table: table, logger: logger}, nil
}

// CostOf prices a single trace. Each LLM turn is priced against its own
// model, falling back to the trace-level model when the turn carries
// none.
func (c *Calculator) CostOf(tr *trace.Trace) (*Summary, error) {
	if tr == nil {
		return nil, fmt.Errorf("trace is required")
	}
	return c.CostOfAll([]*trace.Trace{tr})
}

// CostOfAll prices a set of traces into one summary.
func (c *Calculator) CostOfAll(traces []*trace.Trace) (*Summary, error) {
	summary := &Summary{ByModel: make(map[string]*Breakdown)}

	for _, tr := range traces {
		if tr == nil {
			continue
		}
		for _, call := range tr.LLMCalls() {
			model := call.Model
			if model == "" {
				model = tr.Model
			}

			pricing, err := c.table.Lookup(model)
			if err != nil {
				return nil, fmt.Errorf("trace %s: %w", tr.TraceID, err)
			}

			callCost := float64(call.InputTokens)/1000*pricing.InputCostPer1K +
				float64(call.OutputTokens)/1000*pricing.OutputCostPer1K

			entry := summary.ByModel[model]
			if entry == nil {
				entry = &Breakdown{Model: model}
				summary.ByModel[model] = entry
			}
			entry.InputTokens += call.InputTokens
			entry.OutputTokens += call.OutputTokens
			entry.CostUSD += callCost

			summary.TotalCostUSD += callCost
			summary.TotalInputTokens += call.InputTokens
			summary.TotalOutputTokens += call.OutputTokens
		}
	}

	c.logger.Debug("cost computed",
		zap.Int("traces", len(traces)),
		zap.Float64("total_usd", summary.TotalCostUSD),
	)
	return summary, nil
}
