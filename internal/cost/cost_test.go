package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

const pricingYAML = `
models:
  - model: alpha-large
    input_cost_per_1k: 3.0
    output_cost_per_1k: 15.0
  - model: alpha-small
    input_cost_per_1k: 0.25
    output_cost_per_1k: 1.25
`

func pricedTrace(t *testing.T, model string, calls ...[2]int) *trace.Trace {
	t.Helper()

	rec := trace.NewRecorder(zap.NewNop())
	sess, err := rec.Begin("cost-agent", model)
	require.NoError(t, err)
	for _, tokens := range calls {
		require.NoError(t, sess.RecordLLMCall(trace.LLMCall{
			Model:        model,
			InputTokens:  tokens[0],
			OutputTokens: tokens[1],
			OutputText:   "answer",
			LatencyMS:    10,
		}))
	}
	tr, err := sess.Finalize("prompt", "answer")
	require.NoError(t, err)
	return tr
}

func TestParsePricingTable(t *testing.T) {
	table, err := ParsePricingTable([]byte(pricingYAML))
	require.NoError(t, err)

	pricing, err := table.Lookup("alpha-large")
	require.NoError(t, err)
	assert.Equal(t, 3.0, pricing.InputCostPer1K)
	assert.Equal(t, 15.0, pricing.OutputCostPer1K)

	_, err = table.Lookup("unknown-model")
	require.Error(t, err)

	assert.ElementsMatch(t, []string{"alpha-large", "alpha-small"}, table.Models())
}

func TestParsePricingTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "models: []"},
		{"missing model name", "models:\n  - input_cost_per_1k: 1.0"},
		{"negative rate", "models:\n  - model: m\n    input_cost_per_1k: -1.0"},
		{"duplicate model", "models:\n  - model: m\n  - model: m"},
		{"broken yaml", "models: ["},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePricingTable([]byte(tc.yaml))
			require.Error(t, err)
		})
	}
}

func TestPricingTable_Fallback(t *testing.T) {
	table, err := ParsePricingTable([]byte(pricingYAML))
	require.NoError(t, err)
	table.WithFallback(ModelPricing{InputCostPer1K: 1.0, OutputCostPer1K: 2.0})

	pricing, err := table.Lookup("unknown-model")
	require.NoError(t, err)
	assert.Equal(t, "unknown-model", pricing.Model)
	assert.Equal(t, 1.0, pricing.InputCostPer1K)
}

func TestCalculator_CostOf(t *testing.T) {
	table, err := ParsePricingTable([]byte(pricingYAML))
	require.NoError(t, err)
	calc, err := NewCalculator(table, zap.NewNop())
	require.NoError(t, err)

	// 1000 in at 3.0 + 500 out at 15.0 = 3.0 + 7.5.
	tr := pricedTrace(t, "alpha-large", [2]int{600, 300}, [2]int{400, 200})
	summary, err := calc.CostOf(tr)
	require.NoError(t, err)

	assert.InDelta(t, 10.5, summary.TotalCostUSD, 1e-9)
	assert.Equal(t, 1000, summary.TotalInputTokens)
	assert.Equal(t, 500, summary.TotalOutputTokens)
	require.Contains(t, summary.ByModel, "alpha-large")
	assert.InDelta(t, 10.5, summary.ByModel["alpha-large"].CostUSD, 1e-9)
}

func TestCalculator_MultiModel(t *testing.T) {
	table, err := ParsePricingTable([]byte(pricingYAML))
	require.NoError(t, err)
	calc, err := NewCalculator(table, zap.NewNop())
	require.NoError(t, err)

	traces := []*trace.Trace{
		pricedTrace(t, "alpha-large", [2]int{1000, 0}),
		pricedTrace(t, "alpha-small", [2]int{0, 1000}),
		nil,
	}
	summary, err := calc.CostOfAll(traces)
	require.NoError(t, err)

	assert.InDelta(t, 3.0+1.25, summary.TotalCostUSD, 1e-9)
	require.Len(t, summary.ByModel, 2)
	assert.InDelta(t, 3.0, summary.ByModel["alpha-large"].CostUSD, 1e-9)
	assert.InDelta(t, 1.25, summary.ByModel["alpha-small"].CostUSD, 1e-9)
}

func TestCalculator_UnknownModel(t *testing.T) {
	table, err := ParsePricingTable([]byte(pricingYAML))
	require.NoError(t, err)
	calc, err := NewCalculator(table, zap.NewNop())
	require.NoError(t, err)

	_, err = calc.CostOf(pricedTrace(t, "mystery-model", [2]int{10, 10}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no pricing for model "mystery-model"`)
}

func TestBudgetEnforcer(t *testing.T) {
	_, err := NewBudgetEnforcer(0, zap.NewNop())
	require.Error(t, err)

	enforcer, err := NewBudgetEnforcer(10.0, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, enforcer.Record(4.0))
	require.NoError(t, enforcer.Record(6.0))

	check := enforcer.Check()
	assert.Equal(t, 10.0, check.SpentUSD)
	assert.Equal(t, 0.0, check.RemainingUSD)
	assert.False(t, check.Exceeded)

	err = enforcer.Record(0.5)
	var exceeded *BudgetExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 10.0, exceeded.LimitUSD)
	assert.InDelta(t, 10.5, exceeded.SpentUSD, 1e-9)

	// The overrun is still recorded.
	check = enforcer.Check()
	assert.True(t, check.Exceeded)
	assert.Equal(t, 0.0, check.RemainingUSD)

	enforcer.Reset()
	check = enforcer.Check()
	assert.Equal(t, 0.0, check.SpentUSD)
	assert.False(t, check.Exceeded)

	require.Error(t, enforcer.Record(-1))
}
