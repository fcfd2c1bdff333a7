package cost

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelPricing is the per-1000-token price of one model in USD.
type ModelPricing struct {
	Model          string  `yaml:"model" json:"model"`
	InputCostPer1K float64 `yaml:"input_cost_per_1k" json:"input_cost_per_1k"`
	OutputCostPer1K float64 `yaml:"output_cost_per_1k" json:"output_cost_per_1k"`
}

// PricingTable maps model identifiers to their pricing.
type PricingTable struct {
	models map[string]ModelPricing

	// fallback is applied to models absent from the table, nil when
	// unknown models should be an error.
	fallback *ModelPricing
}

type pricingFile struct {
	Models   []ModelPricing `yaml:"models"`
	Fallback *ModelPricing  `yaml:"fallback,omitempty"`
}

// NewPricingTable builds a table from explicit entries.
func NewPricingTable(entries []ModelPricing) (*PricingTable, error) {
	table := &PricingTable{models: make(map[string]ModelPricing, len(entries))}
	for i, entry := range entries {
		if entry.Model == "" {
			return nil, fmt.Errorf("pricing entry %d has no model", i)
		}
		if entry.InputCostPer1K < 0 || entry.OutputCostPer1K < 0 {
			return nil, fmt.Errorf("pricing entry %q has a negative rate", entry.Model)
		}
		if _, dup := table.models[entry.Model]; dup {
			return nil, fmt.Errorf("duplicate pricing entry %q", entry.Model)
		}
		table.models[entry.Model] = entry
	}
	return table, nil
}

// LoadPricingTable reads a YAML pricing file.
func LoadPricingTable(path string) (*PricingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}
	return ParsePricingTable(data)
}

// ParsePricingTable decodes YAML pricing data.
func ParsePricingTable(data []byte) (*PricingTable, error) {
	var file pricingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pricing file: %w", err)
	}
	if len(file.Models) == 0 {
		return nil, fmt.Errorf("pricing file lists no models")
	}

	table, err := NewPricingTable(file.Models)
	if err != nil {
		return nil, err
	}
	if file.Fallback != nil {
		if file.Fallback.InputCostPer1K < 0 || file.Fallback.OutputCostPer1K < 0 {
			return nil, fmt.Errorf("fallback pricing has a negative rate")
		}
		table.fallback = file.Fallback
	}
	return table, nil
}

// WithFallback sets the pricing applied to unknown models.
func (t *PricingTable) WithFallback(pricing ModelPricing) *PricingTable {
	t.fallback = &pricing
	return t
}

// Lookup returns the pricing for a model, falling back when configured.
func (t *PricingTable) Lookup(model string) (ModelPricing, error) {
	if pricing, ok := t.models[model]; ok {
		return pricing, nil
	}
	if t.fallback != nil {
		fb := *t.fallback
		fb.Model = model
		return fb, nil
	}
	return ModelPricing{}, fmt.Errorf("no pricing for model %q", model)
}

// Models returns the explicitly priced model identifiers.
func (t *PricingTable) Models() []string {
	names := make([]string, 0, len(t.models))
	for name := range t.models {
		names = append(names, name)
	}
	return names
}
