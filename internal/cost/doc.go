// Package cost computes the monetary cost of traces from per-model
// token pricing tables and enforces run budgets.
package cost
