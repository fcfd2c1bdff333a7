// Package metrics aggregates numeric measurements collected across test
// runs: summary statistics per metric name, trend classification over
// time-ordered samples, and collection of standard measurements from
// traces and test results.
package metrics
