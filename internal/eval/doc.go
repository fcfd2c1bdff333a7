// Package eval provides trace evaluators: scoring functions that judge a
// recorded execution trace for a test case and produce a verdict and a
// score in [0, 1].
//
// Evaluators are stateless with respect to their inputs and safe to
// invoke concurrently. The StatisticalEvaluator wraps any other evaluator
// to aggregate scores across repeated runs into a distribution summary.
package eval
