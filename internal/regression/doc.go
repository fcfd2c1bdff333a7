// Package regression compares the evaluation scores of a current test
// run against a stored baseline run and classifies each test as a
// regression, an improvement, or unchanged.
package regression
