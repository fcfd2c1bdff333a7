// Package storage persists baselines and traces. Two backends are
// provided: a filesystem store writing one JSON file per record, and an
// embedded BadgerDB store for larger collections. Both implement the
// BaselineStore and TraceStore interfaces and are safe for concurrent
// use.
package storage
