package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/agentprobe/internal/regression"
	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

var (
	// ErrBaselineNotFound is returned when a named baseline does not
	// exist in the store.
	ErrBaselineNotFound = errors.New("baseline not found")

	// ErrTraceNotFound is returned when a trace ID does not exist in
	// the store.
	ErrTraceNotFound = errors.New("trace not found")
)

// Baseline is a named snapshot of a full test run, used as the
// reference point for regression detection.
type Baseline struct {
	// Name uniquely identifies the baseline within a store.
	Name string `json:"name"`

	// Description is an optional human-readable note.
	Description string `json:"description,omitempty"`

	// Results holds one entry per test in the snapshotted run.
	Results []*regression.TestResult `json:"results"`

	// Metadata carries arbitrary extras such as git revision or model
	// version.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the baseline was saved.
	CreatedAt time.Time `json:"created_at"`
}

// BaselineStore persists named baselines.
type BaselineStore interface {
	// Save writes a baseline, overwriting any existing one with the
	// same name.
	Save(ctx context.Context, baseline *Baseline) error

	// Load retrieves a baseline by name. Returns ErrBaselineNotFound
	// when absent.
	Load(ctx context.Context, name string) (*Baseline, error)

	// Exists reports whether a baseline with the given name is stored.
	Exists(ctx context.Context, name string) (bool, error)

	// List returns the stored baseline names in lexical order.
	List(ctx context.Context) ([]string, error)

	// Delete removes a baseline. Returns ErrBaselineNotFound when
	// absent.
	Delete(ctx context.Context, name string) error
}

// TraceStore persists execution traces keyed by trace ID.
type TraceStore interface {
	// SaveTrace writes a trace, overwriting any existing one with the
	// same ID.
	SaveTrace(ctx context.Context, tr *trace.Trace) error

	// GetTrace retrieves a trace by ID. Returns ErrTraceNotFound when
	// absent.
	GetTrace(ctx context.Context, traceID string) (*trace.Trace, error)

	// ListTraces returns the stored trace IDs in lexical order.
	ListTraces(ctx context.Context) ([]string, error)

	// DeleteTrace removes a trace. Returns ErrTraceNotFound when
	// absent.
	DeleteTrace(ctx context.Context, traceID string) error
}

// Store combines baseline and trace persistence behind one backend.
type Store interface {
	BaselineStore
	TraceStore

	// Close releases backend resources.
	Close() error
}

// validateName rejects names that would escape a storage namespace.
func validateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name is required", kind)
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}
