// Package hooks provides lifecycle event dispatch for test runs. A
// failing listener is logged and skipped; it never aborts the run or
// starves the remaining listeners.
package hooks

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/eval"
	"github.com/fyrsmithlabs/agentprobe/internal/regression"
	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

// Listener receives run lifecycle events. Implementations embed
// BaseListener and override the events they care about.
type Listener interface {
	// Name identifies the listener in logs.
	Name() string

	// OnRunStart fires once before any test executes.
	OnRunStart(ctx context.Context, runID string) error

	// OnTestStart fires before each test case.
	OnTestStart(ctx context.Context, tc *eval.TestCase) error

	// OnTraceRecorded fires after a test produces its trace.
	OnTraceRecorded(ctx context.Context, tc *eval.TestCase, tr *trace.Trace) error

	// OnTestEnd fires after each test completes.
	OnTestEnd(ctx context.Context, result *regression.TestResult) error

	// OnRunEnd fires once after all tests complete.
	OnRunEnd(ctx context.Context, runID string, results []*regression.TestResult) error
}

// BaseListener is a no-op Listener.
type BaseListener struct{}

func (BaseListener) OnRunStart(context.Context, string) error { return nil }

func (BaseListener) OnTestStart(context.Context, *eval.TestCase) error { return nil }

func (BaseListener) OnTraceRecorded(context.Context, *eval.TestCase, *trace.Trace) error {
	return nil
}

func (BaseListener) OnTestEnd(context.Context, *regression.TestResult) error { return nil }

func (BaseListener) OnRunEnd(context.Context, string, []*regression.TestResult) error {
	return nil
}

// Dispatcher fans events out to registered listeners in registration
// order. Safe for concurrent use.
type Dispatcher struct {
	logger *zap.Logger

	mu        sync.RWMutex
	listeners []Listener
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger}
}

// Register adds a listener. Nil listeners are ignored.
func (d *Dispatcher) Register(listener Listener) {
	if listener == nil {
		return
	}
	d.mu.Lock()
	d.listeners = append(d.listeners, listener)
	d.mu.Unlock()
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

func (d *Dispatcher) snapshot() []Listener {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Listener(nil), d.listeners...)
}

// dispatch invokes fn per listener, logging failures and panics
// without interrupting the remaining listeners.
func (d *Dispatcher) dispatch(event string, fn func(Listener) error) {
	for _, listener := range d.snapshot() {
		d.invoke(event, listener, fn)
	}
}

func (d *Dispatcher) invoke(event string, listener Listener, fn func(Listener) error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("hook listener panicked",
				zap.String("event", event),
				zap.String("listener", listener.Name()),
				zap.Any("panic", r),
			)
		}
	}()

	if err := fn(listener); err != nil {
		d.logger.Warn("hook listener failed",
			zap.String("event", event),
			zap.String("listener", listener.Name()),
			zap.Error(err),
		)
	}
}

// RunStart dispatches the run-start event.
func (d *Dispatcher) RunStart(ctx context.Context, runID string) {
	d.dispatch("run_start", func(l Listener) error { return l.OnRunStart(ctx, runID) })
}

// TestStart dispatches the test-start event.
func (d *Dispatcher) TestStart(ctx context.Context, tc *eval.TestCase) {
	d.dispatch("test_start", func(l Listener) error { return l.OnTestStart(ctx, tc) })
}

// TraceRecorded dispatches the trace-recorded event.
func (d *Dispatcher) TraceRecorded(ctx context.Context, tc *eval.TestCase, tr *trace.Trace) {
	d.dispatch("trace_recorded", func(l Listener) error { return l.OnTraceRecorded(ctx, tc, tr) })
}

// TestEnd dispatches the test-end event.
func (d *Dispatcher) TestEnd(ctx context.Context, result *regression.TestResult) {
	d.dispatch("test_end", func(l Listener) error { return l.OnTestEnd(ctx, result) })
}

// RunEnd dispatches the run-end event.
func (d *Dispatcher) RunEnd(ctx context.Context, runID string, results []*regression.TestResult) {
	d.dispatch("run_end", func(l Listener) error { return l.OnRunEnd(ctx, runID, results) })
}
