package hooks

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/eval"
	"github.com/fyrsmithlabs/agentprobe/internal/regression"
	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

// recordingListener appends every event it receives.
type recordingListener struct {
	BaseListener
	name   string
	events []string
}

func (l *recordingListener) Name() string { return l.name }

func (l *recordingListener) OnRunStart(_ context.Context, runID string) error {
	l.events = append(l.events, "run_start:"+runID)
	return nil
}

func (l *recordingListener) OnTestStart(_ context.Context, tc *eval.TestCase) error {
	l.events = append(l.events, "test_start:"+tc.Name)
	return nil
}

func (l *recordingListener) OnTraceRecorded(_ context.Context, tc *eval.TestCase, _ *trace.Trace) error {
	l.events = append(l.events, "trace_recorded:"+tc.Name)
	return nil
}

func (l *recordingListener) OnTestEnd(_ context.Context, result *regression.TestResult) error {
	l.events = append(l.events, "test_end:"+result.TestName)
	return nil
}

func (l *recordingListener) OnRunEnd(_ context.Context, runID string, _ []*regression.TestResult) error {
	l.events = append(l.events, "run_end:"+runID)
	return nil
}

// faultyListener fails or panics on test start.
type faultyListener struct {
	BaseListener
	panics bool
}

func (l *faultyListener) Name() string { return "faulty" }

func (l *faultyListener) OnTestStart(context.Context, *eval.TestCase) error {
	if l.panics {
		panic("listener blew up")
	}
	return fmt.Errorf("listener refused")
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())
	listener := &recordingListener{name: "rec"}
	dispatcher.Register(listener)
	dispatcher.Register(nil)
	assert.Equal(t, 1, dispatcher.Len())

	ctx := context.Background()
	tc := &eval.TestCase{Name: "checkout"}

	dispatcher.RunStart(ctx, "run-1")
	dispatcher.TestStart(ctx, tc)
	dispatcher.TraceRecorded(ctx, tc, &trace.Trace{TraceID: "tr-1"})
	dispatcher.TestEnd(ctx, &regression.TestResult{TestName: "checkout"})
	dispatcher.RunEnd(ctx, "run-1", nil)

	require.Equal(t, []string{
		"run_start:run-1",
		"test_start:checkout",
		"trace_recorded:checkout",
		"test_end:checkout",
		"run_end:run-1",
	}, listener.events)
}

func TestDispatcher_FailingListenerIsIsolated(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())
	first := &recordingListener{name: "first"}
	second := &recordingListener{name: "second"}
	dispatcher.Register(first)
	dispatcher.Register(&faultyListener{})
	dispatcher.Register(second)

	dispatcher.TestStart(context.Background(), &eval.TestCase{Name: "t"})

	assert.Equal(t, []string{"test_start:t"}, first.events)
	assert.Equal(t, []string{"test_start:t"}, second.events)
}

func TestDispatcher_PanickingListenerIsIsolated(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())
	dispatcher.Register(&faultyListener{panics: true})
	after := &recordingListener{name: "after"}
	dispatcher.Register(after)

	require.NotPanics(t, func() {
		dispatcher.TestStart(context.Background(), &eval.TestCase{Name: "t"})
	})
	assert.Equal(t, []string{"test_start:t"}, after.events)
}

func TestDispatcher_NoListeners(t *testing.T) {
	dispatcher := NewDispatcher(nil)
	require.NotPanics(t, func() {
		dispatcher.RunStart(context.Background(), "run-1")
		dispatcher.RunEnd(context.Background(), "run-1", nil)
	})
}
