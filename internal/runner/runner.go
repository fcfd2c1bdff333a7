package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentprobe/internal/cost"
	"github.com/fyrsmithlabs/agentprobe/internal/eval"
	"github.com/fyrsmithlabs/agentprobe/internal/hooks"
	"github.com/fyrsmithlabs/agentprobe/internal/regression"
	"github.com/fyrsmithlabs/agentprobe/internal/trace"
)

const instrumentationName = "github.com/fyrsmithlabs/agentprobe/internal/runner"

// Adapter invokes the agent under test and returns its trace.
type Adapter interface {
	// Invoke runs the agent on one input. The returned trace must be
	// finalized.
	Invoke(ctx context.Context, input string) (*trace.Trace, error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, input string) (*trace.Trace, error)

func (f AdapterFunc) Invoke(ctx context.Context, input string) (*trace.Trace, error) {
	return f(ctx, input)
}

// Config configures a Runner.
type Config struct {
	// Parallelism bounds concurrent test executions (default 1).
	Parallelism int

	// DefaultTimeout applies to test cases without their own timeout.
	// Zero disables the default.
	DefaultTimeout time.Duration

	// PassThreshold is the aggregate score at which a test passes.
	PassThreshold float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Parallelism:    1,
		DefaultTimeout: 2 * time.Minute,
		PassThreshold:  0.7,
	}
}

// Runner executes test suites.
type Runner struct {
	config     *Config
	adapter    Adapter
	evaluators []eval.Evaluator
	dispatcher *hooks.Dispatcher
	calculator *cost.Calculator
	budget     *cost.BudgetEnforcer
	logger     *zap.Logger

	tracer      oteltrace.Tracer
	meter       metric.Meter
	testCounter metric.Int64Counter
}

// Option customizes a Runner.
type Option func(*Runner)

// WithEvaluators sets the evaluators applied to every test.
func WithEvaluators(evaluators ...eval.Evaluator) Option {
	return func(r *Runner) { r.evaluators = evaluators }
}

// WithDispatcher sets the lifecycle event dispatcher.
func WithDispatcher(d *hooks.Dispatcher) Option {
	return func(r *Runner) { r.dispatcher = d }
}

// WithCost enables cost accounting, optionally with a budget.
func WithCost(calculator *cost.Calculator, budget *cost.BudgetEnforcer) Option {
	return func(r *Runner) {
		r.calculator = calculator
		r.budget = budget
	}
}

// New creates a Runner.
func New(cfg *Config, adapter Adapter, logger *zap.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if adapter == nil {
		return nil, errors.New("adapter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		config:  cfg,
		adapter: adapter,
		logger:  logger,
		tracer:  otel.Tracer(instrumentationName),
		meter:   otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dispatcher == nil {
		r.dispatcher = hooks.NewDispatcher(logger)
	}

	r.initMetrics()
	return r, nil
}

func (r *Runner) initMetrics() {
	var err error
	r.testCounter, err = r.meter.Int64Counter(
		"agentprobe.runner.tests_total",
		metric.WithDescription("Total number of test executions"),
		metric.WithUnit("{test}"),
	)
	if err != nil {
		r.logger.Warn("failed to create test counter", zap.Error(err))
	}
}

// Run executes all test cases and returns their results in input
// order. Individual test failures are recorded, not returned; only a
// cancelled context aborts the run early.
func (r *Runner) Run(ctx context.Context, cases []*eval.TestCase) ([]*regression.TestResult, error) {
	ctx, span := r.tracer.Start(ctx, "runner.run")
	defer span.End()

	runID := uuid.New().String()
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.Int("tests", len(cases)),
	)

	r.dispatcher.RunStart(ctx, runID)

	results := make([]*regression.TestResult, len(cases))
	sem := make(chan struct{}, r.config.Parallelism)
	var wg sync.WaitGroup

	for i, tc := range cases {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, tc *eval.TestCase) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.runOne(ctx, tc)
		}(i, tc)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.dispatcher.RunEnd(ctx, runID, results)

	r.logger.Info("run complete",
		zap.String("run_id", runID),
		zap.Int("tests", len(results)),
	)
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, tc *eval.TestCase) *regression.TestResult {
	ctx, span := r.tracer.Start(ctx, "runner.test")
	defer span.End()
	span.SetAttributes(attribute.String("test", tc.Name))

	timeout := tc.Timeout
	if timeout == 0 {
		timeout = r.config.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.dispatcher.TestStart(ctx, tc)
	started := time.Now()

	result := &regression.TestResult{
		ResultID:  uuid.New().String(),
		TestName:  tc.Name,
		CreatedAt: started.UTC(),
	}

	tr, err := r.adapter.Invoke(ctx, tc.InputText)
	result.DurationMS = time.Since(started).Milliseconds()
	if err != nil {
		result.Status = regression.StatusError
		result.ErrorMessage = err.Error()
		r.finishTest(ctx, span, result)
		return result
	}
	if err := tr.Validate(); err != nil {
		result.Status = regression.StatusError
		result.ErrorMessage = err.Error()
		r.finishTest(ctx, span, result)
		return result
	}

	result.Trace = tr
	r.dispatcher.TraceRecorded(ctx, tc, tr)

	if err := r.accountCost(tr); err != nil {
		result.Status = regression.StatusError
		result.ErrorMessage = err.Error()
		r.finishTest(ctx, span, result)
		return result
	}

	result.Score, result.EvalResults, err = r.evaluate(ctx, tc, tr)
	if err != nil {
		result.Status = regression.StatusError
		result.ErrorMessage = err.Error()
		r.finishTest(ctx, span, result)
		return result
	}

	if result.Score >= r.config.PassThreshold {
		result.Status = regression.StatusPassed
	} else {
		result.Status = regression.StatusFailed
	}

	r.finishTest(ctx, span, result)
	return result
}

// evaluate scores the trace with every configured evaluator and
// averages their scores. No evaluators means a vacuous pass.
func (r *Runner) evaluate(ctx context.Context, tc *eval.TestCase, tr *trace.Trace) (float64, []*eval.EvalResult, error) {
	if len(r.evaluators) == 0 {
		return 1.0, nil, nil
	}

	evalResults := make([]*eval.EvalResult, 0, len(r.evaluators))
	sum := 0.0
	for _, evaluator := range r.evaluators {
		res, err := evaluator.Evaluate(ctx, tc, tr)
		if err != nil {
			return 0, evalResults, fmt.Errorf("evaluator %s: %w", evaluator.Name(), err)
		}
		evalResults = append(evalResults, res)
		sum += res.Score
	}
	return sum / float64(len(r.evaluators)), evalResults, nil
}

func (r *Runner) accountCost(tr *trace.Trace) error {
	if r.calculator == nil {
		return nil
	}
	summary, err := r.calculator.CostOf(tr)
	if err != nil {
		return err
	}
	if r.budget != nil {
		return r.budget.Record(summary.TotalCostUSD)
	}
	return nil
}

func (r *Runner) finishTest(ctx context.Context, span oteltrace.Span, result *regression.TestResult) {
	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.Float64("score", result.Score),
	)
	if r.testCounter != nil {
		r.testCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(result.Status)),
		))
	}
	r.dispatcher.TestEnd(ctx, result)

	r.logger.Debug("test finished",
		zap.String("test", result.TestName),
		zap.String("status", string(result.Status)),
		zap.Float64("score", result.Score),
		zap.Int64("duration_ms", result.DurationMS),
	)
}
