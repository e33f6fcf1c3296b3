// Package engine wires all automation subsystems together. It creates the
// hook registry, batch manager, workflow engine, trigger scheduler, stream
// broker, and dead letter service, and exposes them through one facade.
//
// This package exists to break the import cycle: the root automation package
// defines Entity and Item (imported by batch, workflow, etc.) and so cannot
// import those packages back. The engine package sits above all subsystem
// packages and below the application layer.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/batch"
	"github.com/Pr0gCat/CodeHive-sub001/deadletter"
	"github.com/Pr0gCat/CodeHive-sub001/gateway"
	"github.com/Pr0gCat/CodeHive-sub001/hook"
	"github.com/Pr0gCat/CodeHive-sub001/id"
	"github.com/Pr0gCat/CodeHive-sub001/limits"
	mw "github.com/Pr0gCat/CodeHive-sub001/middleware"
	"github.com/Pr0gCat/CodeHive-sub001/store"
	"github.com/Pr0gCat/CodeHive-sub001/store/memory"
	"github.com/Pr0gCat/CodeHive-sub001/stream"
	"github.com/Pr0gCat/CodeHive-sub001/trigger"
	"github.com/Pr0gCat/CodeHive-sub001/workflow"
)

// hookBatchEmitter adapts *hook.Registry to satisfy batch.Emitter.
// batch defines the interface, hook.Registry provides the implementation,
// and the engine layer plugs them together.
type hookBatchEmitter struct {
	r *hook.Registry
}

func (a *hookBatchEmitter) EmitBatchCreated(ctx context.Context, op *batch.Operation) {
	a.r.EmitBatchCreated(ctx, op)
}

func (a *hookBatchEmitter) EmitBatchProgress(ctx context.Context, op *batch.Operation) {
	a.r.EmitBatchProgress(ctx, op)
}

func (a *hookBatchEmitter) EmitBatchCompleted(ctx context.Context, op *batch.Operation) {
	a.r.EmitBatchCompleted(ctx, op)
}

// hookWorkflowEmitter adapts *hook.Registry to satisfy workflow.Emitter.
type hookWorkflowEmitter struct {
	r *hook.Registry
}

func (a *hookWorkflowEmitter) EmitWorkflowStarted(ctx context.Context, exec *workflow.Execution) {
	a.r.EmitWorkflowStarted(ctx, exec)
}

func (a *hookWorkflowEmitter) EmitStepCompleted(ctx context.Context, exec *workflow.Execution, result workflow.StepResult) {
	a.r.EmitWorkflowStepCompleted(ctx, exec, result)
}

func (a *hookWorkflowEmitter) EmitStepFailed(ctx context.Context, exec *workflow.Execution, result workflow.StepResult) {
	a.r.EmitWorkflowStepFailed(ctx, exec, result)
}

func (a *hookWorkflowEmitter) EmitWorkflowCompleted(ctx context.Context, exec *workflow.Execution) {
	a.r.EmitWorkflowCompleted(ctx, exec)
}

func (a *hookWorkflowEmitter) EmitWorkflowFailed(ctx context.Context, exec *workflow.Execution) {
	a.r.EmitWorkflowFailed(ctx, exec)
}

// hookTriggerEmitter adapts *hook.Registry to satisfy trigger.Emitter.
type hookTriggerEmitter struct {
	r *hook.Registry
}

func (a *hookTriggerEmitter) EmitTriggerFired(ctx context.Context, entryName string, execID id.ExecutionID) {
	a.r.EmitTriggerFired(ctx, entryName, execID)
}

// Engine is the top-level automation facade. It owns the subsystem
// lifecycles and provides typed access to each.
type Engine struct {
	cfg    automation.Config
	store  store.Store
	gw     gateway.Gateway
	hooks  *hook.Registry
	logger *slog.Logger

	batches     *batch.Manager
	workflows   *workflow.Engine
	scheduler   *trigger.Scheduler
	dispatcher  *trigger.Dispatcher
	deadLetters *deadletter.Service
	broker      *stream.Broker
	gate        *limits.Manager

	mws          []mw.Middleware
	limitConfigs []limits.Config
	exts         []hook.Extension
	skipBuiltins bool

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets engine-wide defaults.
func WithConfig(cfg automation.Config) Option {
	return func(eng *Engine) { eng.cfg = cfg }
}

// WithStore sets the backing store. Defaults to the in-memory store.
func WithStore(s store.Store) Option {
	return func(eng *Engine) { eng.store = s }
}

// WithLogger sets the engine logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(eng *Engine) { eng.logger = logger }
}

// WithExtension registers a lifecycle hook extension with the engine.
func WithExtension(e hook.Extension) Option {
	return func(eng *Engine) { eng.exts = append(eng.exts, e) }
}

// WithMiddleware adds middleware to the batch item execution chain, after
// the default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithLimits registers per-target concurrency and rate limit configurations.
// Targets not listed have no limits.
func WithLimits(configs ...limits.Config) Option {
	return func(eng *Engine) { eng.limitConfigs = append(eng.limitConfigs, configs...) }
}

// WithoutBuiltinWorkflows skips registration of the built-in epic-to-stories
// and story-to-tasks workflow definitions.
func WithoutBuiltinWorkflows() Option {
	return func(eng *Engine) { eng.skipBuiltins = true }
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// New creates a fully wired Engine operating against the given gateway.
func New(gw gateway.Gateway, opts ...Option) (*Engine, error) {
	if gw == nil {
		return nil, fmt.Errorf("automation: engine requires a gateway")
	}

	eng := &Engine{
		cfg:    automation.DefaultConfig(),
		gw:     gw,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		eng.store = memory.New()
	}

	eng.hooks = hook.NewRegistry(eng.logger)
	for _, e := range eng.exts {
		eng.hooks.Register(e)
	}

	// Stream broker receives every lifecycle event via the hook registry.
	eng.broker = stream.NewBroker(eng.logger, stream.WithBufferSize(eng.cfg.StreamBufferSize))
	eng.hooks.Register(eng.broker)

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracer := eng.tracerProvider.Tracer("github.com/Pr0gCat/CodeHive-sub001")
		tracingMw = mw.TracingWithTracer(tracer)
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter("github.com/Pr0gCat/CodeHive-sub001")
		metricsMw = mw.MetricsWithMeter(meter)
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging → actor → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Actor(),
		mw.Timeout(eng.logger),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	// Workflow subsystem with the built-in step handlers.
	wfRegistry := workflow.NewRegistry()
	workflow.RegisterBuiltinHandlers(wfRegistry, gw)
	eng.workflows = workflow.NewEngine(eng.store, wfRegistry, &hookWorkflowEmitter{r: eng.hooks}, eng.logger)

	if !eng.skipBuiltins {
		for _, def := range workflow.BuiltinDefinitions() {
			if _, err := eng.workflows.AddWorkflow(context.Background(), def); err != nil {
				return nil, fmt.Errorf("register builtin workflow %q: %w", def.Name, err)
			}
		}
	}

	// Dead letter service resubmits entries through the batch manager.
	// The closure reads eng.batches at call time, after it is built below.
	eng.deadLetters = deadletter.NewService(eng.store, func(ctx context.Context, e *deadletter.Entry) (id.OperationID, error) {
		return eng.batches.Create(ctx, batch.Request{
			Type:       e.Action,
			TargetType: e.TargetType,
			Items:      []json.RawMessage{e.Payload},
			CreatedBy:  e.Actor,
		})
	})

	// Batch subsystem.
	batchOpts := []batch.ManagerOption{
		batch.WithMiddleware(allMws...),
		batch.WithDeadLetter(eng.deadLetters),
		batch.WithDefaultConcurrency(eng.cfg.DefaultMaxConcurrency),
	}
	if len(eng.limitConfigs) > 0 {
		eng.gate = limits.NewManager(eng.limitConfigs...)
		batchOpts = append(batchOpts, batch.WithGate(eng.gate))
	}
	eng.batches = batch.NewManager(eng.store, gw, &hookBatchEmitter{r: eng.hooks}, eng.logger, batchOpts...)

	// Trigger subsystem: scheduler for cron entries, dispatcher for
	// batch-completion triggers. The dispatcher is itself a hook extension.
	triggerEmitter := &hookTriggerEmitter{r: eng.hooks}
	eng.scheduler = trigger.NewScheduler(eng.store, eng.workflows.ExecuteWorkflow, triggerEmitter, eng.logger)
	eng.dispatcher = trigger.NewDispatcher(eng.workflows, eng.workflows.ExecuteWorkflow, triggerEmitter, eng.logger)
	eng.hooks.Register(eng.dispatcher)

	return eng, nil
}

// Start begins trigger scheduling. Batch operations and workflow executions
// run on demand and need no explicit start.
func (eng *Engine) Start(ctx context.Context) error {
	if err := eng.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start trigger scheduler: %w", err)
	}
	eng.logger.Info("automation engine started")
	return nil
}

// Stop gracefully shuts the engine down: it stops accepting scheduled
// triggers, waits for in-flight batch operations and workflow executions
// up to the shutdown timeout, then notifies extensions.
func (eng *Engine) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok && eng.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, eng.cfg.ShutdownTimeout)
		defer cancel()
	}

	if err := eng.scheduler.Stop(ctx); err != nil {
		eng.logger.Error("trigger scheduler stop error", slog.String("error", err.Error()))
	}

	var firstErr error
	if err := eng.batches.Stop(ctx); err != nil {
		firstErr = err
		eng.logger.Error("batch manager stop error", slog.String("error", err.Error()))
	}
	if err := eng.workflows.Stop(ctx); err != nil {
		if firstErr == nil {
			firstErr = err
		}
		eng.logger.Error("workflow engine stop error", slog.String("error", err.Error()))
	}

	eng.hooks.EmitShutdown(ctx)
	eng.logger.Info("automation engine stopped")
	return firstErr
}

// ── Subsystem access ────────────────────────────────

// Batches returns the batch operation manager.
func (eng *Engine) Batches() *batch.Manager { return eng.batches }

// Workflows returns the workflow engine.
func (eng *Engine) Workflows() *workflow.Engine { return eng.workflows }

// Scheduler returns the trigger scheduler.
func (eng *Engine) Scheduler() *trigger.Scheduler { return eng.scheduler }

// DeadLetters returns the dead letter service.
func (eng *Engine) DeadLetters() *deadletter.Service { return eng.deadLetters }

// Stream returns the real-time stream broker.
func (eng *Engine) Stream() *stream.Broker { return eng.broker }

// Hooks returns the lifecycle hook registry.
func (eng *Engine) Hooks() *hook.Registry { return eng.hooks }

// Store returns the backing store.
func (eng *Engine) Store() store.Store { return eng.store }

// Gateway returns the entity gateway.
func (eng *Engine) Gateway() gateway.Gateway { return eng.gw }

// Limits returns the concurrency limit manager, or nil if no limit
// configs were provided.
func (eng *Engine) Limits() *limits.Manager { return eng.gate }

// ── Convenience operations ──────────────────────────

// CreateBatch submits a batch operation for asynchronous execution.
func (eng *Engine) CreateBatch(ctx context.Context, req batch.Request) (id.OperationID, error) {
	return eng.batches.Create(ctx, req)
}

// AddWorkflow registers a workflow definition.
func (eng *Engine) AddWorkflow(ctx context.Context, def *workflow.Definition) (id.WorkflowID, error) {
	return eng.workflows.AddWorkflow(ctx, def)
}

// ExecuteWorkflow starts an asynchronous execution of a workflow.
func (eng *Engine) ExecuteWorkflow(ctx context.Context, wfID id.WorkflowID, execCtx map[string]any) (id.ExecutionID, error) {
	return eng.workflows.ExecuteWorkflow(ctx, wfID, execCtx)
}

// RegisterTrigger registers a scheduled trigger entry.
func (eng *Engine) RegisterTrigger(ctx context.Context, entry *trigger.Entry) error {
	return eng.scheduler.Register(ctx, entry)
}

// ReplayDeadLetter resubmits a dead letter entry as a new single-item batch.
func (eng *Engine) ReplayDeadLetter(ctx context.Context, entryID id.DeadLetterID) (id.OperationID, error) {
	return eng.deadLetters.Replay(ctx, entryID)
}

// StopAfter is a convenience for shutting down with an explicit timeout.
func (eng *Engine) StopAfter(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return eng.Stop(ctx)
}
