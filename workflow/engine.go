package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/id"
)

// Emitter receives workflow lifecycle events. hook.Registry satisfies this
// interface via an adapter in the engine package, which breaks the import
// cycle between workflow and hook.
type Emitter interface {
	EmitWorkflowStarted(ctx context.Context, exec *Execution)
	EmitStepCompleted(ctx context.Context, exec *Execution, result StepResult)
	EmitStepFailed(ctx context.Context, exec *Execution, result StepResult)
	EmitWorkflowCompleted(ctx context.Context, exec *Execution)
	EmitWorkflowFailed(ctx context.Context, exec *Execution)
}

// NopEmitter is an Emitter that discards all events.
type NopEmitter struct{}

func (NopEmitter) EmitWorkflowStarted(context.Context, *Execution)           {}
func (NopEmitter) EmitStepCompleted(context.Context, *Execution, StepResult) {}
func (NopEmitter) EmitStepFailed(context.Context, *Execution, StepResult)    {}
func (NopEmitter) EmitWorkflowCompleted(context.Context, *Execution)         {}
func (NopEmitter) EmitWorkflowFailed(context.Context, *Execution)            {}

// Engine holds the workflow definition registry and executes workflows.
// Definitions and executions are mutated only through the engine; callers
// read copies.
type Engine struct {
	store    Store
	registry *Registry
	emitter  Emitter
	logger   *slog.Logger

	wg sync.WaitGroup
}

// NewEngine creates a workflow engine. A nil emitter disables event
// emission; a nil logger falls back to slog.Default().
func NewEngine(store Store, registry *Registry, emitter Emitter, logger *slog.Logger) *Engine {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		registry: registry,
		emitter:  emitter,
		logger:   logger,
	}
}

// Registry returns the step handler registry.
func (e *Engine) Registry() *Registry { return e.registry }

// AddWorkflow registers or replaces a definition by id. A definition with
// no steps is rejected with automation.ErrInvalidWorkflow. Definitions
// without an id are assigned one; the (possibly assigned) id is returned.
func (e *Engine) AddWorkflow(ctx context.Context, def *Definition) (id.WorkflowID, error) {
	if def == nil || len(def.Steps) == 0 {
		return id.Nil, fmt.Errorf("%w: steps must not be empty", automation.ErrInvalidWorkflow)
	}

	reg := def.Clone()
	if reg.ID.IsNil() {
		reg.ID = id.NewWorkflowID()
		reg.Entity = automation.NewEntity()
	} else {
		reg.Touch()
	}

	if err := e.store.PutWorkflow(ctx, reg); err != nil {
		return id.Nil, fmt.Errorf("register workflow %q: %w", reg.Name, err)
	}

	e.logger.Debug("workflow registered",
		slog.String("workflow_id", reg.ID.String()),
		slog.String("name", reg.Name),
		slog.Int("steps", len(reg.Steps)),
	)
	return reg.ID, nil
}

// GetWorkflow returns the definition with the given id.
func (e *Engine) GetWorkflow(ctx context.Context, wfID id.WorkflowID) (*Definition, error) {
	return e.store.GetWorkflow(ctx, wfID)
}

// GetAllWorkflows returns every registered definition in insertion order.
func (e *Engine) GetAllWorkflows(ctx context.Context) ([]*Definition, error) {
	return e.store.ListWorkflows(ctx)
}

// ExecuteWorkflow starts an asynchronous run of the given workflow against
// the supplied context and returns the execution id immediately.
//
// An unregistered or inactive workflow id fails synchronously with
// automation.ErrWorkflowNotFound and no execution is tracked. Executions
// cannot be cancelled; steps run strictly sequentially and the first step
// failure ends the run.
func (e *Engine) ExecuteWorkflow(ctx context.Context, wfID id.WorkflowID, execCtx map[string]any) (id.ExecutionID, error) {
	def, err := e.store.GetWorkflow(ctx, wfID)
	if err != nil {
		return id.Nil, err
	}
	if !def.IsActive {
		return id.Nil, fmt.Errorf("%w: workflow %q is inactive", automation.ErrWorkflowNotFound, wfID)
	}

	exec := &Execution{
		Entity:     automation.NewEntity(),
		ID:         id.NewExecutionID(),
		WorkflowID: def.ID,
		Context:    maps.Clone(execCtx),
		Status:     StatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	if err := e.store.CreateExecution(ctx, exec); err != nil {
		return id.Nil, fmt.Errorf("create execution for workflow %q: %w", def.Name, err)
	}

	e.emitter.EmitWorkflowStarted(ctx, exec.Clone())

	// The run is detached from the caller's context: triggering returns
	// immediately and the steps run in the background.
	runCtx := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go e.run(runCtx, def, exec)

	return exec.ID, nil
}

// GetExecution returns the execution with the given id.
func (e *Engine) GetExecution(ctx context.Context, execID id.ExecutionID) (*Execution, error) {
	return e.store.GetExecution(ctx, execID)
}

// ListExecutions returns every tracked execution in insertion order.
func (e *Engine) ListExecutions(ctx context.Context) ([]*Execution, error) {
	return e.store.ListExecutions(ctx)
}

// Stop waits for all running executions to finish or the context to
// expire. Executions are not cancellable, so expiry abandons the wait and
// returns the context error.
func (e *Engine) Stop(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.logger.Warn("workflow engine shutdown timed out with executions still running")
		return ctx.Err()
	}
}

// run executes the steps strictly sequentially and owns every mutation of
// the execution record.
func (e *Engine) run(ctx context.Context, def *Definition, exec *Execution) {
	defer e.wg.Done()

	execCtx := maps.Clone(exec.Context)
	if execCtx == nil {
		execCtx = make(map[string]any)
	}

	for _, step := range def.Steps {
		// Definition-level conditions gate each step: an unmet condition
		// stops the run early without failing it.
		if !conditionsMet(def.Conditions, execCtx) {
			e.logger.Debug("workflow conditions unmet, stopping early",
				slog.String("execution_id", exec.ID.String()),
				slog.String("workflow", def.Name),
			)
			break
		}

		result := StepResult{
			StepID:    step.ID,
			StepType:  step.Type,
			StartedAt: time.Now().UTC(),
		}

		output, err := e.runStep(ctx, step, execCtx)
		result.CompletedAt = time.Now().UTC()

		if err != nil {
			result.Status = StepFailed
			result.Error = err.Error()
			exec.StepResults = append(exec.StepResults, result)
			e.persist(ctx, exec)
			e.emitter.EmitStepFailed(ctx, exec.Clone(), result)

			e.finalize(ctx, exec, StatusFailed)
			e.logger.Warn("workflow execution failed",
				slog.String("execution_id", exec.ID.String()),
				slog.String("workflow", def.Name),
				slog.String("step", step.ID),
				slog.String("error", err.Error()),
			)
			e.emitter.EmitWorkflowFailed(ctx, exec.Clone())
			return
		}

		result.Status = StepCompleted
		result.Output = output
		exec.StepResults = append(exec.StepResults, result)
		maps.Copy(execCtx, output)
		exec.Context = maps.Clone(execCtx)
		e.persist(ctx, exec)
		e.emitter.EmitStepCompleted(ctx, exec.Clone(), result)
	}

	e.finalize(ctx, exec, StatusCompleted)
	e.logger.Info("workflow execution completed",
		slog.String("execution_id", exec.ID.String()),
		slog.String("workflow", def.Name),
		slog.Int("steps", len(exec.StepResults)),
	)
	e.emitter.EmitWorkflowCompleted(ctx, exec.Clone())
}

func (e *Engine) runStep(ctx context.Context, step Step, execCtx map[string]any) (map[string]any, error) {
	handler, ok := e.registry.Handler(step.Type)
	if !ok {
		return nil, fmt.Errorf("%w: no handler for step type %q", automation.ErrStep, step.Type)
	}
	output, err := handler(ctx, step, execCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", automation.ErrStep, err)
	}
	return output, nil
}

func (e *Engine) finalize(ctx context.Context, exec *Execution, status Status) {
	now := time.Now().UTC()
	exec.Status = status
	exec.CompletedAt = &now
	exec.Touch()
	e.persist(ctx, exec)
}

func (e *Engine) persist(ctx context.Context, exec *Execution) {
	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		e.logger.Error("failed to persist workflow execution",
			slog.String("execution_id", exec.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// conditionsMet evaluates flat string-equality predicates against the
// execution context.
func conditionsMet(conditions map[string]string, execCtx map[string]any) bool {
	for key, want := range conditions {
		got, ok := execCtx[key]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}
