package trigger

import (
	"context"
	"log/slog"

	"github.com/Pr0gCat/CodeHive-sub001/batch"
	"github.com/Pr0gCat/CodeHive-sub001/workflow"
)

// TypeBatchCompleted is the trigger type matched by the Dispatcher.
const TypeBatchCompleted = "batch:completed"

// DefinitionLister exposes the registered workflow definitions.
// workflow.Engine satisfies this interface.
type DefinitionLister interface {
	GetAllWorkflows(ctx context.Context) ([]*workflow.Definition, error)
}

// Dispatcher fires workflows off completed batch operations. It is a hook
// extension: registered on the hook registry, it receives every terminal
// batch operation and executes each active workflow whose
// "batch:completed" trigger conditions match the operation.
type Dispatcher struct {
	defs    DefinitionLister
	execute ExecuteFunc
	emitter Emitter
	logger  *slog.Logger
}

// NewDispatcher creates a batch-completion trigger dispatcher.
func NewDispatcher(defs DefinitionLister, execute ExecuteFunc, emitter Emitter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		defs:    defs,
		execute: execute,
		emitter: emitter,
		logger:  logger,
	}
}

// Name implements hook.Extension.
func (d *Dispatcher) Name() string { return "trigger-dispatcher" }

// OnBatchCompleted implements hook.BatchCompleted. Matching is flat string
// equality between trigger conditions and the operation's type, target
// type, and terminal status.
func (d *Dispatcher) OnBatchCompleted(ctx context.Context, op *batch.Operation) error {
	defs, err := d.defs.GetAllWorkflows(ctx)
	if err != nil {
		return err
	}

	fields := map[string]string{
		"type":        string(op.Type),
		"target_type": string(op.TargetType),
		"status":      string(op.Status),
	}

	for _, def := range defs {
		if !def.IsActive {
			continue
		}
		for _, tr := range def.Triggers {
			if tr.Type != TypeBatchCompleted || !conditionsMatch(tr.Conditions, fields) {
				continue
			}

			execCtx := map[string]any{
				"operation_id":     op.ID.String(),
				"type":             string(op.Type),
				"target_type":      string(op.TargetType),
				"status":           string(op.Status),
				"successful_items": op.SuccessfulItems,
				"failed_items":     op.FailedItems,
			}

			execID, execErr := d.execute(ctx, def.ID, execCtx)
			if execErr != nil {
				d.logger.Error("batch-completed trigger execute error",
					slog.String("workflow", def.Name),
					slog.String("operation_id", op.ID.String()),
					slog.String("error", execErr.Error()),
				)
				continue
			}

			if d.emitter != nil {
				d.emitter.EmitTriggerFired(ctx, def.Name, execID)
			}
			d.logger.Info("batch-completed trigger fired",
				slog.String("workflow", def.Name),
				slog.String("operation_id", op.ID.String()),
				slog.String("execution_id", execID.String()),
			)
			break // one execution per definition per completed batch
		}
	}
	return nil
}

// conditionsMatch reports whether every condition equals the corresponding
// operation field. An empty condition set matches everything.
func conditionsMatch(conditions, fields map[string]string) bool {
	for key, want := range conditions {
		if fields[key] != want {
			return false
		}
	}
	return true
}
