// Package hook defines the extension system for the automation engine.
//
// Extensions are notified of lifecycle events and can react to them —
// streaming updates to the UI, writing audit logs, firing follow-up
// workflows, etc. Each lifecycle hook is a separate interface so
// extensions opt in only to the events they care about.
//
// # Implementing an Extension
//
//	type MyExtension struct{}
//
//	func (e *MyExtension) Name() string { return "my-extension" }
//
//	// Opt in to specific hooks by implementing their interfaces.
//	func (e *MyExtension) OnBatchCompleted(ctx context.Context, op *batch.Operation) error {
//	    log.Printf("batch %s finished as %s", op.ID, op.Status)
//	    return nil
//	}
//
// # Batch Lifecycle Hooks
//
//   - [BatchCreated] — a batch operation was registered
//   - [BatchProgress] — an item was processed
//   - [BatchCompleted] — the operation reached a terminal state
//
// # Workflow Lifecycle Hooks
//
//   - [WorkflowStarted] — a workflow execution began
//   - [WorkflowStepCompleted] — a step finished successfully
//   - [WorkflowStepFailed] — a step failed
//   - [WorkflowCompleted] — the execution finished successfully
//   - [WorkflowFailed] — the execution failed
//
// # Other Hooks
//
//   - [TriggerFired] — a trigger started a workflow execution
//   - [Shutdown] — the engine is shutting down gracefully
//
// The [Registry] fans out each event to all registered extensions that
// implement the corresponding hook interface.
package hook
