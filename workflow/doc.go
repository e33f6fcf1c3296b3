// Package workflow holds the workflow definition registry and executes
// workflows as strictly sequential step runs.
//
// A Definition is an ordered list of typed steps; each step type selects a
// Handler from the Registry. Built-in definitions (epic-to-stories,
// story-to-tasks) are registered at engine construction and custom
// definitions added at runtime share the same registry and execution path.
// ExecuteWorkflow returns an execution id immediately; the steps run in
// the background and the first failure ends the run with the failing step
// recorded last. Executions are not cancellable and steps are never
// retried.
package workflow
