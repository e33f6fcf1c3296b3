// Package batch runs bounded-concurrency batch operations against the
// entity gateway. Each submitted request becomes a tracked Operation that
// moves through pending, running, and one of the terminal states
// completed, failed, or cancelled.
//
// Execution is asynchronous: Create returns an id immediately and the
// manager dispatches items in the background, honouring the per-operation
// concurrency cap, the continue-on-error policy, pre-validation, and the
// optional per-item delay. Cancellation is cooperative: items already
// dispatched finish, nothing further is scheduled.
package batch
