// Package trigger fires workflows automatically.
//
// The Scheduler runs cron-style trigger entries on a tick loop: each
// enabled entry names a workflow and a schedule (5-field cron or @every
// descriptors), and the scheduler starts an execution every time the
// schedule comes due. The Dispatcher listens for terminal batch
// operations through the hook registry and fires every workflow whose
// batch:completed trigger conditions match the finished operation.
package trigger
