// Package automation provides the batch operation and workflow automation
// engine for CodeHive. It applies create/update/delete operations to large,
// heterogeneous collections of domain items with bounded concurrency,
// partial-failure tolerance, and cooperative cancellation, and executes
// declarative trigger-based workflows against the entity gateway.
//
// The engine is a library, not a service. Construct one with engine.New,
// hand it an entity gateway, and submit batch requests or trigger workflows
// as ordinary method calls.
//
// # Quick Start
//
//	eng, err := engine.New(gw,
//	    engine.WithLogger(logger),
//	    engine.WithLimits(limits.Config{Target: "story", MaxConcurrency: 8}),
//	)
//
// # Architecture
//
// Each subsystem lives in its own package: batch (operation manager),
// workflow (definition registry and sequential step runner), hook (typed
// lifecycle listeners), trigger (scheduled and event-driven firing),
// stream (real-time fan-out to the UI), deadletter (failed-item replay).
// Per-subsystem store interfaces are composed by store.Store; the only
// backend is store/memory because operation and execution state lives for
// the process lifetime only.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package automation
