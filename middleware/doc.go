// Package middleware provides composable middleware for batch item dispatch.
//
// Middleware wrap the gateway call for a single item and run synchronously
// on the dispatching worker. They compose with [Chain]:
//
//	mw := middleware.Chain(
//	    middleware.Logging(logger),
//	    middleware.Recover(logger),
//	    middleware.Timeout(logger),
//	    middleware.Actor(),
//	)
//
// The first middleware in the chain is the outermost wrapper.
//
// # Built-in middleware
//
//   - [Logging] — structured start/finish logs per item
//   - [Recover] — converts handler panics into item errors
//   - [Timeout] — per-item deadline from Item.Timeout
//   - [Actor] — restores the submitting identity into the context
//   - [Metrics] — OTel histogram + counter per dispatch
//   - [Tracing] — OTel span per dispatch
package middleware
