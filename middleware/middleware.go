// Package middleware provides composable middleware for batch item dispatch.
// Middleware wraps gateway calls synchronously and can modify execution
// (recover from panics, inject the actor, log, add tracing, etc.).
package middleware

import (
	"context"

	automation "github.com/Pr0gCat/CodeHive-sub001"
)

// Handler is the terminal function that executes the gateway call for one item.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the item being dispatched, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, item *automation.Item, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, actor) executes as:
//
//	logging → recover → actor → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, item *automation.Item, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, item, prev)
			}
		}
		return h(ctx)
	}
}
