// Package actor propagates the submitting identity (the createdBy field on
// batch operations) through context.Context. The batch manager captures the
// actor at submission time and restores it into the context each item
// executes under, so middleware and gateway implementations can attribute
// mutations without extra plumbing.
package actor

import "context"

type ctxKey struct{}

// With attaches an actor identity to the context. An empty actor returns
// the context unchanged.
func With(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, actor)
}

// From extracts the actor identity from the context.
// Returns an empty string if none is present.
func From(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}
