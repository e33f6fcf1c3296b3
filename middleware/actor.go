package middleware

import (
	"context"

	automation "github.com/Pr0gCat/CodeHive-sub001"
	"github.com/Pr0gCat/CodeHive-sub001/actor"
)

// Actor returns middleware that restores the item's submitting identity
// into the context before the gateway call, so downstream code can
// attribute the mutation.
func Actor() Middleware {
	return func(ctx context.Context, item *automation.Item, next Handler) error {
		return next(actor.With(ctx, item.Actor))
	}
}
