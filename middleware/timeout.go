package middleware

import (
	"context"
	"log/slog"

	automation "github.com/Pr0gCat/CodeHive-sub001"
)

// Timeout returns middleware that enforces a per-item execution deadline.
// If the item has a non-zero Timeout, a context.WithTimeout wraps the
// gateway call. When the deadline is exceeded the context is cancelled and
// the gateway should return context.DeadlineExceeded.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, item *automation.Item, next Handler) error {
		if item.Timeout > 0 {
			logger.Debug("item timeout set",
				slog.String("operation_id", item.OperationID.String()),
				slog.Int("item_index", item.Index),
				slog.Duration("timeout", item.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, item.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
