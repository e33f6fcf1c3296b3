package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	automation "github.com/Pr0gCat/CodeHive-sub001"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace, so one bad
// payload cannot take down the whole worker pool.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, item *automation.Item, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("item handler panicked",
					slog.String("operation_id", item.OperationID.String()),
					slog.Int("item_index", item.Index),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic dispatching item %d of %s: %v", item.Index, item.OperationID, r)
			}
		}()
		return next(ctx)
	}
}
