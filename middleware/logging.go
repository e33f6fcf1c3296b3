package middleware

import (
	"context"
	"log/slog"
	"time"

	automation "github.com/Pr0gCat/CodeHive-sub001"
)

// Logging returns middleware that logs item dispatch start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, item *automation.Item, next Handler) error {
		logger.Debug("item dispatched",
			slog.String("operation_id", item.OperationID.String()),
			slog.Int("item_index", item.Index),
			slog.String("action", string(item.Action)),
			slog.String("target_type", string(item.TargetType)),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("item failed",
				slog.String("operation_id", item.OperationID.String()),
				slog.Int("item_index", item.Index),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("item completed",
				slog.String("operation_id", item.OperationID.String()),
				slog.Int("item_index", item.Index),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
