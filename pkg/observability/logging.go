package observability

import (
	"context"
	"log/slog"

	"github.com/springjools/ombibot/pkg/domain"
)

// LoggingHooks logs transitions at debug and catalog failures at warn.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Debug("transition",
				"event_id", e.EventID,
				"user_id", e.UserID,
				"from", e.From,
				"to", e.To,
				"trigger", e.Trigger,
			)
		},
		OnCatalogCall: func(ctx context.Context, e *domain.CatalogEvent) {
			if e.Err != nil {
				logger.Warn("catalog_call", "op", e.Op, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.Debug("catalog_call", "op", e.Op, "duration", e.Duration)
		},
		OnSessionEvicted: func(ctx context.Context, userID string) {
			logger.Info("session_evicted", "user_id", userID)
		},
	}
}
