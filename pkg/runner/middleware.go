package runner

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/springjools/ombibot/pkg/domain"
)

// Handler turns one inbound event into outbound effects.
// *runtime.Engine satisfies it.
type Handler interface {
	Handle(ctx context.Context, ev domain.Event) ([]domain.Effect, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev domain.Event) ([]domain.Effect, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
	return f(ctx, ev)
}

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Chain applies middlewares so that the first one is the outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// RecoverMiddleware turns a panicking handler into an error for that event,
// keeping the lane alive for the user's next event.
func RecoverMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, ev domain.Event) (effects []domain.Effect, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Handler panicked",
						"event_id", ev.ID,
						"user_id", ev.UserID,
						"panic", r,
						"stack", string(debug.Stack()),
					)
					effects, err = nil, fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next.Handle(ctx, ev)
		})
	}
}

// LoggingMiddleware logs each handled event with its duration.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, ev domain.Event) ([]domain.Effect, error) {
			start := time.Now()
			effects, err := next.Handle(ctx, ev)
			attrs := []any{
				"event_id", ev.ID,
				"user_id", ev.UserID,
				"kind", ev.Kind,
				"effects", len(effects),
				"duration", time.Since(start).String(),
			}
			if err != nil {
				logger.Error("Event failed", append(attrs, "err", err)...)
			} else {
				logger.Debug("Event handled", attrs...)
			}
			return effects, err
		})
	}
}
