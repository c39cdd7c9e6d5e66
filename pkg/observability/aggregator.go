package observability

import (
	"context"

	"github.com/springjools/ombibot/pkg/domain"
)

// Aggregate combines several hook sets into one that calls each in order.
func Aggregate(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		out.OnTransition = chainTransition(out.OnTransition, h.OnTransition)
		out.OnCatalogCall = chainCatalog(out.OnCatalogCall, h.OnCatalogCall)
		out.OnSessionEvicted = chainEvicted(out.OnSessionEvicted, h.OnSessionEvicted)
	}
	return out
}

func chainTransition(a, b func(context.Context, *domain.TransitionEvent)) func(context.Context, *domain.TransitionEvent) {
	if a == nil || b == nil {
		if a == nil {
			return b
		}
		return a
	}
	return func(ctx context.Context, e *domain.TransitionEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainCatalog(a, b func(context.Context, *domain.CatalogEvent)) func(context.Context, *domain.CatalogEvent) {
	if a == nil || b == nil {
		if a == nil {
			return b
		}
		return a
	}
	return func(ctx context.Context, e *domain.CatalogEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainEvicted(a, b func(context.Context, string)) func(context.Context, string) {
	if a == nil || b == nil {
		if a == nil {
			return b
		}
		return a
	}
	return func(ctx context.Context, userID string) {
		a(ctx, userID)
		b(ctx, userID)
	}
}
