package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/springjools/ombibot/pkg/domain"
	"github.com/springjools/ombibot/pkg/menu"
)

// Catalog operation names, as reported to hooks and logs.
const (
	opSearchTitle       = "search_title"
	opSearchContributor = "search_contributor"
	opFetchDetail       = "fetch_detail"
	opFindSimilar       = "find_similar"
	opSubmitRequest     = "submit_request"
)

// search runs the catalog query that produced a results list.
// Repeated records are dropped so the count matches the buttons shown.
func (e *Engine) search(ctx context.Context, s domain.Search) ([]domain.CatalogItem, error) {
	var (
		items []domain.CatalogItem
		err   error
	)
	switch s.Mode {
	case domain.SearchContributor:
		items, err = callCatalog(ctx, e, opSearchContributor, func(ctx context.Context) ([]domain.CatalogItem, error) {
			return e.catalog.SearchByContributor(ctx, s.Query)
		})
	case domain.SearchSimilar:
		items, err = callCatalog(ctx, e, opFindSimilar, func(ctx context.Context) ([]domain.CatalogItem, error) {
			return e.catalog.FindSimilar(ctx, s.ItemID)
		})
	default:
		items, err = callCatalog(ctx, e, opSearchTitle, func(ctx context.Context) ([]domain.CatalogItem, error) {
			return e.catalog.SearchByTitle(ctx, s.Query)
		})
	}
	if err != nil {
		return nil, err
	}
	return menu.Unique(items), nil
}

// callCatalog runs fn under the request timeout, reports it to hooks and
// classifies stray errors so callers only ever see *domain.CatalogError.
func callCatalog[T any](ctx context.Context, e *Engine, op string, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	start := e.now()
	result, err := fn(callCtx)
	if err != nil {
		err = classify(op, err)
	}

	if e.hooks.OnCatalogCall != nil {
		e.hooks.OnCatalogCall(ctx, &domain.CatalogEvent{
			Timestamp: start,
			Op:        op,
			Duration:  e.now().Sub(start),
			Err:       err,
		})
	}
	return result, err
}

func classify(op string, err error) error {
	var ce *domain.CatalogError
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewTransportError(op, err)
	}
	return domain.NewProtocolError(op, 0, fmt.Errorf("unclassified failure: %w", err))
}
