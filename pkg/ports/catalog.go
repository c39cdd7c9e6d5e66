package ports

import (
	"context"

	"github.com/springjools/ombibot/pkg/domain"
)

// CatalogClient is the catalog/request service the engine depends on.
// Failures are *domain.CatalogError values; an empty list is not a failure.
// Result order is the service's order and must be preserved.
type CatalogClient interface {
	SearchByTitle(ctx context.Context, query string) ([]domain.CatalogItem, error)
	SearchByContributor(ctx context.Context, query string) ([]domain.CatalogItem, error)
	FetchDetail(ctx context.Context, id domain.ItemID) (domain.CatalogItem, error)
	FindSimilar(ctx context.Context, id domain.ItemID) ([]domain.CatalogItem, error)
	// SubmitRequest asks for id on behalf of account and returns the service's message.
	SubmitRequest(ctx context.Context, id domain.ItemID, account string) (string, error)
}
