// Package source defines where listings come from. The sync engine only needs
// to enumerate the full catalog; the richer CRUD surface exists for the HTTP
// management endpoints and tooling that maintain the catalog itself.
package source

import (
	"context"

	"github.com/artisan-point/listingsearch/internal/models"
)

// Source enumerates the listing catalog for sync and change detection.
type Source interface {
	// ListAll returns every listing in the catalog.
	ListAll(ctx context.Context) ([]*models.Listing, error)

	// Count returns the total number of listings.
	Count(ctx context.Context) (int64, error)

	Close() error
}

// Catalog extends Source with the write operations used by the management
// endpoints. The sync engine itself never mutates the catalog.
type Catalog interface {
	Source

	CreateListing(ctx context.Context, doc *models.Listing) error
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	UpdateListing(ctx context.Context, doc *models.Listing) error
	DeleteListing(ctx context.Context, id string) error
}
