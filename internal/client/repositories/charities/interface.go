package charities

import (
	"context"

	"github.com/mkalvans/deductsync/internal/client/models"
)

// Repository describes the owner-scoped charity cache. Rows carry a
// cached_at stamp; freshness interpretation is left to the caller
// (models.Charity.Fresh).
type Repository interface {
	// CreateOrUpdate upserts one charity cache row.
	CreateOrUpdate(ctx context.Context, c *models.Charity) error

	// GetByID returns one cached charity, or common.ErrorNotFound.
	GetByID(ctx context.Context, ownerID, id string) (*models.Charity, error)

	// ListByOwner returns the owner's cached charities ordered by name.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Charity, error)

	// SearchByName returns the owner's cached charities whose name contains
	// the query (case-insensitive), ordered by name.
	SearchByName(ctx context.Context, ownerID, q string) ([]models.Charity, error)

	// DeleteByID removes one cache row.
	DeleteByID(ctx context.Context, ownerID, id string) error

	// DeleteAllByOwner evicts the owner's whole charity cache.
	DeleteAllByOwner(ctx context.Context, ownerID string) error
}
