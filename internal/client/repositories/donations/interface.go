package donations

import (
	"context"

	"github.com/mkalvans/deductsync/internal/client/models"
)

// Repository describes owner-scoped CRUD and query operations for donations.
// Implementations are backed by the local SQLite database. Every read and
// write is scoped to an owner id; rows belonging to other owners are never
// visible through this interface.
type Repository interface {
	// CreateOrUpdate upserts a donation by id.
	CreateOrUpdate(ctx context.Context, d *models.Donation) error

	// GetByID returns one donation, or common.ErrorNotFound.
	GetByID(ctx context.Context, ownerID, id string) (*models.Donation, error)

	// ListByOwner returns the owner's donations ordered by date descending.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Donation, error)

	// DeleteByID removes a donation row.
	DeleteByID(ctx context.Context, ownerID, id string) error

	// SetSyncStatus flips a donation's sync status.
	SetSyncStatus(ctx context.Context, ownerID, id string, status models.SyncStatus) error

	// Rename rewrites a donation's id after the server assigned a different
	// one, preserving the row.
	Rename(ctx context.Context, ownerID, oldID, newID string) error

	// DeleteAllByOwner evicts every donation belonging to the owner.
	DeleteAllByOwner(ctx context.Context, ownerID string) error

	// DeleteSyncedByOwner removes the owner's synced donations only,
	// sparing pending rows that still have queued mutations.
	DeleteSyncedByOwner(ctx context.Context, ownerID string) error

	// CountByStatus counts the owner's donations with the given status.
	CountByStatus(ctx context.Context, ownerID string, status models.SyncStatus) (int, error)
}
