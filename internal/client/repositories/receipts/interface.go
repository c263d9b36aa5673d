package receipts

import (
	"context"

	"github.com/mkalvans/deductsync/internal/client/models"
)

// Repository describes the local receipt collection. Receipts are scoped to
// an owner indirectly through their parent donation; eviction clears the
// whole collection, mirroring how the cache treats attachments.
type Repository interface {
	// CreateOrUpdate upserts a receipt by id.
	CreateOrUpdate(ctx context.Context, rec *models.Receipt) error

	// GetByID returns one receipt, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Receipt, error)

	// ListByDonation returns a donation's receipts ordered by upload time.
	ListByDonation(ctx context.Context, donationID string) ([]models.Receipt, error)

	// SetServerID stamps the server-assigned id after a confirmed upload.
	SetServerID(ctx context.Context, id, serverID string) error

	// Reparent points receipts of one donation id at another, used when the
	// server assigns the parent a different id.
	Reparent(ctx context.Context, oldDonationID, newDonationID string) error

	// DeleteByID removes one receipt row.
	DeleteByID(ctx context.Context, id string) error

	// DeleteConfirmed removes server-confirmed receipts only, preserving
	// unconfirmed ones that still await delivery.
	DeleteConfirmed(ctx context.Context) error

	// DeleteAll evicts the whole collection.
	DeleteAll(ctx context.Context) error
}
