package outbox

import (
	"context"

	"github.com/mkalvans/deductsync/internal/client/models"
)

// Repository describes the pending-change queue. Entries are appended by the
// same transaction that performs an optimistic local write and removed only
// after the push reconciler confirms delivery. The autoincrement id is the
// FIFO sort key: per item, a create is always replayed before its updates.
type Repository interface {
	// Append adds one entry and fills in its assigned id.
	Append(ctx context.Context, e *models.OutboxEntry) error

	// ListPending returns the owner's queued entries in FIFO order.
	ListPending(ctx context.Context, ownerID string) ([]models.OutboxEntry, error)

	// Remove deletes one entry after its mutation was confirmed.
	Remove(ctx context.Context, id int64) error

	// HasEntryForItem reports whether any live entry references the item.
	HasEntryForItem(ctx context.Context, ownerID, itemID string) (bool, error)

	// RewriteItemID repoints queued entries at a new item id after the server
	// assigned one, preserving entry order.
	RewriteItemID(ctx context.Context, ownerID, oldItemID, newItemID string) error

	// DeleteAllByOwner evicts the owner's queue.
	DeleteAllByOwner(ctx context.Context, ownerID string) error
}
