package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts one entry and stores the assigned rowid back into e.ID.
func (r *SQLiteRepository) Append(ctx context.Context, e *models.OutboxEntry) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO outbox (owner_id, tbl, item_id, action, enqueued_at) VALUES (?, ?, ?, ?, ?)`,
		e.OwnerID, string(e.Table), e.ItemID, string(e.Action), e.EnqueuedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to append outbox entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get outbox entry id: %w", err)
	}
	e.ID = id
	return nil
}

// ListPending returns the owner's entries, oldest first.
func (r *SQLiteRepository) ListPending(ctx context.Context, ownerID string) ([]models.OutboxEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, tbl, item_id, action, enqueued_at FROM outbox WHERE owner_id = ? ORDER BY id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select outbox entries: %w", err)
	}
	defer rows.Close()

	var result []models.OutboxEntry
	for rows.Next() {
		var e models.OutboxEntry
		var tbl, action string
		var enqueuedAt int64
		if err := rows.Scan(&e.ID, &e.OwnerID, &tbl, &e.ItemID, &action, &enqueuedAt); err != nil {
			return nil, err
		}
		e.Table = models.Table(tbl)
		e.Action = models.Action(action)
		e.EnqueuedAt = time.Unix(enqueuedAt, 0).UTC()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Remove deletes one confirmed entry.
func (r *SQLiteRepository) Remove(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove outbox entry: %w", err)
	}
	return nil
}

// HasEntryForItem reports whether the item still has a live queue entry.
func (r *SQLiteRepository) HasEntryForItem(ctx context.Context, ownerID, itemID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox WHERE owner_id = ? AND item_id = ?`, ownerID, itemID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count outbox entries: %w", err)
	}
	return n > 0, nil
}

// RewriteItemID repoints queued entries at a new item id.
func (r *SQLiteRepository) RewriteItemID(ctx context.Context, ownerID, oldItemID, newItemID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET item_id = ? WHERE owner_id = ? AND item_id = ?`, newItemID, ownerID, oldItemID)
	if err != nil {
		return fmt.Errorf("failed to rewrite outbox item id: %w", err)
	}
	return nil
}

// DeleteAllByOwner evicts the owner's queue.
func (r *SQLiteRepository) DeleteAllByOwner(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE owner_id = ?`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to evict outbox: %w", err)
	}
	return nil
}
