package donations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/common"
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

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateOrUpdate upserts a donation by id. On conflict all mutable columns
// are replaced.
func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, d *models.Donation) error {
	query := `INSERT INTO donations (id, owner_id, year, date, category, amount, charity_id, charity_name, notes, sync_status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				year = excluded.year,
				date = excluded.date,
				category = excluded.category,
				amount = excluded.amount,
				charity_id = excluded.charity_id,
				charity_name = excluded.charity_name,
				notes = excluded.notes,
				sync_status = excluded.sync_status,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.OwnerID, d.Year, d.Date, d.Category, d.Amount, d.CharityID, d.CharityName, d.Notes,
		string(d.SyncStatus), formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert donation: %w", err)
	}
	return nil
}

const donationColumns = `id, owner_id, year, date, category, amount, charity_id, charity_name, notes, sync_status, created_at, updated_at`

func scanDonation(scan func(dest ...any) error) (*models.Donation, error) {
	var d models.Donation
	var status, createdAt, updatedAt string
	err := scan(&d.ID, &d.OwnerID, &d.Year, &d.Date, &d.Category, &d.Amount,
		&d.CharityID, &d.CharityName, &d.Notes, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.SyncStatus = models.SyncStatus(status)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

// GetByID returns a single donation scoped to the owner.
func (r *SQLiteRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE owner_id = ? AND id = ?`
	row := r.db.QueryRowContext(ctx, query, ownerID, id)

	d, err := scanDonation(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}
	return d, nil
}

// ListByOwner lists the owner's donations, newest date first.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE owner_id = ? ORDER BY date DESC, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select donations: %w", err)
	}
	defer rows.Close()

	var result []models.Donation
	for rows.Next() {
		d, err := scanDonation(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteByID removes one donation row.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, ownerID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM donations WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete donation: %w", err)
	}
	return nil
}

// SetSyncStatus flips the status of one donation.
func (r *SQLiteRepository) SetSyncStatus(ctx context.Context, ownerID, id string, status models.SyncStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE donations SET sync_status = ? WHERE owner_id = ? AND id = ?`,
		string(status), ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to set sync status: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Rename rewrites a donation's primary key in place.
func (r *SQLiteRepository) Rename(ctx context.Context, ownerID, oldID, newID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE donations SET id = ? WHERE owner_id = ? AND id = ?`, newID, ownerID, oldID)
	if err != nil {
		return fmt.Errorf("failed to rename donation: %w", err)
	}
	return nil
}

// DeleteAllByOwner evicts the owner's whole donation collection.
func (r *SQLiteRepository) DeleteAllByOwner(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM donations WHERE owner_id = ?`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to evict donations: %w", err)
	}
	return nil
}

// DeleteSyncedByOwner removes the owner's synced donations, leaving pending
// ones (those with queued mutations) in place.
func (r *SQLiteRepository) DeleteSyncedByOwner(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM donations WHERE owner_id = ? AND sync_status = ?`,
		ownerID, string(models.StatusSynced))
	if err != nil {
		return fmt.Errorf("failed to evict synced donations: %w", err)
	}
	return nil
}

// CountByStatus counts the owner's donations carrying the given status.
func (r *SQLiteRepository) CountByStatus(ctx context.Context, ownerID string, status models.SyncStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM donations WHERE owner_id = ? AND sync_status = ?`,
		ownerID, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count donations: %w", err)
	}
	return n, nil
}
