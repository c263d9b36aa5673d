package receipts

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

// CreateOrUpdate upserts a receipt by id.
func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, rec *models.Receipt) error {
	query := `INSERT INTO receipts (id, donation_id, server_id, key, file_name, content_type, size, uploaded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				donation_id = excluded.donation_id,
				server_id = excluded.server_id,
				key = excluded.key,
				file_name = excluded.file_name,
				content_type = excluded.content_type,
				size = excluded.size,
				uploaded_at = excluded.uploaded_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.DonationID, rec.ServerID, rec.Key, rec.FileName, rec.ContentType, rec.Size,
		rec.UploadedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert receipt: %w", err)
	}
	return nil
}

func scanReceipt(scan func(dest ...any) error) (*models.Receipt, error) {
	var rec models.Receipt
	var uploadedAt string
	err := scan(&rec.ID, &rec.DonationID, &rec.ServerID, &rec.Key, &rec.FileName, &rec.ContentType, &rec.Size, &uploadedAt)
	if err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, uploadedAt); err == nil {
		rec.UploadedAt = t
	}
	return &rec, nil
}

const receiptColumns = `id, donation_id, server_id, key, file_name, content_type, size, uploaded_at`

// GetByID returns one receipt.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Receipt, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = ?`, id)

	rec, err := scanReceipt(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return rec, nil
}

// ListByDonation returns a donation's receipts, oldest upload first.
func (r *SQLiteRepository) ListByDonation(ctx context.Context, donationID string) ([]models.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE donation_id = ? ORDER BY uploaded_at, id`, donationID)
	if err != nil {
		return nil, fmt.Errorf("failed to select receipts: %w", err)
	}
	defer rows.Close()

	var result []models.Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetServerID stamps the server id onto a confirmed receipt.
func (r *SQLiteRepository) SetServerID(ctx context.Context, id, serverID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE receipts SET server_id = ? WHERE id = ?`, serverID, id)
	if err != nil {
		return fmt.Errorf("failed to set server id: %w", err)
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

// Reparent rewrites the donation id on all receipts of one donation.
func (r *SQLiteRepository) Reparent(ctx context.Context, oldDonationID, newDonationID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE receipts SET donation_id = ? WHERE donation_id = ?`, newDonationID, oldDonationID)
	if err != nil {
		return fmt.Errorf("failed to reparent receipts: %w", err)
	}
	return nil
}

// DeleteByID removes one receipt row.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}

// DeleteConfirmed removes every server-confirmed receipt, leaving
// unconfirmed ones (those with a live queue entry) in place.
func (r *SQLiteRepository) DeleteConfirmed(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM receipts WHERE server_id != ''`)
	if err != nil {
		return fmt.Errorf("failed to evict confirmed receipts: %w", err)
	}
	return nil
}

// DeleteAll evicts the whole receipt collection.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM receipts`)
	if err != nil {
		return fmt.Errorf("failed to evict receipts: %w", err)
	}
	return nil
}
