package charities

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

// CreateOrUpdate upserts a charity cache row wholesale. cached_at is stored
// as unix seconds.
func (r *SQLiteRepository) CreateOrUpdate(ctx context.Context, c *models.Charity) error {
	query := `INSERT INTO charities (id, owner_id, name, ein, category, city, state, cached_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				ein = excluded.ein,
				category = excluded.category,
				city = excluded.city,
				state = excluded.state,
				cached_at = excluded.cached_at
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.Name, c.EIN, c.Category, c.City, c.State, c.CachedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert charity: %w", err)
	}
	return nil
}

const charityColumns = `id, owner_id, name, ein, category, city, state, cached_at`

func scanCharity(scan func(dest ...any) error) (*models.Charity, error) {
	var c models.Charity
	var cachedAt int64
	err := scan(&c.ID, &c.OwnerID, &c.Name, &c.EIN, &c.Category, &c.City, &c.State, &cachedAt)
	if err != nil {
		return nil, err
	}
	c.CachedAt = time.Unix(cachedAt, 0).UTC()
	return &c, nil
}

// GetByID returns a single cached charity scoped to the owner.
func (r *SQLiteRepository) GetByID(ctx context.Context, ownerID, id string) (*models.Charity, error) {
	query := `SELECT ` + charityColumns + ` FROM charities WHERE owner_id = ? AND id = ?`
	row := r.db.QueryRowContext(ctx, query, ownerID, id)

	c, err := scanCharity(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get charity: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) queryCharities(ctx context.Context, query string, args ...any) ([]models.Charity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select charities: %w", err)
	}
	defer rows.Close()

	var result []models.Charity
	for rows.Next() {
		c, err := scanCharity(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListByOwner lists the owner's cached charities by name.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Charity, error) {
	query := `SELECT ` + charityColumns + ` FROM charities WHERE owner_id = ? ORDER BY name`
	return r.queryCharities(ctx, query, ownerID)
}

// SearchByName filters the owner's cache by a case-insensitive substring.
func (r *SQLiteRepository) SearchByName(ctx context.Context, ownerID, q string) ([]models.Charity, error) {
	query := `SELECT ` + charityColumns + ` FROM charities
			WHERE owner_id = ? AND name LIKE '%' || ? || '%' COLLATE NOCASE ORDER BY name`
	return r.queryCharities(ctx, query, ownerID, q)
}

// DeleteByID removes one cache row.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, ownerID, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM charities WHERE owner_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to delete charity: %w", err)
	}
	return nil
}

// DeleteAllByOwner evicts the owner's whole charity cache.
func (r *SQLiteRepository) DeleteAllByOwner(ctx context.Context, ownerID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM charities WHERE owner_id = ?`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to evict charities: %w", err)
	}
	return nil
}
