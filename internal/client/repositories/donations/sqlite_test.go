package donations

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE donations (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  year INTEGER NOT NULL,
  date TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT 'money',
  amount REAL NOT NULL DEFAULT 0,
  charity_id TEXT NOT NULL DEFAULT '',
  charity_name TEXT NOT NULL DEFAULT '',
  notes TEXT NOT NULL DEFAULT '',
  sync_status TEXT NOT NULL DEFAULT 'pending',
  created_at TEXT NOT NULL DEFAULT '',
  updated_at TEXT NOT NULL DEFAULT ''
);
`)
	require.NoError(t, err)
	return db
}

func testDonation(owner, id string) *models.Donation {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Donation{
		ID: id, OwnerID: owner, Year: 2026, Date: "2026-03-01",
		Category: "money", Amount: 50, CharityID: "c1", CharityName: "Goodwill",
		SyncStatus: models.StatusPending, CreatedAt: now, UpdatedAt: now,
	}
}

func TestCreateOrUpdate_InsertAndUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	d := testDonation("u1", "d1")
	require.NoError(t, r.CreateOrUpdate(ctx, d))

	got, err := r.GetByID(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Amount)
	assert.Equal(t, models.StatusPending, got.SyncStatus)

	// upsert with new amount
	d.Amount = 75
	d.SyncStatus = models.StatusSynced
	require.NoError(t, r.CreateOrUpdate(ctx, d))

	got, err = r.GetByID(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.Equal(t, 75.0, got.Amount)
	assert.Equal(t, models.StatusSynced, got.SyncStatus)
}

func TestGetByID_OwnerScoped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, testDonation("u1", "d1")))

	_, err := r.GetByID(ctx, "u2", "d1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestListByOwner_OrderAndIsolation(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	a := testDonation("u1", "d1")
	a.Date = "2026-01-15"
	b := testDonation("u1", "d2")
	b.Date = "2026-02-20"
	other := testDonation("u2", "d3")
	require.NoError(t, r.CreateOrUpdate(ctx, a))
	require.NoError(t, r.CreateOrUpdate(ctx, b))
	require.NoError(t, r.CreateOrUpdate(ctx, other))

	list, err := r.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d2", list[0].ID)
	assert.Equal(t, "d1", list[1].ID)
}

func TestSetSyncStatus(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, testDonation("u1", "d1")))
	require.NoError(t, r.SetSyncStatus(ctx, "u1", "d1", models.StatusSynced))

	got, err := r.GetByID(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, got.SyncStatus)

	assert.ErrorIs(t, r.SetSyncStatus(ctx, "u1", "missing", models.StatusSynced), common.ErrorNotFound)
}

func TestRename(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, testDonation("u1", "tmp")))
	require.NoError(t, r.Rename(ctx, "u1", "tmp", "srv-1"))

	_, err := r.GetByID(ctx, "u1", "tmp")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err := r.GetByID(ctx, "u1", "srv-1")
	require.NoError(t, err)
	assert.Equal(t, 50.0, got.Amount)
}

func TestDeleteAllByOwner(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.CreateOrUpdate(ctx, testDonation("u1", "d1")))
	require.NoError(t, r.CreateOrUpdate(ctx, testDonation("u2", "d2")))

	require.NoError(t, r.DeleteAllByOwner(ctx, "u1"))

	list, err := r.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = r.ListByOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteSyncedByOwner_SparesPending(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	pending := testDonation("u1", "d1")
	synced := testDonation("u1", "d2")
	synced.SyncStatus = models.StatusSynced
	require.NoError(t, r.CreateOrUpdate(ctx, pending))
	require.NoError(t, r.CreateOrUpdate(ctx, synced))

	require.NoError(t, r.DeleteSyncedByOwner(ctx, "u1"))

	_, err := r.GetByID(ctx, "u1", "d1")
	require.NoError(t, err)
	_, err = r.GetByID(ctx, "u1", "d2")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCountByStatus(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	d1 := testDonation("u1", "d1")
	d2 := testDonation("u1", "d2")
	d2.SyncStatus = models.StatusSynced
	require.NoError(t, r.CreateOrUpdate(ctx, d1))
	require.NoError(t, r.CreateOrUpdate(ctx, d2))

	n, err := r.CountByStatus(ctx, "u1", models.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
