package outbox

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkalvans/deductsync/internal/client/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE outbox (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  owner_id TEXT NOT NULL,
  tbl TEXT NOT NULL,
  item_id TEXT NOT NULL,
  action TEXT NOT NULL,
  enqueued_at INTEGER NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func TestAppend_AssignsFIFOIds(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	e1 := models.NewOutboxEntry("u1", models.TableDonations, "d1", models.ActionCreate)
	e2 := models.NewOutboxEntry("u1", models.TableDonations, "d1", models.ActionUpdate)
	require.NoError(t, r.Append(ctx, e1))
	require.NoError(t, r.Append(ctx, e2))

	assert.Greater(t, e2.ID, e1.ID)

	list, err := r.ListPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.ActionCreate, list[0].Action)
	assert.Equal(t, models.ActionUpdate, list[1].Action)
}

func TestListPending_OwnerScoped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Append(ctx, models.NewOutboxEntry("u1", models.TableDonations, "d1", models.ActionCreate)))
	require.NoError(t, r.Append(ctx, models.NewOutboxEntry("u2", models.TableDonations, "d2", models.ActionCreate)))

	list, err := r.ListPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "d1", list[0].ItemID)
}

func TestRemove_And_HasEntryForItem(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	e := models.NewOutboxEntry("u1", models.TableDonations, "d1", models.ActionCreate)
	require.NoError(t, r.Append(ctx, e))

	has, err := r.HasEntryForItem(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, r.Remove(ctx, e.ID))

	has, err = r.HasEntryForItem(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRewriteItemID_PreservesOrder(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Append(ctx, models.NewOutboxEntry("u1", models.TableDonations, "tmp", models.ActionUpdate)))
	require.NoError(t, r.Append(ctx, models.NewOutboxEntry("u1", models.TableReceipts, "r1", models.ActionCreate)))

	require.NoError(t, r.RewriteItemID(ctx, "u1", "tmp", "srv-1"))

	list, err := r.ListPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "srv-1", list[0].ItemID)
	assert.Equal(t, "r1", list[1].ItemID)
}

func TestDeleteAllByOwner(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Append(ctx, models.NewOutboxEntry("u1", models.TableDonations, "d1", models.ActionCreate)))
	require.NoError(t, r.Append(ctx, models.NewOutboxEntry("u2", models.TableDonations, "d2", models.ActionCreate)))

	require.NoError(t, r.DeleteAllByOwner(ctx, "u1"))

	list, err := r.ListPending(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = r.ListPending(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
