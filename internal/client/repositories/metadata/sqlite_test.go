package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB)`)
	require.NoError(t, err)
	return db
}

func TestGetSetDelete(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	got, err := r.Get(ctx, "owner_id")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.Set(ctx, "owner_id", []byte("u1")))
	require.NoError(t, r.Set(ctx, "owner_id", []byte("u2")))

	got, err = r.Get(ctx, "owner_id")
	require.NoError(t, err)
	assert.Equal(t, []byte("u2"), got)

	require.NoError(t, r.Delete(ctx, "owner_id"))
	got, err = r.Get(ctx, "owner_id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteByPrefix(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "last_pull:u1", []byte("t1")))
	require.NoError(t, r.Set(ctx, "last_pull:u2", []byte("t2")))
	require.NoError(t, r.Set(ctx, "schema_version", []byte("1")))

	require.NoError(t, r.DeleteByPrefix(ctx, "last_pull:"))

	got, err := r.Get(ctx, "last_pull:u1")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = r.Get(ctx, "schema_version")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)
}
