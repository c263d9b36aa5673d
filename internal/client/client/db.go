package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/mkalvans/deductsync/internal/client/migrations"
	"github.com/mkalvans/deductsync/internal/client/repositories/charities"
	"github.com/mkalvans/deductsync/internal/client/repositories/donations"
	"github.com/mkalvans/deductsync/internal/client/repositories/metadata"
	"github.com/mkalvans/deductsync/internal/client/repositories/outbox"
	"github.com/mkalvans/deductsync/internal/client/repositories/receipts"
	"github.com/mkalvans/deductsync/internal/common"
)

// SchemaVersion is the local-store schema generation the running client
// expects. A persisted mismatch at open time triggers the one-shot
// destructive reset.
const SchemaVersion = "1"

// Repositories bundles the local store handles shared by the services.
type Repositories struct {
	DB        *sql.DB
	Metadata  metadata.Repository
	Donations donations.Repository
	Charities charities.Repository
	Receipts  receipts.Repository
	Outbox    outbox.Repository
}

// migrateFn is a test seam for the goose migration run.
var migrateFn = runMigrations

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// openSchema migrates the store and verifies the persisted schema version.
func openSchema(ctx context.Context, db *sql.DB) error {
	if err := migrateFn(ctx, db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	meta := metadata.NewSQLiteRepository(db)
	v, err := meta.Get(ctx, common.MetadataKeySchemaVersion)
	if err != nil {
		return err
	}
	if v == nil {
		return meta.Set(ctx, common.MetadataKeySchemaVersion, []byte(SchemaVersion))
	}
	if string(v) != SchemaVersion {
		return fmt.Errorf("store is schema version %s, client expects %s", v, SchemaVersion)
	}
	return nil
}

// resetSchema destructively drops every table (including goose bookkeeping)
// so the store can be rebuilt from scratch.
func resetSchema(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range tables {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS "`+name+`"`); err != nil {
			return err
		}
	}
	return nil
}

// InitDatabase opens the local store at dsn, runs migrations and checks the
// schema guard. An incompatible or unmigratable store is destructively reset
// and reopened exactly once per call; if the store is still unusable after
// the reset, common.ErrSchemaIncompatible is returned and the caller must
// not retry.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := openSchema(ctx, db); err != nil {
		// One reset attempt per session, never a loop.
		if rerr := resetSchema(ctx, db); rerr != nil {
			db.Close()
			return nil, fmt.Errorf("%w: reset failed: %v (open error: %v)", common.ErrSchemaIncompatible, rerr, err)
		}
		if err := openSchema(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", common.ErrSchemaIncompatible, err)
		}
	}

	return &Repositories{
		DB:        db,
		Metadata:  metadata.NewSQLiteRepository(db),
		Donations: donations.NewSQLiteRepository(db),
		Charities: charities.NewSQLiteRepository(db),
		Receipts:  receipts.NewSQLiteRepository(db),
		Outbox:    outbox.NewSQLiteRepository(db),
	}, nil
}
