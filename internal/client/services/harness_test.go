package services

import (
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/client/repositories/charities"
	"github.com/mkalvans/deductsync/internal/client/repositories/donations"
	"github.com/mkalvans/deductsync/internal/client/repositories/metadata"
	"github.com/mkalvans/deductsync/internal/client/repositories/outbox"
	"github.com/mkalvans/deductsync/internal/client/repositories/receipts"
	"github.com/mkalvans/deductsync/internal/common"
	"github.com/mkalvans/deductsync/internal/logging"

	_ "modernc.org/sqlite"
)

// stubClient implements client.Client with overridable behavior per method.
// A nil field means a benign default: Me answers as user u1, mutations
// succeed, listings are empty.
type stubClient struct {
	token string

	meFn              func(ctx context.Context) (*models.Profile, error)
	devLoginFn        func(ctx context.Context, username, password string) (string, error)
	logoutFn          func(ctx context.Context) error
	listDonationsFn   func(ctx context.Context, since string) ([]models.Donation, error)
	createDonationFn  func(ctx context.Context, d *models.Donation) (string, error)
	updateDonationFn  func(ctx context.Context, d *models.Donation) error
	deleteDonationFn  func(ctx context.Context, id string) error
	listCharitiesFn   func(ctx context.Context) ([]models.Charity, error)
	searchCharitiesFn func(ctx context.Context, q string) ([]models.Charity, error)
	lookupCharityFn   func(ctx context.Context, ein string) (*models.Charity, error)
	createCharityFn   func(ctx context.Context, c *models.Charity) (string, error)
	updateCharityFn   func(ctx context.Context, c *models.Charity) error
	deleteCharityFn   func(ctx context.Context, id string) error
	listReceiptsFn    func(ctx context.Context) ([]models.Receipt, error)
	requestUploadFn   func(ctx context.Context, fileType string) (*client.UploadSlot, error)
	uploadFn          func(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error
	confirmFn         func(ctx context.Context, req *client.ConfirmReceiptRequest) (string, error)
	presignFn         func(ctx context.Context, key string) (string, error)
}

func (c *stubClient) Close() error                   { return nil }
func (c *stubClient) Ping(ctx context.Context) error { return nil }
func (c *stubClient) SetToken(token string)          { c.token = token }
func (c *stubClient) Token() string                  { return c.token }

func (c *stubClient) Me(ctx context.Context) (*models.Profile, error) {
	if c.meFn != nil {
		return c.meFn(ctx)
	}
	return &models.Profile{ID: "u1"}, nil
}

func (c *stubClient) DevLogin(ctx context.Context, username, password string) (string, error) {
	if c.devLoginFn != nil {
		return c.devLoginFn(ctx, username, password)
	}
	return "test-token", nil
}

func (c *stubClient) Logout(ctx context.Context) error {
	if c.logoutFn != nil {
		return c.logoutFn(ctx)
	}
	return nil
}

func (c *stubClient) ListDonations(ctx context.Context, since string) ([]models.Donation, error) {
	if c.listDonationsFn != nil {
		return c.listDonationsFn(ctx, since)
	}
	return nil, nil
}

func (c *stubClient) CreateDonation(ctx context.Context, d *models.Donation) (string, error) {
	if c.createDonationFn != nil {
		return c.createDonationFn(ctx, d)
	}
	return d.ID, nil
}

func (c *stubClient) UpdateDonation(ctx context.Context, d *models.Donation) error {
	if c.updateDonationFn != nil {
		return c.updateDonationFn(ctx, d)
	}
	return nil
}

func (c *stubClient) DeleteDonation(ctx context.Context, id string) error {
	if c.deleteDonationFn != nil {
		return c.deleteDonationFn(ctx, id)
	}
	return nil
}

func (c *stubClient) ListCharities(ctx context.Context) ([]models.Charity, error) {
	if c.listCharitiesFn != nil {
		return c.listCharitiesFn(ctx)
	}
	return nil, nil
}

func (c *stubClient) SearchCharities(ctx context.Context, q string) ([]models.Charity, error) {
	if c.searchCharitiesFn != nil {
		return c.searchCharitiesFn(ctx, q)
	}
	return nil, nil
}

func (c *stubClient) LookupCharityByEIN(ctx context.Context, ein string) (*models.Charity, error) {
	if c.lookupCharityFn != nil {
		return c.lookupCharityFn(ctx, ein)
	}
	return nil, common.ErrorNotFound
}

func (c *stubClient) CreateCharity(ctx context.Context, ch *models.Charity) (string, error) {
	if c.createCharityFn != nil {
		return c.createCharityFn(ctx, ch)
	}
	return ch.ID, nil
}

func (c *stubClient) UpdateCharity(ctx context.Context, ch *models.Charity) error {
	if c.updateCharityFn != nil {
		return c.updateCharityFn(ctx, ch)
	}
	return nil
}

func (c *stubClient) DeleteCharity(ctx context.Context, id string) error {
	if c.deleteCharityFn != nil {
		return c.deleteCharityFn(ctx, id)
	}
	return nil
}

func (c *stubClient) ListReceipts(ctx context.Context) ([]models.Receipt, error) {
	if c.listReceiptsFn != nil {
		return c.listReceiptsFn(ctx)
	}
	return nil, nil
}

func (c *stubClient) RequestReceiptUpload(ctx context.Context, fileType string) (*client.UploadSlot, error) {
	if c.requestUploadFn != nil {
		return c.requestUploadFn(ctx, fileType)
	}
	return &client.UploadSlot{UploadURL: "http://s3.test/put", Key: "u1/r1.pdf"}, nil
}

func (c *stubClient) UploadReceipt(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error {
	if c.uploadFn != nil {
		return c.uploadFn(ctx, uploadURL, contentType, body, size)
	}
	_, err := io.Copy(io.Discard, body)
	return err
}

func (c *stubClient) ConfirmReceipt(ctx context.Context, req *client.ConfirmReceiptRequest) (string, error) {
	if c.confirmFn != nil {
		return c.confirmFn(ctx, req)
	}
	return "srv-receipt", nil
}

func (c *stubClient) PresignReceiptDownload(ctx context.Context, key string) (string, error) {
	if c.presignFn != nil {
		return c.presignFn(ctx, key)
	}
	return "http://s3.test/get/" + key, nil
}

func (c *stubClient) ExportCSV(ctx context.Context, year int) ([]byte, error) { return nil, nil }

const testSchema = `
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
CREATE TABLE charities (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  ein TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  cached_at INTEGER NOT NULL
);
CREATE TABLE receipts (
  id TEXT PRIMARY KEY,
  donation_id TEXT NOT NULL,
  server_id TEXT NOT NULL DEFAULT '',
  key TEXT NOT NULL,
  file_name TEXT NOT NULL DEFAULT '',
  content_type TEXT NOT NULL DEFAULT '',
  size INTEGER NOT NULL DEFAULT 0,
  uploaded_at TEXT NOT NULL
);
CREATE TABLE outbox (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  owner_id TEXT NOT NULL,
  tbl TEXT NOT NULL,
  item_id TEXT NOT NULL,
  action TEXT NOT NULL,
  enqueued_at INTEGER NOT NULL
);
CREATE TABLE metadata (
  key TEXT PRIMARY KEY,
  value BLOB
);
`

func setupRepos(t *testing.T) *client.Repositories {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return &client.Repositories{
		DB:        db,
		Metadata:  metadata.NewSQLiteRepository(db),
		Donations: donations.NewSQLiteRepository(db),
		Charities: charities.NewSQLiteRepository(db),
		Receipts:  receipts.NewSQLiteRepository(db),
		Outbox:    outbox.NewSQLiteRepository(db),
	}
}

// newTestStack wires a session and sync service over a fresh store with the
// identity marker set to u1.
func newTestStack(t *testing.T, api client.Client) (*client.Repositories, *SessionService, *SyncService) {
	t.Helper()
	repos := setupRepos(t)
	log := logging.NewDefault()
	sess := NewSessionService(api, repos.Metadata, log)
	sync := NewSyncService(api, repos, sess, log)
	require.NoError(t, repos.Metadata.Set(context.Background(), common.MetadataKeyOwner, []byte("u1")))
	return repos, sess, sync
}
