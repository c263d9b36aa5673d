package client

import (
	"context"
	"io"

	"github.com/mkalvans/deductsync/internal/client/models"
)

// UploadSlot is the server's answer to an upload request: a pre-signed URL
// to PUT the bytes to and the storage key the upload will live under.
type UploadSlot struct {
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
}

// ConfirmReceiptRequest persists receipt metadata server-side after the
// binary upload succeeded.
type ConfirmReceiptRequest struct {
	Key         string `json:"key"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	DonationID  string `json:"donation_id"`
}

// Client is the remote API surface consumed by the sync engine. The server
// is a black box behind this interface; implementations map transport
// failures onto the sentinel errors in this package.
type Client interface {
	Close() error

	// Ping checks server liveness.
	Ping(ctx context.Context) error

	// DevLogin exchanges credentials for a bearer token.
	DevLogin(ctx context.Context, username, password string) (string, error)

	// Logout invalidates the server-side session.
	Logout(ctx context.Context) error

	// Me verifies the session and returns the profile, ErrUnauthorized on an
	// explicit negative, ErrRateLimited on 429.
	Me(ctx context.Context) (*models.Profile, error)

	// SetToken installs the bearer token used on subsequent requests.
	SetToken(token string)

	// Token returns the currently installed bearer token.
	Token() string

	// ListDonations fetches the caller's donations; a non-empty since
	// requests an incremental listing.
	ListDonations(ctx context.Context, since string) ([]models.Donation, error)
	CreateDonation(ctx context.Context, d *models.Donation) (string, error)
	UpdateDonation(ctx context.Context, d *models.Donation) error
	DeleteDonation(ctx context.Context, id string) error

	ListCharities(ctx context.Context) ([]models.Charity, error)
	SearchCharities(ctx context.Context, q string) ([]models.Charity, error)
	LookupCharityByEIN(ctx context.Context, ein string) (*models.Charity, error)
	CreateCharity(ctx context.Context, c *models.Charity) (string, error)
	UpdateCharity(ctx context.Context, c *models.Charity) error
	// DeleteCharity returns ErrConflict when the charity is still referenced
	// by donations.
	DeleteCharity(ctx context.Context, id string) error

	ListReceipts(ctx context.Context) ([]models.Receipt, error)
	RequestReceiptUpload(ctx context.Context, fileType string) (*UploadSlot, error)
	// UploadReceipt performs the direct binary PUT to the pre-signed target.
	UploadReceipt(ctx context.Context, uploadURL, contentType string, body io.Reader, size int64) error
	// ConfirmReceipt returns the server-assigned receipt id.
	ConfirmReceipt(ctx context.Context, req *ConfirmReceiptRequest) (string, error)
	PresignReceiptDownload(ctx context.Context, key string) (string, error)

	// ExportCSV is a pass-through download of the yearly report.
	ExportCSV(ctx context.Context, year int) ([]byte, error)
}
