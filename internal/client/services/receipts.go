package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/logging"
)

// ReceiptService handles the two-phase receipt upload: request a pre-signed
// slot, PUT the bytes, then confirm the metadata. When the parent donation
// is still pending its server id may yet change, so the confirm is deferred
// to the push reconciler instead of running inline.
type ReceiptService struct {
	api     client.Client
	repos   *client.Repositories
	session *SessionService
	sync    *SyncService
	log     logging.Logger
}

// NewReceiptService returns a receipt service bound to the given API client,
// local store and push reconciler.
func NewReceiptService(api client.Client, repos *client.Repositories, session *SessionService, sync *SyncService, log logging.Logger) *ReceiptService {
	return &ReceiptService{api: api, repos: repos, session: session, sync: sync, log: log}
}

// Upload attaches the file at path to a donation. The binary upload always
// happens immediately; the metadata confirm happens inline for a synced
// parent and through the outbox for a pending one.
func (s *ReceiptService) Upload(ctx context.Context, donationID, path string) (*models.Receipt, error) {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return nil, client.ErrUnauthorized
	}

	parent, err := s.repos.Donations.GetByID(ctx, owner, donationID)
	if err != nil {
		return nil, fmt.Errorf("donation %s: %w", donationID, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt file: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat receipt file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	slot, err := s.api.RequestReceiptUpload(ctx, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to request upload slot: %w", err)
	}
	if err := s.api.UploadReceipt(ctx, slot.UploadURL, contentType, f, fi.Size()); err != nil {
		return nil, fmt.Errorf("failed to upload receipt bytes: %w", err)
	}

	rec := &models.Receipt{
		ID:          uuid.NewString(),
		DonationID:  donationID,
		Key:         slot.Key,
		FileName:    filepath.Base(path),
		ContentType: contentType,
		Size:        fi.Size(),
		UploadedAt:  time.Now().UTC(),
	}

	if parent.SyncStatus == models.StatusPending {
		// The parent's id is not final; queue the confirm.
		if err := s.sync.EnqueueReceipt(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}

	serverID, err := s.api.ConfirmReceipt(ctx, &client.ConfirmReceiptRequest{
		Key:         rec.Key,
		FileName:    rec.FileName,
		ContentType: rec.ContentType,
		Size:        rec.Size,
		DonationID:  rec.DonationID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm receipt: %w", err)
	}
	rec.ServerID = serverID

	if err := s.repos.Receipts.CreateOrUpdate(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns a donation's locally cached receipts.
func (s *ReceiptService) List(ctx context.Context, donationID string) ([]models.Receipt, error) {
	return s.repos.Receipts.ListByDonation(ctx, donationID)
}

// DownloadURL returns a short-lived pre-signed URL for a stored receipt.
// An unconfirmed receipt has no server-side metadata yet but its bytes are
// already stored, so the key is presignable either way.
func (s *ReceiptService) DownloadURL(ctx context.Context, receiptID string) (string, error) {
	rec, err := s.repos.Receipts.GetByID(ctx, receiptID)
	if err != nil {
		return "", err
	}
	url, err := s.api.PresignReceiptDownload(ctx, rec.Key)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			return "", fmt.Errorf("server unreachable, download needs connectivity: %w", err)
		}
		return "", err
	}
	return url, nil
}
