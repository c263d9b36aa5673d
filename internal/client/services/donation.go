package services

import (
	"context"
	"time"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/logging"
)

// DonationService is the read/write surface the UI uses for donations.
// Reads come straight from the local store; writes are optimistic and go
// through the outbox.
type DonationService struct {
	repos   *client.Repositories
	session *SessionService
	sync    *SyncService
	log     logging.Logger
}

// NewDonationService returns a donation service bound to the local store and
// the push reconciler.
func NewDonationService(repos *client.Repositories, session *SessionService, sync *SyncService, log logging.Logger) *DonationService {
	return &DonationService{repos: repos, session: session, sync: sync, log: log}
}

// List returns the owner's donations from the local store, newest first.
func (s *DonationService) List(ctx context.Context) ([]models.Donation, error) {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return nil, client.ErrUnauthorized
	}
	return s.repos.Donations.ListByOwner(ctx, owner)
}

// Get returns one donation from the local store.
func (s *DonationService) Get(ctx context.Context, id string) (*models.Donation, error) {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return nil, client.ErrUnauthorized
	}
	return s.repos.Donations.GetByID(ctx, owner, id)
}

// Create records a new donation optimistically and queues its delivery.
func (s *DonationService) Create(ctx context.Context, year int, date, category string, amount float64, charityID, charityName, notes string) (*models.Donation, error) {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return nil, client.ErrUnauthorized
	}
	d := models.NewDonation(owner, year, date, category, amount, charityID, charityName, notes)
	if err := s.sync.EnqueueDonation(ctx, d, models.ActionCreate); err != nil {
		return nil, err
	}
	return d, nil
}

// Update applies an edit optimistically and queues its delivery.
func (s *DonationService) Update(ctx context.Context, d *models.Donation) error {
	d.UpdatedAt = time.Now().UTC()
	return s.sync.EnqueueDonation(ctx, d, models.ActionUpdate)
}

// Delete removes a donation locally and queues the server-side delete.
func (s *DonationService) Delete(ctx context.Context, id string) error {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return client.ErrUnauthorized
	}
	d, err := s.repos.Donations.GetByID(ctx, owner, id)
	if err != nil {
		return err
	}
	return s.sync.EnqueueDonation(ctx, d, models.ActionDelete)
}
