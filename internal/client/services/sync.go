package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/client/repositories/donations"
	"github.com/mkalvans/deductsync/internal/client/repositories/outbox"
	"github.com/mkalvans/deductsync/internal/client/repositories/receipts"
	"github.com/mkalvans/deductsync/internal/common"
	"github.com/mkalvans/deductsync/internal/dbx"
	"github.com/mkalvans/deductsync/internal/logging"
)

// errHeld marks an outbox entry that is intentionally skipped this pass
// because a precondition (a final parent id) is not met yet.
var errHeld = errors.New("outbox entry held")

// SyncService owns the outbox: optimistic local writes enqueue through it,
// and its drain loop replays queued mutations against the server in FIFO
// order. Drain passes never run concurrently.
type SyncService struct {
	api     client.Client
	repos   *client.Repositories
	session *SessionService
	log     logging.Logger

	drainMu sync.Mutex
	kick    chan struct{}
	limiter *rate.Limiter
}

// NewSyncService returns a reconciler bound to the given API client and
// local store.
func NewSyncService(api client.Client, repos *client.Repositories, session *SessionService, log logging.Logger) *SyncService {
	return &SyncService{
		api:     api,
		repos:   repos,
		session: session,
		log:     log,
		kick:    make(chan struct{}, 1),
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// TriggerDrain requests a drain pass. The signal channel has capacity one:
// while a request is already queued, further triggers collapse into it.
func (s *SyncService) TriggerDrain() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run is the drain worker loop. It blocks until ctx is cancelled, waking on
// TriggerDrain signals and pacing passes through the rate limiter.
func (s *SyncService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			if err := s.Drain(ctx); err != nil {
				s.log.Warn(ctx, "drain pass incomplete", "error", err)
			}
		}
	}
}

// EnqueueDonation applies one donation mutation optimistically and records
// the intent. The local write and the outbox append commit in the same
// transaction, so a pending record and its queue entry can never diverge.
func (s *SyncService) EnqueueDonation(ctx context.Context, d *models.Donation, action models.Action) error {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return client.ErrUnauthorized
	}
	d.OwnerID = owner

	err := dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		dr := donations.NewSQLiteRepository(tx)
		ob := outbox.NewSQLiteRepository(tx)

		switch action {
		case models.ActionDelete:
			if err := dr.DeleteByID(ctx, owner, d.ID); err != nil {
				return err
			}
		default:
			d.SyncStatus = models.StatusPending
			d.UpdatedAt = time.Now().UTC()
			if err := dr.CreateOrUpdate(ctx, d); err != nil {
				return err
			}
		}
		return ob.Append(ctx, models.NewOutboxEntry(owner, models.TableDonations, d.ID, action))
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue donation %s: %w", action, err)
	}

	s.TriggerDrain()
	return nil
}

// EnqueueReceipt stores a locally uploaded receipt whose server-side confirm
// must wait (the parent donation's id is not final yet) and queues it.
func (s *SyncService) EnqueueReceipt(ctx context.Context, rec *models.Receipt) error {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return client.ErrUnauthorized
	}

	err := dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := receipts.NewSQLiteRepository(tx).CreateOrUpdate(ctx, rec); err != nil {
			return err
		}
		return outbox.NewSQLiteRepository(tx).Append(ctx,
			models.NewOutboxEntry(owner, models.TableReceipts, rec.ID, models.ActionCreate))
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue receipt: %w", err)
	}

	s.TriggerDrain()
	return nil
}

// Drain replays the queue once, in FIFO order. An unauthenticated session
// aborts the whole pass with every entry intact. Transient failures leave
// their entries queued and suppress later entries for the same item, so a
// queued update never runs ahead of its failed create. Conflicts are
// terminal: the entry is dropped and the error surfaced, never retried.
func (s *SyncService) Drain(ctx context.Context) error {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	if !s.session.IsAuthenticated(ctx) {
		return client.ErrUnauthorized
	}
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return client.ErrUnauthorized
	}

	entries, err := s.repos.Outbox.ListPending(ctx, owner)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	s.log.Debug(ctx, "drain pass started", "entries", len(entries))

	failed := make(map[string]bool)
	var conflicts []error
	for i := range entries {
		e := &entries[i]
		if failed[e.ItemID] {
			continue
		}

		finalID, err := s.applyEntry(ctx, owner, e)
		switch {
		case err == nil:
			if finalID != "" && finalID != e.ItemID {
				// The queue rows were rewritten to the server id; the
				// in-memory tail must follow or later entries for this
				// item would resolve to a missing row.
				for j := i + 1; j < len(entries); j++ {
					if entries[j].ItemID == e.ItemID {
						entries[j].ItemID = finalID
					}
				}
			}
		case errors.Is(err, client.ErrUnauthorized):
			s.log.Warn(ctx, "session expired mid-drain, aborting pass", "entry", e.ID)
			return client.ErrUnauthorized
		case errors.Is(err, errHeld):
			failed[e.ItemID] = true
		case errors.Is(err, client.ErrConflict):
			if rerr := s.repos.Outbox.Remove(ctx, e.ID); rerr != nil {
				return rerr
			}
			conflicts = append(conflicts, fmt.Errorf("%s %s %s: %w", e.Action, e.Table, e.ItemID, err))
		default:
			s.log.Warn(ctx, "entry not delivered, will retry",
				"entry", e.ID, "table", e.Table, "action", e.Action, "error", err)
			failed[e.ItemID] = true
		}
	}

	return errors.Join(conflicts...)
}

// applyEntry replays one entry. On success it returns the item's final id,
// which differs from e.ItemID when the server assigned the record a new one.
func (s *SyncService) applyEntry(ctx context.Context, owner string, e *models.OutboxEntry) (string, error) {
	switch e.Table {
	case models.TableDonations:
		return s.applyDonationEntry(ctx, owner, e)
	case models.TableReceipts:
		return "", s.applyReceiptEntry(ctx, owner, e)
	default:
		// Unknown collection, likely from a newer schema. Drop it.
		s.log.Warn(ctx, "dropping outbox entry for unknown collection", "table", e.Table)
		return "", s.repos.Outbox.Remove(ctx, e.ID)
	}
}

func (s *SyncService) applyDonationEntry(ctx context.Context, owner string, e *models.OutboxEntry) (string, error) {
	if e.Action == models.ActionDelete {
		err := s.api.DeleteDonation(ctx, e.ItemID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return "", err
		}
		return "", s.repos.Outbox.Remove(ctx, e.ID)
	}

	d, err := s.repos.Donations.GetByID(ctx, owner, e.ItemID)
	if errors.Is(err, common.ErrorNotFound) {
		// The record was deleted after this entry was queued; a delete
		// entry follows. Nothing to replay.
		return "", s.repos.Outbox.Remove(ctx, e.ID)
	}
	if err != nil {
		return "", err
	}

	finalID := d.ID
	serverID := ""
	switch e.Action {
	case models.ActionCreate:
		if serverID, err = s.api.CreateDonation(ctx, d); err != nil {
			return "", err
		}
		if serverID != "" && serverID != d.ID {
			finalID = serverID
		}
	case models.ActionUpdate:
		if err = s.api.UpdateDonation(ctx, d); err != nil {
			return "", err
		}
	}

	return finalID, dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		dr := donations.NewSQLiteRepository(tx)
		ob := outbox.NewSQLiteRepository(tx)

		if err := ob.Remove(ctx, e.ID); err != nil {
			return err
		}
		if finalID != d.ID {
			if err := dr.Rename(ctx, owner, d.ID, finalID); err != nil {
				return err
			}
			if err := receipts.NewSQLiteRepository(tx).Reparent(ctx, d.ID, finalID); err != nil {
				return err
			}
			if err := ob.RewriteItemID(ctx, owner, d.ID, finalID); err != nil {
				return err
			}
		}

		// The record stays pending while later entries still reference it.
		live, err := ob.HasEntryForItem(ctx, owner, finalID)
		if err != nil {
			return err
		}
		if !live {
			return dr.SetSyncStatus(ctx, owner, finalID, models.StatusSynced)
		}
		return nil
	})
}

func (s *SyncService) applyReceiptEntry(ctx context.Context, owner string, e *models.OutboxEntry) error {
	if e.Action != models.ActionCreate {
		// Receipts queue only creates; anything else is stale.
		return s.repos.Outbox.Remove(ctx, e.ID)
	}

	rec, err := s.repos.Receipts.GetByID(ctx, e.ItemID)
	if errors.Is(err, common.ErrorNotFound) {
		return s.repos.Outbox.Remove(ctx, e.ID)
	}
	if err != nil {
		return err
	}
	if rec.Confirmed() {
		return s.repos.Outbox.Remove(ctx, e.ID)
	}

	parent, err := s.repos.Donations.GetByID(ctx, owner, rec.DonationID)
	if errors.Is(err, common.ErrorNotFound) {
		// The parent is gone; the server would reject the confirm.
		s.log.Warn(ctx, "dropping receipt with no parent donation", "receipt", rec.ID)
		if derr := s.repos.Receipts.DeleteByID(ctx, rec.ID); derr != nil {
			return derr
		}
		return s.repos.Outbox.Remove(ctx, e.ID)
	}
	if err != nil {
		return err
	}
	if parent.SyncStatus == models.StatusPending {
		// The parent's id may still change; confirm after it is synced.
		return errHeld
	}

	serverID, err := s.api.ConfirmReceipt(ctx, &client.ConfirmReceiptRequest{
		Key:         rec.Key,
		FileName:    rec.FileName,
		ContentType: rec.ContentType,
		Size:        rec.Size,
		DonationID:  rec.DonationID,
	})
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := receipts.NewSQLiteRepository(tx).SetServerID(ctx, rec.ID, serverID); err != nil {
			return err
		}
		return outbox.NewSQLiteRepository(tx).Remove(ctx, e.ID)
	})
}

// PendingCount reports how many of the owner's donations await delivery.
func (s *SyncService) PendingCount(ctx context.Context) (int, error) {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return 0, nil
	}
	return s.repos.Donations.CountByStatus(ctx, owner, models.StatusPending)
}
