package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/client/repositories/charities"
	"github.com/mkalvans/deductsync/internal/client/repositories/donations"
	"github.com/mkalvans/deductsync/internal/client/repositories/receipts"
	"github.com/mkalvans/deductsync/internal/common"
	"github.com/mkalvans/deductsync/internal/dbx"
	"github.com/mkalvans/deductsync/internal/logging"
)

// PullService refreshes the local cache from server-canonical state. A full
// refresh replaces a collection wholesale inside one transaction; donation
// refreshes turn incremental once a last-pull stamp exists.
type PullService struct {
	api     client.Client
	repos   *client.Repositories
	session *SessionService
	log     logging.Logger
}

// NewPullService returns a pull reconciler bound to the given API client and
// local store.
func NewPullService(api client.Client, repos *client.Repositories, session *SessionService, log logging.Logger) *PullService {
	return &PullService{api: api, repos: repos, session: session, log: log}
}

// withRetry runs op, retrying briefly on transport-level unavailability.
// Auth, conflict and rate-limit outcomes are never retried here.
func withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := op(ctx)
		if errors.Is(err, client.ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *PullService) owner(ctx context.Context) (string, error) {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return "", client.ErrUnauthorized
	}
	return owner, nil
}

// RefreshCharities replaces the owner's charity cache with the server's
// listing and restamps every row's freshness clock.
func (s *PullService) RefreshCharities(ctx context.Context) error {
	owner, err := s.owner(ctx)
	if err != nil {
		return err
	}

	var list []models.Charity
	err = withRetry(ctx, func(ctx context.Context) error {
		list, err = s.api.ListCharities(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to pull charities: %w", err)
	}

	now := time.Now().UTC()
	return dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ch := charities.NewSQLiteRepository(tx)
		if err := ch.DeleteAllByOwner(ctx, owner); err != nil {
			return err
		}
		for i := range list {
			c := list[i]
			c.OwnerID = owner
			c.CachedAt = now
			if err := ch.CreateOrUpdate(ctx, &c); err != nil {
				return err
			}
		}
		return nil
	})
}

// RefreshDonations reconciles the owner's donations. A full pull replaces
// the synced part of the collection (pending rows await delivery and are
// spared); once a last-pull stamp exists, pulls request only changes since
// it and merge them by upsert. Rows written by a pull are synced by
// definition.
func (s *PullService) RefreshDonations(ctx context.Context) error {
	owner, err := s.owner(ctx)
	if err != nil {
		return err
	}

	lastPullKey := common.MetadataKeyLastPullPrefix + owner
	sinceRaw, err := s.repos.Metadata.Get(ctx, lastPullKey)
	if err != nil {
		return err
	}
	since := string(sinceRaw)

	pulledAt := time.Now().UTC()
	var list []models.Donation
	err = withRetry(ctx, func(ctx context.Context) error {
		list, err = s.api.ListDonations(ctx, since)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to pull donations: %w", err)
	}

	err = dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		dr := donations.NewSQLiteRepository(tx)
		if since == "" {
			// Full replace spares pending rows: their mutations are still
			// queued and must not be erased under the drain's feet.
			if err := dr.DeleteSyncedByOwner(ctx, owner); err != nil {
				return err
			}
		}
		for i := range list {
			d := list[i]
			d.OwnerID = owner
			d.SyncStatus = models.StatusSynced
			if err := dr.CreateOrUpdate(ctx, &d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.repos.Metadata.Set(ctx, lastPullKey, []byte(pulledAt.Format(time.RFC3339)))
}

// RefreshReceipts replaces the confirmed part of the receipt collection with
// the server's listing. Unconfirmed receipts still awaiting delivery are
// left untouched. Pulled receipts are confirmed by definition, so the server
// id doubles as the local id.
func (s *PullService) RefreshReceipts(ctx context.Context) error {
	if _, err := s.owner(ctx); err != nil {
		return err
	}

	var list []models.Receipt
	err := withRetry(ctx, func(ctx context.Context) error {
		var lerr error
		list, lerr = s.api.ListReceipts(ctx)
		return lerr
	})
	if err != nil {
		return fmt.Errorf("failed to pull receipts: %w", err)
	}

	return dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		rr := receipts.NewSQLiteRepository(tx)
		if err := rr.DeleteConfirmed(ctx); err != nil {
			return err
		}
		for i := range list {
			rec := list[i]
			rec.ServerID = rec.ID
			if err := rr.CreateOrUpdate(ctx, &rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// RefreshAll runs every refresher, continuing past individual failures so
// one unreachable listing does not starve the others.
func (s *PullService) RefreshAll(ctx context.Context) error {
	var errs []error
	for name, fn := range map[string]func(context.Context) error{
		"charities": s.RefreshCharities,
		"donations": s.RefreshDonations,
		"receipts":  s.RefreshReceipts,
	} {
		if err := fn(ctx); err != nil {
			s.log.Warn(ctx, "refresh failed", "collection", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
