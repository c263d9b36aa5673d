package services

import (
	"context"
	"fmt"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/repositories/charities"
	"github.com/mkalvans/deductsync/internal/client/repositories/donations"
	"github.com/mkalvans/deductsync/internal/client/repositories/metadata"
	"github.com/mkalvans/deductsync/internal/client/repositories/outbox"
	"github.com/mkalvans/deductsync/internal/client/repositories/receipts"
	"github.com/mkalvans/deductsync/internal/common"
	"github.com/mkalvans/deductsync/internal/dbx"
	"github.com/mkalvans/deductsync/internal/logging"
)

// LifecycleService guards cache coherence across identity changes: it owns
// the persisted identity marker and evicts owner-scoped data whenever the
// authenticated identity differs from the one the cache was built for.
type LifecycleService struct {
	api     client.Client
	repos   *client.Repositories
	session *SessionService
	log     logging.Logger
}

// NewLifecycleService returns a lifecycle controller bound to the given API
// client and local store.
func NewLifecycleService(api client.Client, repos *client.Repositories, session *SessionService, log logging.Logger) *LifecycleService {
	return &LifecycleService{api: api, repos: repos, session: session, log: log}
}

// Login exchanges credentials for a token, installs it, persists it and
// reconciles the cache with the (possibly different) identity it belongs to.
func (s *LifecycleService) Login(ctx context.Context, username, password string) error {
	token, err := s.api.DevLogin(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	s.api.SetToken(token)
	s.session.Reset()

	profile, err := s.api.Me(ctx)
	if err != nil {
		s.api.SetToken("")
		return fmt.Errorf("failed to verify session: %w", err)
	}

	if err := s.EnsureOwner(ctx, profile.ID); err != nil {
		return err
	}
	if err := s.repos.Metadata.Set(ctx, common.MetadataKeyToken, []byte(token)); err != nil {
		return err
	}
	return nil
}

// RestoreToken re-installs a persisted bearer token on startup, if any.
func (s *LifecycleService) RestoreToken(ctx context.Context) error {
	token, err := s.repos.Metadata.Get(ctx, common.MetadataKeyToken)
	if err != nil {
		return err
	}
	if len(token) > 0 {
		s.api.SetToken(string(token))
	}
	return nil
}

// EnsureOwner records ownerID as the identity the cache serves. When the
// marker already names a different identity, every collection of the old
// owner is evicted first; cached data must never leak across accounts.
func (s *LifecycleService) EnsureOwner(ctx context.Context, ownerID string) error {
	prevRaw, err := s.repos.Metadata.Get(ctx, common.MetadataKeyOwner)
	if err != nil {
		return err
	}
	prev := string(prevRaw)
	if prev == ownerID {
		return nil
	}

	return dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := metadata.NewSQLiteRepository(tx)
		if prev != "" {
			s.log.Info(ctx, "identity changed, evicting cached data", "previous", prev)
			if err := evictOwner(ctx, tx, prev); err != nil {
				return err
			}
			if err := meta.Delete(ctx, common.MetadataKeyLastPullPrefix+prev); err != nil {
				return err
			}
		}
		return meta.Set(ctx, common.MetadataKeyOwner, []byte(ownerID))
	})
}

// Logout ends the session server-side (best effort), drops the token and
// evicts everything the identity owned, including its queued work.
func (s *LifecycleService) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		s.log.Warn(ctx, "server-side logout failed", "error", err)
	}

	owner := s.session.OwnerID(ctx)
	s.session.Reset()
	s.api.SetToken("")

	return dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if owner != "" {
			if err := evictOwner(ctx, tx, owner); err != nil {
				return err
			}
		}
		meta := metadata.NewSQLiteRepository(tx)
		if err := meta.Delete(ctx, common.MetadataKeyOwner); err != nil {
			return err
		}
		if err := meta.Delete(ctx, common.MetadataKeyToken); err != nil {
			return err
		}
		return meta.DeleteByPrefix(ctx, common.MetadataKeyLastPullPrefix)
	})
}

// HandleUnauthenticated is wired as the session cache's negative-check hook.
// It clears session credentials but deliberately keeps the identity marker
// and the queue: re-authenticating as the same user resumes delivery.
func (s *LifecycleService) HandleUnauthenticated(ctx context.Context) {
	s.log.Warn(ctx, "session rejected by server")
	s.api.SetToken("")
	if err := s.repos.Metadata.Delete(ctx, common.MetadataKeyToken); err != nil {
		s.log.Warn(ctx, "failed to drop persisted token", "error", err)
	}
}

// evictOwner removes every owner-scoped collection inside the caller's
// transaction. Receipts are scoped through their parents, so the whole
// collection goes.
func evictOwner(ctx context.Context, tx dbx.DBTX, owner string) error {
	if err := donations.NewSQLiteRepository(tx).DeleteAllByOwner(ctx, owner); err != nil {
		return err
	}
	if err := charities.NewSQLiteRepository(tx).DeleteAllByOwner(ctx, owner); err != nil {
		return err
	}
	if err := receipts.NewSQLiteRepository(tx).DeleteAll(ctx); err != nil {
		return err
	}
	return outbox.NewSQLiteRepository(tx).DeleteAllByOwner(ctx, owner)
}
