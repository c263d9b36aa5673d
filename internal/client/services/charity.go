package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/common"
	"github.com/mkalvans/deductsync/internal/logging"
)

// CharityService serves charity reads from the local cache and sends charity
// mutations straight to the server. Charities are server-canonical reference
// data: they never pass through the outbox, so a mutation while offline is
// an immediate error rather than a queued intent.
type CharityService struct {
	api     client.Client
	repos   *client.Repositories
	session *SessionService
	log     logging.Logger
}

// NewCharityService returns a charity service bound to the given API client
// and local cache.
func NewCharityService(api client.Client, repos *client.Repositories, session *SessionService, log logging.Logger) *CharityService {
	return &CharityService{api: api, repos: repos, session: session, log: log}
}

// List returns the owner's cached charities. Reads never hit the network;
// cache refresh is the pull reconciler's job.
func (s *CharityService) List(ctx context.Context) ([]models.Charity, error) {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return nil, client.ErrUnauthorized
	}
	return s.repos.Charities.ListByOwner(ctx, owner)
}

// Search answers from fresh cache rows first and augments with a remote
// search, re-caching whatever the server returns. When the server is
// unreachable the cached matches are returned as-is, stale or not.
func (s *CharityService) Search(ctx context.Context, q string) ([]models.Charity, error) {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return nil, client.ErrUnauthorized
	}

	local, err := s.repos.Charities.SearchByName(ctx, owner, q)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	allFresh := len(local) > 0
	for i := range local {
		if !local[i].Fresh(now) {
			allFresh = false
			break
		}
	}
	if allFresh {
		return local, nil
	}

	remote, err := s.api.SearchCharities(ctx, q)
	if err != nil {
		s.log.Warn(ctx, "remote charity search failed, serving cache", "error", err)
		return local, nil
	}

	seen := make(map[string]bool, len(remote))
	merged := make([]models.Charity, 0, len(remote)+len(local))
	for i := range remote {
		c := remote[i]
		c.OwnerID = owner
		c.CachedAt = now
		if err := s.repos.Charities.CreateOrUpdate(ctx, &c); err != nil {
			return nil, err
		}
		seen[c.ID] = true
		merged = append(merged, c)
	}
	for i := range local {
		if !seen[local[i].ID] {
			merged = append(merged, local[i])
		}
	}
	return merged, nil
}

// LookupByEIN resolves a charity by its EIN, preferring a fresh cache hit.
func (s *CharityService) LookupByEIN(ctx context.Context, ein string) (*models.Charity, error) {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return nil, client.ErrUnauthorized
	}

	c, err := s.api.LookupCharityByEIN(ctx, ein)
	if err != nil {
		return nil, err
	}
	c.OwnerID = owner
	c.CachedAt = time.Now().UTC()
	if err := s.repos.Charities.CreateOrUpdate(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Create registers a charity server-side and caches the canonical row.
func (s *CharityService) Create(ctx context.Context, c *models.Charity) error {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return client.ErrUnauthorized
	}
	c.OwnerID = owner

	id, err := s.api.CreateCharity(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to create charity: %w", err)
	}
	if id != "" {
		c.ID = id
	}
	c.CachedAt = time.Now().UTC()
	return s.repos.Charities.CreateOrUpdate(ctx, c)
}

// Get returns one cached charity row.
func (s *CharityService) Get(ctx context.Context, id string) (*models.Charity, error) {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return nil, client.ErrUnauthorized
	}
	return s.repos.Charities.GetByID(ctx, owner, id)
}

// Update edits a charity server-side, then re-caches the row fresh.
func (s *CharityService) Update(ctx context.Context, c *models.Charity) error {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return client.ErrUnauthorized
	}
	c.OwnerID = owner

	if err := s.api.UpdateCharity(ctx, c); err != nil {
		return fmt.Errorf("failed to update charity: %w", err)
	}
	c.CachedAt = time.Now().UTC()
	return s.repos.Charities.CreateOrUpdate(ctx, c)
}

// Delete removes a charity server-side, then drops the cache row. A charity
// still referenced by donations comes back as ErrConflict and the cache row
// stays: the server refused, so the cache must keep agreeing with it.
func (s *CharityService) Delete(ctx context.Context, id string) error {
	owner := s.session.OwnerID(ctx)
	if owner == "" {
		return client.ErrUnauthorized
	}

	if err := s.api.DeleteCharity(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Already gone server-side; just tidy the cache.
			return s.repos.Charities.DeleteByID(ctx, owner, id)
		}
		return err
	}
	return s.repos.Charities.DeleteByID(ctx, owner, id)
}
