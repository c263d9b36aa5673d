// Package services contains the application services of the deductsync
// client: the session cache, the outbox/push reconciler, the pull
// reconciler, the cache lifecycle controller and receipt uploads.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/client/repositories/metadata"
	"github.com/mkalvans/deductsync/internal/common"
	"github.com/mkalvans/deductsync/internal/logging"
)

// SessionTTL is how long a verification result (and the cached profile) is
// trusted before the next network check.
const SessionTTL = 4 * time.Second

// SessionService memoizes the authentication state that gates every
// reconciliation attempt. Concurrent verification calls are coalesced: while
// one check is in flight every caller receives its result.
type SessionService struct {
	api  client.Client
	meta metadata.Repository
	log  logging.Logger

	ttl   time.Duration
	group singleflight.Group

	mu            sync.Mutex
	lastCheckAt   time.Time
	lastResult    bool
	profile       *models.Profile
	lastProfileAt time.Time

	// onUnauthenticated fires on an explicit negative verification, after
	// the cached profile has been invalidated.
	onUnauthenticated func(ctx context.Context)
}

// NewSessionService returns a session cache bound to the given API client
// and metadata store.
func NewSessionService(api client.Client, meta metadata.Repository, log logging.Logger) *SessionService {
	return &SessionService{api: api, meta: meta, log: log, ttl: SessionTTL}
}

// SetUnauthenticatedHook installs the callback fired on an explicit negative
// check. Wired to the lifecycle controller at startup.
func (s *SessionService) SetUnauthenticatedHook(fn func(ctx context.Context)) {
	s.onUnauthenticated = fn
}

// IsAuthenticated reports whether the session is valid, hitting the network
// at most once per TTL window regardless of caller concurrency.
func (s *SessionService) IsAuthenticated(ctx context.Context) bool {
	s.mu.Lock()
	if time.Since(s.lastCheckAt) < s.ttl {
		res := s.lastResult
		s.mu.Unlock()
		return res
	}
	s.mu.Unlock()

	v, _, _ := s.group.Do("session-check", func() (any, error) {
		return s.verify(ctx), nil
	})
	return v.(bool)
}

// verify performs one network check and folds the outcome into the cache.
func (s *SessionService) verify(ctx context.Context) bool {
	profile, err := s.api.Me(ctx)

	s.mu.Lock()
	switch {
	case err == nil:
		s.lastResult = true
		s.lastCheckAt = time.Now()
		if s.profile == nil || time.Since(s.lastProfileAt) > s.ttl {
			s.profile = profile
			s.lastProfileAt = time.Now()
		}

	case errors.Is(err, client.ErrRateLimited):
		// Indeterminate: keep the prior result and clocks untouched.
		s.log.Warn(ctx, "session check rate limited, keeping prior state")

	case errors.Is(err, client.ErrUnauthorized):
		s.lastResult = false
		s.lastCheckAt = time.Now()
		s.profile = nil

	default:
		// Transient failure: not a negative, keep the prior result.
		s.log.Warn(ctx, "session check failed", "error", err)
	}
	result := s.lastResult
	s.mu.Unlock()

	if errors.Is(err, client.ErrUnauthorized) && s.onUnauthenticated != nil {
		s.onUnauthenticated(ctx)
	}

	return result
}

// Profile returns the memoized session profile, or nil.
func (s *SessionService) Profile() *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// OwnerID resolves the current identity: the memoized profile first, then
// the bearer token's subject claim, then the persisted identity marker.
// Returns "" when no identity is known.
func (s *SessionService) OwnerID(ctx context.Context) string {
	s.mu.Lock()
	p := s.profile
	s.mu.Unlock()
	if p != nil && p.ID != "" {
		return p.ID
	}

	if token := s.api.Token(); token != "" {
		if sub := tokenSubject(token); sub != "" {
			return sub
		}
	}

	marker, err := s.meta.Get(ctx, common.MetadataKeyOwner)
	if err != nil {
		s.log.Warn(ctx, "failed to read identity marker", "error", err)
		return ""
	}
	return string(marker)
}

// tokenSubject extracts the subject claim without verifying the signature.
// The server remains the authority; this is only an identity hint.
func tokenSubject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// Reset wipes all memoized state. Called on logout and identity switch.
func (s *SessionService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCheckAt = time.Time{}
	s.lastResult = false
	s.profile = nil
	s.lastProfileAt = time.Time{}
}
