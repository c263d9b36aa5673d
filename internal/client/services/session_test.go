package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/models"
	"github.com/mkalvans/deductsync/internal/common"
	"github.com/mkalvans/deductsync/internal/logging"
)

func newSession(t *testing.T, api client.Client) (*SessionService, *client.Repositories) {
	t.Helper()
	repos := setupRepos(t)
	return NewSessionService(api, repos.Metadata, logging.NewDefault()), repos
}

func TestIsAuthenticated_CoalescesConcurrentChecks(t *testing.T) {
	var calls atomic.Int32
	api := &stubClient{
		meFn: func(ctx context.Context) (*models.Profile, error) {
			calls.Add(1)
			time.Sleep(50 * time.Millisecond)
			return &models.Profile{ID: "u1"}, nil
		},
	}
	s, _ := newSession(t, api)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.IsAuthenticated(ctx)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.True(t, r)
	}
}

func TestIsAuthenticated_CachedWithinTTL(t *testing.T) {
	var calls atomic.Int32
	api := &stubClient{
		meFn: func(ctx context.Context) (*models.Profile, error) {
			calls.Add(1)
			return &models.Profile{ID: "u1"}, nil
		},
	}
	s, _ := newSession(t, api)
	ctx := context.Background()

	assert.True(t, s.IsAuthenticated(ctx))
	assert.True(t, s.IsAuthenticated(ctx))
	assert.Equal(t, int32(1), calls.Load())
}

func TestIsAuthenticated_RateLimitedKeepsPriorResult(t *testing.T) {
	var calls atomic.Int32
	api := &stubClient{
		meFn: func(ctx context.Context) (*models.Profile, error) {
			if calls.Add(1) == 1 {
				return &models.Profile{ID: "u1"}, nil
			}
			return nil, client.ErrRateLimited
		},
	}
	s, _ := newSession(t, api)
	s.ttl = 10 * time.Millisecond
	ctx := context.Background()

	assert.True(t, s.IsAuthenticated(ctx))
	time.Sleep(20 * time.Millisecond)

	// 429 is indeterminate: prior result survives, the clock stays cold.
	assert.True(t, s.IsAuthenticated(ctx))
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, s.IsAuthenticated(ctx))
	assert.Equal(t, int32(3), calls.Load())
}

func TestIsAuthenticated_UnauthorizedInvalidatesAndHooks(t *testing.T) {
	api := &stubClient{
		meFn: func(ctx context.Context) (*models.Profile, error) {
			return nil, client.ErrUnauthorized
		},
	}
	s, _ := newSession(t, api)

	hooked := false
	s.SetUnauthenticatedHook(func(ctx context.Context) { hooked = true })

	assert.False(t, s.IsAuthenticated(context.Background()))
	assert.Nil(t, s.Profile())
	assert.True(t, hooked)
}

func TestIsAuthenticated_TransientErrorKeepsPriorResult(t *testing.T) {
	var calls atomic.Int32
	api := &stubClient{
		meFn: func(ctx context.Context) (*models.Profile, error) {
			if calls.Add(1) == 1 {
				return &models.Profile{ID: "u1"}, nil
			}
			return nil, client.ErrUnavailable
		},
	}
	s, _ := newSession(t, api)
	s.ttl = 10 * time.Millisecond

	ctx := context.Background()
	assert.True(t, s.IsAuthenticated(ctx))
	time.Sleep(20 * time.Millisecond)
	assert.True(t, s.IsAuthenticated(ctx), "a transport failure is not a negative check")
}

func TestOwnerID_PrefersProfile(t *testing.T) {
	s, _ := newSession(t, &stubClient{})
	require.True(t, s.IsAuthenticated(context.Background()))
	assert.Equal(t, "u1", s.OwnerID(context.Background()))
}

func TestOwnerID_FallsBackToTokenSubject(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{"sub": "u42"}).SignedString([]byte("k"))
	require.NoError(t, err)

	api := &stubClient{}
	api.SetToken(token)
	s, _ := newSession(t, api)

	assert.Equal(t, "u42", s.OwnerID(context.Background()))
}

func TestOwnerID_FallsBackToPersistedMarker(t *testing.T) {
	s, repos := newSession(t, &stubClient{})
	ctx := context.Background()
	require.NoError(t, repos.Metadata.Set(ctx, common.MetadataKeyOwner, []byte("u7")))

	assert.Equal(t, "u7", s.OwnerID(ctx))
}

func TestReset_ForgetsEverything(t *testing.T) {
	var calls atomic.Int32
	api := &stubClient{
		meFn: func(ctx context.Context) (*models.Profile, error) {
			calls.Add(1)
			return &models.Profile{ID: "u1"}, nil
		},
	}
	s, _ := newSession(t, api)
	ctx := context.Background()

	require.True(t, s.IsAuthenticated(ctx))
	s.Reset()
	assert.Nil(t, s.Profile())
	require.True(t, s.IsAuthenticated(ctx))
	assert.Equal(t, int32(2), calls.Load())
}
