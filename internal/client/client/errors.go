package client

import "errors"

// Error taxonomy for remote calls. Reconciliation policy is driven entirely
// by errors.Is checks against these sentinels:
//
//   - ErrUnauthorized aborts a drain pass and forces re-authentication.
//   - ErrConflict is user-actionable and never retried automatically.
//   - ErrRateLimited is indeterminate; callers keep their prior state.
//   - ErrUnavailable is transient; queued work stays queued.
var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
)
