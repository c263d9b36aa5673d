// Package common defines shared constants and sentinel errors used across
// the deductsync client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// ErrSchemaIncompatible reports that the local database schema does not
	// match the running client and the one-shot destructive reset has already
	// been spent. The caller must not retry initialization.
	ErrSchemaIncompatible = errors.New("local schema incompatible")
)
