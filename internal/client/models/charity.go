package models

import "time"

// CharityCacheTTL is how long a cached charity row is trusted without
// re-verification against the server. Staleness is advisory: stale rows stay
// cached, but search/merge logic must fall back to a remote lookup.
const CharityCacheTTL = 30 * 24 * time.Hour

// Charity is an owner-scoped cache row of server-canonical charity data.
// Rows are written wholesale by pull reconciliation, never partially patched.
type Charity struct {
	ID       string    `json:"id"`
	OwnerID  string    `json:"user_id"`
	Name     string    `json:"name"`
	EIN      string    `json:"ein,omitempty"`
	Category string    `json:"category,omitempty"`
	City     string    `json:"city,omitempty"`
	State    string    `json:"state,omitempty"`
	CachedAt time.Time `json:"-"`
}

// Fresh reports whether the cache row is still inside the freshness window.
func (c *Charity) Fresh(now time.Time) bool {
	if c.CachedAt.IsZero() {
		return false
	}
	return now.Sub(c.CachedAt) <= CharityCacheTTL
}
