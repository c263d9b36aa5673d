package models

// Profile holds the authenticated identity's attributes as returned by the
// session endpoint. Memoized by the session cache and persisted as the
// identity marker.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
