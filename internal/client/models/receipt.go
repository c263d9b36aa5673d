package models

import "time"

// Receipt is an uploaded attachment belonging to a donation. A receipt has
// no sync status of its own: its presence is its confirmation. The one
// exception is a receipt whose parent donation was still pending at upload
// time: such a receipt has an empty ServerID and a queued outbox entry, and
// is confirmed with the server once the parent is synced.
type Receipt struct {
	ID          string    `json:"id"`
	DonationID  string    `json:"donation_id"`
	Key         string    `json:"key"`
	FileName    string    `json:"file_name,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size,omitempty"`
	ServerID    string    `json:"-"`
	UploadedAt  time.Time `json:"uploaded_at,omitzero"`
}

// Confirmed reports whether the server has persisted this receipt's metadata.
func (r *Receipt) Confirmed() bool {
	return r.ServerID != ""
}
