// Package models defines the typed records cached by the client: donations,
// charities, receipts, outbox entries and the session profile. Every mutation
// path constructs records through the constructors here so that optimistic
// writes and pull-reconciled writes produce the same shape.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus tags a locally cached donation with its delivery state.
type SyncStatus string

const (
	// StatusPending marks a record with a not-yet-confirmed local mutation.
	// A pending record has exactly one live outbox entry.
	StatusPending SyncStatus = "pending"
	// StatusSynced marks a record confirmed by the server.
	StatusSynced SyncStatus = "synced"
)

// Donation is a single charitable donation, owner-scoped.
// Date is a calendar day in ISO form (YYYY-MM-DD), matching the wire format.
type Donation struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"user_id"`
	Year        int        `json:"year"`
	Date        string     `json:"date"`
	Category    string     `json:"category"`
	Amount      float64    `json:"amount"`
	CharityID   string     `json:"charity_id"`
	CharityName string     `json:"charity_name,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	SyncStatus  SyncStatus `json:"-"`
	CreatedAt   time.Time  `json:"created_at,omitzero"`
	UpdatedAt   time.Time  `json:"updated_at,omitzero"`
}

// NewDonation builds an optimistic local donation: client-generated UUID,
// pending status, timestamps set to now.
func NewDonation(ownerID string, year int, date, category string, amount float64, charityID, charityName, notes string) *Donation {
	now := time.Now().UTC()
	return &Donation{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Year:        year,
		Date:        date,
		Category:    category,
		Amount:      amount,
		CharityID:   charityID,
		CharityName: charityName,
		Notes:       notes,
		SyncStatus:  StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
