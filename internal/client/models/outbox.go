package models

import "time"

// Action is the kind of mutation recorded in an outbox entry.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Table names a local collection an outbox entry targets.
type Table string

const (
	TableDonations Table = "donations"
	TableCharities Table = "charities"
	TableReceipts  Table = "receipts"
)

// OutboxEntry is a durable record of a not-yet-confirmed mutation, appended
// by the same transaction that performs the optimistic local write and
// removed only after the push reconciler confirms delivery.
//
// ID is assigned by the store (autoincrement) and doubles as the FIFO sort
// key, so an update for an item can never be replayed ahead of its create.
type OutboxEntry struct {
	ID         int64
	OwnerID    string
	Table      Table
	ItemID     string
	Action     Action
	EnqueuedAt time.Time
}

// NewOutboxEntry builds an entry for one mutation intent.
func NewOutboxEntry(ownerID string, table Table, itemID string, action Action) *OutboxEntry {
	return &OutboxEntry{
		OwnerID:    ownerID,
		Table:      table,
		ItemID:     itemID,
		Action:     action,
		EnqueuedAt: time.Now().UTC(),
	}
}
