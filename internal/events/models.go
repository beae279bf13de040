package events

import (
	"time"

	id "tracelot/pkg/domain"
)

// Actions emitted by the ledger. One event per successful mutation.
const (
	ActionItemMinted      = "item_minted"
	ActionItemTransferred = "item_transferred"
)

// Event is emitted from ledger logic to capture custody changes. Keep it
// transport-agnostic so stores and sinks can fan out; every sink sees the
// same payload. Delivery is best-effort: ledger correctness never depends
// on an event reaching a consumer.
type Event struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`

	Identifier string      `json:"identifier"`
	Handle     id.Handle   `json:"handle"`
	From       id.HolderID `json:"from"`
	To         id.HolderID `json:"to"`

	// Mint-only descriptive fields.
	ItemName       string      `json:"item_name,omitempty"`
	LocationOrigin string      `json:"location_origin,omitempty"`
	FinalRecipient id.HolderID `json:"final_recipient,omitempty"`

	// Transfer-only: whether this transfer froze the record.
	ReachedFinal bool `json:"reached_final,omitempty"`

	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string `json:"request_id,omitempty"`
}
