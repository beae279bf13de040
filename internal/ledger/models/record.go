package models

import (
	"time"

	id "tracelot/pkg/domain"
	dErrors "tracelot/pkg/domain-errors"
	"tracelot/pkg/platform/sentinel"
)

// Record is the aggregate root for one tracked item.
//
// Invariants:
//   - Identifier is non-empty and unique across all live records
//   - OriginHolder, FinalRecipient, Identifier, ItemName and LocationOrigin
//     are immutable after creation
//   - CurrentHolder mutates only through ApplyTransfer
//   - ReachedFinal implies CurrentHolder == FinalRecipient, and flips to true
//     exactly once; it never resets
//
// # Freeze Invariant
//
// Once a record reaches its final recipient it is permanently frozen: no
// transfer on it may succeed, regardless of caller or target. The guard is
// CanRelease, which every store must invoke inside its critical section so
// the read-validate-mutate sequence cannot interleave with another transfer.
type Record struct {
	Handle         id.Handle   `json:"handle"`
	Identifier     string      `json:"identifier"`
	OriginHolder   id.HolderID `json:"origin_holder"`
	FinalRecipient id.HolderID `json:"final_recipient"`
	CurrentHolder  id.HolderID `json:"current_holder"`
	ItemName       string      `json:"item_name"`
	LocationOrigin string      `json:"location_origin"`
	ReachedFinal   bool        `json:"reached_final"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewRecord constructs a freshly minted record. The handle is assigned by
// the store; callers pass the already-validated request fields.
func NewRecord(handle id.Handle, identifier string, to, finalRecipient id.HolderID, itemName, locationOrigin string, now time.Time) (*Record, error) {
	if identifier == "" || itemName == "" || locationOrigin == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record text fields cannot be empty")
	}
	if err := to.Validate(); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record origin holder is invalid")
	}
	if err := finalRecipient.Validate(); err != nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record final recipient is invalid")
	}
	return &Record{
		Handle:         handle,
		Identifier:     identifier,
		OriginHolder:   to,
		FinalRecipient: finalRecipient,
		CurrentHolder:  to,
		ItemName:       itemName,
		LocationOrigin: locationOrigin,
		ReachedFinal:   false,
		CreatedAt:      now,
	}, nil
}

// CanRelease checks the transfer preconditions that depend on record state,
// in their fixed order: custody first, recipient shape second, freeze last.
// A frozen record owned by the caller with a bad target still reports the
// recipient problem, and a frozen record with a good target reports the
// freeze; custody mismatches win over both.
func (r *Record) CanRelease(caller, to id.HolderID) error {
	if caller != r.CurrentHolder {
		return sentinel.ErrNotCurrentHolder
	}
	if err := to.Validate(); err != nil {
		return sentinel.ErrInvalidRecipient
	}
	if r.ReachedFinal {
		return sentinel.ErrFinalized
	}
	return nil
}

// ApplyTransfer moves custody to the target and latches ReachedFinal when
// the target is the designated final recipient. Call CanRelease first; this
// method assumes the preconditions hold.
func (r *Record) ApplyTransfer(to id.HolderID) {
	r.CurrentHolder = to
	if to == r.FinalRecipient {
		r.ReachedFinal = true
	}
}

// Summary is the per-record row of the full-registry snapshot. It reflects
// the current holder, not the origin.
type Summary struct {
	Identifier     string      `json:"identifier"`
	CurrentHolder  id.HolderID `json:"current_holder"`
	ItemName       string      `json:"item_name"`
	LocationOrigin string      `json:"location_origin"`
	FinalRecipient id.HolderID `json:"final_recipient"`
}

// Summarize projects the record onto its snapshot row.
func (r *Record) Summarize() Summary {
	return Summary{
		Identifier:     r.Identifier,
		CurrentHolder:  r.CurrentHolder,
		ItemName:       r.ItemName,
		LocationOrigin: r.LocationOrigin,
		FinalRecipient: r.FinalRecipient,
	}
}
