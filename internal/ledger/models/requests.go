package models

import (
	"strings"

	id "tracelot/pkg/domain"
	dErrors "tracelot/pkg/domain-errors"
)

// MintRequest carries the caller-supplied fields of a mint operation.
type MintRequest struct {
	Identifier     string      `json:"identifier"`
	To             id.HolderID `json:"to"`
	ItemName       string      `json:"item_name"`
	LocationOrigin string      `json:"location_origin"`
	FinalRecipient id.HolderID `json:"final_recipient"`
}

// Normalize trims surrounding whitespace from every field.
func (r *MintRequest) Normalize() {
	r.Identifier = strings.TrimSpace(r.Identifier)
	r.To = id.HolderID(strings.TrimSpace(string(r.To)))
	r.ItemName = strings.TrimSpace(r.ItemName)
	r.LocationOrigin = strings.TrimSpace(r.LocationOrigin)
	r.FinalRecipient = id.HolderID(strings.TrimSpace(string(r.FinalRecipient)))
}

// Validate applies the mint preconditions in their fixed order; the first
// failure wins. Identifier uniqueness is the store's check, not this one.
func (r *MintRequest) Validate() error {
	if err := r.FinalRecipient.Validate(); err != nil {
		return err
	}
	if err := r.To.Validate(); err != nil {
		return err
	}
	if r.ItemName == "" {
		return dErrors.New(dErrors.CodeEmptyString, "item_name is required")
	}
	if r.LocationOrigin == "" {
		return dErrors.New(dErrors.CodeEmptyString, "location_origin is required")
	}
	if r.Identifier == "" {
		return dErrors.New(dErrors.CodeEmptyString, "identifier is required")
	}
	return nil
}

// TransferRequest carries the caller-supplied fields of a transfer. The
// caller identity itself arrives out-of-band from the authentication layer.
type TransferRequest struct {
	Identifier string      `json:"identifier"`
	To         id.HolderID `json:"to"`
}

// Normalize trims surrounding whitespace from every field.
func (r *TransferRequest) Normalize() {
	r.Identifier = strings.TrimSpace(r.Identifier)
	r.To = id.HolderID(strings.TrimSpace(string(r.To)))
}
