package domain

import (
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"

	dErrors "tracelot/pkg/domain-errors"
)

// HolderID identifies a party capable of holding custody of an item.
// Invariant: a live HolderID is non-empty, printable ASCII, and at most
// MaxHolderIDLength bytes.
//
// Usage: construct via ParseHolderID at trust boundaries to enforce the
// shape; direct casting bypasses validation.
type HolderID string

// HolderNone is the distinguished "no holder" identity. It appears only as
// the `from` side of a genesis history entry and never holds custody.
const HolderNone HolderID = ""

// MaxHolderIDLength bounds holder identities so indices stay cheap to key.
const MaxHolderIDLength = 128

// IsNone reports whether the identity is the distinguished empty holder.
func (h HolderID) IsNone() bool { return h == HolderNone }

func (h HolderID) String() string { return string(h) }

// Validate checks the holder shape without constructing a new value.
// HolderNone is never a valid custody target.
func (h HolderID) Validate() error {
	if h.IsNone() {
		return dErrors.New(dErrors.CodeInvalidAddress, "holder identity cannot be empty")
	}
	if len(h) > MaxHolderIDLength {
		return dErrors.New(dErrors.CodeInvalidAddress, "holder identity exceeds maximum length")
	}
	if !govalidator.IsPrintableASCII(string(h)) {
		return dErrors.New(dErrors.CodeInvalidAddress, "holder identity must be printable ASCII")
	}
	return nil
}

// ParseHolderID constructs a HolderID from external input.
func ParseHolderID(raw string) (HolderID, error) {
	h := HolderID(strings.TrimSpace(raw))
	if err := h.Validate(); err != nil {
		return HolderNone, err
	}
	return h, nil
}

// Handle is the internal, stable, never-reused identity of a record,
// assigned sequentially at mint time. Handle 0 is never assigned; stores
// hand out handles starting at 1 and lookups report presence explicitly,
// so a zero Handle is only ever a "not yet minted" placeholder.
type Handle uint64

func (h Handle) String() string { return strconv.FormatUint(uint64(h), 10) }

// ParseHandle constructs a Handle from external input such as a URL segment.
func ParseHandle(raw string) (Handle, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "handle must be a non-negative integer")
	}
	return Handle(v), nil
}
