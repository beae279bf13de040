package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors without the
// stores knowing about error codes or HTTP.
//
// These represent factual states about ledger records, not validation
// failures:
//   - ErrNotFound: identifier or handle does not resolve to a live record
//   - ErrAlreadyUsed: identifier already registered to a record
//   - ErrNotCurrentHolder: caller does not hold custody of the record
//   - ErrFinalized: record reached its final recipient and is frozen
//   - ErrInvalidRecipient: transfer target is not a usable holder identity
//   - ErrUnavailable: backing store temporarily unreachable
//
// For input validation (empty fields, malformed identities) use
// pkg/domain-errors directly at the service layer.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyUsed      = errors.New("already used")
	ErrNotCurrentHolder = errors.New("not current holder")
	ErrFinalized        = errors.New("finalized")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrUnavailable      = errors.New("unavailable")
)
