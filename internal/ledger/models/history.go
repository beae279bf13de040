package models

import (
	"time"

	id "tracelot/pkg/domain"
)

// HistoryEvent is one custody change in a record's append-only history.
// The genesis entry has From == domain.HolderNone and To == the origin
// holder; every later entry corresponds to exactly one successful transfer.
// Timestamps are non-decreasing within one record's history.
type HistoryEvent struct {
	From      id.HolderID `json:"from"`
	To        id.HolderID `json:"to"`
	Timestamp time.Time   `json:"timestamp"`
}

// Genesis builds the creation entry for a freshly minted record.
func Genesis(to id.HolderID, now time.Time) HistoryEvent {
	return HistoryEvent{From: id.HolderNone, To: to, Timestamp: now}
}
