package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tracelot/pkg/domain-errors"
	"tracelot/pkg/platform/sentinel"
)

func newTestRecord(t *testing.T) *Record {
	t.Helper()
	rec, err := NewRecord(1, "serial-1", "alice", "court", "sealed evidence", "intake-desk", time.Now())
	require.NoError(t, err)
	return rec
}

func TestNewRecordInvariants(t *testing.T) {
	now := time.Now()

	_, err := NewRecord(1, "", "alice", "court", "name", "origin", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewRecord(1, "serial", "", "court", "name", "origin", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewRecord(1, "serial", "alice", "", "name", "origin", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	rec, err := NewRecord(1, "serial", "alice", "court", "name", "origin", now)
	require.NoError(t, err)
	assert.Equal(t, rec.OriginHolder, rec.CurrentHolder)
	assert.False(t, rec.ReachedFinal)
}

// Custody outranks recipient shape, recipient shape outranks the freeze.
func TestCanReleaseOrdering(t *testing.T) {
	rec := newTestRecord(t)

	assert.ErrorIs(t, rec.CanRelease("mallory", "bob"), sentinel.ErrNotCurrentHolder)
	assert.ErrorIs(t, rec.CanRelease("mallory", ""), sentinel.ErrNotCurrentHolder)
	assert.ErrorIs(t, rec.CanRelease("alice", ""), sentinel.ErrInvalidRecipient)
	assert.NoError(t, rec.CanRelease("alice", "bob"))

	rec.ApplyTransfer("court")
	require.True(t, rec.ReachedFinal)

	assert.ErrorIs(t, rec.CanRelease("mallory", "bob"), sentinel.ErrNotCurrentHolder)
	assert.ErrorIs(t, rec.CanRelease("court", ""), sentinel.ErrInvalidRecipient)
	assert.ErrorIs(t, rec.CanRelease("court", "bob"), sentinel.ErrFinalized)
}

func TestApplyTransferLatch(t *testing.T) {
	rec := newTestRecord(t)

	rec.ApplyTransfer("bob")
	assert.Equal(t, "bob", rec.CurrentHolder.String())
	assert.False(t, rec.ReachedFinal)

	rec.ApplyTransfer("court")
	assert.True(t, rec.ReachedFinal)
}

func TestSummarizeReflectsCurrentHolder(t *testing.T) {
	rec := newTestRecord(t)
	rec.ApplyTransfer("bob")

	summary := rec.Summarize()
	assert.Equal(t, "serial-1", summary.Identifier)
	assert.Equal(t, "bob", summary.CurrentHolder.String())
	assert.Equal(t, "court", summary.FinalRecipient.String())
}

func TestGenesisEvent(t *testing.T) {
	now := time.Now()
	event := Genesis("alice", now)

	assert.True(t, event.From.IsNone())
	assert.Equal(t, "alice", event.To.String())
	assert.Equal(t, now, event.Timestamp)
}

func TestMintRequestValidateOrder(t *testing.T) {
	valid := MintRequest{
		Identifier:     "serial-1",
		To:             "alice",
		ItemName:       "sealed evidence",
		LocationOrigin: "intake-desk",
		FinalRecipient: "court",
	}
	require.NoError(t, valid.Validate())

	// Every field invalid: the final recipient is reported first.
	allBad := MintRequest{}
	err := allBad.Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))

	withFinal := allBad
	withFinal.FinalRecipient = "court"
	err = withFinal.Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidAddress))

	withTo := withFinal
	withTo.To = "alice"
	err = withTo.Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEmptyString))
}

func TestNormalizeTrims(t *testing.T) {
	req := MintRequest{
		Identifier:     "  serial-1  ",
		To:             " alice ",
		ItemName:       " sealed evidence ",
		LocationOrigin: " intake-desk ",
		FinalRecipient: " court ",
	}
	req.Normalize()
	assert.Equal(t, "serial-1", req.Identifier)
	assert.Equal(t, "alice", req.To.String())
	assert.Equal(t, "court", req.FinalRecipient.String())

	xfer := TransferRequest{Identifier: " serial-1 ", To: " bob "}
	xfer.Normalize()
	assert.Equal(t, "serial-1", xfer.Identifier)
	assert.Equal(t, "bob", xfer.To.String())
}
