package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tracelot/internal/events"
	"tracelot/internal/ledger/models"
	"tracelot/internal/ledger/store/items"
	id "tracelot/pkg/domain"
	dErrors "tracelot/pkg/domain-errors"
)

// =============================================================================
// Ledger Service Test Suite
// =============================================================================
// Justification for unit tests: the service owns the translation from store
// facts to coded errors and the emission of one notification per successful
// mutation. Both are contracts the HTTP layer depends on and are cheapest to
// pin down here, against the real in-memory store.

type capturePublisher struct {
	published []events.Event
}

func (p *capturePublisher) Emit(_ context.Context, event events.Event) error {
	p.published = append(p.published, event)
	return nil
}

type LedgerServiceSuite struct {
	suite.Suite
	store     *items.InMemory
	publisher *capturePublisher
	service   *Service
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.store = items.NewInMemory(items.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}))
	s.publisher = &capturePublisher{}
	s.service = New(s.store,
		WithLogger(slog.Default()),
		WithPublisher(s.publisher),
	)
}

func (s *LedgerServiceSuite) mintReq(identifier string) models.MintRequest {
	return models.MintRequest{
		Identifier:     identifier,
		To:             "alice",
		ItemName:       "evidence bag",
		LocationOrigin: "locker-7",
		FinalRecipient: "court",
	}
}

// =============================================================================
// Mint Tests
// =============================================================================

func (s *LedgerServiceSuite) TestMint() {
	ctx := context.Background()

	s.Run("valid request mints record and emits event", func() {
		rec, err := s.service.Mint(ctx, s.mintReq("serial-001"))
		s.Require().NoError(err)
		s.Equal(id.Handle(1), rec.Handle)
		s.Equal(id.HolderID("alice"), rec.CurrentHolder)
		s.False(rec.ReachedFinal)

		s.Require().Len(s.publisher.published, 1)
		event := s.publisher.published[0]
		s.Equal(events.ActionItemMinted, event.Action)
		s.Equal("serial-001", event.Identifier)
		s.True(event.From.IsNone())
		s.Equal(id.HolderID("alice"), event.To)
	})

	s.Run("empty final recipient rejected before other fields", func() {
		req := s.mintReq("serial-002")
		req.FinalRecipient = ""
		req.ItemName = ""
		_, err := s.service.Mint(ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	s.Run("empty initial holder rejected", func() {
		req := s.mintReq("serial-002")
		req.To = "   "
		_, err := s.service.Mint(ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	s.Run("empty item name rejected", func() {
		req := s.mintReq("serial-002")
		req.ItemName = ""
		_, err := s.service.Mint(ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeEmptyString))
	})

	s.Run("empty location origin rejected", func() {
		req := s.mintReq("serial-002")
		req.LocationOrigin = ""
		_, err := s.service.Mint(ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeEmptyString))
	})

	s.Run("empty identifier rejected", func() {
		req := s.mintReq("  ")
		_, err := s.service.Mint(ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeEmptyString))
	})

	s.Run("duplicate identifier rejected with no event", func() {
		_, err := s.service.Mint(ctx, s.mintReq("serial-dup"))
		s.Require().NoError(err)
		emitted := len(s.publisher.published)

		_, err = s.service.Mint(ctx, s.mintReq("serial-dup"))
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateRealID))
		s.Len(s.publisher.published, emitted)
	})

	s.Run("rejected mint does not consume a handle", func() {
		req := s.mintReq("serial-gap")
		req.ItemName = ""
		_, err := s.service.Mint(ctx, req)
		s.Require().Error(err)

		rec, err := s.service.Mint(ctx, s.mintReq("serial-after-gap"))
		s.Require().NoError(err)
		prev, err := s.service.GetItemDetails(ctx, "serial-dup")
		s.Require().NoError(err)
		s.Equal(prev.Handle+1, rec.Handle)
	})
}

// =============================================================================
// Transfer Tests
// =============================================================================

func (s *LedgerServiceSuite) TestTransfer() {
	ctx := context.Background()

	s.Run("holder moves custody and emits event", func() {
		_, err := s.service.Mint(ctx, s.mintReq("xfer-001"))
		s.Require().NoError(err)

		rec, err := s.service.Transfer(ctx, "alice", models.TransferRequest{
			Identifier: "xfer-001",
			To:         "bob",
		})
		s.Require().NoError(err)
		s.Equal(id.HolderID("bob"), rec.CurrentHolder)
		s.False(rec.ReachedFinal)

		event := s.publisher.published[len(s.publisher.published)-1]
		s.Equal(events.ActionItemTransferred, event.Action)
		s.Equal(id.HolderID("alice"), event.From)
		s.Equal(id.HolderID("bob"), event.To)
		s.False(event.ReachedFinal)
	})

	s.Run("missing caller identity rejected", func() {
		_, err := s.service.Transfer(ctx, id.HolderNone, models.TransferRequest{
			Identifier: "xfer-001",
			To:         "bob",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown identifier rejected", func() {
		_, err := s.service.Transfer(ctx, "alice", models.TransferRequest{
			Identifier: "no-such-item",
			To:         "bob",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeItemNotFound))
	})

	s.Run("non-holder cannot release", func() {
		_, err := s.service.Mint(ctx, s.mintReq("xfer-002"))
		s.Require().NoError(err)

		_, err = s.service.Transfer(ctx, "mallory", models.TransferRequest{
			Identifier: "xfer-002",
			To:         "bob",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotCurrentOwner))
	})

	s.Run("empty target rejected after custody check", func() {
		_, err := s.service.Transfer(ctx, "alice", models.TransferRequest{
			Identifier: "xfer-002",
			To:         "",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAddress))
	})

	s.Run("delivery to final recipient freezes the item", func() {
		_, err := s.service.Mint(ctx, s.mintReq("xfer-final"))
		s.Require().NoError(err)

		rec, err := s.service.Transfer(ctx, "alice", models.TransferRequest{
			Identifier: "xfer-final",
			To:         "court",
		})
		s.Require().NoError(err)
		s.True(rec.ReachedFinal)

		event := s.publisher.published[len(s.publisher.published)-1]
		s.True(event.ReachedFinal)

		_, err = s.service.Transfer(ctx, "court", models.TransferRequest{
			Identifier: "xfer-final",
			To:         "bob",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeItemFinalized))
	})

	s.Run("failed transfer emits no event", func() {
		emitted := len(s.publisher.published)
		_, err := s.service.Transfer(ctx, "mallory", models.TransferRequest{
			Identifier: "xfer-002",
			To:         "bob",
		})
		s.Require().Error(err)
		s.Len(s.publisher.published, emitted)
	})
}

// =============================================================================
// Query Tests
// =============================================================================

func (s *LedgerServiceSuite) TestQueries() {
	ctx := context.Background()

	_, err := s.service.Mint(ctx, s.mintReq("q-001"))
	s.Require().NoError(err)
	_, err = s.service.Mint(ctx, s.mintReq("q-002"))
	s.Require().NoError(err)
	_, err = s.service.Transfer(ctx, "alice", models.TransferRequest{Identifier: "q-001", To: "bob"})
	s.Require().NoError(err)

	s.Run("item details by identifier", func() {
		rec, err := s.service.GetItemDetails(ctx, "q-001")
		s.Require().NoError(err)
		s.Equal("evidence bag", rec.ItemName)
		s.Equal(id.HolderID("alice"), rec.OriginHolder)
	})

	s.Run("unknown identifier returns not found", func() {
		_, err := s.service.GetItemDetails(ctx, "missing")
		s.True(dErrors.HasCode(err, dErrors.CodeItemNotFound))
	})

	s.Run("current holder follows transfers", func() {
		holder, err := s.service.GetCurrentHolder(ctx, "q-001")
		s.Require().NoError(err)
		s.Equal(id.HolderID("bob"), holder)
	})

	s.Run("history records genesis and transfer in order", func() {
		rec, err := s.service.GetItemDetails(ctx, "q-001")
		s.Require().NoError(err)

		history, err := s.service.GetHistory(ctx, rec.Handle)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.True(history[0].From.IsNone())
		s.Equal(id.HolderID("alice"), history[0].To)
		s.Equal(id.HolderID("alice"), history[1].From)
		s.Equal(id.HolderID("bob"), history[1].To)
	})

	s.Run("history of never-minted handle is empty without error", func() {
		history, err := s.service.GetHistory(ctx, id.Handle(9999))
		s.Require().NoError(err)
		s.Empty(history)
	})

	s.Run("held items track current custody only", func() {
		held, err := s.service.GetHandlesHeldBy(ctx, "alice")
		s.Require().NoError(err)
		s.ElementsMatch([]string{"q-002"}, held)

		held, err = s.service.GetHandlesHeldBy(ctx, "bob")
		s.Require().NoError(err)
		s.ElementsMatch([]string{"q-001"}, held)
	})

	s.Run("minted items keyed by origin holder regardless of custody", func() {
		minted, err := s.service.GetRecordsByOrigin(ctx, "alice")
		s.Require().NoError(err)
		s.Require().Len(minted, 2)
		s.Equal("q-001", minted[0].Identifier)
		s.Equal("q-002", minted[1].Identifier)
	})

	s.Run("snapshot lists every record in creation order", func() {
		snapshot, err := s.service.GetAllRecordsSnapshot(ctx)
		s.Require().NoError(err)
		s.Require().Len(snapshot, 2)
		s.Equal("q-001", snapshot[0].Identifier)
		s.Equal("q-002", snapshot[1].Identifier)
	})
}
