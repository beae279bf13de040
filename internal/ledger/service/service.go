package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tracelot/internal/events"
	"tracelot/internal/ledger/metrics"
	"tracelot/internal/ledger/models"
	"tracelot/internal/platform/middleware"
	id "tracelot/pkg/domain"
	dErrors "tracelot/pkg/domain-errors"
	"tracelot/pkg/platform/sentinel"
)

// LedgerStore is the registry's transactional state. Implementations must
// run each mutation's read-validate-mutate sequence atomically and expose
// only fully consistent snapshots to readers.
type LedgerStore interface {
	Mint(ctx context.Context, req models.MintRequest) (*models.Record, error)
	Transfer(ctx context.Context, caller id.HolderID, identifier string, to id.HolderID) (*models.Record, models.HistoryEvent, error)
	FindByIdentifier(ctx context.Context, identifier string) (*models.Record, error)
	History(ctx context.Context, handle id.Handle) ([]models.HistoryEvent, error)
	HeldBy(ctx context.Context, holder id.HolderID) ([]string, error)
	MintedBy(ctx context.Context, holder id.HolderID) ([]*models.Record, error)
	Snapshot(ctx context.Context) ([]models.Summary, error)
}

// EventPublisher receives one event per successful mutation.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service orchestrates the item registry: input validation in precondition
// order, sentinel-to-domain error translation, audit logging, metrics and
// the notification stream. All custody invariants live in the store's
// critical section; the service never re-checks state outside it.
type Service struct {
	store     LedgerStore
	logger    *slog.Logger
	publisher EventPublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New constructs a Service.
func New(store LedgerStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tracer: otel.Tracer("tracelot/ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint registers a new item. Registration is open; there is no caller
// restriction. Preconditions run in their fixed order: invalid addresses
// first, then the required text fields, then identifier uniqueness inside
// the store.
func (s *Service) Mint(ctx context.Context, req models.MintRequest) (*models.Record, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger.Mint")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		s.countRejection(err)
		return nil, err
	}

	rec, err := s.store.Mint(ctx, req)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			err = dErrors.New(dErrors.CodeDuplicateRealID, "identifier already registered")
			s.countRejection(err)
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint item")
	}

	span.SetAttributes(
		attribute.String("item.identifier", rec.Identifier),
		attribute.Int64("item.handle", int64(rec.Handle)),
	)
	s.logAudit(ctx, "item_minted",
		"identifier", rec.Identifier,
		"handle", rec.Handle.String(),
		"holder_id", rec.CurrentHolder.String(),
	)
	if s.metrics != nil {
		s.metrics.ItemsMinted.Inc()
		s.metrics.ObserveMint(start)
	}
	s.emit(ctx, events.Event{
		Action:         events.ActionItemMinted,
		Identifier:     rec.Identifier,
		Handle:         rec.Handle,
		From:           id.HolderNone,
		To:             rec.CurrentHolder,
		ItemName:       rec.ItemName,
		LocationOrigin: rec.LocationOrigin,
		FinalRecipient: rec.FinalRecipient,
	})

	return rec, nil
}

// Transfer moves custody of an item. The caller identity arrives from the
// authentication layer; the store enforces the precondition chain (unknown
// item, custody, recipient, freeze) atomically and this method names each
// fact with its domain code.
func (s *Service) Transfer(ctx context.Context, caller id.HolderID, req models.TransferRequest) (*models.Record, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger.Transfer")
	defer span.End()

	if caller.IsNone() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity is required")
	}
	req.Normalize()

	rec, event, err := s.store.Transfer(ctx, caller, req.Identifier, req.To)
	if err != nil {
		err = translateTransferFact(err)
		s.countRejection(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("item.identifier", rec.Identifier),
		attribute.Bool("item.reached_final", rec.ReachedFinal),
	)
	s.logAudit(ctx, "item_transferred",
		"identifier", rec.Identifier,
		"handle", rec.Handle.String(),
		"holder_id", rec.CurrentHolder.String(),
		"from", event.From.String(),
		"reached_final", rec.ReachedFinal,
	)
	if s.metrics != nil {
		s.metrics.Transfers.Inc()
		if rec.ReachedFinal {
			s.metrics.ItemsFinalized.Inc()
		}
		s.metrics.ObserveTransfer(start)
	}
	s.emit(ctx, events.Event{
		Action:       events.ActionItemTransferred,
		Identifier:   rec.Identifier,
		Handle:       rec.Handle,
		From:         event.From,
		To:           event.To,
		Timestamp:    event.Timestamp,
		ReachedFinal: rec.ReachedFinal,
	})

	return rec, nil
}

// GetItemDetails returns the record snapshot for an identifier.
func (s *Service) GetItemDetails(ctx context.Context, identifier string) (*models.Record, error) {
	rec, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeItemNotFound, "item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load item")
	}
	return rec, nil
}

// GetCurrentHolder returns the identity currently holding the item.
func (s *Service) GetCurrentHolder(ctx context.Context, identifier string) (id.HolderID, error) {
	rec, err := s.GetItemDetails(ctx, identifier)
	if err != nil {
		return id.HolderNone, err
	}
	return rec.CurrentHolder, nil
}

// GetHistory returns the item's custody history; empty for a handle that
// was never minted.
func (s *Service) GetHistory(ctx context.Context, handle id.Handle) ([]models.HistoryEvent, error) {
	events, err := s.store.History(ctx, handle)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	return events, nil
}

// GetHandlesHeldBy lists identifiers currently held by the holder.
func (s *Service) GetHandlesHeldBy(ctx context.Context, holder id.HolderID) ([]string, error) {
	held, err := s.store.HeldBy(ctx, holder)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list held items")
	}
	return held, nil
}

// GetRecordsByOrigin lists records minted to the holder, creation-ordered.
func (s *Service) GetRecordsByOrigin(ctx context.Context, holder id.HolderID) ([]*models.Record, error) {
	records, err := s.store.MintedBy(ctx, holder)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list minted items")
	}
	return records, nil
}

// GetAllRecordsSnapshot returns the full registry summary, creation-ordered.
func (s *Service) GetAllRecordsSnapshot(ctx context.Context) ([]models.Summary, error) {
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to snapshot registry")
	}
	return snapshot, nil
}

// translateTransferFact names each store fact with its domain code. Every
// rejection is specific; there is no generic fallback for a known fact.
func translateTransferFact(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeItemNotFound, "item not found")
	case errors.Is(err, sentinel.ErrNotCurrentHolder):
		return dErrors.New(dErrors.CodeNotCurrentOwner, "caller does not hold custody of this item")
	case errors.Is(err, sentinel.ErrInvalidRecipient):
		return dErrors.New(dErrors.CodeInvalidAddress, "transfer target is not a valid holder identity")
	case errors.Is(err, sentinel.ErrFinalized):
		return dErrors.New(dErrors.CodeItemFinalized, "item already reached its final recipient")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to transfer item")
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	event.RequestID = middleware.GetRequestID(ctx)
	_ = s.publisher.Emit(ctx, event)
}

func (s *Service) countRejection(err error) {
	if s.metrics == nil {
		return
	}
	if code, ok := dErrors.CodeOf(err); ok {
		s.metrics.IncrementRejected(string(code))
	}
}
