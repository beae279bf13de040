package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tracelot/internal/ledger/models"
	"tracelot/internal/platform/middleware"
	"tracelot/internal/transport/shared"
	id "tracelot/pkg/domain"
	dErrors "tracelot/pkg/domain-errors"
)

// Service defines the ledger operations the HTTP layer depends on.
type Service interface {
	Mint(ctx context.Context, req models.MintRequest) (*models.Record, error)
	Transfer(ctx context.Context, caller id.HolderID, req models.TransferRequest) (*models.Record, error)
	GetItemDetails(ctx context.Context, identifier string) (*models.Record, error)
	GetCurrentHolder(ctx context.Context, identifier string) (id.HolderID, error)
	GetHistory(ctx context.Context, handle id.Handle) ([]models.HistoryEvent, error)
	GetHandlesHeldBy(ctx context.Context, holder id.HolderID) ([]string, error)
	GetRecordsByOrigin(ctx context.Context, holder id.HolderID) ([]*models.Record, error)
	GetAllRecordsSnapshot(ctx context.Context) ([]models.Summary, error)
}

// Handler exposes the item registry over HTTP.
type Handler struct {
	logger   *slog.Logger
	ledger   Service
	verifier middleware.HolderVerifier
	guards   []func(http.Handler) http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithMintGuard installs extra middleware on the mint route, e.g. rate
// limiting.
func WithMintGuard(guard func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.guards = append(h.guards, guard)
	}
}

// New creates a ledger Handler. The verifier authenticates transfer callers;
// reads and mints are open.
func New(ledger Service, verifier middleware.HolderVerifier, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger:   logger,
		ledger:   ledger,
		verifier: verifier,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the ledger routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		for _, guard := range h.guards {
			r.Use(guard)
		}
		r.Post("/items", h.handleMint)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireHolder(h.verifier, h.logger))
		r.Post("/items/{identifier}/transfer", h.handleTransfer)
	})

	r.Get("/items", h.handleSnapshot)
	r.Get("/items/{identifier}", h.handleItemDetails)
	r.Get("/items/{identifier}/holder", h.handleCurrentHolder)
	r.Get("/handles/{handle}/history", h.handleHistory)
	r.Get("/holders/{holder}/items", h.handleHeldBy)
	r.Get("/holders/{holder}/minted", h.handleMintedBy)
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid mint request body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	rec, err := h.ledger.Mint(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "mint rejected", err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, rec)
}

type transferBody struct {
	To id.HolderID `json:"to"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller := middleware.GetHolder(ctx)
	if caller.IsNone() {
		// RequireHolder guarantees a holder; reaching here is a wiring bug.
		h.logger.ErrorContext(ctx, "holder missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var body transferBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WarnContext(ctx, "invalid transfer request body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	rec, err := h.ledger.Transfer(ctx, caller, models.TransferRequest{
		Identifier: chi.URLParam(r, "identifier"),
		To:         body.To,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "transfer rejected", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snapshot, err := h.ledger.GetAllRecordsSnapshot(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "snapshot failed", err)
		return
	}
	if snapshot == nil {
		snapshot = []models.Summary{}
	}

	shared.WriteJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleItemDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rec, err := h.ledger.GetItemDetails(ctx, chi.URLParam(r, "identifier"))
	if err != nil {
		h.writeServiceError(ctx, w, "item lookup failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleCurrentHolder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	holder, err := h.ledger.GetCurrentHolder(ctx, chi.URLParam(r, "identifier"))
	if err != nil {
		h.writeServiceError(ctx, w, "holder lookup failed", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]id.HolderID{"holder": holder})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	handle, err := id.ParseHandle(chi.URLParam(r, "handle"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	history, err := h.ledger.GetHistory(ctx, handle)
	if err != nil {
		h.writeServiceError(ctx, w, "history lookup failed", err)
		return
	}
	if history == nil {
		history = []models.HistoryEvent{}
	}

	shared.WriteJSON(w, http.StatusOK, history)
}

func (h *Handler) handleHeldBy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	held, err := h.ledger.GetHandlesHeldBy(ctx, id.HolderID(chi.URLParam(r, "holder")))
	if err != nil {
		h.writeServiceError(ctx, w, "held lookup failed", err)
		return
	}
	if held == nil {
		held = []string{}
	}

	shared.WriteJSON(w, http.StatusOK, held)
}

func (h *Handler) handleMintedBy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	minted, err := h.ledger.GetRecordsByOrigin(ctx, id.HolderID(chi.URLParam(r, "holder")))
	if err != nil {
		h.writeServiceError(ctx, w, "minted lookup failed", err)
		return
	}
	if minted == nil {
		minted = []*models.Record{}
	}

	shared.WriteJSON(w, http.StatusOK, minted)
}

// writeServiceError logs at a level matching the error class and writes the
// envelope. Client mistakes are warnings; anything uncoded is an internal
// error.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)
	if _, ok := dErrors.CodeOf(err); ok && !dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.ErrorContext(ctx, msg,
		"request_id", requestID,
		"error", err.Error(),
	)
	shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
}
