package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tracelot/internal/events"
	"tracelot/internal/platform/middleware"
	"tracelot/internal/transport/shared"
	dErrors "tracelot/pkg/domain-errors"
)

// EventLog is the readable side of an event sink.
type EventLog interface {
	List(ctx context.Context) ([]events.Event, error)
	ListByIdentifier(ctx context.Context, identifier string) ([]events.Event, error)
}

// Handler exposes the in-process event log for local inspection. The stream
// sinks are the production surface; these routes exist for debugging and
// demos.
type Handler struct {
	logger *slog.Logger
	log    EventLog
}

// New creates an events Handler.
func New(log EventLog, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, log: log}
}

// Register registers the event inspection routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.handleList)
	r.Get("/items/{identifier}/events", h.handleListByIdentifier)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := h.log.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "event list failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
		return
	}
	if all == nil {
		all = []events.Event{}
	}

	shared.WriteJSON(w, http.StatusOK, all)
}

func (h *Handler) handleListByIdentifier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filtered, err := h.log.ListByIdentifier(ctx, chi.URLParam(r, "identifier"))
	if err != nil {
		h.logger.ErrorContext(ctx, "event list failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
		return
	}
	if filtered == nil {
		filtered = []events.Event{}
	}

	shared.WriteJSON(w, http.StatusOK, filtered)
}
