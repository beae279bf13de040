package ledger

import (
	"log/slog"

	"tracelot/internal/ledger/handler"
	"tracelot/internal/ledger/service"
	"tracelot/internal/platform/middleware"
)

// Service exposes the item registry orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the ledger service.
type Handler = handler.Handler

// NewService constructs the ledger service over any LedgerStore.
func NewService(store service.LedgerStore, opts ...service.Option) *Service {
	return service.New(store, opts...)
}

// NewHandler constructs the HTTP handler for the registry routes.
func NewHandler(s *Service, verifier middleware.HolderVerifier, logger *slog.Logger, opts ...handler.Option) *Handler {
	return handler.New(s, verifier, logger, opts...)
}
