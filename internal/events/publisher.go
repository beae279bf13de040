package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher accepts ledger events into a bounded inbox consumed by a Worker.
// Emit never blocks the mutation path: when the inbox is full the event is
// dropped and logged. Consumers that need a complete record of custody
// changes read the history log, not the stream.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewPublisher constructs a publisher with the given inbox capacity.
func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit stamps and enqueues the event. It returns nil even when the event is
// dropped; the stream is advisory.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case p.inbox <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "event inbox full, dropping event",
				"action", event.Action,
				"identifier", event.Identifier,
			)
		}
	}
	return nil
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
