package events

import (
	"context"
	"log/slog"
)

// Sink receives ledger events. Implementations: in-memory store, Redis
// Stream, Kafka topic.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Worker consumes events from the publisher inbox and fans them out to every
// sink. A failing sink is logged and skipped; the stream is best-effort, so
// one slow or broken sink must not starve the others or crash the process.
type Worker struct {
	sinks  []Sink
	inbox  <-chan Event
	logger *slog.Logger
}

// NewWorker constructs a worker draining inbox into sinks.
func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{sinks: sinks, inbox: inbox, logger: logger}
}

// Run blocks until ctx is done, delivering events as they arrive.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			for _, sink := range w.sinks {
				if err := sink.Append(ctx, event); err != nil && w.logger != nil {
					w.logger.ErrorContext(ctx, "event sink append failed",
						"error", err,
						"action", event.Action,
						"identifier", event.Identifier,
					)
				}
			}
		}
	}
}
