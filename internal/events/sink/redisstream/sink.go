package redisstream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"tracelot/internal/events"
)

// DefaultMaxLen caps the stream so an unconsumed registry cannot grow Redis
// without bound. XADD trims approximately (the ~ form) for cheap appends.
const DefaultMaxLen = 100_000

// Sink appends ledger events to a Redis Stream. Consumers subscribe with
// XREAD/XREADGROUP; the ledger never reads the stream back.
type Sink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// Option configures a Sink.
type Option func(*Sink)

// WithMaxLen overrides the approximate stream length cap.
func WithMaxLen(maxLen int64) Option {
	return func(s *Sink) {
		if maxLen > 0 {
			s.maxLen = maxLen
		}
	}
}

// New constructs a Redis Stream sink writing to the named stream.
func New(client *redis.Client, stream string, opts ...Option) *Sink {
	s := &Sink{client: client, stream: stream, maxLen: DefaultMaxLen}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append XADDs the event as a flat field map.
func (s *Sink) Append(ctx context.Context, event events.Event) error {
	values := map[string]any{
		"id":         event.ID,
		"action":     event.Action,
		"timestamp":  event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"identifier": event.Identifier,
		"handle":     uint64(event.Handle),
		"from":       string(event.From),
		"to":         string(event.To),
	}
	if event.Action == events.ActionItemMinted {
		values["item_name"] = event.ItemName
		values["location_origin"] = event.LocationOrigin
		values["final_recipient"] = string(event.FinalRecipient)
	}
	if event.Action == events.ActionItemTransferred {
		values["reached_final"] = event.ReachedFinal
	}
	if event.RequestID != "" {
		values["request_id"] = event.RequestID
	}

	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
