package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tracelot/internal/ledger/models"
	id "tracelot/pkg/domain"
	"tracelot/pkg/platform/sentinel"
)

// uniqueViolation is the PostgreSQL error code raised by duplicate keys.
const uniqueViolation = "23505"

// Postgres is the durable ledger store. Handles come from the items table's
// BIGSERIAL primary key, so they are monotonic and never reused. received_seq
// orders a holder's set by when each item was minted or received.
type Postgres struct {
	db    *sql.DB
	clock Clock
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresOption {
	return func(s *Postgres) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	s := &Postgres{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema creates the ledger tables when absent. The store owns its DDL;
// there is no separate migration pipeline.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE SEQUENCE IF NOT EXISTS items_received_seq;

CREATE TABLE IF NOT EXISTS items (
	handle          BIGSERIAL PRIMARY KEY,
	identifier      TEXT NOT NULL UNIQUE,
	origin_holder   TEXT NOT NULL,
	final_recipient TEXT NOT NULL,
	current_holder  TEXT NOT NULL,
	item_name       TEXT NOT NULL,
	location_origin TEXT NOT NULL,
	reached_final   BOOLEAN NOT NULL DEFAULT FALSE,
	received_seq    BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_current_holder ON items (current_holder, received_seq);
CREATE INDEX IF NOT EXISTS idx_items_origin_holder ON items (origin_holder, handle);

CREATE TABLE IF NOT EXISTS history_events (
	id          BIGSERIAL PRIMARY KEY,
	handle      BIGINT NOT NULL REFERENCES items (handle),
	from_holder TEXT NOT NULL,
	to_holder   TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_events_handle ON history_events (handle, id);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// Mint inserts the record and its genesis history entry in one transaction.
// The identifier's UNIQUE constraint is the duplicate check, so concurrent
// mints of the same identifier race safely: one wins, the rest see
// sentinel.ErrAlreadyUsed.
func (s *Postgres) Mint(ctx context.Context, req models.MintRequest) (*models.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mint tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.clock()
	var handle id.Handle
	err = tx.QueryRowContext(ctx, `
		INSERT INTO items (identifier, origin_holder, final_recipient, current_holder,
			item_name, location_origin, reached_final, received_seq, created_at)
		VALUES ($1, $2, $3, $2, $4, $5, FALSE, nextval('items_received_seq'), $6)
		RETURNING handle`,
		req.Identifier, string(req.To), string(req.FinalRecipient),
		req.ItemName, req.LocationOrigin, now,
	).Scan(&handle)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, sentinel.ErrAlreadyUsed
		}
		return nil, fmt.Errorf("insert item: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history_events (handle, from_holder, to_holder, occurred_at)
		VALUES ($1, '', $2, $3)`,
		uint64(handle), string(req.To), now,
	); err != nil {
		return nil, fmt.Errorf("insert genesis event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mint: %w", err)
	}

	rec, err := models.NewRecord(handle, req.Identifier, req.To, req.FinalRecipient, req.ItemName, req.LocationOrigin, now)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Transfer locks the item row, runs the precondition chain in order, and
// applies the history append, holder move and flag latch atomically. The
// row lock serializes concurrent transfers on the same record; operations
// on distinct records proceed independently.
func (s *Postgres) Transfer(ctx context.Context, caller id.HolderID, identifier string, to id.HolderID) (*models.Record, models.HistoryEvent, error) {
	var (
		rec   models.Record
		event models.HistoryEvent
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, event, fmt.Errorf("begin transfer tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT handle, identifier, origin_holder, final_recipient, current_holder,
			item_name, location_origin, reached_final, created_at
		FROM items WHERE identifier = $1 FOR UPDATE`, identifier)
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event, sentinel.ErrNotFound
		}
		return nil, event, fmt.Errorf("lock item: %w", err)
	}

	if err := rec.CanRelease(caller, to); err != nil {
		return nil, event, err
	}

	now := s.clock()
	var last time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(occurred_at), 'epoch'::timestamptz) FROM history_events WHERE handle = $1`,
		uint64(rec.Handle),
	).Scan(&last)
	if err != nil {
		return nil, event, fmt.Errorf("read last event time: %w", err)
	}
	if now.Before(last) {
		now = last
	}

	rec.ApplyTransfer(to)
	if _, err := tx.ExecContext(ctx, `
		UPDATE items SET current_holder = $1, reached_final = $2,
			received_seq = nextval('items_received_seq')
		WHERE handle = $3`,
		string(rec.CurrentHolder), rec.ReachedFinal, uint64(rec.Handle),
	); err != nil {
		return nil, event, fmt.Errorf("update item custody: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history_events (handle, from_holder, to_holder, occurred_at)
		VALUES ($1, $2, $3, $4)`,
		uint64(rec.Handle), string(caller), string(to), now,
	); err != nil {
		return nil, event, fmt.Errorf("insert transfer event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, event, fmt.Errorf("commit transfer: %w", err)
	}

	event = models.HistoryEvent{From: caller, To: to, Timestamp: now}
	return &rec, event, nil
}

// FindByIdentifier returns the record, or sentinel.ErrNotFound.
func (s *Postgres) FindByIdentifier(ctx context.Context, identifier string) (*models.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT handle, identifier, origin_holder, final_recipient, current_holder,
			item_name, location_origin, reached_final, created_at
		FROM items WHERE identifier = $1`, identifier)

	var rec models.Record
	if err := scanRecord(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	return &rec, nil
}

// History returns the record's events in append order; empty for a handle
// that was never minted.
func (s *Postgres) History(ctx context.Context, handle id.Handle) ([]models.HistoryEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_holder, to_holder, occurred_at
		FROM history_events WHERE handle = $1 ORDER BY id`, uint64(handle))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	events := []models.HistoryEvent{}
	for rows.Next() {
		var (
			from, to string
			at       time.Time
		)
		if err := rows.Scan(&from, &to, &at); err != nil {
			return nil, fmt.Errorf("scan history event: %w", err)
		}
		events = append(events, models.HistoryEvent{
			From:      id.HolderID(from),
			To:        id.HolderID(to),
			Timestamp: at,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return events, nil
}

// HeldBy lists identifiers currently held, ordered by receive sequence.
func (s *Postgres) HeldBy(ctx context.Context, holder id.HolderID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier FROM items
		WHERE current_holder = $1 ORDER BY received_seq`, string(holder))
	if err != nil {
		return nil, fmt.Errorf("query held items: %w", err)
	}
	defer rows.Close()

	identifiers := []string{}
	for rows.Next() {
		var identifier string
		if err := rows.Scan(&identifier); err != nil {
			return nil, fmt.Errorf("scan held identifier: %w", err)
		}
		identifiers = append(identifiers, identifier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate held items: %w", err)
	}
	return identifiers, nil
}

// MintedBy returns records by origin holder in handle-creation order.
func (s *Postgres) MintedBy(ctx context.Context, holder id.HolderID) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT handle, identifier, origin_holder, final_recipient, current_holder,
			item_name, location_origin, reached_final, created_at
		FROM items WHERE origin_holder = $1 ORDER BY handle`, string(holder))
	if err != nil {
		return nil, fmt.Errorf("query minted items: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var rec models.Record
		if err := scanRecord(rows, &rec); err != nil {
			return nil, fmt.Errorf("scan minted item: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate minted items: %w", err)
	}
	return out, nil
}

// Snapshot returns summary rows for all records in handle-creation order.
func (s *Postgres) Snapshot(ctx context.Context) ([]models.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, current_holder, item_name, location_origin, final_recipient
		FROM items ORDER BY handle`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	out := []models.Summary{}
	for rows.Next() {
		var (
			row              models.Summary
			current, final   string
		)
		if err := rows.Scan(&row.Identifier, &current, &row.ItemName, &row.LocationOrigin, &final); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		row.CurrentHolder = id.HolderID(current)
		row.FinalRecipient = id.HolderID(final)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner, rec *models.Record) error {
	var (
		handle                 uint64
		origin, final, current string
	)
	if err := row.Scan(&handle, &rec.Identifier, &origin, &final, &current,
		&rec.ItemName, &rec.LocationOrigin, &rec.ReachedFinal, &rec.CreatedAt); err != nil {
		return err
	}
	rec.Handle = id.Handle(handle)
	rec.OriginHolder = id.HolderID(origin)
	rec.FinalRecipient = id.HolderID(final)
	rec.CurrentHolder = id.HolderID(current)
	return nil
}
