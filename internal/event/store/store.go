package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/event"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*event.Event, error) {
	var ev event.Event

	var typeStr string

	if err := s.Scan(
		&ev.ID, &ev.Seq, &typeStr, &ev.BookingID, &ev.PayoutID,
		&ev.HostID, &ev.Payload, &ev.OccurredAt,
	); err != nil {
		return nil, err
	}

	ev.Type = event.Type(typeStr)

	return &ev, nil
}

func (s *Store) ListEvents(ctx context.Context, filter event.ListFilter) ([]*event.Event, error) {
	query := `
		SELECT id, seq, type, booking_id, payout_id, host_id, payload, occurred_at
		FROM events
		WHERE host_id = $1 AND seq > $2
		ORDER BY seq ASC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, filter.HostID, filter.AfterSeq, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event

	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}

	return events, nil
}

func scanSubscription(s scanner) (*event.Subscription, error) {
	var sub event.Subscription

	var eventsJSON []byte

	if err := s.Scan(
		&sub.ID, &sub.HostID, &sub.URL, &sub.Secret, &eventsJSON,
		&sub.Active, &sub.ConsecutiveFailures, &sub.CreatedAt, &sub.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(eventsJSON, &sub.Events); err != nil {
		return nil, fmt.Errorf("decoding subscription events: %w", err)
	}

	return &sub, nil
}

const selectSubscriptionColumns = `
	id, host_id, url, secret, events, active, consecutive_failures, created_at, updated_at
`

func (s *Store) CreateSubscription(ctx context.Context, sub *event.Subscription) error {
	eventsJSON, err := json.Marshal(sub.Events)
	if err != nil {
		return fmt.Errorf("encoding subscription events: %w", err)
	}

	query := `
		INSERT INTO webhook_subscriptions (host_id, url, secret, events, active, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		sub.HostID,
		sub.URL,
		sub.Secret,
		eventsJSON,
		sub.Active,
	).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating subscription: %w", err)
	}

	return nil
}

func (s *Store) GetSubscription(ctx context.Context, id uuid.UUID) (*event.Subscription, error) {
	query := `SELECT ` + selectSubscriptionColumns + ` FROM webhook_subscriptions WHERE id = $1`

	sub, err := scanSubscription(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, event.ErrNotFound
		}

		return nil, fmt.Errorf("getting subscription: %w", err)
	}

	return sub, nil
}

func (s *Store) ListSubscriptions(ctx context.Context, hostID uuid.UUID) ([]*event.Subscription, error) {
	query := `SELECT ` + selectSubscriptionColumns + `
		FROM webhook_subscriptions
		WHERE host_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, hostID)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*event.Subscription

	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}

		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscription rows: %w", err)
	}

	return subs, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *event.Subscription) error {
	eventsJSON, err := json.Marshal(sub.Events)
	if err != nil {
		return fmt.Errorf("encoding subscription events: %w", err)
	}

	query := `
		UPDATE webhook_subscriptions
		SET url = $1, secret = $2, events = $3, active = $4, consecutive_failures = $5, updated_at = NOW()
		WHERE id = $6
	`

	_, err = s.db.ExecContext(ctx, query,
		sub.URL,
		sub.Secret,
		eventsJSON,
		sub.Active,
		sub.ConsecutiveFailures,
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}

	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}

	return nil
}

// RecordDelivery updates the failure counter under a row lock so concurrent
// dispatcher reports do not lose increments. Reaching disableAfter
// consecutive failures deactivates the subscription.
func (s *Store) RecordDelivery(ctx context.Context, id uuid.UUID, ok bool, disableAfter int) (*event.Subscription, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning delivery tx: %w", err)
	}
	defer dbTx.Rollback()

	query := `SELECT ` + selectSubscriptionColumns + ` FROM webhook_subscriptions WHERE id = $1 FOR UPDATE`

	sub, err := scanSubscription(dbTx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, event.ErrNotFound
		}

		return nil, fmt.Errorf("locking subscription: %w", err)
	}

	// The dispatcher should not be delivering to a disabled endpoint;
	// reject the report rather than counting it.
	if !sub.Active {
		return nil, event.ErrDisabled
	}

	sub.ApplyDelivery(ok, disableAfter)

	update := `
		UPDATE webhook_subscriptions
		SET active = $1, consecutive_failures = $2, updated_at = NOW()
		WHERE id = $3
	`
	if _, err := dbTx.ExecContext(ctx, update, sub.Active, sub.ConsecutiveFailures, sub.ID); err != nil {
		return nil, fmt.Errorf("recording delivery: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("committing delivery tx: %w", err)
	}

	return sub, nil
}
