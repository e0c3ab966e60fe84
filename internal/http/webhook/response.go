package webhook

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/event"
)

type subscriptionResponse struct {
	ID                  uuid.UUID  `json:"id"`
	URL                 string     `json:"url"`
	Events              []string   `json:"events"`
	Active              bool       `json:"active"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

func toResponse(sub *event.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                  sub.ID,
		URL:                 sub.URL,
		Events:              sub.Events,
		Active:              sub.Active,
		ConsecutiveFailures: sub.ConsecutiveFailures,
		CreatedAt:           sub.CreatedAt,
		UpdatedAt:           sub.UpdatedAt,
	}
}

func toResponseList(subs []*event.Subscription) []subscriptionResponse {
	resp := make([]subscriptionResponse, len(subs))
	for i, sub := range subs {
		resp[i] = toResponse(sub)
	}

	return resp
}

type eventResponse struct {
	ID         uuid.UUID       `json:"id"`
	Seq        int64           `json:"seq"`
	Type       event.Type      `json:"type"`
	BookingID  *uuid.UUID      `json:"booking_id,omitempty"`
	PayoutID   *uuid.UUID      `json:"payout_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func toEventResponse(ev *event.Event) eventResponse {
	return eventResponse{
		ID:         ev.ID,
		Seq:        ev.Seq,
		Type:       ev.Type,
		BookingID:  ev.BookingID,
		PayoutID:   ev.PayoutID,
		Payload:    ev.Payload,
		OccurredAt: ev.OccurredAt,
	}
}

func toEventResponseList(events []*event.Event) []eventResponse {
	resp := make([]eventResponse, len(events))
	for i, ev := range events {
		resp[i] = toEventResponse(ev)
	}

	return resp
}
