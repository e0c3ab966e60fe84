package event

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("subscription not found")
	ErrDisabled = errors.New("subscription disabled")
)

// Type names a state transition worth telling the outside world about.
type Type string

const (
	TypeBookingCreated   Type = "booking.created"
	TypeBookingConfirmed Type = "booking.confirmed"
	TypeBookingCancelled Type = "booking.cancelled"
	TypeBookingCompleted Type = "booking.completed"
	TypeBookingNoShow    Type = "booking.no_show"
	TypePayoutCreated    Type = "payout.created"
	TypePayoutUpdated    Type = "payout.updated"
)

// Event is one append-only record of a state transition. It is written in the
// same database transaction as the transition itself, so downstream consumers
// see it at least once; they dedupe on ID.
type Event struct {
	ID         uuid.UUID
	Seq        int64
	Type       Type
	BookingID  *uuid.UUID
	PayoutID   *uuid.UUID
	HostID     uuid.UUID
	Payload    json.RawMessage
	OccurredAt time.Time
}

// Subscription is a host's webhook registration. Delivery itself is the
// dispatcher's job; this core only tracks outcomes and disables endpoints
// that keep failing.
type Subscription struct {
	ID                  uuid.UUID
	HostID              uuid.UUID
	URL                 string
	Secret              string
	Events              []string
	Active              bool
	ConsecutiveFailures int
	CreatedAt           time.Time
	UpdatedAt           *time.Time
}

// ApplyDelivery folds one delivery outcome into the subscription. A success
// resets the failure streak; disableAfter consecutive failures deactivate the
// endpoint until a host re-enables it.
func (sub *Subscription) ApplyDelivery(ok bool, disableAfter int) {
	if ok {
		sub.ConsecutiveFailures = 0
		return
	}

	sub.ConsecutiveFailures++
	if disableAfter > 0 && sub.ConsecutiveFailures >= disableAfter {
		sub.Active = false
	}
}
