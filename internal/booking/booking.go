package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("booking not found")
	ErrForbidden          = errors.New("not allowed")
	ErrDatesUnavailable   = errors.New("dates unavailable")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrCheckoutNotReached = errors.New("checkout date not reached")
)

// Status represents the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// PaymentStatus tracks the payment side of a booking independently of its
// lifecycle state.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentProcessing        PaymentStatus = "processing"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// transitions is the booking state machine. Statuses absent from the map are
// terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// CanTransition reports whether the state machine permits moving from one
// status to another. Re-applying the current status is not a transition and
// is handled separately as a no-op.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// Terminal reports whether a status has no outgoing transitions.
func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}

// Booking reserves a property for a guest over [CheckIn, CheckOut).
// TotalAmount is cents. HostID is denormalized from the property when the
// row is read.
type Booking struct {
	ID            uuid.UUID
	PropertyID    uuid.UUID
	HostID        uuid.UUID
	GuestName     string
	GuestEmail    string
	GuestPhone    string
	CheckIn       time.Time
	CheckOut      time.Time
	Guests        int
	TotalAmount   int64
	Status        Status
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// Nights is the stay length, derived from the date range.
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn) / (24 * time.Hour))
}

// Overlaps reports whether two date ranges intersect. Ranges are half-open,
// so back-to-back stays sharing a changeover day do not conflict.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}
