package property

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("property not found")
	ErrForbidden = errors.New("not allowed")
)

// Status represents the listing state of a property.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Property is a host's listing. Monetary fields are cents. Stats is derived
// from bookings and recomputed on every booking write; it is never
// authoritative.
type Property struct {
	ID          uuid.UUID
	HostID      uuid.UUID
	Name        string
	Location    string
	ImageURL    string
	NightlyRate int64
	CleaningFee int64
	MaxGuests   int
	Status      Status
	Stats       Stats
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// Stats are aggregates over the property's confirmed and completed bookings.
type Stats struct {
	BookingCount int
	TotalRevenue int64
	Rating       *float64
}
