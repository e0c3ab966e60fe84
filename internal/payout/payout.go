package payout

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("payout not found")
	ErrNoSettings        = errors.New("payout settings not found")
	ErrInvalidTransition = errors.New("invalid payout status transition")
)

// Status represents the transfer state of a payout. The money movement
// itself happens at the payment processor; this core only records what the
// processor reports back.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusInTransit  Status = "in_transit"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
	StatusReversed   Status = "reversed"
)

// transitions mirrors the processor's transfer lifecycle. Statuses absent
// from the map are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCanceled, StatusFailed},
	StatusProcessing: {StatusInTransit, StatusPaid, StatusFailed},
	StatusInTransit:  {StatusPaid, StatusFailed},
	StatusPaid:       {StatusReversed},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// Releasing reports whether a status frees the payout's claimed transactions
// for a later settlement run.
func Releasing(s Status) bool {
	return s == StatusFailed || s == StatusCanceled
}

// Payout is one settlement batch owed to a host. Amount is cents and always
// equals the sum of the linked transactions' net amounts.
type Payout struct {
	ID            uuid.UUID
	HostID        uuid.UUID
	BankAccountID *uuid.UUID
	Amount        int64
	Status        Status
	FailureReason *string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Frequency controls how often the scheduler settles a host.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Settings is a host's payout configuration. MinimumAmount is cents.
type Settings struct {
	HostID         uuid.UUID
	BankAccountID  *uuid.UUID
	HoldPeriodDays int
	MinimumAmount  int64
	Frequency      Frequency
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// Due reports whether a host with this frequency should be settled on the
// given day: daily hosts every day, weekly hosts on Mondays, monthly hosts on
// the first of the month.
func (s *Settings) Due(t time.Time) bool {
	switch s.Frequency {
	case FrequencyWeekly:
		return t.Weekday() == time.Monday
	case FrequencyMonthly:
		return t.Day() == 1
	default:
		return true
	}
}
