package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("transaction not found")

// Type categorizes a financial transaction.
type Type string

const (
	TypeBookingPayment  Type = "booking_payment"
	TypeRefund          Type = "refund"
	TypeCancellationFee Type = "cancellation_fee"
	TypeCleaningFee     Type = "cleaning_fee"
	TypeSecurityDeposit Type = "security_deposit"
)

// Status represents the lifecycle state of a financial transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusDisputed  Status = "disputed"
	StatusRefunded  Status = "refunded"
)

// Entry is one row in the financial ledger. All amounts are in cents.
type Entry struct {
	ID            uuid.UUID
	BookingID     uuid.UUID
	PropertyID    uuid.UUID
	HostID        uuid.UUID
	Type          Type
	GrossAmount   int64
	PlatformFee   int64
	ProcessingFee int64
	NetAmount     int64
	Status        Status
	PaymentDate   *time.Time
	ProcessedDate *time.Time
	CreatedAt     time.Time
}

// Validate checks the ledger arithmetic invariant. A violation is a
// programming defect, not a recoverable condition.
func (e *Entry) Validate() error {
	if e.NetAmount != e.GrossAmount-e.PlatformFee-e.ProcessingFee {
		return fmt.Errorf("ledger entry %s: net %d != gross %d - platform %d - processing %d",
			e.ID, e.NetAmount, e.GrossAmount, e.PlatformFee, e.ProcessingFee)
	}

	return nil
}
