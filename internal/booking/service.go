package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/event"
	"github.com/mahmoudomarus/krib-server/internal/ledger"
	"github.com/mahmoudomarus/krib-server/internal/policy"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=booking
type Repository interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListBookings(ctx context.Context, filter ListFilter) ([]*Booking, error)

	BeginCreate(ctx context.Context, propertyID uuid.UUID) (CreateTx, error)
	BeginTransition(ctx context.Context, bookingID uuid.UUID) (TransitionTx, error)
}

// CreateTx is one atomic booking insert. The property row is locked for the
// duration, so the availability check and the insert see a consistent view.
type CreateTx interface {
	Property(ctx context.Context) (*PropertySnapshot, error)
	HasOverlap(ctx context.Context, checkIn, checkOut time.Time) (bool, error)
	Insert(ctx context.Context, b *Booking) error
	AppendEvent(ctx context.Context, ev *event.Event) error
	Commit() error
	Rollback() error
}

// TransitionTx is one atomic status transition with its side effects: the
// ledger entry on confirmation, the property stats recompute, and the event
// append all commit or roll back together.
type TransitionTx interface {
	Booking(ctx context.Context) (*Booking, error)
	SetStatus(ctx context.Context, status Status, paymentStatus *PaymentStatus) error
	CreateLedgerEntry(ctx context.Context, e *ledger.Entry) error
	RecomputePropertyStats(ctx context.Context, propertyID uuid.UUID) error
	AppendEvent(ctx context.Context, ev *event.Event) error
	Commit() error
	Rollback() error
}

// PropertySnapshot is the slice of the property row the booking path needs.
type PropertySnapshot struct {
	ID          uuid.UUID
	HostID      uuid.UUID
	MaxGuests   int
	Status      string
	NightlyRate int64
	CleaningFee int64
}

type ListFilter struct {
	PropertyID *uuid.UUID
	HostID     *uuid.UUID
	GuestEmail *string
	Status     *Status
}

type Service struct {
	repo Repository
	calc ledger.Calculator
}

func NewService(repo Repository, calc ledger.Calculator) *Service {
	return &Service{repo: repo, calc: calc}
}

var ErrInvalidInput = errors.New("invalid booking input")

type CreateParams struct {
	PropertyID uuid.UUID
	GuestName  string
	GuestEmail string
	GuestPhone string
	CheckIn    time.Time
	CheckOut   time.Time
	Guests     int
}

// Create validates and inserts a pending booking. Anyone, including an
// anonymous guest, may create one; the availability check runs under the
// property lock so two concurrent requests cannot both claim an overlapping
// range.
func (s *Service) Create(ctx context.Context, actor policy.Actor, params CreateParams) (*Booking, error) {
	if params.GuestName == "" || params.GuestEmail == "" {
		return nil, fmt.Errorf("%w: guest name and email are required", ErrInvalidInput)
	}

	if !params.CheckOut.After(params.CheckIn) {
		return nil, fmt.Errorf("%w: check-out must be after check-in", ErrInvalidInput)
	}

	if params.Guests < 1 {
		return nil, fmt.Errorf("%w: at least one guest is required", ErrInvalidInput)
	}

	tx, err := s.repo.BeginCreate(ctx, params.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("begin booking create: %w", err)
	}
	defer tx.Rollback()

	prop, err := tx.Property(ctx)
	if err != nil {
		return nil, err
	}

	// Only the owner may book a listing that is not live.
	if prop.Status != "active" && !actor.IsHost(prop.HostID) {
		return nil, ErrNotFound
	}

	if params.Guests > prop.MaxGuests {
		return nil, fmt.Errorf("%w: property sleeps at most %d guests", ErrInvalidInput, prop.MaxGuests)
	}

	overlap, err := tx.HasOverlap(ctx, params.CheckIn, params.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("checking availability: %w", err)
	}

	if overlap {
		return nil, ErrDatesUnavailable
	}

	b := &Booking{
		PropertyID:    prop.ID,
		HostID:        prop.HostID,
		GuestName:     params.GuestName,
		GuestEmail:    params.GuestEmail,
		GuestPhone:    params.GuestPhone,
		CheckIn:       params.CheckIn,
		CheckOut:      params.CheckOut,
		Guests:        params.Guests,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
	}
	b.TotalAmount = int64(b.Nights())*prop.NightlyRate + prop.CleaningFee

	if err := tx.Insert(ctx, b); err != nil {
		return nil, err
	}

	ev, err := newEvent(event.TypeBookingCreated, b)
	if err != nil {
		return nil, err
	}

	if err := tx.AppendEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("appending event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking create: %w", err)
	}

	return b, nil
}

// Get returns a booking visible to the actor. Hidden rows surface as not
// found.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanReadBooking(actor, b.HostID, b.GuestEmail) {
		return nil, ErrNotFound
	}

	return b, nil
}

// List returns bookings scoped to what the actor may see: hosts see their
// properties' bookings, everyone else only bookings matching their own email.
func (s *Service) List(ctx context.Context, actor policy.Actor, filter ListFilter) ([]*Booking, error) {
	if actor.Anonymous() {
		return nil, nil
	}

	if filter.HostID == nil || !actor.IsHost(*filter.HostID) {
		filter.HostID = nil
		filter.GuestEmail = &actor.Email
	}

	return s.repo.ListBookings(ctx, filter)
}

// Transition moves a booking to a new status, applying the state machine and
// the confirm-time financial side effects in one database transaction.
// Re-applying the current status is a no-op.
func (s *Service) Transition(ctx context.Context, actor policy.Actor, id uuid.UUID, target Status) (*Booking, error) {
	itx, err := s.repo.BeginTransition(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer itx.Rollback()

	b, err := itx.Booking(ctx)
	if err != nil {
		return nil, err
	}

	if !policy.CanReadBooking(actor, b.HostID, b.GuestEmail) {
		return nil, ErrNotFound
	}

	if b.Status == target {
		// Idempotent re-application.
		return b, nil
	}

	if !s.authorized(actor, b, target) {
		return nil, ErrForbidden
	}

	if !CanTransition(b.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, target)
	}

	now := time.Now().UTC()

	if target == StatusCompleted && now.Before(b.CheckOut) {
		return nil, ErrCheckoutNotReached
	}

	var paymentStatus *PaymentStatus

	if b.Status != StatusConfirmed && target == StatusConfirmed {
		entry, err := s.confirmationEntry(b, now)
		if err != nil {
			return nil, err
		}

		if err := itx.CreateLedgerEntry(ctx, entry); err != nil {
			return nil, err
		}

		paid := PaymentPaid
		paymentStatus = &paid
	}

	if err := itx.SetStatus(ctx, target, paymentStatus); err != nil {
		return nil, err
	}

	if err := itx.RecomputePropertyStats(ctx, b.PropertyID); err != nil {
		return nil, err
	}

	ev, err := newEvent(eventTypeFor(target), b)
	if err != nil {
		return nil, err
	}

	if err := itx.AppendEvent(ctx, ev); err != nil {
		return nil, fmt.Errorf("appending event: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	b.Status = target
	if paymentStatus != nil {
		b.PaymentStatus = *paymentStatus
	}

	return b, nil
}

// authorized encodes transition authority: the host may drive any legal
// transition, a guest identified by contact email may only withdraw a
// pending request.
func (s *Service) authorized(actor policy.Actor, b *Booking, target Status) bool {
	if actor.IsHost(b.HostID) {
		return true
	}

	return actor.MatchesGuest(b.GuestEmail) && b.Status == StatusPending && target == StatusCancelled
}

// confirmationEntry derives the single financial transaction recorded when a
// booking is confirmed.
func (s *Service) confirmationEntry(b *Booking, now time.Time) (*ledger.Entry, error) {
	fees := s.calc.Fees(b.TotalAmount)

	entry := &ledger.Entry{
		BookingID:     b.ID,
		PropertyID:    b.PropertyID,
		HostID:        b.HostID,
		Type:          ledger.TypeBookingPayment,
		GrossAmount:   b.TotalAmount,
		PlatformFee:   fees.Platform,
		ProcessingFee: fees.Processing,
		NetAmount:     fees.Net,
		Status:        ledger.StatusCompleted,
		PaymentDate:   &now,
		ProcessedDate: &now,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

func eventTypeFor(target Status) event.Type {
	switch target {
	case StatusConfirmed:
		return event.TypeBookingConfirmed
	case StatusCancelled:
		return event.TypeBookingCancelled
	case StatusCompleted:
		return event.TypeBookingCompleted
	case StatusNoShow:
		return event.TypeBookingNoShow
	default:
		return event.TypeBookingCreated
	}
}

func newEvent(t event.Type, b *Booking) (*event.Event, error) {
	payload, err := json.Marshal(map[string]any{
		"booking_id":   b.ID,
		"property_id":  b.PropertyID,
		"status":       string(t),
		"check_in":     b.CheckIn.Format(time.DateOnly),
		"check_out":    b.CheckOut.Format(time.DateOnly),
		"total_amount": b.TotalAmount,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding event payload: %w", err)
	}

	return &event.Event{
		Type:      t,
		BookingID: &b.ID,
		HostID:    b.HostID,
		Payload:   payload,
	}, nil
}
