package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/booking"
	"github.com/mahmoudomarus/krib-server/internal/event"
	"github.com/mahmoudomarus/krib-server/internal/ledger"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectBookingColumns = `
	b.id, b.property_id, p.host_id, b.guest_name, b.guest_email, b.guest_phone,
	b.check_in, b.check_out, b.guests, b.total_amount, b.status, b.payment_status,
	b.created_at, b.updated_at
`

func scanBooking(s scanner) (*booking.Booking, error) {
	var b booking.Booking

	var statusStr, paymentStr string

	if err := s.Scan(
		&b.ID, &b.PropertyID, &b.HostID, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&b.CheckIn, &b.CheckOut, &b.Guests, &b.TotalAmount, &statusStr, &paymentStr,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}

	b.Status = booking.Status(statusStr)
	b.PaymentStatus = booking.PaymentStatus(paymentStr)

	return &b, nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	query := `SELECT ` + selectBookingColumns + `
		FROM bookings b
		JOIN properties p ON b.property_id = p.id
		WHERE b.id = $1`

	b, err := scanBooking(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, booking.ErrNotFound
		}

		return nil, fmt.Errorf("getting booking: %w", err)
	}

	return b, nil
}

func (s *Store) ListBookings(ctx context.Context, filter booking.ListFilter) ([]*booking.Booking, error) {
	query := `SELECT ` + selectBookingColumns + `
		FROM bookings b
		JOIN properties p ON b.property_id = p.id
		WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.PropertyID != nil {
		query += fmt.Sprintf(" AND b.property_id = $%d", argIdx)

		args = append(args, *filter.PropertyID)
		argIdx++
	}

	if filter.HostID != nil {
		query += fmt.Sprintf(" AND p.host_id = $%d", argIdx)

		args = append(args, *filter.HostID)
		argIdx++
	}

	if filter.GuestEmail != nil {
		query += fmt.Sprintf(" AND LOWER(b.guest_email) = LOWER($%d)", argIdx)

		args = append(args, *filter.GuestEmail)
		argIdx++
	}

	if filter.Status != nil {
		query += fmt.Sprintf(" AND b.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	query += " ORDER BY b.check_in ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*booking.Booking

	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}

		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating booking rows: %w", err)
	}

	return bookings, nil
}

const insertEventQuery = `
	INSERT INTO events (type, booking_id, payout_id, host_id, payload)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, seq, occurred_at
`

func appendEvent(ctx context.Context, tx *sql.Tx, ev *event.Event) error {
	err := tx.QueryRowContext(ctx, insertEventQuery,
		ev.Type,
		ev.BookingID,
		ev.PayoutID,
		ev.HostID,
		ev.Payload,
	).Scan(&ev.ID, &ev.Seq, &ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}

	return nil
}

type createTx struct {
	tx         *sql.Tx
	propertyID uuid.UUID
}

// BeginCreate opens the booking-insert transaction. The property row is
// locked up front so the availability check and the insert are serialized
// against concurrent requests for the same property.
func (s *Store) BeginCreate(ctx context.Context, propertyID uuid.UUID) (booking.CreateTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning create tx: %w", err)
	}

	return &createTx{tx: dbTx, propertyID: propertyID}, nil
}

func (c *createTx) Commit() error   { return c.tx.Commit() }
func (c *createTx) Rollback() error { return c.tx.Rollback() }

func (c *createTx) Property(ctx context.Context) (*booking.PropertySnapshot, error) {
	query := `
		SELECT id, host_id, max_guests, status, nightly_rate, cleaning_fee
		FROM properties
		WHERE id = $1
		FOR UPDATE
	`

	var snap booking.PropertySnapshot

	err := c.tx.QueryRowContext(ctx, query, c.propertyID).Scan(
		&snap.ID, &snap.HostID, &snap.MaxGuests, &snap.Status, &snap.NightlyRate, &snap.CleaningFee,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, booking.ErrNotFound
		}

		return nil, fmt.Errorf("locking property: %w", err)
	}

	return &snap, nil
}

func (c *createTx) HasOverlap(ctx context.Context, checkIn, checkOut time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE property_id = $1
			  AND status IN ('pending', 'confirmed')
			  AND check_in < $3 AND check_out > $2
		)
	`

	var exists bool
	if err := c.tx.QueryRowContext(ctx, query, c.propertyID, checkIn, checkOut).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking overlap: %w", err)
	}

	return exists, nil
}

func (c *createTx) Insert(ctx context.Context, b *booking.Booking) error {
	query := `
		INSERT INTO bookings (property_id, guest_name, guest_email, guest_phone, check_in, check_out, guests, total_amount, status, payment_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`

	err := c.tx.QueryRowContext(ctx, query,
		b.PropertyID,
		b.GuestName,
		b.GuestEmail,
		b.GuestPhone,
		b.CheckIn,
		b.CheckOut,
		b.Guests,
		b.TotalAmount,
		b.Status,
		b.PaymentStatus,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating booking: %w", err)
	}

	return nil
}

func (c *createTx) AppendEvent(ctx context.Context, ev *event.Event) error {
	return appendEvent(ctx, c.tx, ev)
}

type transitionTx struct {
	tx        *sql.Tx
	bookingID uuid.UUID
}

// BeginTransition opens the status-transition transaction. The booking row is
// read under FOR UPDATE so two concurrent transitions on the same booking
// serialize and the confirmed-status guard holds.
func (s *Store) BeginTransition(ctx context.Context, bookingID uuid.UUID) (booking.TransitionTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transition tx: %w", err)
	}

	return &transitionTx{tx: dbTx, bookingID: bookingID}, nil
}

func (t *transitionTx) Commit() error   { return t.tx.Commit() }
func (t *transitionTx) Rollback() error { return t.tx.Rollback() }

func (t *transitionTx) Booking(ctx context.Context) (*booking.Booking, error) {
	query := `SELECT ` + selectBookingColumns + `
		FROM bookings b
		JOIN properties p ON b.property_id = p.id
		WHERE b.id = $1
		FOR UPDATE OF b`

	b, err := scanBooking(t.tx.QueryRowContext(ctx, query, t.bookingID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, booking.ErrNotFound
		}

		return nil, fmt.Errorf("locking booking: %w", err)
	}

	return b, nil
}

func (t *transitionTx) SetStatus(ctx context.Context, status booking.Status, paymentStatus *booking.PaymentStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, payment_status = COALESCE($2, payment_status), updated_at = NOW()
		WHERE id = $3
	`

	if _, err := t.tx.ExecContext(ctx, query, status, paymentStatus, t.bookingID); err != nil {
		return fmt.Errorf("updating booking status: %w", err)
	}

	return nil
}

func (t *transitionTx) CreateLedgerEntry(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO financial_transactions (booking_id, property_id, host_id, type, gross_amount, platform_fee, processing_fee, net_amount, status, payment_date, processed_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id, created_at
	`

	err := t.tx.QueryRowContext(ctx, query,
		e.BookingID,
		e.PropertyID,
		e.HostID,
		e.Type,
		e.GrossAmount,
		e.PlatformFee,
		e.ProcessingFee,
		e.NetAmount,
		e.Status,
		e.PaymentDate,
		e.ProcessedDate,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating ledger entry: %w", err)
	}

	return nil
}

const recomputeStatsQuery = `
	UPDATE properties SET
		booking_count = (
			SELECT COUNT(*) FROM bookings
			WHERE property_id = $1 AND status IN ('confirmed', 'completed')
		),
		total_revenue = COALESCE((
			SELECT SUM(total_amount) FROM bookings
			WHERE property_id = $1 AND status IN ('confirmed', 'completed')
		), 0),
		updated_at = NOW()
	WHERE id = $1
`

func (t *transitionTx) RecomputePropertyStats(ctx context.Context, propertyID uuid.UUID) error {
	if _, err := t.tx.ExecContext(ctx, recomputeStatsQuery, propertyID); err != nil {
		return fmt.Errorf("recomputing property stats: %w", err)
	}

	return nil
}

func (t *transitionTx) AppendEvent(ctx context.Context, ev *event.Event) error {
	return appendEvent(ctx, t.tx, ev)
}
