package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/booking"
)

type bookingResponse struct {
	ID            uuid.UUID             `json:"id"`
	PropertyID    uuid.UUID             `json:"property_id"`
	GuestName     string                `json:"guest_name"`
	GuestEmail    string                `json:"guest_email"`
	GuestPhone    string                `json:"guest_phone,omitempty"`
	CheckIn       string                `json:"check_in"`
	CheckOut      string                `json:"check_out"`
	Nights        int                   `json:"nights"`
	Guests        int                   `json:"guests"`
	TotalAmount   int64                 `json:"total_amount"`
	Status        booking.Status        `json:"status"`
	PaymentStatus booking.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     *time.Time            `json:"updated_at,omitempty"`
}

func toResponse(b *booking.Booking) bookingResponse {
	return bookingResponse{
		ID:            b.ID,
		PropertyID:    b.PropertyID,
		GuestName:     b.GuestName,
		GuestEmail:    b.GuestEmail,
		GuestPhone:    b.GuestPhone,
		CheckIn:       b.CheckIn.Format(time.DateOnly),
		CheckOut:      b.CheckOut.Format(time.DateOnly),
		Nights:        b.Nights(),
		Guests:        b.Guests,
		TotalAmount:   b.TotalAmount,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func toResponseList(bookings []*booking.Booking) []bookingResponse {
	resp := make([]bookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toResponse(b)
	}

	return resp
}
