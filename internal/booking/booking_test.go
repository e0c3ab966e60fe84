package booking_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mahmoudomarus/krib-server/internal/booking"
)

func TestCanTransition(t *testing.T) {
	type testCase struct {
		name string
		from booking.Status
		to   booking.Status
		want bool
	}

	tests := []testCase{
		{name: "PendingToConfirmed", from: booking.StatusPending, to: booking.StatusConfirmed, want: true},
		{name: "PendingToCancelled", from: booking.StatusPending, to: booking.StatusCancelled, want: true},
		{name: "PendingToCompleted", from: booking.StatusPending, to: booking.StatusCompleted, want: false},
		{name: "PendingToNoShow", from: booking.StatusPending, to: booking.StatusNoShow, want: false},
		{name: "ConfirmedToCompleted", from: booking.StatusConfirmed, to: booking.StatusCompleted, want: true},
		{name: "ConfirmedToCancelled", from: booking.StatusConfirmed, to: booking.StatusCancelled, want: true},
		{name: "ConfirmedToNoShow", from: booking.StatusConfirmed, to: booking.StatusNoShow, want: true},
		{name: "ConfirmedToPending", from: booking.StatusConfirmed, to: booking.StatusPending, want: false},
		{name: "CancelledIsTerminal", from: booking.StatusCancelled, to: booking.StatusPending, want: false},
		{name: "CompletedIsTerminal", from: booking.StatusCompleted, to: booking.StatusConfirmed, want: false},
		{name: "NoShowIsTerminal", from: booking.StatusNoShow, to: booking.StatusCancelled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, booking.CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, booking.Terminal(booking.StatusPending))
	assert.False(t, booking.Terminal(booking.StatusConfirmed))
	assert.True(t, booking.Terminal(booking.StatusCancelled))
	assert.True(t, booking.Terminal(booking.StatusCompleted))
	assert.True(t, booking.Terminal(booking.StatusNoShow))
}

func TestBooking_Nights(t *testing.T) {
	b := &booking.Booking{
		CheckIn:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 5, b.Nights())

	b.CheckOut = time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, b.Nights())
}

func TestOverlaps(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
	}

	type testCase struct {
		name                 string
		aIn, aOut, bIn, bOut int
		want                 bool
	}

	tests := []testCase{
		{name: "Identical", aIn: 10, aOut: 15, bIn: 10, bOut: 15, want: true},
		{name: "PartialOverlap", aIn: 10, aOut: 15, bIn: 13, bOut: 16, want: true},
		{name: "Contained", aIn: 10, aOut: 15, bIn: 11, bOut: 12, want: true},
		{name: "BackToBack", aIn: 10, aOut: 15, bIn: 15, bOut: 18, want: false},
		{name: "BackToBackBefore", aIn: 10, aOut: 15, bIn: 5, bOut: 10, want: false},
		{name: "Disjoint", aIn: 10, aOut: 12, bIn: 20, bOut: 25, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := booking.Overlaps(day(tt.aIn), day(tt.aOut), day(tt.bIn), day(tt.bOut))
			assert.Equal(t, tt.want, got)

			// Intersection is symmetric.
			assert.Equal(t, got, booking.Overlaps(day(tt.bIn), day(tt.bOut), day(tt.aIn), day(tt.aOut)))
		})
	}
}
