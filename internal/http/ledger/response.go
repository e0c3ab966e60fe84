package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/ledger"
)

type entryResponse struct {
	ID            uuid.UUID     `json:"id"`
	BookingID     uuid.UUID     `json:"booking_id"`
	PropertyID    uuid.UUID     `json:"property_id"`
	Type          ledger.Type   `json:"type"`
	GrossAmount   int64         `json:"gross_amount"`
	PlatformFee   int64         `json:"platform_fee"`
	ProcessingFee int64         `json:"processing_fee"`
	NetAmount     int64         `json:"net_amount"`
	Status        ledger.Status `json:"status"`
	PaymentDate   *time.Time    `json:"payment_date,omitempty"`
	ProcessedDate *time.Time    `json:"processed_date,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

func toResponse(e *ledger.Entry) entryResponse {
	return entryResponse{
		ID:            e.ID,
		BookingID:     e.BookingID,
		PropertyID:    e.PropertyID,
		Type:          e.Type,
		GrossAmount:   e.GrossAmount,
		PlatformFee:   e.PlatformFee,
		ProcessingFee: e.ProcessingFee,
		NetAmount:     e.NetAmount,
		Status:        e.Status,
		PaymentDate:   e.PaymentDate,
		ProcessedDate: e.ProcessedDate,
		CreatedAt:     e.CreatedAt,
	}
}

func toResponseList(entries []*ledger.Entry) []entryResponse {
	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toResponse(e)
	}

	return resp
}
