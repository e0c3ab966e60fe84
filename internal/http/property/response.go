package property

import (
	"time"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/property"
)

type propertyResponse struct {
	ID           uuid.UUID       `json:"id"`
	HostID       uuid.UUID       `json:"host_id"`
	Name         string          `json:"name"`
	Location     string          `json:"location"`
	ImageURL     string          `json:"image_url,omitempty"`
	NightlyRate  int64           `json:"nightly_rate"`
	CleaningFee  int64           `json:"cleaning_fee"`
	MaxGuests    int             `json:"max_guests"`
	Status       property.Status `json:"status"`
	BookingCount int             `json:"booking_count"`
	TotalRevenue int64           `json:"total_revenue"`
	Rating       *float64        `json:"rating,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    *time.Time      `json:"updated_at,omitempty"`
}

func toResponse(p *property.Property) propertyResponse {
	return propertyResponse{
		ID:           p.ID,
		HostID:       p.HostID,
		Name:         p.Name,
		Location:     p.Location,
		ImageURL:     p.ImageURL,
		NightlyRate:  p.NightlyRate,
		CleaningFee:  p.CleaningFee,
		MaxGuests:    p.MaxGuests,
		Status:       p.Status,
		BookingCount: p.Stats.BookingCount,
		TotalRevenue: p.Stats.TotalRevenue,
		Rating:       p.Stats.Rating,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toResponseList(props []*property.Property) []propertyResponse {
	resp := make([]propertyResponse, len(props))
	for i, p := range props {
		resp[i] = toResponse(p)
	}

	return resp
}
