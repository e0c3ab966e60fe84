package property

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/policy"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=property
type Repository interface {
	CreateProperty(ctx context.Context, p *Property) error
	GetProperty(ctx context.Context, id uuid.UUID) (*Property, error)
	ListProperties(ctx context.Context, filter ListFilter) ([]*Property, error)
	UpdateProperty(ctx context.Context, p *Property) error
}

type ListFilter struct {
	HostID *uuid.UUID
	Status *Status
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	Name        string
	Location    string
	ImageURL    string
	NightlyRate int64
	CleaningFee int64
	MaxGuests   int
}

var ErrInvalidInput = errors.New("invalid property input")

func (s *Service) Create(ctx context.Context, actor policy.Actor, params CreateParams) (*Property, error) {
	if actor.Anonymous() {
		return nil, ErrForbidden
	}

	if params.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	if params.NightlyRate < 0 || params.CleaningFee < 0 {
		return nil, fmt.Errorf("%w: rates must not be negative", ErrInvalidInput)
	}

	if params.MaxGuests < 1 {
		return nil, fmt.Errorf("%w: max guests must be at least 1", ErrInvalidInput)
	}

	p := &Property{
		HostID:      actor.ID,
		Name:        params.Name,
		Location:    params.Location,
		ImageURL:    params.ImageURL,
		NightlyRate: params.NightlyRate,
		CleaningFee: params.CleaningFee,
		MaxGuests:   params.MaxGuests,
		Status:      StatusDraft,
	}
	if err := s.repo.CreateProperty(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// Get returns a property the actor may read. Hidden rows surface as not
// found rather than forbidden.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Property, error) {
	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanReadProperty(actor, p.HostID, string(p.Status)) {
		return nil, ErrNotFound
	}

	return p, nil
}

// List returns the actor's own listings when hostID matches the actor, and
// active listings otherwise.
func (s *Service) List(ctx context.Context, actor policy.Actor, filter ListFilter) ([]*Property, error) {
	if filter.HostID == nil || !actor.IsHost(*filter.HostID) {
		// Anyone browsing sees only active listings.
		active := StatusActive
		filter.Status = &active
	}

	return s.repo.ListProperties(ctx, filter)
}

type UpdateParams struct {
	Name        *string
	Location    *string
	ImageURL    *string
	NightlyRate *int64
	CleaningFee *int64
	MaxGuests   *int
	Status      *Status
}

func (s *Service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, params UpdateParams) (*Property, error) {
	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanReadProperty(actor, p.HostID, string(p.Status)) {
		return nil, ErrNotFound
	}

	if !policy.CanWriteProperty(actor, p.HostID) {
		return nil, ErrForbidden
	}

	if params.Name != nil {
		p.Name = *params.Name
	}

	if params.Location != nil {
		p.Location = *params.Location
	}

	if params.ImageURL != nil {
		p.ImageURL = *params.ImageURL
	}

	if params.NightlyRate != nil {
		p.NightlyRate = *params.NightlyRate
	}

	if params.CleaningFee != nil {
		p.CleaningFee = *params.CleaningFee
	}

	if params.MaxGuests != nil {
		if *params.MaxGuests < 1 {
			return nil, fmt.Errorf("%w: max guests must be at least 1", ErrInvalidInput)
		}

		p.MaxGuests = *params.MaxGuests
	}

	if params.Status != nil {
		switch *params.Status {
		case StatusDraft, StatusActive, StatusInactive, StatusSuspended:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *params.Status)
		}

		p.Status = *params.Status
	}

	if err := s.repo.UpdateProperty(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}
